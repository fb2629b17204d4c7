package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/evkuzin/weatherstation-influx/weather_station"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/sirupsen/logrus"
)

// Storage publishes the station's single record to InfluxDB. A failed write
// is dropped; the next Put overwrites the fields and tries again.
type Storage struct {
	writer Writer
	clock  *Clock
	record *Record
	logger logrus.FieldLogger
}

func NewStorage(writer Writer, clock *Clock, measurement string, logger logrus.FieldLogger) *Storage {
	return &Storage{
		writer: writer,
		clock:  clock,
		record: NewRecord(measurement),
		logger: logger,
	}
}

// Init syncs the clock, then checks that the endpoint answers.
func (s *Storage) Init(ctx context.Context) error {
	if err := s.clock.Sync(ctx); err != nil {
		s.logger.Warnf("time sync failed, timestamps use the local clock: %v", err)
	}

	ok, err := s.writer.Ping(ctx)
	if err == nil && !ok {
		err = errors.New("endpoint is not ready")
	}
	if err != nil {
		return fmt.Errorf("cannot reach %s: %w", s.writer.ServerURL(), err)
	}
	s.logger.Infof("Connected to InfluxDB: %s", s.writer.ServerURL())
	return nil
}

func (s *Storage) SetTags(tags map[string]string) error {
	return s.record.SetTags(tags)
}

func (s *Storage) Tags() map[string]string {
	return s.record.Tags()
}

func (s *Storage) Put(ctx context.Context, event *weather_station.Environment) error {
	s.record.ClearFields()
	s.record.AddField("temperature", event.Temperature)
	s.record.AddField("humidity", event.Humidity)
	s.record.AddField("heat_index", event.HeatIndex)

	point := s.record.Point(s.clock.Now())
	s.logger.Info(strings.TrimSpace(write.PointToLineProtocol(point, time.Second)))

	if err := s.writer.WritePoint(ctx, point); err != nil {
		return fmt.Errorf("cannot write point: %w", err)
	}
	return nil
}

func (s *Storage) Close() {
	s.writer.Close()
}
