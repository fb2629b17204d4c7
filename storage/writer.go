package storage

import (
	"context"
	"time"

	"github.com/evkuzin/weatherstation-influx/config"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Writer is the remote end of the storage.
type Writer interface {
	Ping(ctx context.Context) (bool, error)
	WritePoint(ctx context.Context, point *write.Point) error
	ServerURL() string
	Close()
}

type influxWriter struct {
	client influxdb2.Client
	api    api.WriteAPIBlocking
}

func NewInfluxWriter(conf config.InfluxDB) Writer {
	opts := influxdb2.DefaultOptions().
		SetPrecision(time.Second).
		SetHTTPRequestTimeout(uint(conf.Timeout.Seconds()))
	client := influxdb2.NewClientWithOptions(conf.URL, conf.Token, opts)
	return &influxWriter{
		client: client,
		api:    client.WriteAPIBlocking(conf.Org, conf.Bucket),
	}
}

func (w *influxWriter) Ping(ctx context.Context) (bool, error) {
	return w.client.Ping(ctx)
}

func (w *influxWriter) WritePoint(ctx context.Context, point *write.Point) error {
	return w.api.WritePoint(ctx, point)
}

func (w *influxWriter) ServerURL() string {
	return w.client.ServerURL()
}

func (w *influxWriter) Close() {
	w.client.Close()
}
