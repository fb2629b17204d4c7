package impl

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/evkuzin/weatherstation-influx/network"
	"github.com/evkuzin/weatherstation-influx/storage"
	"github.com/evkuzin/weatherstation-influx/weather_station"
	"github.com/sirupsen/logrus"
)

type Options struct {
	Device    string
	SleepTime time.Duration
}

// weatherStationImpl owns every peripheral and runs them one after another,
// once per period.
type weatherStationImpl struct {
	sensor  weather_station.Sensor
	display weather_station.Display
	network network.Network
	Storage storage.Adapter
	opts    Options
	logger  logrus.FieldLogger
}

// Init brings the station up in order: display, network, storage endpoint,
// record tags. The sensor is ready once constructed. Only a network join that
// gives up and a tag error are returned; the rest is logged.
func (ws *weatherStationImpl) Init(ctx context.Context) error {
	if err := ws.display.Init(); err != nil {
		ws.logger.Errorf("Failed to start OLED Display: %v", err)
	}

	if err := ws.network.Connect(ctx); err != nil {
		return fmt.Errorf("cannot join wifi: %w", err)
	}

	if err := ws.Storage.Init(ctx); err != nil {
		ws.logger.Errorf("InfluxDB connection failed: %v", err)
	}

	err := ws.Storage.SetTags(map[string]string{
		"device": ws.opts.Device,
		"SSID":   ws.network.SSID(),
	})
	if err != nil {
		return fmt.Errorf("cannot tag record: %w", err)
	}
	return nil
}

// Start is the main daemon loop. It returns when ctx is done.
func (ws *weatherStationImpl) Start(ctx context.Context) {
	defer func() {
		if err := ws.display.Halt(); err != nil {
			ws.logger.Errorf("error: %s", err.Error())
		}
	}()
	ws.logger.Info("Weather station starting...")

	for {
		ws.cycle(ctx)

		select {
		case <-ctx.Done():
			ws.logger.Info("Stopping weather station")
			return
		case <-time.After(ws.opts.SleepTime):
		}
	}
}

// cycle reads the sensor, shows and publishes the sample. The connection is
// checked, and rejoined if needed, before anything is written to the network.
func (ws *weatherStationImpl) cycle(ctx context.Context) {
	env, readErr := ws.sensor.Read()
	if readErr != nil {
		ws.logger.Warnf("cannot read sensor: %v", readErr)
	} else {
		ws.render(env)
	}

	if !ws.ensureConnected(ctx) || readErr != nil {
		return
	}

	if err := ws.Storage.Put(ctx, &env); err != nil {
		ws.logger.Errorf("InfluxDB send Point failed: %v", err)
	}
}

func (ws *weatherStationImpl) render(env weather_station.Environment) {
	err := ws.display.Render(env.Humidity, env.HeatIndex)
	switch {
	case errors.Is(err, weather_station.ErrDisplayOffline):
		ws.logger.Debugf("skip render: %v", err)
	case err != nil:
		ws.logger.Warnf("cannot render: %v", err)
	}
}

func (ws *weatherStationImpl) ensureConnected(ctx context.Context) bool {
	if ws.network.IsConnected(ctx) {
		return true
	}
	ws.logger.Warn("Lost connection to Wi-Fi network.")
	if err := ws.network.Connect(ctx); err != nil {
		ws.logger.Errorf("cannot reconnect: %v", err)
		return false
	}
	return true
}

// NewWeatherStation return a new instance of a WeatherStation daemon
func NewWeatherStation(
	sensor weather_station.Sensor,
	display weather_station.Display,
	net network.Network,
	store storage.Adapter,
	opts Options,
	logger logrus.FieldLogger,
) weather_station.WeatherStation {
	return &weatherStationImpl{
		sensor:  sensor,
		display: display,
		network: net,
		Storage: store,
		opts:    opts,
		logger:  logger,
	}
}
