package main

import (
	"fmt"
	"io"
	"os"

	"github.com/evkuzin/weatherstation-influx/config"
	"github.com/evkuzin/weatherstation-influx/network"
	"github.com/evkuzin/weatherstation-influx/storage"
	"github.com/evkuzin/weatherstation-influx/weather_station"
	"github.com/evkuzin/weatherstation-influx/weather_station/impl"
	"github.com/jacobsa/go-serial/serial"
	"github.com/sirupsen/logrus"
)

// newLogger writes the diagnostic stream to stdout and, when a serial port
// is configured, to that port too.
func newLogger(conf *config.Config) (*logrus.Logger, func(), error) {
	level, err := logrus.ParseLevel(conf.Log.Level)
	if err != nil {
		return nil, nil, err
	}
	logger := &logrus.Logger{
		Out:          os.Stdout,
		Formatter:    &logrus.TextFormatter{},
		Hooks:        make(logrus.LevelHooks),
		Level:        level,
		ReportCaller: true,
	}
	if conf.Serial.Port == "" {
		return logger, func() {}, nil
	}

	port, err := serial.Open(serial.OpenOptions{
		PortName:        conf.Serial.Port,
		BaudRate:        conf.Serial.Baud,
		DataBits:        8,
		StopBits:        1,
		MinimumReadSize: 1,
	})
	if err != nil {
		logger.Warnf("cannot open serial port %s, logging to stdout only: %v", conf.Serial.Port, err)
		return logger, func() {}, nil
	}
	logger.SetOutput(io.MultiWriter(os.Stdout, port))
	return logger, func() {
		if err := port.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "cannot close serial port: %v\n", err)
		}
	}, nil
}

// newStation builds every peripheral from conf. The display is optional: if
// it cannot be opened the station runs without it.
func newStation(conf *config.Config, logger *logrus.Logger) (weather_station.WeatherStation, func(), error) {
	sensor, err := weather_station.NewDHTSensor(conf.Sensor, logger)
	if err != nil {
		return nil, nil, err
	}

	var closers []func() error
	var panel weather_station.Panel
	bus, err := weather_station.PeripheralInitialisation(conf.Display.Bus, logger)
	if err != nil {
		logger.Warnf("cannot open display bus: %v", err)
	} else {
		closers = append(closers, bus.Close)
		dev, err := weather_station.NewSSD1306(bus, conf.Display)
		if err != nil {
			logger.Warnf("cannot open display: %v", err)
		} else {
			panel = dev
		}
	}
	display := weather_station.NewOLED(panel, logger)

	link, err := network.NewNetworkManager(conf.Wifi.Interface)
	if err != nil {
		closeAll(closers, logger)
		return nil, nil, err
	}
	closers = append(closers, link.Close)
	connector := network.NewConnector(
		link,
		conf.Wifi,
		network.PolicyFromConfig(conf.Wifi.Retry),
		logger,
	)

	clock, err := storage.NewClock(conf.Time, logger)
	if err != nil {
		closeAll(closers, logger)
		return nil, nil, err
	}
	store := storage.NewStorage(
		storage.NewInfluxWriter(conf.InfluxDB),
		clock,
		conf.InfluxDB.Measurement,
		logger,
	)
	closers = append(closers, func() error {
		store.Close()
		return nil
	})

	ws := impl.NewWeatherStation(sensor, display, connector, store, impl.Options{
		Device:    conf.Device,
		SleepTime: conf.SleepTime,
	}, logger)
	return ws, func() { closeAll(closers, logger) }, nil
}

func closeAll(closers []func() error, logger *logrus.Logger) {
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			logger.Warnf("Error during shutdown: %v", err)
		}
	}
}
