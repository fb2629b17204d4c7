package weather_station

import (
	"errors"
	"fmt"
	"math"

	"github.com/MichaelS11/go-dht"
	"github.com/evkuzin/weatherstation-influx/config"
	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/physic"
)

var ErrSensorRead = errors.New("sensor read failed")

type dhtDevice interface {
	Read() (humidity float64, temperature float64, err error)
	ReadRetry(maxRetries int) (humidity float64, temperature float64, err error)
}

// DHTSensor polls a DHT11/DHT22 on a single GPIO pin.
type DHTSensor struct {
	dev     dhtDevice
	retries int
	logger  logrus.FieldLogger
}

func NewDHTSensor(conf config.Sensor, logger logrus.FieldLogger) (*DHTSensor, error) {
	if err := dht.HostInit(); err != nil {
		return nil, fmt.Errorf("cannot init dht host: %w", err)
	}
	dev, err := dht.NewDHT(conf.Pin, dht.Celsius, conf.Type)
	if err != nil {
		return nil, fmt.Errorf("cannot open %s on %s: %w", conf.Type, conf.Pin, err)
	}
	logger.Infof("%s sensor ready on %s", conf.Type, conf.Pin)
	return newDHTSensor(dev, conf.ReadRetries, logger), nil
}

func newDHTSensor(dev dhtDevice, retries int, logger logrus.FieldLogger) *DHTSensor {
	return &DHTSensor{dev: dev, retries: retries, logger: logger}
}

func (s *DHTSensor) Read() (Environment, error) {
	var (
		humidity, temperature float64
		err                   error
	)
	if s.retries > 0 {
		humidity, temperature, err = s.dev.ReadRetry(s.retries)
	} else {
		humidity, temperature, err = s.dev.Read()
	}
	if err != nil {
		return Environment{}, fmt.Errorf("%w: %v", ErrSensorRead, err)
	}
	if math.IsNaN(temperature) || math.IsNaN(humidity) {
		return Environment{}, fmt.Errorf("%w: not a number", ErrSensorRead)
	}

	env := Environment{
		Temperature: temperature,
		Humidity:    humidity,
		HeatIndex:   HeatIndex(temperature, humidity),
	}
	s.logger.Debugf(
		"Temperature: %s Humidity: %s Heat index: %s",
		toTemperature(env.Temperature),
		physic.RelativeHumidity(env.Humidity*float64(physic.PercentRH)),
		toTemperature(env.HeatIndex),
	)
	return env, nil
}

func toTemperature(celsius float64) physic.Temperature {
	return physic.ZeroCelsius + physic.Temperature(celsius*float64(physic.Celsius))
}
