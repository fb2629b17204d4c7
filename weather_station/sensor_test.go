package weather_station

import (
	"errors"
	"math"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDHT struct {
	humidity, temperature float64
	err                   error
	reads, retryReads     int
	lastRetries           int
}

func (f *fakeDHT) Read() (float64, float64, error) {
	f.reads++
	return f.humidity, f.temperature, f.err
}

func (f *fakeDHT) ReadRetry(maxRetries int) (float64, float64, error) {
	f.retryReads++
	f.lastRetries = maxRetries
	return f.humidity, f.temperature, f.err
}

func TestDHTSensorRead(t *testing.T) {
	logger, _ := test.NewNullLogger()
	dev := &fakeDHT{humidity: 50, temperature: 25}
	s := newDHTSensor(dev, 0, logger)

	env, err := s.Read()
	require.NoError(t, err)
	assert.Equal(t, 25.0, env.Temperature)
	assert.Equal(t, 50.0, env.Humidity)
	assert.Equal(t, HeatIndex(25, 50), env.HeatIndex)
	assert.Equal(t, 1, dev.reads)
	assert.Zero(t, dev.retryReads)
}

func TestDHTSensorReadRetry(t *testing.T) {
	logger, _ := test.NewNullLogger()
	dev := &fakeDHT{humidity: 70, temperature: 30}
	s := newDHTSensor(dev, 3, logger)

	_, err := s.Read()
	require.NoError(t, err)
	assert.Equal(t, 1, dev.retryReads)
	assert.Equal(t, 3, dev.lastRetries)
	assert.Zero(t, dev.reads)
}

func TestDHTSensorReadFailure(t *testing.T) {
	logger, _ := test.NewNullLogger()

	s := newDHTSensor(&fakeDHT{err: errors.New("checksum mismatch")}, 0, logger)
	_, err := s.Read()
	assert.ErrorIs(t, err, ErrSensorRead)
	assert.Contains(t, err.Error(), "checksum mismatch")

	s = newDHTSensor(&fakeDHT{humidity: math.NaN(), temperature: 21}, 0, logger)
	_, err = s.Read()
	assert.ErrorIs(t, err, ErrSensorRead)
}
