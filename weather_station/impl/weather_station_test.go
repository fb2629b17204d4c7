package impl

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/evkuzin/weatherstation-influx/network"
	"github.com/evkuzin/weatherstation-influx/weather_station"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// calls collects what every fake did, in order.
type calls []string

func (c *calls) add(format string, args ...interface{}) {
	*c = append(*c, fmt.Sprintf(format, args...))
}

type fakeSensor struct {
	log  *calls
	envs []weather_station.Environment
	err  error
}

func (s *fakeSensor) Read() (weather_station.Environment, error) {
	s.log.add("read")
	if s.err != nil {
		return weather_station.Environment{}, s.err
	}
	env := s.envs[0]
	if len(s.envs) > 1 {
		s.envs = s.envs[1:]
	}
	return env, nil
}

type fakeDisplay struct {
	log     *calls
	initErr error
	lines   [][2]string
	halted  bool
}

func (d *fakeDisplay) Init() error {
	d.log.add("display init")
	return d.initErr
}

func (d *fakeDisplay) Render(humidity, heatIndex float64) error {
	d.log.add("render")
	d.lines = append(d.lines, weather_station.DisplayLines(humidity, heatIndex))
	return nil
}

func (d *fakeDisplay) Halt() error {
	d.halted = true
	return nil
}

type fakeNetwork struct {
	log        *calls
	connected  bool
	connectErr error
	ssid       string
}

func (n *fakeNetwork) Connect(context.Context) error {
	n.log.add("connect")
	if n.connectErr != nil {
		return n.connectErr
	}
	n.connected = true
	return nil
}

func (n *fakeNetwork) IsConnected(context.Context) bool {
	n.log.add("is connected")
	return n.connected
}

func (n *fakeNetwork) SSID() string { return n.ssid }

type fakeStorage struct {
	log     *calls
	initErr error
	putErr  error
	tags    map[string]string
	puts    []weather_station.Environment
	onPut   func()
}

func (s *fakeStorage) Init(context.Context) error {
	s.log.add("storage init")
	return s.initErr
}

func (s *fakeStorage) SetTags(tags map[string]string) error {
	s.log.add("set tags")
	s.tags = tags
	return nil
}

func (s *fakeStorage) Put(_ context.Context, event *weather_station.Environment) error {
	s.log.add("put")
	s.puts = append(s.puts, *event)
	if s.onPut != nil {
		s.onPut()
	}
	return s.putErr
}

type fixture struct {
	log     *calls
	sensor  *fakeSensor
	display *fakeDisplay
	network *fakeNetwork
	storage *fakeStorage
	hook    *test.Hook
	ws      *weatherStationImpl
}

func newFixture(envs ...weather_station.Environment) *fixture {
	log := &calls{}
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	f := &fixture{
		log:     log,
		sensor:  &fakeSensor{log: log, envs: envs},
		display: &fakeDisplay{log: log},
		network: &fakeNetwork{log: log, ssid: "home"},
		storage: &fakeStorage{log: log},
		hook:    hook,
	}
	f.ws = NewWeatherStation(
		f.sensor, f.display, f.network, f.storage,
		Options{Device: "ESP32", SleepTime: time.Millisecond},
		logger,
	).(*weatherStationImpl)
	return f
}

func (f *fixture) messages(level logrus.Level) []string {
	var out []string
	for _, e := range f.hook.AllEntries() {
		if e.Level == level {
			out = append(out, e.Message)
		}
	}
	return out
}

func env(t, h float64) weather_station.Environment {
	return weather_station.Environment{Temperature: t, Humidity: h, HeatIndex: weather_station.HeatIndex(t, h)}
}

func TestInitOrder(t *testing.T) {
	f := newFixture(env(25, 50))

	require.NoError(t, f.ws.Init(context.Background()))
	assert.Equal(t, calls{"display init", "connect", "storage init", "set tags"}, *f.log)
	assert.Equal(t, map[string]string{"device": "ESP32", "SSID": "home"}, f.storage.tags)
}

func TestInitToleratesDisplayAndEndpointFailures(t *testing.T) {
	f := newFixture(env(25, 50))
	f.display.initErr = weather_station.ErrDisplayOffline
	f.storage.initErr = errors.New("401 unauthorized")

	require.NoError(t, f.ws.Init(context.Background()))
	assert.Contains(t, *f.log, "set tags")
	errs := f.messages(logrus.ErrorLevel)
	require.Len(t, errs, 2)
	assert.Contains(t, errs[0], "Failed to start OLED Display")
	assert.Contains(t, errs[1], "InfluxDB connection failed: 401 unauthorized")
}

func TestInitFailsWhenWifiGivesUp(t *testing.T) {
	f := newFixture(env(25, 50))
	f.network.connectErr = network.ErrNotConnected

	assert.ErrorIs(t, f.ws.Init(context.Background()), network.ErrNotConnected)
	assert.NotContains(t, *f.log, "set tags")
}

func TestCycleEndToEnd(t *testing.T) {
	f := newFixture(env(25, 50))
	f.network.connected = true

	f.ws.cycle(context.Background())

	assert.Equal(t, calls{"read", "render", "is connected", "put"}, *f.log)
	require.Len(t, f.storage.puts, 1)
	got := f.storage.puts[0]
	assert.Equal(t, 25.0, got.Temperature)
	assert.Equal(t, 50.0, got.Humidity)
	assert.InDelta(t, 24.86, got.HeatIndex, 0.05)
	assert.Equal(t, [][2]string{{"24.86 C", "50.00 g/m3"}}, f.display.lines)
}

func TestCycleReconnectsBeforePublish(t *testing.T) {
	f := newFixture(env(25, 50))

	f.ws.cycle(context.Background())

	assert.Equal(t, calls{"read", "render", "is connected", "connect", "put"}, *f.log)
	assert.Contains(t, f.messages(logrus.WarnLevel), "Lost connection to Wi-Fi network.")
}

func TestCycleSkipsPublishWhenReconnectFails(t *testing.T) {
	f := newFixture(env(25, 50))
	f.network.connectErr = network.ErrNotConnected

	f.ws.cycle(context.Background())

	assert.Equal(t, calls{"read", "render", "is connected", "connect"}, *f.log)
	assert.Empty(t, f.storage.puts)
}

func TestCycleSensorFailure(t *testing.T) {
	f := newFixture()
	f.network.connected = true
	f.sensor.err = fmt.Errorf("%w: checksum", weather_station.ErrSensorRead)

	f.ws.cycle(context.Background())

	assert.Equal(t, calls{"read", "is connected"}, *f.log)
	assert.Empty(t, f.storage.puts)
	assert.Empty(t, f.display.lines)
}

func TestCyclePublishFailuresAreIndependent(t *testing.T) {
	f := newFixture(env(25, 50), env(26, 55))
	f.network.connected = true
	f.storage.putErr = errors.New("503 service unavailable")

	f.ws.cycle(context.Background())
	first := append(calls{}, *f.log...)
	*f.log = nil
	f.ws.cycle(context.Background())

	assert.Equal(t, first, *f.log)
	assert.Equal(t, []string{
		"InfluxDB send Point failed: 503 service unavailable",
		"InfluxDB send Point failed: 503 service unavailable",
	}, f.messages(logrus.ErrorLevel))
	require.Len(t, f.storage.puts, 2)
	assert.Equal(t, 26.0, f.storage.puts[1].Temperature)
}

func TestStartStopsOnContext(t *testing.T) {
	f := newFixture(env(25, 50), env(26, 50), env(27, 50))
	f.network.connected = true

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.storage.onPut = func() {
		if len(f.storage.puts) == 3 {
			cancel()
		}
	}
	done := make(chan struct{})
	go func() {
		f.ws.Start(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return")
	}
	assert.True(t, f.display.halted)
	require.Len(t, f.storage.puts, 3)
	assert.Equal(t, 27.0, f.storage.puts[2].Temperature)
}
