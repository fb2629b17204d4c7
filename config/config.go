package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed station.yaml
var compiledIn []byte

type AccessPoint struct {
	SSID     string `yaml:"ssid"`
	Password string `yaml:"password"`
}

// Retry controls how the network connector polls while joining.
// MaxAttempts of zero retries forever.
type Retry struct {
	Interval    time.Duration `yaml:"interval"`
	MaxAttempts uint64        `yaml:"max_attempts"`
	Exponential bool          `yaml:"exponential"`
	MaxInterval time.Duration `yaml:"max_interval"`
}

type Wifi struct {
	Interface    string        `yaml:"interface"`
	AccessPoints []AccessPoint `yaml:"access_points"`
	// JoinTimeout is how long one access point gets to finish activating
	// before the next one is tried.
	JoinTimeout time.Duration `yaml:"join_timeout"`
	Retry       Retry         `yaml:"retry"`
}

type InfluxDB struct {
	URL         string        `yaml:"url"`
	Token       string        `yaml:"token"`
	Org         string        `yaml:"org"`
	Bucket      string        `yaml:"bucket"`
	Measurement string        `yaml:"measurement"`
	Timeout     time.Duration `yaml:"timeout"`
}

type Time struct {
	TZ      string        `yaml:"tz"`
	Servers []string      `yaml:"servers"`
	Timeout time.Duration `yaml:"timeout"`
}

type Sensor struct {
	Pin         string `yaml:"pin"`
	Type        string `yaml:"type"`
	ReadRetries int    `yaml:"read_retries"`
}

type Display struct {
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	Bus    string `yaml:"bus"`
}

type Serial struct {
	Port string `yaml:"port"`
	Baud uint   `yaml:"baud"`
}

type Log struct {
	Level string `yaml:"level"`
}

type Config struct {
	Device    string        `yaml:"device"`
	SleepTime time.Duration `yaml:"sleep_time"`
	Log       Log           `yaml:"log"`
	Serial    Serial        `yaml:"serial"`
	Wifi      Wifi          `yaml:"wifi"`
	InfluxDB  InfluxDB      `yaml:"influxdb"`
	Time      Time          `yaml:"time"`
	Sensor    Sensor        `yaml:"sensor"`
	Display   Display       `yaml:"display"`
}

// Default returns the configuration compiled into the binary.
func Default() (*Config, error) {
	return Parse(compiledIn)
}

func NewConfig(f string) (*Config, error) {
	rawConf, err := os.ReadFile(f)
	if err != nil {
		return nil, fmt.Errorf("cannot open a Config: %w", err)
	}
	return Parse(rawConf)
}

func Parse(rawConf []byte) (*Config, error) {
	conf := Config{}
	err := yaml.Unmarshal(rawConf, &conf)
	if err != nil {
		return nil, fmt.Errorf("cannot unmarshall a Config: %w", err)
	}
	if err := conf.validate(); err != nil {
		return nil, fmt.Errorf("invalid Config: %w", err)
	}
	return &conf, nil
}

func (c *Config) validate() error {
	switch {
	case c.Device == "":
		return errors.New("device is empty")
	case c.SleepTime <= 0:
		return fmt.Errorf("sleep_time must be positive, got %s", c.SleepTime)
	case len(c.Wifi.AccessPoints) == 0:
		return errors.New("wifi.access_points is empty")
	case c.Wifi.JoinTimeout <= 0:
		return fmt.Errorf("wifi.join_timeout must be positive, got %s", c.Wifi.JoinTimeout)
	case c.Wifi.Retry.Interval <= 0:
		return fmt.Errorf("wifi.retry.interval must be positive, got %s", c.Wifi.Retry.Interval)
	case c.InfluxDB.URL == "":
		return errors.New("influxdb.url is empty")
	case c.InfluxDB.Measurement == "":
		return errors.New("influxdb.measurement is empty")
	case len(c.Time.Servers) == 0:
		return errors.New("time.servers is empty")
	case c.Sensor.Pin == "":
		return errors.New("sensor.pin is empty")
	case c.Display.Width <= 0 || c.Display.Height <= 0:
		return fmt.Errorf("bad display geometry %dx%d", c.Display.Width, c.Display.Height)
	}
	for i, ap := range c.Wifi.AccessPoints {
		if ap.SSID == "" {
			return fmt.Errorf("wifi.access_points[%d] has no ssid", i)
		}
	}
	return nil
}
