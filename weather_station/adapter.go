package weather_station

import (
	"context"
)

// Environment is one sample of the sensor together with the derived heat index.
type Environment struct {
	Temperature float64
	Humidity    float64
	HeatIndex   float64
}

type Sensor interface {
	Read() (Environment, error)
}

type Display interface {
	Init() error
	Render(humidity, heatIndex float64) error
	Halt() error
}

type WeatherStation interface {
	Init(ctx context.Context) error
	Start(ctx context.Context)
}
