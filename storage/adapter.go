package storage

import (
	"context"

	"github.com/evkuzin/weatherstation-influx/weather_station"
)

type Adapter interface {
	Init(ctx context.Context) error
	SetTags(tags map[string]string) error
	Put(ctx context.Context, event *weather_station.Environment) error
}
