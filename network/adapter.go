package network

import (
	"context"

	"github.com/evkuzin/weatherstation-influx/config"
)

// Link is the radio side of the connector.
type Link interface {
	// Join asks the link to associate with ap. It may return before the
	// association completes.
	Join(ctx context.Context, ap config.AccessPoint) error
	Connected(ctx context.Context) (bool, error)
	ActiveSSID(ctx context.Context) (string, error)
}

type Network interface {
	Connect(ctx context.Context) error
	IsConnected(ctx context.Context) bool
	SSID() string
}
