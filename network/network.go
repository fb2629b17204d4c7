package network

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/evkuzin/weatherstation-influx/config"
	"github.com/sirupsen/logrus"
)

var ErrNotConnected = errors.New("not connected")

// RetryPolicy returns a fresh schedule for one Connect call.
type RetryPolicy func() backoff.BackOff

// PolicyFromConfig polls at a constant interval, or backs off exponentially
// up to MaxInterval. MaxAttempts of zero never gives up.
func PolicyFromConfig(conf config.Retry) RetryPolicy {
	return func() backoff.BackOff {
		var b backoff.BackOff
		if conf.Exponential {
			e := backoff.NewExponentialBackOff()
			e.InitialInterval = conf.Interval
			if conf.MaxInterval > 0 {
				e.MaxInterval = conf.MaxInterval
			}
			e.MaxElapsedTime = 0
			e.Reset()
			b = e
		} else {
			b = backoff.NewConstantBackOff(conf.Interval)
		}
		if conf.MaxAttempts > 0 {
			b = backoff.WithMaxRetries(b, conf.MaxAttempts-1)
		}
		return b
	}
}

// Connector joins the first reachable access point out of a fixed list.
type Connector struct {
	link        Link
	aps         []config.AccessPoint
	joinTimeout time.Duration
	poll        time.Duration
	policy      RetryPolicy
	logger      logrus.FieldLogger
	next        int
	ssid        string
}

func NewConnector(link Link, conf config.Wifi, policy RetryPolicy, logger logrus.FieldLogger) *Connector {
	return &Connector{
		link:        link,
		aps:         conf.AccessPoints,
		joinTimeout: conf.JoinTimeout,
		poll:        conf.Retry.Interval,
		policy:      policy,
		logger:      logger,
	}
}

// Connect blocks until the link reports a connection, the retry policy
// gives up or ctx is done. Each attempt joins the next access point and
// waits up to the join timeout for its activation to finish.
func (c *Connector) Connect(ctx context.Context) error {
	c.logger.Info("Connecting to Wi-Fi network")

	var (
		attempts int
		joined   string
	)
	op := func() error {
		attempts++
		if ok, _ := c.link.Connected(ctx); ok {
			return nil
		}
		ap := c.aps[c.next%len(c.aps)]
		c.next++
		if err := c.link.Join(ctx, ap); err != nil {
			c.logger.Debugf("cannot join %q: %v", ap.SSID, err)
			return err
		}
		if err := c.await(ctx); err != nil {
			return err
		}
		joined = ap.SSID
		return nil
	}
	notify := func(err error, next time.Duration) {
		c.logger.Debugf("still not connected (%v), next try in %s", err, next)
	}
	if err := backoff.RetryNotify(op, backoff.WithContext(c.policy(), ctx), notify); err != nil {
		return fmt.Errorf("wifi join gave up after %d attempts: %w", attempts, err)
	}

	ssid, err := c.link.ActiveSSID(ctx)
	if err != nil || ssid == "" {
		ssid = joined
	}
	c.ssid = ssid
	c.logger.Infof("Connected to %q after %d attempts", c.ssid, attempts)
	return nil
}

// await polls the link until a pending activation completes or the join
// timeout runs out. Joining again before that restarts the activation.
func (c *Connector) await(ctx context.Context) error {
	deadline := time.Now().Add(c.joinTimeout)
	ticker := time.NewTicker(c.poll)
	defer ticker.Stop()
	for {
		ok, err := c.link.Connected(ctx)
		if err == nil && ok {
			return nil
		}
		if !time.Now().Before(deadline) {
			if err != nil {
				return err
			}
			return ErrNotConnected
		}
		select {
		case <-ctx.Done():
			return backoff.Permanent(ctx.Err())
		case <-ticker.C:
		}
	}
}

func (c *Connector) IsConnected(ctx context.Context) bool {
	ok, err := c.link.Connected(ctx)
	if err != nil {
		c.logger.Warnf("cannot read connection state: %v", err)
		return false
	}
	return ok
}

// SSID is the network joined by the last successful Connect.
func (c *Connector) SSID() string {
	return c.ssid
}
