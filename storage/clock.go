package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/beevik/ntp"
	"github.com/evkuzin/weatherstation-influx/config"
	"github.com/sirupsen/logrus"
)

type offsetFunc func(server string, timeout time.Duration) (time.Duration, error)

// Clock is the wall clock corrected by the offset measured against NTP
// servers at startup. The system clock itself is left untouched.
type Clock struct {
	servers []string
	timeout time.Duration
	zone    *time.Location
	query   offsetFunc
	now     func() time.Time
	offset  time.Duration
	logger  logrus.FieldLogger
}

func NewClock(conf config.Time, logger logrus.FieldLogger) (*Clock, error) {
	zone, err := ParseTZ(conf.TZ)
	if err != nil {
		return nil, err
	}
	return &Clock{
		servers: conf.Servers,
		timeout: conf.Timeout,
		zone:    zone,
		query:   ntpOffset,
		now:     time.Now,
		logger:  logger,
	}, nil
}

// Sync takes the offset from the first server that gives a valid answer.
func (c *Clock) Sync(ctx context.Context) error {
	var errs []error
	for _, server := range c.servers {
		if err := ctx.Err(); err != nil {
			return err
		}
		offset, err := c.query(server, c.timeout)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", server, err))
			continue
		}
		c.offset = offset
		c.logger.Infof("Synchronized time with %s (offset %s): %s",
			server, offset, c.Now().In(c.zone).Format(time.RFC1123Z))
		return nil
	}
	return errors.Join(errs...)
}

func (c *Clock) Now() time.Time {
	return c.now().Add(c.offset)
}

func ntpOffset(server string, timeout time.Duration) (time.Duration, error) {
	resp, err := ntp.QueryWithOptions(server, ntp.QueryOptions{Timeout: timeout})
	if err != nil {
		return 0, err
	}
	if err := resp.Validate(); err != nil {
		return 0, err
	}
	return resp.ClockOffset, nil
}

var tzPattern = regexp.MustCompile(`^([A-Za-z]{3,}|<[^>]+>)([+-]?\d{1,2})(?::(\d{2}))?(?::(\d{2}))?`)

// ParseTZ reads the standard-time part of a POSIX TZ string. POSIX offsets
// are west of Greenwich, so "UTC-3" is three hours ahead of UTC. Daylight
// saving rules after the offset are ignored.
func ParseTZ(tz string) (*time.Location, error) {
	if tz == "" {
		return time.UTC, nil
	}
	m := tzPattern.FindStringSubmatch(tz)
	if m == nil {
		return nil, fmt.Errorf("cannot parse TZ %q", tz)
	}
	hours, _ := strconv.Atoi(m[2])
	seconds := hours * 3600
	sign := 1
	if m[2][0] == '-' {
		sign = -1
		seconds = -seconds
	}
	for i, unit := range []int{60, 1} {
		if m[3+i] != "" {
			v, _ := strconv.Atoi(m[3+i])
			seconds += v * unit
		}
	}
	name := m[1]
	if name[0] == '<' {
		name = name[1 : len(name)-1]
	}
	return time.FixedZone(name, -sign*seconds), nil
}
