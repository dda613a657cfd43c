// Package clock supplies batch timestamps, optionally from an NTP server.
package clock

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/beevik/ntp"
)

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// System is the local wall clock.
type System struct{}

// Now implements Clock.
func (System) Now() time.Time {
	return time.Now().UTC()
}

// NTP queries an NTP server and falls back to the local clock when the
// server cannot be reached.
type NTP struct {
	server   string
	logger   *slog.Logger
	fallback Clock
	query    func(host string) (time.Time, error)
}

// NewNTP creates an NTP clock for server. A nil logger discards warnings.
func NewNTP(server string, logger *slog.Logger) *NTP {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &NTP{
		server:   server,
		logger:   logger,
		fallback: System{},
		query:    ntp.Time,
	}
}

// Now implements Clock.
func (c *NTP) Now() time.Time {
	t, err := c.query(c.server)
	if err != nil {
		c.logger.Warn("ntp query failed, using local clock", "server", c.server, "error", err)
		return c.fallback.Now()
	}
	return t.UTC()
}

// New returns an NTP clock when server is set and the system clock otherwise.
func New(server string, logger *slog.Logger) Clock {
	if server == "" {
		return System{}
	}
	return NewNTP(server, logger)
}

// Fixed always returns the same instant. Useful for reproducible batch IDs.
type Fixed time.Time

// Now implements Clock.
func (f Fixed) Now() time.Time {
	return time.Time(f)
}

// String implements fmt.Stringer.
func (f Fixed) String() string {
	return fmt.Sprintf("Fixed(%s)", time.Time(f).Format(time.RFC3339Nano))
}
