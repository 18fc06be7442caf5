package tracker

import (
	"time"

	"github.com/okian/taptrack/pkg/logger"
)

// Option configures a Tracker.
type Option func(*Tracker)

// WithNormalInterval sets the base polling cadence.
func WithNormalInterval(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.normal = d
		}
	}
}

// WithHighRes enables the dense cadence with its down-sampling filter.
func WithHighRes(d time.Duration, filter *HighResFilter) Option {
	return func(t *Tracker) {
		if d > 0 && filter != nil {
			t.highRes = d
			t.filter = filter
		}
	}
}

// WithClock overrides the time source.
func WithClock(clock func() time.Time) Option {
	return func(t *Tracker) {
		if clock != nil {
			t.clock = clock
		}
	}
}

// WithLogger sets the tracker's logger.
func WithLogger(log logger.Logger) Option {
	return func(t *Tracker) {
		if log != nil {
			t.log = log
		}
	}
}
