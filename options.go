package unco

import (
	"time"

	"github.com/rs/zerolog"
)

// An Option configures a [Scheduler].
type Option func(*config)

type config struct {
	log zerolog.Logger
	now func() time.Time
}

func defaultConfig() config {
	return config{
		log: zerolog.Nop(),
		now: time.Now,
	}
}

// WithLogger sets the logger a [Scheduler] reports to.
// Everything is reported at debug level. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(c *config) {
		c.log = l
	}
}

// WithClock sets the clock a [Scheduler] measures generator budgets with.
// The default is time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *config) {
		if now != nil {
			c.now = now
		}
	}
}
