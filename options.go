package diagbench

import (
	"log/slog"
	"time"
)

// DefaultAlpha is the default match distance factor, relative to the
// ground-truth box diagonal.
const DefaultAlpha = 0.35

// Option configures an Evaluator.
type Option func(*config)

type config struct {
	alpha      float64
	workers    int
	logger     *slog.Logger
	now        func() time.Time
	skipFailed bool
}

func defaultConfig() config {
	return config{
		alpha:   DefaultAlpha,
		workers: 1,
		logger:  slog.Default(),
		now:     time.Now,
	}
}

// WithAlpha sets the match distance factor (default: 0.35).
func WithAlpha(a float64) Option {
	return func(c *config) {
		c.alpha = a
	}
}

// WithWorkers sets how many samples are evaluated concurrently (default: 1).
func WithWorkers(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithLogger sets the logger (default: slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithClock sets the clock used to time predictor calls (default: time.Now).
func WithClock(now func() time.Time) Option {
	return func(c *config) {
		if now != nil {
			c.now = now
		}
	}
}

// WithSkipFailed makes Run skip samples that fail instead of aborting.
// Skipped samples are reported and excluded from the aggregate.
func WithSkipFailed() Option {
	return func(c *config) {
		c.skipFailed = true
	}
}
