package engine

import (
	"time"

	"github.com/okian/tally/pkg/logger"
)

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithTopN sets the size of the cached leaderboard view.
func WithTopN(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.topN = n
		}
	}
}

// WithClock replaces the time source used to stamp events and snapshots.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithLogger sets a custom logger for the engine.
func WithLogger(log logger.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.logger = log
		}
	}
}
