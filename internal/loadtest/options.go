package loadtest

import (
	"time"

	"github.com/okian/safeload/pkg/logger"
)

// Engine defaults.
const (
	DefaultRequestTimeout = 10 * time.Second
	DefaultThinkTimeMin   = 500 * time.Millisecond
	DefaultThinkTimeMax   = 1500 * time.Millisecond
)

// Option configures an Engine.
type Option func(*Engine)

// WithClient sets the HTTP client used by virtual users.
func WithClient(c Doer) Option {
	return func(e *Engine) {
		if c != nil {
			e.client = c
		}
	}
}

// WithLimits overrides the accepted run bounds.
func WithLimits(l Limits) Option {
	return func(e *Engine) {
		e.limits = l
	}
}

// WithRequestTimeout sets the per-request timeout.
func WithRequestTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.requestTimeout = d
		}
	}
}

// WithThinkTime sets the idle delay range between scenario iterations.
func WithThinkTime(minDelay, maxDelay time.Duration) Option {
	return func(e *Engine) {
		if minDelay >= 0 && maxDelay >= minDelay {
			e.thinkMin = minDelay
			e.thinkMax = maxDelay
		}
	}
}

// WithSeed fixes the random seed. Virtual user i is seeded with seed+i.
// Zero keeps time-based seeding.
func WithSeed(seed int64) Option {
	return func(e *Engine) {
		e.seed = seed
	}
}

// WithLogger sets the engine logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}
