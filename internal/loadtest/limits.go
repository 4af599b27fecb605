package loadtest

import (
	"fmt"
	"net/url"
	"time"

	"github.com/okian/safeload/internal/domain/model"
)

// Default run bounds.
const (
	DefaultMinUsers    = 1
	DefaultMaxUsers    = 100
	DefaultMinDuration = 10 * time.Second
	DefaultMaxDuration = 600 * time.Second
	DefaultMinRampUp   = 1 * time.Second
	DefaultMaxRampUp   = 60 * time.Second
)

// Limits bounds the accepted run configurations.
type Limits struct {
	MinUsers    int
	MaxUsers    int
	MinDuration time.Duration
	MaxDuration time.Duration
	MinRampUp   time.Duration
	MaxRampUp   time.Duration
}

// DefaultLimits returns the standard bounds: 1-100 users, 10-600s duration and
// 1-60s ramp-up.
func DefaultLimits() Limits {
	return Limits{
		MinUsers:    DefaultMinUsers,
		MaxUsers:    DefaultMaxUsers,
		MinDuration: DefaultMinDuration,
		MaxDuration: DefaultMaxDuration,
		MinRampUp:   DefaultMinRampUp,
		MaxRampUp:   DefaultMaxRampUp,
	}
}

// Validate checks cfg against the limits. Errors wrap ErrInvalidConfig.
func (l Limits) Validate(cfg model.RunConfig) error {
	if cfg.ConcurrentUsers < l.MinUsers || cfg.ConcurrentUsers > l.MaxUsers {
		return fmt.Errorf("%w: concurrentUsers must be between %d and %d, got %d",
			ErrInvalidConfig, l.MinUsers, l.MaxUsers, cfg.ConcurrentUsers)
	}
	if cfg.TestDuration < l.MinDuration || cfg.TestDuration > l.MaxDuration {
		return fmt.Errorf("%w: testDuration must be between %s and %s, got %s",
			ErrInvalidConfig, l.MinDuration, l.MaxDuration, cfg.TestDuration)
	}
	if cfg.RampUp < l.MinRampUp || cfg.RampUp > l.MaxRampUp {
		return fmt.Errorf("%w: rampUpTime must be between %s and %s, got %s",
			ErrInvalidConfig, l.MinRampUp, l.MaxRampUp, cfg.RampUp)
	}
	if cfg.RampUp > cfg.TestDuration {
		return fmt.Errorf("%w: rampUpTime (%s) must not exceed testDuration (%s)",
			ErrInvalidConfig, cfg.RampUp, cfg.TestDuration)
	}
	return validateTarget(cfg.TargetBaseURL)
}

func validateTarget(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: targetUrl: %v", ErrInvalidConfig, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: targetUrl must be an absolute http(s) URL, got %q", ErrInvalidConfig, raw)
	}
	return nil
}
