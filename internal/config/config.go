// Package config defines service configuration structures and loading hooks.
//
// Values are layered defaults, then an optional YAML file named by
// SAFELOAD_CONFIG, then SAFELOAD_* environment variables with flat snake_case
// keys (SAFELOAD_MAX_USERS -> max_users).
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/okian/safeload/internal/adapters/repository"
	"github.com/okian/safeload/internal/domain/model"
	"github.com/okian/safeload/internal/domain/scenario"
	"github.com/okian/safeload/internal/loadtest"
)

// History backends.
const (
	HistoryMemory = "memory"
	HistoryBolt   = "bolt"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// TargetURL is used when a run request names no target.
	TargetURL string `koanf:"target_url"`

	// Run bounds.
	MaxUsers       int `koanf:"max_users"`
	MinDurationSec int `koanf:"min_duration_sec"`
	MaxDurationSec int `koanf:"max_duration_sec"`
	MinRampUpSec   int `koanf:"min_ramp_up_sec"`
	MaxRampUpSec   int `koanf:"max_ramp_up_sec"`

	// RequestTimeoutMS bounds every synthetic request.
	RequestTimeoutMS int `koanf:"request_timeout_ms"`

	// ThinkTimeMinMS and ThinkTimeMaxMS bound the idle delay between scenario iterations.
	ThinkTimeMinMS int `koanf:"think_time_min_ms"`
	ThinkTimeMaxMS int `koanf:"think_time_max_ms"`

	// Seed fixes virtual user randomness. 0 seeds from the clock.
	Seed int64 `koanf:"seed"`

	// QueueSize bounds the asynchronous run queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets how many queued runs execute concurrently.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize caps remembered idempotency keys.
	DedupeSize int `koanf:"dedupe_size"`

	// History storage.
	HistoryBackend string `koanf:"history_backend"`
	HistoryPath    string `koanf:"history_path"`
	HistoryLimit   int    `koanf:"history_limit"`

	// Scenarios replaces the built-in catalog when non-empty.
	Scenarios []model.Scenario `koanf:"scenarios"`
}

// New returns a Config holding the defaults.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		Addr:             ":9080",
		TargetURL:        "http://localhost:8080",
		MaxUsers:         loadtest.DefaultMaxUsers,
		MinDurationSec:   int(loadtest.DefaultMinDuration / time.Second),
		MaxDurationSec:   int(loadtest.DefaultMaxDuration / time.Second),
		MinRampUpSec:     int(loadtest.DefaultMinRampUp / time.Second),
		MaxRampUpSec:     int(loadtest.DefaultMaxRampUp / time.Second),
		RequestTimeoutMS: int(loadtest.DefaultRequestTimeout / time.Millisecond),
		ThinkTimeMinMS:   int(loadtest.DefaultThinkTimeMin / time.Millisecond),
		ThinkTimeMaxMS:   int(loadtest.DefaultThinkTimeMax / time.Millisecond),
		QueueSize:        16,
		WorkerCount:      2,
		DedupeSize:       1024,
		HistoryBackend:   HistoryMemory,
		HistoryPath:      "safeload.db",
		HistoryLimit:     repository.DefaultMaxRecords,
	}
}

// Validate checks cross-field constraints. Errors wrap ErrInvalidConfig.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.MaxUsers < loadtest.DefaultMinUsers:
		return fmt.Errorf("%w: max_users must be at least %d", ErrInvalidConfig, loadtest.DefaultMinUsers)
	case c.MinDurationSec <= 0 || c.MaxDurationSec < c.MinDurationSec:
		return fmt.Errorf("%w: duration bounds %d..%d are invalid", ErrInvalidConfig, c.MinDurationSec, c.MaxDurationSec)
	case c.MinRampUpSec <= 0 || c.MaxRampUpSec < c.MinRampUpSec:
		return fmt.Errorf("%w: ramp-up bounds %d..%d are invalid", ErrInvalidConfig, c.MinRampUpSec, c.MaxRampUpSec)
	case c.RequestTimeoutMS <= 0:
		return fmt.Errorf("%w: request_timeout_ms must be positive", ErrInvalidConfig)
	case c.ThinkTimeMinMS < 0 || c.ThinkTimeMaxMS < c.ThinkTimeMinMS:
		return fmt.Errorf("%w: think time %dms..%dms is invalid", ErrInvalidConfig, c.ThinkTimeMinMS, c.ThinkTimeMaxMS)
	case c.QueueSize <= 0 || c.WorkerCount <= 0 || c.DedupeSize <= 0:
		return fmt.Errorf("%w: queue_size, worker_count and dedupe_size must be positive", ErrInvalidConfig)
	case c.HistoryLimit <= 0:
		return fmt.Errorf("%w: history_limit must be positive", ErrInvalidConfig)
	}
	switch c.HistoryBackend {
	case HistoryMemory:
	case HistoryBolt:
		if strings.TrimSpace(c.HistoryPath) == "" {
			return fmt.Errorf("%w: history_path is required for the bolt backend", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown history_backend %q", ErrInvalidConfig, c.HistoryBackend)
	}
	return nil
}

// Limits returns the run bounds.
func (c *Config) Limits() loadtest.Limits {
	return loadtest.Limits{
		MinUsers:    loadtest.DefaultMinUsers,
		MaxUsers:    c.MaxUsers,
		MinDuration: time.Duration(c.MinDurationSec) * time.Second,
		MaxDuration: time.Duration(c.MaxDurationSec) * time.Second,
		MinRampUp:   time.Duration(c.MinRampUpSec) * time.Second,
		MaxRampUp:   time.Duration(c.MaxRampUpSec) * time.Second,
	}
}

// EngineOptions returns the engine settings carried by the config.
func (c *Config) EngineOptions() []loadtest.Option {
	return []loadtest.Option{
		loadtest.WithLimits(c.Limits()),
		loadtest.WithRequestTimeout(time.Duration(c.RequestTimeoutMS) * time.Millisecond),
		loadtest.WithThinkTime(
			time.Duration(c.ThinkTimeMinMS)*time.Millisecond,
			time.Duration(c.ThinkTimeMaxMS)*time.Millisecond,
		),
		loadtest.WithSeed(c.Seed),
	}
}

// Catalog validates the configured scenarios, or returns the built-in
// catalog when none are configured.
func (c *Config) Catalog() (*scenario.Catalog, error) {
	if len(c.Scenarios) == 0 {
		return scenario.Default(), nil
	}
	return scenario.NewCatalog(c.Scenarios)
}

// OpenStore opens the configured history backend.
func (c *Config) OpenStore() (repository.Store, error) {
	opt := repository.WithMaxRecords(c.HistoryLimit)
	if c.HistoryBackend == HistoryBolt {
		s, err := repository.OpenBolt(c.HistoryPath, opt)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
		return s, nil
	}
	return repository.NewMemoryStore(opt), nil
}
