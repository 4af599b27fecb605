package service

import (
	"github.com/okian/safeload/internal/adapters/repository"
	"github.com/okian/safeload/internal/domain/scenario"
	"github.com/okian/safeload/internal/loadtest"
	"github.com/okian/safeload/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithEngine sets the load test engine.
func WithEngine(e *loadtest.Engine) Option {
	return func(s *Service) {
		if e != nil {
			s.engine = e
		}
	}
}

// WithCatalog sets the scenario catalog used for every run.
func WithCatalog(c *scenario.Catalog) Option {
	return func(s *Service) {
		if c != nil {
			s.catalog = c
		}
	}
}

// WithStore sets the run history store. The service closes it on Stop.
func WithStore(st repository.Store) Option {
	return func(s *Service) {
		if st != nil {
			s.store = st
		}
	}
}

// WithDefaultTarget sets the target used when a request carries no URL.
func WithDefaultTarget(url string) Option {
	return func(s *Service) {
		if url != "" {
			s.defaultTarget = url
		}
	}
}

// WithWorkerCount sets the number of concurrent asynchronous runs.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets how many asynchronous runs may wait for a worker.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many idempotency keys are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
