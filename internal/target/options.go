package target

import (
	"math/rand"

	"github.com/okian/safeload/pkg/logger"
)

const (
	defaultMaxIncidents = 500
	seededIncidents     = 3
)

// Option configures a Server.
type Option func(*Server)

// WithLatencyScale multiplies every simulated delay. 0 disables delays.
func WithLatencyScale(f float64) Option {
	return func(s *Server) {
		if f >= 0 {
			s.latencyScale = f
		}
	}
}

// WithErrorRate sets the share of requests answered with 500, in [0, 1].
func WithErrorRate(p float64) Option {
	return func(s *Server) {
		if p >= 0 && p <= 1 {
			s.errorRate = p
		}
	}
}

// WithSeed makes latency and failure draws reproducible.
func WithSeed(seed int64) Option {
	return func(s *Server) {
		s.rnd = rand.New(rand.NewSource(seed)) //nolint:gosec // latency jitter
	}
}

// WithMaxIncidents bounds the incident list created through POST.
func WithMaxIncidents(n int) Option {
	return func(s *Server) {
		if n > seededIncidents {
			s.maxIncidents = n
		}
	}
}

// WithLogger sets the server logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}
