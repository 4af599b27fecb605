package api

import "github.com/okian/safeload/pkg/logger"

// Default handler limits.
const (
	defaultListLimit    = 20
	defaultMaxListLimit = 100
	defaultMaxBodyBytes = 1 << 20
)

type options struct {
	defaultListLimit int
	maxListLimit     int
	maxBodyBytes     int64
	logger           logger.Logger
}

// Option configures the API server.
type Option func(*options)

// WithListLimits sets the limit used when GET /loadtests has none, and the
// largest limit accepted.
func WithListLimits(def, maxLimit int) Option {
	return func(o *options) {
		if def > 0 {
			o.defaultListLimit = def
		}
		if maxLimit > 0 {
			o.maxListLimit = maxLimit
		}
		if o.defaultListLimit > o.maxListLimit {
			o.defaultListLimit = o.maxListLimit
		}
	}
}

// WithMaxBodyBytes caps request body size.
func WithMaxBodyBytes(n int64) Option {
	return func(o *options) {
		if n > 0 {
			o.maxBodyBytes = n
		}
	}
}

// WithLogger sets the handler logger.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}
