package repository

// DefaultMaxRecords bounds the history when no option overrides it.
const DefaultMaxRecords = 100

type storeOptions struct {
	maxRecords int
}

// Option configures a Store implementation.
type Option func(*storeOptions)

// WithMaxRecords caps the number of retained records. The oldest records are
// evicted first.
func WithMaxRecords(n int) Option {
	return func(o *storeOptions) {
		if n > 0 {
			o.maxRecords = n
		}
	}
}

func applyOptions(opts []Option) storeOptions {
	o := storeOptions{maxRecords: DefaultMaxRecords}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
