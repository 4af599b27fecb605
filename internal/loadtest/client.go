package loadtest

import (
	"net/http"
	"time"
)

// Doer issues HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Connection pool sizing for the default client.
const (
	defaultMaxConnsPerHost = 512
	defaultIdleConnTimeout = 90 * time.Second
)

// NewHTTPClient returns a client tuned for many concurrent virtual users
// hitting one host. Timeouts are applied per request through the context, so
// the client itself has none.
func NewHTTPClient() *http.Client {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConns = defaultMaxConnsPerHost
	t.MaxConnsPerHost = defaultMaxConnsPerHost
	t.MaxIdleConnsPerHost = defaultMaxConnsPerHost
	t.IdleConnTimeout = defaultIdleConnTimeout

	return &http.Client{
		Transport: t,
		// report redirects as they are; 3xx counts as success
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}
