package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/okian/safeload/pkg/metrics"
)

// MetricsMiddleware records request count, latency and error class for endpoint.
func MetricsMiddleware(next http.HandlerFunc, endpoint string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		status := strconv.Itoa(rw.statusCode)
		metrics.RecordHTTPRequest(endpoint, r.Method, status)
		metrics.RecordHTTPRequestDuration(endpoint, r.Method, status, float64(time.Since(start))/float64(time.Millisecond))

		if rw.statusCode >= http.StatusBadRequest {
			errorType := rw.errorCode
			if errorType == "" {
				errorType = errorClass(rw.statusCode)
			}
			metrics.RecordErrorByEndpoint(endpoint, r.Method, errorType)
			metrics.RecordErrorByType(errorType, severityOf(rw.statusCode))
		}
	}
}

// errorClass names errors written without an envelope, e.g. by http.NotFound.
func errorClass(status int) string {
	if status >= http.StatusInternalServerError {
		return "internal_error"
	}
	return "client_error"
}

// severityOf ranks an error status. Backpressure is expected under load and
// ranks lowest; server errors rank highest.
func severityOf(status int) string {
	switch {
	case status >= http.StatusInternalServerError:
		return "high"
	case status == http.StatusTooManyRequests:
		return "low"
	default:
		return "medium"
	}
}

// responseWriter captures the status and the envelope code of a response.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	errorCode  string
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Flush lets long synchronous runs stream through the wrapper.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// noteErrorCode tags w with the envelope code when it is instrumented.
func noteErrorCode(w http.ResponseWriter, code string) {
	if rw, ok := w.(*responseWriter); ok {
		rw.errorCode = code
	}
}
