package api

import (
	"errors"
	"fmt"
	"net/http"

	service "github.com/okian/safeload/internal/app"
	"github.com/okian/safeload/internal/loadtest"
)

// Sentinel kinds for API errors.
var (
	ErrServe        = errors.New("serve failed")
	ErrBadRequest   = errors.New("bad request")
	ErrBackpressure = errors.New("backpressure")
	ErrNotFound     = errors.New("not found")
	ErrUnavailable  = errors.New("service unavailable")
)

// Error carries the failing operation and the kind used for status mapping.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Is matches the error kind.
func (e *Error) Is(target error) bool { return e.Kind == target }

func (e *Error) Unwrap() error { return e.Err }

// NewKind returns an error of the given kind with no underlying cause.
func NewKind(op string, kind error) error {
	return &Error{Op: op, Kind: kind}
}

// WrapKind attaches op and kind to err. A nil err yields nil.
func WrapKind(op string, kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Kind: kind, Err: err}
}

// Wrap classifies err from the service layer and attaches op.
func Wrap(op string, err error) error {
	return WrapKind(op, kindOf(err), err)
}

func kindOf(err error) error {
	var apiErr *Error
	switch {
	case errors.As(err, &apiErr):
		return apiErr.Kind
	case loadtest.IsConfigurationError(err), errors.Is(err, service.ErrInvalidLimit):
		return ErrBadRequest
	case errors.Is(err, service.ErrBackpressure):
		return ErrBackpressure
	case errors.Is(err, service.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, service.ErrNotStarted):
		return ErrUnavailable
	default:
		return nil
	}
}

// statusOf maps an error kind to an HTTP status and an envelope code.
func statusOf(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, ErrBackpressure):
		return http.StatusTooManyRequests, "backpressure"
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
