package loadtest

import (
	"errors"

	"github.com/okian/safeload/internal/domain/scenario"
)

// ErrInvalidConfig is returned when a RunConfig falls outside the configured limits.
var ErrInvalidConfig = errors.New("invalid run configuration")

// IsConfigurationError reports whether err aborted a run before it started,
// either because of the run configuration or the scenario catalog.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrInvalidConfig) || errors.Is(err, scenario.ErrInvalidCatalog)
}
