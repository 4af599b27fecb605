package scenario

import "errors"

// Sentinel kinds for catalog errors.
var (
	ErrInvalidCatalog = errors.New("invalid scenario catalog")
	ErrLoadCatalog    = errors.New("load scenario catalog failed")
)
