package scenario

import "github.com/okian/safeload/internal/domain/model"

// Source supplies uniform random values in [0, 1). *rand.Rand satisfies it.
type Source interface {
	Float64() float64
}

// Selector draws scenarios proportionally to their weight. It is safe for
// concurrent use as long as each caller brings its own Source.
type Selector struct {
	catalog *Catalog
}

// NewSelector creates a selector over a validated catalog.
func NewSelector(c *Catalog) *Selector {
	return &Selector{catalog: c}
}

// Pick returns one scenario using a cumulative-weight draw in declaration
// order. Falls back to the last scenario if rounding leaves a remainder.
func (s *Selector) Pick(src Source) model.Scenario {
	scenarios := s.catalog.scenarios
	r := src.Float64() * s.catalog.totalWeight
	for i := range scenarios {
		r -= scenarios[i].Weight
		if r <= 0 {
			return scenarios[i]
		}
	}
	return scenarios[len(scenarios)-1]
}
