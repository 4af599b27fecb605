// Package scenario holds the weighted traffic catalog and the selector that
// draws from it.
package scenario

import (
	"fmt"
	"math"
	"strings"

	"github.com/okian/safeload/internal/domain/model"
)

// Catalog is a validated, read-only list of scenarios in declaration order.
type Catalog struct {
	scenarios   []model.Scenario
	totalWeight float64
}

// NewCatalog validates scenarios and returns a catalog. It rejects an empty
// list, duplicate or blank names, non-positive weights and scenarios without
// requests.
func NewCatalog(scenarios []model.Scenario) (*Catalog, error) {
	if len(scenarios) == 0 {
		return nil, fmt.Errorf("%w: no scenarios", ErrInvalidCatalog)
	}

	seen := make(map[string]struct{}, len(scenarios))
	total := 0.0
	out := make([]model.Scenario, len(scenarios))
	for i, s := range scenarios {
		if err := validateScenario(s); err != nil {
			return nil, fmt.Errorf("%w: scenario %d: %v", ErrInvalidCatalog, i, err)
		}
		if _, dup := seen[s.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate scenario name %q", ErrInvalidCatalog, s.Name)
		}
		seen[s.Name] = struct{}{}
		total += s.Weight
		out[i] = cloneScenario(s)
	}
	if total <= 0 || math.IsInf(total, 0) {
		return nil, fmt.Errorf("%w: total weight must be positive and finite", ErrInvalidCatalog)
	}

	return &Catalog{scenarios: out, totalWeight: total}, nil
}

func validateScenario(s model.Scenario) error {
	switch {
	case strings.TrimSpace(s.Name) == "":
		return fmt.Errorf("missing name")
	case math.IsNaN(s.Weight) || math.IsInf(s.Weight, 0) || s.Weight <= 0:
		return fmt.Errorf("%q: weight must be positive, got %v", s.Name, s.Weight)
	case len(s.Requests) == 0:
		return fmt.Errorf("%q: no requests", s.Name)
	}
	for j, r := range s.Requests {
		if strings.TrimSpace(r.Method) == "" {
			return fmt.Errorf("%q: request %d: missing method", s.Name, j)
		}
		if !strings.HasPrefix(r.Path, "/") {
			return fmt.Errorf("%q: request %d: path must start with /", s.Name, j)
		}
	}
	return nil
}

func cloneScenario(s model.Scenario) model.Scenario {
	reqs := make([]model.ScenarioRequest, len(s.Requests))
	for i, r := range s.Requests {
		r.Method = strings.ToUpper(strings.TrimSpace(r.Method))
		if r.Headers != nil {
			h := make(map[string]string, len(r.Headers))
			for k, v := range r.Headers {
				h[k] = v
			}
			r.Headers = h
		}
		reqs[i] = r
	}
	s.Requests = reqs
	return s
}

// Len returns the number of scenarios.
func (c *Catalog) Len() int { return len(c.scenarios) }

// TotalWeight returns the sum of all scenario weights.
func (c *Catalog) TotalWeight() float64 { return c.totalWeight }

// Scenarios returns a copy of the scenarios in declaration order.
func (c *Catalog) Scenarios() []model.Scenario {
	out := make([]model.Scenario, len(c.scenarios))
	for i, s := range c.scenarios {
		out[i] = cloneScenario(s)
	}
	return out
}

// Names returns scenario names in declaration order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.scenarios))
	for i, s := range c.scenarios {
		names[i] = s.Name
	}
	return names
}

// Has reports whether name is part of the catalog.
func (c *Catalog) Has(name string) bool {
	for _, s := range c.scenarios {
		if s.Name == name {
			return true
		}
	}
	return false
}

// Probability returns the selection probability of the named scenario.
func (c *Catalog) Probability(name string) float64 {
	for _, s := range c.scenarios {
		if s.Name == name {
			return s.Weight / c.totalWeight
		}
	}
	return 0
}
