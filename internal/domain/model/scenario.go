package model

// ScenarioRequest is one HTTP call inside a scenario.
type ScenarioRequest struct {
	Method  string            `json:"method" yaml:"method" koanf:"method"`
	Path    string            `json:"path" yaml:"path" koanf:"path"`
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty" koanf:"headers"`
	Body    string            `json:"body,omitempty" yaml:"body,omitempty" koanf:"body"`
}

// Scenario is a named, weighted sequence of requests executed in order.
type Scenario struct {
	Name     string            `json:"name" yaml:"name" koanf:"name"`
	Weight   float64           `json:"weight" yaml:"weight" koanf:"weight"`
	Requests []ScenarioRequest `json:"requests" yaml:"requests" koanf:"requests"`
}
