package scenario

import "github.com/okian/safeload/internal/domain/model"

// Scenario names of the built-in safety-management workload.
const (
	NameDashboard       = "dashboard"
	NameIncidentBrowse  = "incident-browse"
	NameIncidentReport  = "incident-report"
	NameInspections     = "inspections"
	NameReportsOverview = "reports-overview"
)

const incidentBody = `{"title":"Load test incident","description":"Synthetic incident created by safeload","severity":"low","location":"Warehouse B"}`

// DefaultScenarios returns the built-in catalog definition. Weights sum to 100
// so they read as percentages.
func DefaultScenarios() []model.Scenario {
	return []model.Scenario{
		{
			Name:   NameDashboard,
			Weight: 30,
			Requests: []model.ScenarioRequest{
				{Method: "GET", Path: "/api/dashboard/stats"},
				{Method: "GET", Path: "/api/notifications"},
			},
		},
		{
			Name:   NameIncidentBrowse,
			Weight: 25,
			Requests: []model.ScenarioRequest{
				{Method: "GET", Path: "/api/incidents"},
				{Method: "GET", Path: "/api/incidents/1"},
			},
		},
		{
			Name:   NameIncidentReport,
			Weight: 15,
			Requests: []model.ScenarioRequest{
				{
					Method:  "POST",
					Path:    "/api/incidents",
					Headers: map[string]string{"Content-Type": "application/json"},
					Body:    incidentBody,
				},
			},
		},
		{
			Name:   NameInspections,
			Weight: 20,
			Requests: []model.ScenarioRequest{
				{Method: "GET", Path: "/api/inspections"},
				{Method: "GET", Path: "/api/inspections/templates"},
			},
		},
		{
			Name:   NameReportsOverview,
			Weight: 10,
			Requests: []model.ScenarioRequest{
				{Method: "GET", Path: "/api/reports/summary"},
			},
		},
	}
}

// Default returns the validated built-in catalog.
func Default() *Catalog {
	c, err := NewCatalog(DefaultScenarios())
	if err != nil {
		// the built-in definition is static
		panic(err)
	}
	return c
}
