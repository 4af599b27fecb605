package model

import (
	"encoding/json"
	"time"
)

// TransportFailureLatency marks an outcome for which no response was received.
const TransportFailureLatency time.Duration = -1

// Success status bounds: 2xx and 3xx count as success.
const (
	minSuccessStatus = 200
	maxSuccessStatus = 399
)

// IsSuccessStatus reports whether an HTTP status code counts as a successful
// response. Status 0 (no response) is never a success.
func IsSuccessStatus(code int) bool {
	return code >= minSuccessStatus && code <= maxSuccessStatus
}

// RequestOutcome records one individual HTTP request issued during a run.
// Outcomes are immutable once created.
type RequestOutcome struct {
	ScenarioName  string        `json:"scenarioName"`
	VirtualUserID int           `json:"virtualUserId"`
	Method        string        `json:"method"`
	Path          string        `json:"path"`
	IssuedAt      time.Time     `json:"timestampIssued"`
	ResponseTime  time.Duration `json:"-"`
	StatusCode    int           `json:"statusCode"`
	Success       bool          `json:"success"`
	Error         string        `json:"error,omitempty"`
}

// ResponseTimeMs returns the latency in milliseconds, or -1 when the request
// failed at the transport level.
func (o RequestOutcome) ResponseTimeMs() float64 {
	if o.ResponseTime < 0 {
		return -1
	}
	return float64(o.ResponseTime) / float64(time.Millisecond)
}

// TransportFailed reports whether the request never received a response.
func (o RequestOutcome) TransportFailed() bool {
	return o.StatusCode == 0
}

// MarshalJSON adds responseTimeMs, -1 for transport failures.
func (o RequestOutcome) MarshalJSON() ([]byte, error) {
	type plain RequestOutcome
	return json.Marshal(struct {
		plain
		ResponseTimeMs float64 `json:"responseTimeMs"`
	}{plain(o), o.ResponseTimeMs()})
}
