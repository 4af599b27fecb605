package model

import "time"

// Summary holds the success and latency figures for a group of outcomes.
// Latency figures cover successful outcomes only and are 0 when there are none.
type Summary struct {
	TotalRequests         int     `json:"totalRequests"`
	SuccessfulRequests    int     `json:"successfulRequests"`
	FailedRequests        int     `json:"failedRequests"`
	ErrorRate             float64 `json:"errorRate"`
	AverageResponseTimeMs float64 `json:"averageResponseTimeMs"`
	MinResponseTimeMs     float64 `json:"minResponseTimeMs"`
	MaxResponseTimeMs     float64 `json:"maxResponseTimeMs"`
	P50ResponseTimeMs     float64 `json:"p50ResponseTimeMs"`
	P90ResponseTimeMs     float64 `json:"p90ResponseTimeMs"`
	P95ResponseTimeMs     float64 `json:"p95ResponseTimeMs"`
	P99ResponseTimeMs     float64 `json:"p99ResponseTimeMs"`
	RequestsPerSecond     float64 `json:"requestsPerSecond"`
}

// RunReport is the aggregated result of a run.
type RunReport struct {
	Summary
	ElapsedSeconds float64            `json:"elapsedSeconds"`
	StartedAt      time.Time          `json:"startedAt"`
	FinishedAt     time.Time          `json:"finishedAt"`
	StatusCodes    map[string]int     `json:"statusCodes"`
	PerScenario    map[string]Summary `json:"perScenario"`
}
