// Package model contains domain models passed between layers.
package model

import "time"

// RunConfig is the immutable configuration of one load test run.
type RunConfig struct {
	ConcurrentUsers int           // number of virtual users
	TestDuration    time.Duration // wall-clock length of the run window
	RampUp          time.Duration // window over which user start times are staggered
	TargetBaseURL   string        // absolute URL of the system under test
}

// RunRequest is the caller-facing shape of a run configuration. Durations are
// expressed in whole seconds.
type RunRequest struct {
	ConcurrentUsers int    `json:"concurrentUsers" koanf:"concurrent_users"`
	TestDuration    int    `json:"testDuration" koanf:"test_duration"`
	RampUpTime      int    `json:"rampUpTime" koanf:"ramp_up_time"`
	TargetURL       string `json:"targetUrl,omitempty" koanf:"target_url"`
}

// RunConfig converts the request into a RunConfig. An empty TargetURL falls
// back to defaultTarget.
func (r RunRequest) RunConfig(defaultTarget string) RunConfig {
	target := r.TargetURL
	if target == "" {
		target = defaultTarget
	}
	return RunConfig{
		ConcurrentUsers: r.ConcurrentUsers,
		TestDuration:    time.Duration(r.TestDuration) * time.Second,
		RampUp:          time.Duration(r.RampUpTime) * time.Second,
		TargetBaseURL:   target,
	}
}

// RunStatus is the lifecycle state of a run record.
type RunStatus string

// Run states.
const (
	RunStatusQueued    RunStatus = "queued"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Terminal reports whether no further transitions are expected.
func (s RunStatus) Terminal() bool {
	return s == RunStatusCompleted || s == RunStatusFailed
}

// RunRecord tracks one run from submission to its report.
type RunRecord struct {
	ID          string            `json:"id"`
	Status      RunStatus         `json:"status"`
	Request     RunRequest        `json:"request"`
	Report      *RunReport        `json:"report,omitempty"`
	Error       string            `json:"error,omitempty"`
	Progress    *ProgressSnapshot `json:"progress,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
	StartedAt   *time.Time        `json:"startedAt,omitempty"`
	CompletedAt *time.Time        `json:"completedAt,omitempty"`
}

// ProgressSnapshot is a point-in-time view of a running test.
type ProgressSnapshot struct {
	Requests    uint64  `json:"requests"`
	Successes   uint64  `json:"successes"`
	Failures    uint64  `json:"failures"`
	ActiveUsers int64   `json:"activeUsers"`
	P50Ms       float64 `json:"p50Ms"`
	P99Ms       float64 `json:"p99Ms"`
	MaxMs       float64 `json:"maxMs"`
	ElapsedSec  float64 `json:"elapsedSeconds"`
}

// RunJob is an asynchronous run waiting for a worker.
type RunJob struct {
	RunID      string
	Request    RunRequest
	EnqueuedAt time.Time
}
