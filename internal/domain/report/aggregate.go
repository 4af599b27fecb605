// Package report reduces run outcomes into a RunReport and renders it as text.
package report

import (
	"strconv"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/okian/safeload/internal/domain/model"
)

// Aggregate builds the report for outcomes recorded between started and
// finished. Throughput uses the measured span, not the nominal duration.
// The result does not depend on the order of outcomes.
func Aggregate(outcomes []model.RequestOutcome, started, finished time.Time) model.RunReport {
	elapsed := finished.Sub(started).Seconds()
	if elapsed < 0 {
		elapsed = 0
	}

	groups := make(map[string][]model.RequestOutcome)
	codes := make(map[string]int)
	for _, o := range outcomes {
		groups[o.ScenarioName] = append(groups[o.ScenarioName], o)
		codes[strconv.Itoa(o.StatusCode)]++
	}

	perScenario := make(map[string]model.Summary, len(groups))
	for name, group := range groups {
		perScenario[name] = Summarize(group, elapsed)
	}

	return model.RunReport{
		Summary:        Summarize(outcomes, elapsed),
		ElapsedSeconds: elapsed,
		StartedAt:      started,
		FinishedAt:     finished,
		StatusCodes:    codes,
		PerScenario:    perScenario,
	}
}

// Summarize computes counts, latency figures and throughput for one group.
// Latency covers successful outcomes only; with none, every latency field is 0.
func Summarize(outcomes []model.RequestOutcome, elapsedSec float64) model.Summary {
	s := model.Summary{TotalRequests: len(outcomes)}
	if s.TotalRequests == 0 {
		return s
	}

	var (
		sum              time.Duration
		fastest, slowest time.Duration
		values           = make([]float64, 0, len(outcomes))
	)
	for _, o := range outcomes {
		if !o.Success {
			continue
		}
		rt := o.ResponseTime
		if s.SuccessfulRequests == 0 || rt < fastest {
			fastest = rt
		}
		if rt > slowest {
			slowest = rt
		}
		s.SuccessfulRequests++
		// integer sum keeps the mean independent of outcome order
		sum += rt
		values = append(values, o.ResponseTimeMs())
	}
	s.FailedRequests = s.TotalRequests - s.SuccessfulRequests
	s.ErrorRate = float64(s.FailedRequests) / float64(s.TotalRequests) * 100
	if elapsedSec > 0 {
		s.RequestsPerSecond = float64(s.TotalRequests) / elapsedSec
	}

	if s.SuccessfulRequests == 0 {
		return s
	}
	s.AverageResponseTimeMs = toMs(sum) / float64(s.SuccessfulRequests)
	s.MinResponseTimeMs = toMs(fastest)
	s.MaxResponseTimeMs = toMs(slowest)
	s.P50ResponseTimeMs = percentile(values, 50)
	s.P90ResponseTimeMs = percentile(values, 90)
	s.P95ResponseTimeMs = percentile(values, 95)
	s.P99ResponseTimeMs = percentile(values, 99)
	return s
}

func toMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// percentile sorts a copy of values, so the caller's order never matters.
func percentile(values []float64, p float64) float64 {
	v, err := stats.Percentile(values, p)
	if err != nil {
		return 0
	}
	return v
}

// LatenciesMs returns the response times of successful outcomes in milliseconds.
func LatenciesMs(outcomes []model.RequestOutcome) []float64 {
	out := make([]float64, 0, len(outcomes))
	for _, o := range outcomes {
		if o.Success {
			out = append(out, o.ResponseTimeMs())
		}
	}
	return out
}
