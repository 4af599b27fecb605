package report

import (
	"bytes"
	"math/rand"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/safeload/internal/domain/model"
)

func ok(name string, ms int) model.RequestOutcome {
	return model.RequestOutcome{
		ScenarioName: name,
		Path:         "/" + name,
		StatusCode:   200,
		Success:      true,
		ResponseTime: time.Duration(ms) * time.Millisecond,
	}
}

func failed(name string, status int) model.RequestOutcome {
	o := model.RequestOutcome{ScenarioName: name, Path: "/" + name, StatusCode: status}
	if status == 0 {
		o.ResponseTime = model.TransportFailureLatency
	} else {
		o.ResponseTime = 5 * time.Millisecond
	}
	return o
}

func sampleOutcomes() []model.RequestOutcome {
	rng := rand.New(rand.NewSource(3))
	var out []model.RequestOutcome
	for i := 0; i < 200; i++ {
		name := []string{"dashboard", "incidents", "reports"}[i%3]
		switch {
		case i%17 == 0:
			out = append(out, failed(name, 0))
		case i%11 == 0:
			out = append(out, failed(name, 503))
		default:
			o := ok(name, 0)
			o.ResponseTime = time.Duration(rng.Int63n(int64(300 * time.Millisecond)))
			out = append(out, o)
		}
	}
	return out
}

func TestAggregate(t *testing.T) {
	started := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	finished := started.Add(10 * time.Second)

	Convey("Given a mixed set of outcomes", t, func() {
		outcomes := sampleOutcomes()
		rep := Aggregate(outcomes, started, finished)

		Convey("Then totals should add up", func() {
			So(rep.TotalRequests, ShouldEqual, len(outcomes))
			So(rep.SuccessfulRequests+rep.FailedRequests, ShouldEqual, rep.TotalRequests)
			So(rep.FailedRequests, ShouldBeGreaterThan, 0)
			So(rep.ErrorRate, ShouldAlmostEqual, float64(rep.FailedRequests)/float64(rep.TotalRequests)*100, 1e-9)
		})

		Convey("Then throughput should use the measured span", func() {
			So(rep.ElapsedSeconds, ShouldEqual, 10)
			So(rep.RequestsPerSecond, ShouldAlmostEqual, float64(len(outcomes))/10, 1e-9)
		})

		Convey("Then latency figures should be ordered", func() {
			So(rep.MinResponseTimeMs, ShouldBeLessThanOrEqualTo, rep.P50ResponseTimeMs)
			So(rep.P50ResponseTimeMs, ShouldBeLessThanOrEqualTo, rep.P90ResponseTimeMs)
			So(rep.P90ResponseTimeMs, ShouldBeLessThanOrEqualTo, rep.P95ResponseTimeMs)
			So(rep.P95ResponseTimeMs, ShouldBeLessThanOrEqualTo, rep.P99ResponseTimeMs)
			So(rep.P99ResponseTimeMs, ShouldBeLessThanOrEqualTo, rep.MaxResponseTimeMs)
			So(rep.AverageResponseTimeMs, ShouldBeBetweenOrEqual, rep.MinResponseTimeMs, rep.MaxResponseTimeMs)
		})

		Convey("Then the per-scenario breakdown should sum to the totals", func() {
			total, success := 0, 0
			for _, s := range rep.PerScenario {
				total += s.TotalRequests
				success += s.SuccessfulRequests
				So(s.SuccessfulRequests+s.FailedRequests, ShouldEqual, s.TotalRequests)
			}
			So(len(rep.PerScenario), ShouldEqual, 3)
			So(total, ShouldEqual, rep.TotalRequests)
			So(success, ShouldEqual, rep.SuccessfulRequests)
		})

		Convey("Then status codes should be counted with 0 for transport failures", func() {
			sum := 0
			for _, n := range rep.StatusCodes {
				sum += n
			}
			So(sum, ShouldEqual, rep.TotalRequests)
			So(rep.StatusCodes["0"], ShouldBeGreaterThan, 0)
			So(rep.StatusCodes["503"], ShouldBeGreaterThan, 0)
		})

		Convey("When the outcomes are shuffled", func() {
			shuffled := make([]model.RequestOutcome, len(outcomes))
			copy(shuffled, outcomes)
			rng := rand.New(rand.NewSource(11))

			Convey("Then every permutation should give an identical report", func() {
				for i := 0; i < 5; i++ {
					rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
					So(Aggregate(shuffled, started, finished), ShouldResemble, rep)
				}
			})
		})
	})

	Convey("Given outcomes that all failed", t, func() {
		outcomes := []model.RequestOutcome{failed("a", 0), failed("a", 500), failed("b", 404)}
		rep := Aggregate(outcomes, started, finished)

		Convey("Then latency figures should be zero", func() {
			So(rep.FailedRequests, ShouldEqual, rep.TotalRequests)
			So(rep.AverageResponseTimeMs, ShouldEqual, 0)
			So(rep.MinResponseTimeMs, ShouldEqual, 0)
			So(rep.MaxResponseTimeMs, ShouldEqual, 0)
			So(rep.P99ResponseTimeMs, ShouldEqual, 0)
			So(rep.ErrorRate, ShouldEqual, 100)
			So(rep.PerScenario["b"].AverageResponseTimeMs, ShouldEqual, 0)
		})
	})

	Convey("Given no outcomes", t, func() {
		rep := Aggregate(nil, started, finished)

		Convey("Then every figure should be zero", func() {
			So(rep.Summary, ShouldResemble, model.Summary{})
			So(rep.PerScenario, ShouldBeEmpty)
		})
	})

	Convey("Given a zero elapsed span", t, func() {
		rep := Aggregate([]model.RequestOutcome{ok("a", 10)}, started, started)

		Convey("Then throughput should be zero rather than infinite", func() {
			So(rep.RequestsPerSecond, ShouldEqual, 0)
		})
	})

	Convey("Given known latencies", t, func() {
		rep := Aggregate([]model.RequestOutcome{ok("a", 10), ok("a", 20), ok("a", 30), failed("a", 0)}, started, finished)

		Convey("Then average, min and max should cover successes only", func() {
			So(rep.AverageResponseTimeMs, ShouldEqual, 20)
			So(rep.MinResponseTimeMs, ShouldEqual, 10)
			So(rep.MaxResponseTimeMs, ShouldEqual, 30)
			So(rep.RequestsPerSecond, ShouldBeGreaterThan, 0)
		})
	})
}

func TestRender(t *testing.T) {
	Convey("Given an aggregated report", t, func() {
		started := time.Now()
		outcomes := sampleOutcomes()
		rep := Aggregate(outcomes, started, started.Add(5*time.Second))

		Convey("When rendering with latencies", func() {
			var buf bytes.Buffer
			err := Render(&buf, rep, LatenciesMs(outcomes))

			Convey("Then the text should contain every section", func() {
				So(err, ShouldBeNil)
				out := buf.String()
				So(out, ShouldContainSubstring, "Requests: 200")
				So(out, ShouldContainSubstring, "Per scenario:")
				So(out, ShouldContainSubstring, "dashboard")
				So(out, ShouldContainSubstring, "0 (transport failure)")
				So(out, ShouldContainSubstring, "Latency histogram")
			})
		})

		Convey("When rendering without latencies", func() {
			var buf bytes.Buffer
			So(Render(&buf, rep, nil), ShouldBeNil)

			Convey("Then the histogram should be omitted", func() {
				So(buf.String(), ShouldNotContainSubstring, "Latency histogram")
			})
		})
	})
}
