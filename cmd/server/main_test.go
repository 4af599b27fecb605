package main

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/okian/safeload/internal/config"
	"github.com/okian/safeload/internal/domain/model"
	"github.com/okian/safeload/internal/target"
	"github.com/okian/safeload/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
	_ = logger.SetLevelString("error")
}

func testConfig(targetURL string) *config.Config {
	cfg := config.New()
	cfg.Addr = "127.0.0.1:0"
	cfg.TargetURL = targetURL
	cfg.MinDurationSec = 1
	cfg.MinRampUpSec = 1
	cfg.ThinkTimeMinMS = 0
	cfg.ThinkTimeMaxMS = 0
	cfg.Seed = 1
	return cfg
}

func decodeRecord(resp *http.Response) model.RunRecord {
	defer func() { _ = resp.Body.Close() }()
	var rec model.RunRecord
	_ = json.NewDecoder(resp.Body).Decode(&rec)
	return rec
}

func TestServe(t *testing.T) {
	convey.Convey("Given the server running against a simulated target", t, func() {
		tgt := httptest.NewServer(target.New(target.WithLatencyScale(0)).Handler())
		defer tgt.Close()

		cfg := testConfig(tgt.URL)
		ln, err := net.Listen("tcp", cfg.Addr)
		convey.So(err, convey.ShouldBeNil)
		base := "http://" + ln.Addr().String()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		done := make(chan error, 1)
		go func() { done <- serve(ctx, cfg, ln) }()

		body := `{"concurrentUsers":2,"testDuration":1,"rampUpTime":1}`

		convey.Convey("When a synchronous run is posted", func() {
			resp, err := http.Post(base+"/loadtests", "application/json", strings.NewReader(body))
			convey.So(err, convey.ShouldBeNil)
			status := resp.StatusCode
			rec := decodeRecord(resp)

			convey.Convey("Then the report covers the target traffic", func() {
				convey.So(status, convey.ShouldEqual, http.StatusOK)
				convey.So(rec.Status, convey.ShouldEqual, model.RunStatusCompleted)
				convey.So(rec.Report, convey.ShouldNotBeNil)
				convey.So(rec.Report.TotalRequests, convey.ShouldBeGreaterThan, 0)
				convey.So(rec.Report.FailedRequests, convey.ShouldEqual, 0)
				convey.So(rec.Report.TotalRequests, convey.ShouldEqual,
					rec.Report.SuccessfulRequests+rec.Report.FailedRequests)
			})

			convey.Convey("And it appears in the history", func() {
				list, err := http.Get(base + "/loadtests?limit=5")
				convey.So(err, convey.ShouldBeNil)
				var recs []model.RunRecord
				convey.So(json.NewDecoder(list.Body).Decode(&recs), convey.ShouldBeNil)
				_ = list.Body.Close()
				convey.So(len(recs), convey.ShouldEqual, 1)
				convey.So(recs[0].ID, convey.ShouldEqual, rec.ID)
			})
		})

		convey.Convey("When an asynchronous run is submitted", func() {
			resp, err := http.Post(base+"/loadtests/async", "application/json", strings.NewReader(body))
			convey.So(err, convey.ShouldBeNil)
			convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusAccepted)
			rec := decodeRecord(resp)

			convey.Convey("Then it completes in the background", func() {
				var got model.RunRecord
				deadline := time.Now().Add(10 * time.Second)
				for time.Now().Before(deadline) {
					r, err := http.Get(base + "/loadtests/" + rec.ID)
					convey.So(err, convey.ShouldBeNil)
					got = decodeRecord(r)
					if got.Status.Terminal() {
						break
					}
					time.Sleep(50 * time.Millisecond)
				}
				convey.So(got.Status, convey.ShouldEqual, model.RunStatusCompleted)
				convey.So(got.Report.TotalRequests, convey.ShouldBeGreaterThan, 0)
			})
		})

		convey.Convey("When docs and metrics are requested", func() {
			for _, path := range []string{"/api-docs", "/openapi.yaml", "/metrics", "/healthz", "/scenarios", "/stats"} {
				resp, err := http.Get(base + path)
				convey.So(err, convey.ShouldBeNil)
				_ = resp.Body.Close()
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
			}
		})

		convey.Convey("When the context is cancelled", func() {
			cancel()

			convey.Convey("Then serve returns cleanly", func() {
				select {
				case err := <-done:
					convey.So(err, convey.ShouldBeNil)
				case <-time.After(10 * time.Second):
					convey.So("serve did not stop", convey.ShouldBeEmpty)
				}
			})
		})
	})
}

func TestNewService(t *testing.T) {
	convey.Convey("Given a config with an invalid scenario", t, func() {
		cfg := config.New()
		cfg.Scenarios = []model.Scenario{{Name: "bad", Weight: -1}}

		_, err := newService(cfg)

		convey.Convey("Then the service is not built", func() {
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(err.Error(), convey.ShouldContainSubstring, "scenario catalog")
		})
	})
}

func TestMetricUpdaters(t *testing.T) {
	convey.Convey("Given the metric updaters", t, func() {
		cfg := config.New()
		svc, err := newService(cfg)
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("Then they run without panicking", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
			convey.So(func() { updateServiceMetrics(svc) }, convey.ShouldNotPanic)
		})

		convey.Convey("Then every stops with its context", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
			defer cancel()
			calls := 0
			every(ctx, 5*time.Millisecond, func() { calls++ })
			convey.So(calls, convey.ShouldBeGreaterThan, 0)
		})
	})
}
