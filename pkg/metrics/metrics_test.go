package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options on a private registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should be created with the safeload namespace", func() {
				So(manager, ShouldNotBeNil)
				So(manager.namespace, ShouldEqual, "safeload")
				So(manager.subsystem, ShouldEqual, "loadtest")
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test_namespace"),
				WithSubsystem("test_subsystem"),
				WithMetricPrefix("pre_"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithRunDurationBuckets([]float64{1, 2}),
				WithCustomLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then the options should be applied", func() {
				So(manager.namespace, ShouldEqual, "test_namespace")
				So(manager.histogramBuckets, ShouldResemble, []float64{0.1, 0.5, 1.0})
				So(manager.runBuckets, ShouldResemble, []float64{1, 2})
				So(manager.customLabels["env"], ShouldEqual, "test")
			})

			Convey("And metric names should carry the prefix", func() {
				manager.runsStarted.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				found := false
				for _, f := range families {
					if f.GetName() == "test_namespace_test_subsystem_pre_runs_started_total" {
						found = true
					}
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When passing empty option values", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace(""),
				WithHistogramBuckets(nil),
				WithRunDurationBuckets(nil),
				WithPrometheusRegistry(registry),
			)

			Convey("Then defaults should be kept", func() {
				So(manager.namespace, ShouldEqual, "safeload")
				So(len(manager.histogramBuckets), ShouldBeGreaterThan, 0)
				So(manager.runBuckets, ShouldResemble, defaultRunBuckets)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording a run lifecycle", func() {
			before := testutil.ToFloat64(globalManager.runsStarted)
			RecordRunStarted()
			inProgress := testutil.ToFloat64(globalManager.runsInProgress)
			RecordRunFinished("completed", 12*time.Second)

			Convey("Then counters and gauges should move", func() {
				So(testutil.ToFloat64(globalManager.runsStarted), ShouldEqual, before+1)
				So(testutil.ToFloat64(globalManager.runsInProgress), ShouldEqual, inProgress-1)
				So(testutil.ToFloat64(globalManager.runsCompleted.WithLabelValues("completed")), ShouldBeGreaterThanOrEqualTo, 1)
			})
		})

		Convey("When recording synthetic requests", func() {
			before := testutil.ToFloat64(globalManager.requestsTotal.WithLabelValues("dashboard", "failure"))
			RecordRequest("dashboard", true, 42)
			RecordRequest("dashboard", false, -1)

			Convey("Then failures should be counted by scenario", func() {
				So(testutil.ToFloat64(globalManager.requestsTotal.WithLabelValues("dashboard", "failure")), ShouldEqual, before+1)
			})
		})

		Convey("When recording the remaining metrics", func() {
			So(func() {
				RecordRunRejected()
				AddActiveVirtualUsers(3)
				AddActiveVirtualUsers(-3)
				UpdateQueueSize(2)
				UpdateQueueCapacity(16)
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueEnqueueError("queue_full")
				UpdateWorkerCount(2)
				RecordWorkerProcessingLatency(30 * time.Second)
				RecordWorkerError()
				RecordHTTPRequest("/loadtests", "POST", "200")
				RecordHTTPRequestDuration("/loadtests", "POST", "200", 12)
				RecordErrorByEndpoint("/loadtests", "POST", "client_error")
				RecordErrorByType("client_error", "medium")
				UpdateSystemMemoryUsage(1024)
				UpdateSystemGoroutineCount(10)
				RecordSystemGCPauseTime(0.5)
			}, ShouldNotPanic)
		})

		Convey("When gathering the registry", func() {
			families, err := GetRegistry().Gather()

			Convey("Then metrics should be exported", func() {
				So(err, ShouldBeNil)
				So(len(families), ShouldBeGreaterThan, 0)
			})
		})
	})
}
