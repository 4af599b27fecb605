package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/okian/safeload/pkg/metrics"
	. "github.com/smartystreets/goconvey/convey"
)

// errorTypeCount returns the errors_by_type_total sample for errorType.
func errorTypeCount(errorType string) float64 {
	families, err := metrics.GetRegistry().Gather()
	if err != nil {
		return -1
	}
	for _, f := range families {
		if f.GetName() != "safeload_loadtest_errors_by_type_total" {
			continue
		}
		for _, m := range f.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "error_type" && l.GetValue() == errorType {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestMetricsMiddleware(t *testing.T) {
	Convey("Given an instrumented handler", t, func() {
		Convey("When it writes an error envelope", func() {
			before := errorTypeCount("backpressure")
			h := MetricsMiddleware(func(w http.ResponseWriter, _ *http.Request) {
				writeKindError(w, NewKind("submit", ErrBackpressure))
			}, "test")
			rec := httptest.NewRecorder()
			h(rec, httptest.NewRequest(http.MethodPost, "/x", nil))

			Convey("Then the envelope code labels the error", func() {
				So(rec.Code, ShouldEqual, http.StatusTooManyRequests)
				So(errorTypeCount("backpressure"), ShouldEqual, before+1)
			})
		})

		Convey("When the error has no envelope", func() {
			before := errorTypeCount("client_error")
			h := MetricsMiddleware(http.NotFound, "test")
			h(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

			Convey("Then the status class labels it", func() {
				So(errorTypeCount("client_error"), ShouldEqual, before+1)
			})
		})
	})

	Convey("Given error statuses", t, func() {
		So(severityOf(http.StatusInternalServerError), ShouldEqual, "high")
		So(severityOf(http.StatusTooManyRequests), ShouldEqual, "low")
		So(severityOf(http.StatusBadRequest), ShouldEqual, "medium")
		So(errorClass(http.StatusBadGateway), ShouldEqual, "internal_error")
		So(errors.Is(WrapKind("op", ErrNotFound, errors.New("x")), ErrNotFound), ShouldBeTrue)
	})
}
