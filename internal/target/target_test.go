package target

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/okian/safeload/internal/domain/scenario"
	"github.com/okian/safeload/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
	_ = logger.SetLevelString("error")
}

func TestTargetEndpoints(t *testing.T) {
	Convey("Given a target without simulated latency", t, func() {
		srv := httptest.NewServer(New(WithLatencyScale(0), WithSeed(1)).Handler())
		defer srv.Close()

		Convey("Then every request of the built-in catalog succeeds", func() {
			for _, sc := range scenario.DefaultScenarios() {
				for _, r := range sc.Requests {
					req, err := http.NewRequest(r.Method, srv.URL+r.Path, strings.NewReader(r.Body))
					So(err, ShouldBeNil)
					for k, v := range r.Headers {
						req.Header.Set(k, v)
					}
					resp, err := http.DefaultClient.Do(req)
					So(err, ShouldBeNil)
					_ = resp.Body.Close()
					So(resp.StatusCode, ShouldBeBetweenOrEqual, 200, 299)
				}
			}
		})

		Convey("When an incident is reported", func() {
			resp, err := http.Post(srv.URL+"/api/incidents", "application/json",
				strings.NewReader(`{"title":"Loose cable","severity":"medium"}`))
			So(err, ShouldBeNil)
			var created Incident
			So(json.NewDecoder(resp.Body).Decode(&created), ShouldBeNil)
			_ = resp.Body.Close()

			Convey("Then it is created and can be fetched", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusCreated)
				So(created.ID, ShouldEqual, 4)

				get, err := http.Get(srv.URL + "/api/incidents/4")
				So(err, ShouldBeNil)
				var fetched Incident
				So(json.NewDecoder(get.Body).Decode(&fetched), ShouldBeNil)
				_ = get.Body.Close()
				So(fetched.Title, ShouldEqual, "Loose cable")
			})
		})

		Convey("When an incident has no title", func() {
			resp, err := http.Post(srv.URL+"/api/incidents", "application/json", strings.NewReader(`{}`))
			So(err, ShouldBeNil)
			_ = resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When fetching an unknown incident", func() {
			resp, err := http.Get(srv.URL + "/api/incidents/999")
			So(err, ShouldBeNil)
			_ = resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
		})

		Convey("When using the wrong method", func() {
			resp, err := http.Post(srv.URL+"/api/reports/summary", "application/json", nil)
			So(err, ShouldBeNil)
			_ = resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

func TestTargetFailureInjection(t *testing.T) {
	Convey("Given a target that always fails", t, func() {
		srv := httptest.NewServer(New(WithLatencyScale(0), WithErrorRate(1)).Handler())
		defer srv.Close()

		resp, err := http.Get(srv.URL + "/api/notifications")
		So(err, ShouldBeNil)
		_ = resp.Body.Close()
		So(resp.StatusCode, ShouldEqual, http.StatusInternalServerError)

		Convey("Then health is still served", func() {
			h, err := http.Get(srv.URL + "/healthz")
			So(err, ShouldBeNil)
			_ = h.Body.Close()
			So(h.StatusCode, ShouldEqual, http.StatusOK)
		})
	})

	Convey("Given out-of-range options", t, func() {
		s := New(WithErrorRate(2), WithLatencyScale(-1), WithMaxIncidents(1))

		Convey("Then they are ignored", func() {
			So(s.errorRate, ShouldEqual, 0)
			So(s.latencyScale, ShouldEqual, 1)
			So(s.maxIncidents, ShouldEqual, defaultMaxIncidents)
		})
	})
}

func TestTargetLatency(t *testing.T) {
	Convey("Given a seeded target", t, func() {
		s := New(WithSeed(7))

		Convey("Then draws stay inside the band", func() {
			for i := 0; i < 200; i++ {
				d, fail := s.draw(fastBand)
				So(fail, ShouldBeFalse)
				So(d, ShouldBeGreaterThanOrEqualTo, fastBand.Min)
				So(d, ShouldBeLessThan, fastBand.Max)
			}
		})

		Convey("Then the incident list is bounded", func() {
			s.maxIncidents = 5
			s.latencyScale = 0
			h := s.Handler()
			for i := 0; i < 10; i++ {
				rec := httptest.NewRecorder()
				req := httptest.NewRequest(http.MethodPost, "/api/incidents", strings.NewReader(`{"title":"x"}`))
				h.ServeHTTP(rec, req)
				So(rec.Code, ShouldEqual, http.StatusCreated)
			}
			So(len(s.incidents), ShouldEqual, 5)
			So(s.incidents[0].ID, ShouldEqual, 1)
			So(s.incidents[4].ID, ShouldEqual, 13)
		})
	})
}

func TestTargetListen(t *testing.T) {
	Convey("Given a target listening on a free port", t, func() {
		l, err := net.Listen("tcp", "127.0.0.1:0")
		So(err, ShouldBeNil)
		addr := l.Addr().String()
		_ = l.Close()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		done := make(chan error, 1)
		go func() { done <- New(WithLatencyScale(0)).ListenAndServe(ctx, addr) }()

		var resp *http.Response
		for i := 0; i < 50; i++ {
			resp, err = http.Get("http://" + addr + "/healthz")
			if err == nil {
				break
			}
			time.Sleep(20 * time.Millisecond)
		}
		So(err, ShouldBeNil)
		_ = resp.Body.Close()

		Convey("When the context is cancelled", func() {
			cancel()

			Convey("Then the server shuts down cleanly", func() {
				select {
				case err := <-done:
					So(err, ShouldBeNil)
				case <-time.After(5 * time.Second):
					So("timeout", ShouldBeEmpty)
				}
			})
		})
	})
}
