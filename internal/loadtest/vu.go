package loadtest

import (
	"context"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/okian/safeload/internal/domain/model"
	"github.com/okian/safeload/internal/domain/scenario"
	"github.com/okian/safeload/pkg/logger"
	"github.com/okian/safeload/pkg/metrics"
)

// virtualUser simulates one concurrent client for the length of a run.
type virtualUser struct {
	id       int
	startAt  time.Time
	endAt    time.Time
	baseURL  string
	selector *scenario.Selector
	rng      *rand.Rand
	sink     Sink
	progress *Progress

	client         Doer
	requestTimeout time.Duration
	thinkMin       time.Duration
	thinkMax       time.Duration
	logger         logger.Logger
}

// run waits for the scheduled start, then loops over scenarios until the run
// end time passes or ctx is cancelled. The end check happens only between
// scenario iterations so a started scenario always finishes.
func (vu *virtualUser) run(ctx context.Context) {
	if !sleepUntil(ctx, vu.startAt) || !time.Now().Before(vu.endAt) {
		return
	}

	vu.progress.userStarted()
	metrics.AddActiveVirtualUsers(1)
	defer func() {
		vu.progress.userFinished()
		metrics.AddActiveVirtualUsers(-1)
	}()
	vu.logger.Debug(ctx, "virtual user started", logger.Int("vu", vu.id))

	iterations := 0
	for ctx.Err() == nil && time.Now().Before(vu.endAt) {
		sc := vu.selector.Pick(vu.rng)
		for _, req := range sc.Requests {
			vu.execute(ctx, sc.Name, req)
		}
		iterations++

		think := vu.thinkTime()
		if remaining := time.Until(vu.endAt); think > remaining {
			think = remaining
		}
		if !sleepFor(ctx, think) {
			break
		}
	}

	vu.logger.Debug(ctx, "virtual user finished",
		logger.Int("vu", vu.id),
		logger.Int("iterations", iterations),
	)
}

// execute issues one request and records its outcome. Requests aborted by
// run cancellation are not recorded.
func (vu *virtualUser) execute(ctx context.Context, scenarioName string, req model.ScenarioRequest) {
	out := model.RequestOutcome{
		ScenarioName:  scenarioName,
		VirtualUserID: vu.id,
		Method:        req.Method,
		Path:          req.Path,
		IssuedAt:      time.Now(),
		ResponseTime:  model.TransportFailureLatency,
	}

	status, err := vu.do(ctx, req)
	elapsed := time.Since(out.IssuedAt)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		out.Error = err.Error()
		vu.logger.Debug(ctx, "request failed",
			logger.Int("vu", vu.id),
			logger.String("scenario", scenarioName),
			logger.String("path", req.Path),
			logger.Error(err),
		)
	} else {
		out.StatusCode = status
		out.ResponseTime = elapsed
		out.Success = model.IsSuccessStatus(status)
	}

	vu.sink.Record(out)
	metrics.RecordRequest(scenarioName, out.Success, out.ResponseTimeMs())
}

// do performs the HTTP exchange and drains the body so latency covers the
// full response. A body read failure counts as a transport failure.
func (vu *virtualUser) do(ctx context.Context, req model.ScenarioRequest) (int, error) {
	reqCtx, cancel := context.WithTimeout(ctx, vu.requestTimeout)
	defer cancel()

	var body io.Reader
	if req.Body != "" {
		body = strings.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(reqCtx, req.Method, vu.baseURL+req.Path, body)
	if err != nil {
		return 0, err
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := vu.client.Do(httpReq)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		return 0, err
	}
	return resp.StatusCode, nil
}

func (vu *virtualUser) thinkTime() time.Duration {
	span := int64(vu.thinkMax - vu.thinkMin)
	if span <= 0 {
		return vu.thinkMin
	}
	return vu.thinkMin + time.Duration(vu.rng.Int63n(span+1))
}

// sleepUntil blocks until t or ctx cancellation. It reports whether t was reached.
func sleepUntil(ctx context.Context, t time.Time) bool {
	return sleepFor(ctx, time.Until(t))
}

func sleepFor(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
