package report

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/aybabtme/uniplot/histogram"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/okian/safeload/internal/domain/model"
)

const (
	histogramBins  = 10
	histogramWidth = 40
)

var printer = message.NewPrinter(language.English)

// Render writes a human readable report. latenciesMs feeds the histogram
// section and may be empty.
func Render(w io.Writer, rep model.RunReport, latenciesMs []float64) error {
	var buf bytes.Buffer

	buf.WriteString(">>> Load test report <<<\n")
	printer.Fprintf(&buf, "Started:  %s\n", rep.StartedAt.Format("2006-01-02 15:04:05"))
	printer.Fprintf(&buf, "Elapsed:  %.2fs\n\n", rep.ElapsedSeconds)

	writeSummary(&buf, rep.Summary)

	if len(rep.StatusCodes) > 0 {
		buf.WriteString("\nStatus codes:\n")
		for _, code := range sortedKeys(rep.StatusCodes) {
			label := code
			if code == "0" {
				label = "0 (transport failure)"
			}
			printer.Fprintf(&buf, "%9d  %s\n", rep.StatusCodes[code], label)
		}
	}

	if len(rep.PerScenario) > 0 {
		buf.WriteString("\nPer scenario:\n")
		printer.Fprintf(&buf, "%-20s %9s %9s %9s %9s %9s %9s\n",
			"scenario", "requests", "failed", "avg ms", "p95 ms", "max ms", "req/s")
		for _, name := range sortedKeys(rep.PerScenario) {
			s := rep.PerScenario[name]
			printer.Fprintf(&buf, "%-20s %9d %9d %9.1f %9.1f %9.1f %9.2f\n",
				name, s.TotalRequests, s.FailedRequests, s.AverageResponseTimeMs,
				s.P95ResponseTimeMs, s.MaxResponseTimeMs, s.RequestsPerSecond)
		}
	}

	if len(latenciesMs) > 0 {
		buf.WriteString("\nLatency histogram (successful requests):\n")
		hist := histogram.Hist(histogramBins, latenciesMs)
		err := histogram.Fprintf(&buf, hist, histogram.Linear(histogramWidth), func(v float64) string {
			return printer.Sprintf("%.1fms", v)
		})
		if err != nil {
			return fmt.Errorf("render histogram: %w", err)
		}
	}

	_, err := w.Write(buf.Bytes())
	return err
}

func writeSummary(buf *bytes.Buffer, s model.Summary) {
	printer.Fprintf(buf, "Requests: %d\n", s.TotalRequests)
	printer.Fprintf(buf, "%9d = %6.2f%%: Successes\n", s.SuccessfulRequests, 100-s.ErrorRate)
	printer.Fprintf(buf, "%9d = %6.2f%%: Failures\n", s.FailedRequests, s.ErrorRate)
	printer.Fprintf(buf, "Throughput: %.2f req/s\n", s.RequestsPerSecond)
	buf.WriteString("\nResponse time (successful requests):\n")
	printer.Fprintf(buf, "  avg %9.1fms   min %9.1fms   max %9.1fms\n",
		s.AverageResponseTimeMs, s.MinResponseTimeMs, s.MaxResponseTimeMs)
	printer.Fprintf(buf, "  p50 %9.1fms   p90 %9.1fms   p95 %9.1fms   p99 %9.1fms\n",
		s.P50ResponseTimeMs, s.P90ResponseTimeMs, s.P95ResponseTimeMs, s.P99ResponseTimeMs)
}

// sortedKeys orders numeric keys numerically and everything else lexically.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, errA := strconv.Atoi(keys[i])
		b, errB := strconv.Atoi(keys[j])
		if errA == nil && errB == nil {
			return a < b
		}
		return keys[i] < keys[j]
	})
	return keys
}
