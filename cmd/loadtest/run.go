package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/safeload/internal/domain/model"
	"github.com/okian/safeload/internal/domain/report"
	"github.com/okian/safeload/internal/domain/scenario"
	"github.com/okian/safeload/internal/loadtest"
)

const (
	progressInterval = time.Second
	progressWidth    = 20
)

type runOptions struct {
	url           string
	users         int
	duration      int
	rampUp        int
	scenariosFile string
	jsonOutput    bool
	seed          int64
	quiet         bool
}

func newRunCmd(root *rootOptions) *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a load test and print its report",
		Example: `  loadtest run --url http://localhost:8080 --users 20 --duration 60 --ramp-up 10
  loadtest run --scenarios scenarios.yaml --json > report.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLoadTest(cmd, root, opts)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.url, "url", "u", "", "target base URL (default from config target_url)")
	f.IntVarP(&opts.users, "users", "U", 10, "concurrent virtual users")
	f.IntVarP(&opts.duration, "duration", "d", 30, "test duration in seconds")
	f.IntVar(&opts.rampUp, "ramp-up", 5, "ramp-up window in seconds")
	f.StringVarP(&opts.scenariosFile, "scenarios", "s", "", "YAML scenario catalog (default built-in)")
	f.BoolVar(&opts.jsonOutput, "json", false, "print the report as JSON")
	f.Int64Var(&opts.seed, "seed", 0, "random seed; 0 uses the clock")
	f.BoolVarP(&opts.quiet, "quiet", "q", false, "do not print live progress")
	return cmd
}

func runLoadTest(cmd *cobra.Command, root *rootOptions, opts *runOptions) error {
	ctx := cmd.Context()
	cfg, err := root.loadConfig(ctx)
	if err != nil {
		return err
	}

	catalog, err := loadCatalog(opts.scenariosFile, cfg.Catalog)
	if err != nil {
		return err
	}

	engineOpts := cfg.EngineOptions()
	if cmd.Flags().Changed("seed") {
		engineOpts = append(engineOpts, loadtest.WithSeed(opts.seed))
	}
	engine := loadtest.New(engineOpts...)

	req := model.RunRequest{
		ConcurrentUsers: opts.users,
		TestDuration:    opts.duration,
		RampUpTime:      opts.rampUp,
		TargetURL:       opts.url,
	}
	runCfg := req.RunConfig(cfg.TargetURL)

	run, err := engine.Start(ctx, runCfg, catalog)
	if err != nil {
		return err
	}

	if !opts.quiet {
		watchProgress(cmd.ErrOrStderr(), run)
	}
	res := run.Wait()
	rep := report.Aggregate(res.Outcomes, res.StartedAt, res.FinishedAt)

	out := cmd.OutOrStdout()
	if opts.jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}
	fmt.Fprintf(out, "Target: %s  users=%d duration=%s ramp-up=%s\n\n",
		runCfg.TargetBaseURL, runCfg.ConcurrentUsers, runCfg.TestDuration, runCfg.RampUp)
	return report.Render(out, rep, report.LatenciesMs(res.Outcomes))
}

// loadCatalog reads path when set, otherwise falls back to the configured catalog.
func loadCatalog(path string, fallback func() (*scenario.Catalog, error)) (*scenario.Catalog, error) {
	if path != "" {
		return scenario.LoadFile(path)
	}
	return fallback()
}

// watchProgress prints a progress line every second until the run finishes.
func watchProgress(w io.Writer, run *loadtest.Run) {
	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()

	total := run.Config().TestDuration
	for {
		select {
		case <-run.Done():
			fmt.Fprintln(w, progressLine(run.Progress().Snapshot(), total))
			return
		case <-ticker.C:
			fmt.Fprint(w, "\r"+progressLine(run.Progress().Snapshot(), total))
		}
	}
}

func progressLine(s model.ProgressSnapshot, total time.Duration) string {
	pct := 1.0
	if total > 0 {
		pct = s.ElapsedSec / total.Seconds()
	}
	return fmt.Sprintf("%s %3.0f%% | %4.0fs/%s | users %3d | req %6d | ok %6d | err %5d | p50 %7.1fms | p99 %7.1fms",
		progressBar(pct, progressWidth), min(pct, 1)*100,
		s.ElapsedSec, total,
		s.ActiveUsers, s.Requests, s.Successes, s.Failures,
		s.P50Ms, s.P99Ms,
	)
}

func progressBar(pct float64, width int) string {
	filled := int(pct * float64(width))
	filled = max(0, min(filled, width))
	return "[" + strings.Repeat("#", filled) + strings.Repeat("-", width-filled) + "]"
}
