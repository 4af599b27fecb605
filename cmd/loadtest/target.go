package main

import (
	"github.com/spf13/cobra"

	"github.com/okian/safeload/internal/target"
)

func newTargetCmd() *cobra.Command {
	var (
		addr      string
		scale     float64
		errorRate float64
		seed      int64
	)
	cmd := &cobra.Command{
		Use:   "target",
		Short: "Serve a simulated safety-management API to test against",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := []target.Option{
				target.WithLatencyScale(scale),
				target.WithErrorRate(errorRate),
			}
			if seed != 0 {
				opts = append(opts, target.WithSeed(seed))
			}
			return target.New(opts...).ListenAndServe(cmd.Context(), addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().Float64Var(&scale, "latency-scale", 1, "multiplier for simulated latency; 0 disables it")
	cmd.Flags().Float64Var(&errorRate, "error-rate", 0, "share of requests answered with 500, 0..1")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed; 0 uses the clock")
	return cmd
}
