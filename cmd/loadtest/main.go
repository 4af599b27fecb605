// Command loadtest runs synthetic load tests from the terminal.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/okian/safeload/internal/config"
	"github.com/okian/safeload/pkg/logger"
)

func main() {
	// stdout carries reports; logs go to stderr.
	if err := logger.InitWriter(os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize logging:", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

type rootOptions struct {
	configFile string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "loadtest",
		Short: "Synthetic load testing for the safety-management API",
		Long: `loadtest simulates concurrent virtual users replaying weighted scenarios
against a target for a bounded duration, then reports latency and availability.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if opts.logLevel != "" {
				return logger.SetLevelString(opts.logLevel)
			}
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&opts.configFile, "config", os.Getenv(config.EnvConfigFile), "YAML config file (env "+config.EnvConfigFile+")")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")

	cmd.AddCommand(newRunCmd(opts), newScenariosCmd(opts), newTargetCmd())
	return cmd
}

// loadConfig reads the layered config. An explicit --log-level wins over the
// file and environment.
func (o *rootOptions) loadConfig(ctx context.Context) (*config.Config, error) {
	cfg, err := config.LoadFile(ctx, o.configFile)
	if err != nil {
		return nil, err
	}
	if o.logLevel == "" {
		if err := logger.SetLevelString(cfg.LogLevel); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
