package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wesm/queryview/internal/config"
	"github.com/wesm/queryview/internal/dataset"
	"github.com/wesm/queryview/internal/logging"
	"github.com/wesm/queryview/internal/metrics"
	"github.com/wesm/queryview/internal/source"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "queryview",
		Short: "Dashboard for tagged warehouse query history",
		Long: `queryview loads a query-history table (CSV export, SQLite
snapshot, or Snowflake account usage), filters it by date, team, app
and page, and serves usage and performance views via a local web UI.

Running queryview with no subcommand starts the server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd)
		},
	}
	config.RegisterSourceFlags(root.PersistentFlags())
	config.RegisterServeFlags(root.Flags())

	root.AddCommand(
		newServeCmd(),
		newReportCmd(),
		newSnapshotCmd(),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(),
				"queryview %s (commit %s, built %s)\n",
				version, commit, buildDate)
			return err
		},
	}
}

// env is what every data command needs: config, logger, metrics
// and a store bound to the configured source.
type env struct {
	cfg     config.Config
	log     *zap.Logger
	metrics *metrics.Metrics
	store   *dataset.Store
}

// setup loads the config from cmd's flags and builds the store.
// m may be nil for one-shot commands that don't export metrics.
func setup(cmd *cobra.Command, m *metrics.Metrics) (*env, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(log)

	loader, err := source.New(cfg.SourceParams())
	if err != nil {
		return nil, err
	}
	store := dataset.NewStore(loader,
		dataset.WithLogger(log),
		dataset.WithMetrics(m),
	)
	return &env{cfg: cfg, log: log, metrics: m, store: store}, nil
}

// load performs the first load for one-shot commands.
func (e *env) load(ctx context.Context) (*dataset.Dataset, error) {
	return e.store.Reload(ctx)
}
