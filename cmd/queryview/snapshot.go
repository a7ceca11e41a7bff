package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wesm/queryview/internal/db"
)

func newSnapshotCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Load the source and save it as a SQLite snapshot",
		Long: `snapshot copies the configured source into a SQLite file that
can be served later with --source sqlite --data FILE. Useful for
freezing a Snowflake pull.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if out == "" {
				return errors.New("--out is required")
			}
			e, err := setup(cmd, nil)
			if err != nil {
				return err
			}
			ds, err := e.load(cmd.Context())
			if err != nil {
				return err
			}
			database, err := db.Open(out)
			if err != nil {
				return err
			}
			defer database.Close()
			if err := database.ReplaceRecords(cmd.Context(), ds.Records, ds.Source); err != nil {
				return fmt.Errorf("writing snapshot: %w", err)
			}
			stats, err := database.GetStats(cmd.Context())
			if err != nil {
				return err
			}
			e.log.Info("snapshot written",
				zap.String("path", out),
				zap.Int("records", stats.RecordCount),
				zap.String("source", stats.Source))
			_, err = fmt.Fprintf(cmd.OutOrStdout(),
				"Wrote %d records (%d teams, %s to %s) to %s\n",
				stats.RecordCount, stats.TeamCount,
				stats.FirstDate, stats.LastDate, out)
			return err
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "Snapshot file to write")
	return cmd
}
