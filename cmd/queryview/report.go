package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/wesm/queryview/internal/pipeline"
)

type reportOptions struct {
	sel    pipeline.Selection
	asJSON bool
}

func newReportCmd() *cobra.Command {
	var opts reportOptions
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the views for one selection and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := setup(cmd, nil)
			if err != nil {
				return err
			}
			ds, err := e.load(cmd.Context())
			if err != nil {
				return err
			}
			views, err := pipeline.ComputeViewsN(ds, opts.sel, e.cfg.TopN)
			return writeReport(cmd.OutOrStdout(), views, err, opts.asJSON)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.sel.From, "from", "", "First date (YYYY-MM-DD), inclusive")
	f.StringVar(&opts.sel.To, "to", "", "Last date (YYYY-MM-DD), inclusive")
	f.StringVar(&opts.sel.Team, "team", pipeline.All, "Team filter")
	f.StringVar(&opts.sel.App, "app", pipeline.All, "App filter (needs --team)")
	f.StringVar(&opts.sel.Page, "page", pipeline.All, "Page filter (needs --app)")
	f.Int("top-n", 100, "Rows in the slowest-queries table")
	f.BoolVar(&opts.asJSON, "json", false, "Write the views as JSON")
	return cmd
}

// writeReport renders views as text tables or JSON. A no-data
// result is a message, not an error.
func writeReport(
	w io.Writer, views pipeline.Views, err error, asJSON bool,
) error {
	noData := errors.Is(err, pipeline.ErrNoData)
	if err != nil && !noData {
		return err
	}
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if noData {
			return enc.Encode(map[string]any{
				"no_data": true, "selection": views.Selection,
			})
		}
		return enc.Encode(views)
	}

	sel := views.Selection
	fmt.Fprintf(w, "Selection: %s to %s, team=%s app=%s page=%s\n\n",
		sel.From, sel.To, sel.Team, sel.App, sel.Page)
	if noData {
		_, err := fmt.Fprintln(w,
			"There is no data available for the selected filters.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Rows\tTeams\tApps\tPages\n")
	fmt.Fprintf(tw, "%d\t%d\t%d\t%d\n\n", views.Records,
		views.Summary.TeamCount, views.Summary.AppCount,
		views.Summary.PageCount)

	fmt.Fprintf(tw, "Date\tUnique viewers\tViewers\n")
	for _, d := range views.ViewersByDate {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", d.StartDate, d.UniqueViewers,
			strings.Join(d.Viewers, ", "))
	}
	fmt.Fprintln(tw)

	fmt.Fprintf(tw, "Date\t%s\n", strings.Join(pipeline.Statistics, "\t"))
	for _, d := range views.DailyQuantiles {
		fmt.Fprintf(tw, "%s\t%.3f\t%.3f\t%.3f\t%.3f\t%.3f\t%.3f\n",
			d.StartDate, d.Min, d.P25, d.Median, d.P90, d.P95, d.Max)
	}
	fmt.Fprintln(tw)

	fmt.Fprintf(tw, "#\tDate\tSeconds\tQuery\n")
	for _, q := range views.TopQueries {
		fmt.Fprintf(tw, "%d\t%s\t%.3f\t%s\n", q.Index, q.StartDate,
			q.QueryTimeSec, oneLine(q.QueryText, 80))
	}
	return tw.Flush()
}

// oneLine collapses whitespace and truncates s to n runes.
func oneLine(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
