package pipeline

import (
	"sort"

	"github.com/wesm/queryview/internal/dataset"
)

// DefaultTopN is the number of longest queries the dashboard lists.
const DefaultTopN = 100

// TopQuery is one row of the longest-queries table.
type TopQuery struct {
	Index        int     `json:"index"`
	StartDate    string  `json:"start_date"`
	TeamName     *string `json:"team_name"`
	AppName      *string `json:"app_name"`
	PageName     *string `json:"page_name"`
	QueryText    string  `json:"query_text"`
	QueryTimeSec float64 `json:"query_time_sec"`
}

// TopQueries returns the n longest records, slowest first. Ties
// keep their input order. Index is the zero-based rank.
func TopQueries(records []dataset.Record, n int) []TopQuery {
	if n <= 0 {
		return []TopQuery{}
	}
	sorted := clone(records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].QueryTimeSec > sorted[j].QueryTimeSec
	})
	sorted = sorted[:min(n, len(sorted))]

	out := make([]TopQuery, len(sorted))
	for i, r := range sorted {
		out[i] = TopQuery{
			Index:        i,
			StartDate:    r.StartDate,
			TeamName:     r.TeamName,
			AppName:      r.AppName,
			PageName:     r.PageName,
			QueryText:    r.QueryText,
			QueryTimeSec: r.QueryTimeSec,
		}
	}
	return out
}
