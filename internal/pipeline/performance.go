package pipeline

import (
	"sort"

	"github.com/wesm/queryview/internal/dataset"
)

// Statistic names, in the order the long form emits them.
const (
	StatMin    = "min"
	StatP25    = "p25"
	StatMedian = "median"
	StatP90    = "p90"
	StatP95    = "p95"
	StatMax    = "max"
)

// Statistics lists the statistic names in emission order.
var Statistics = []string{
	StatMin, StatP25, StatMedian, StatP90, StatP95, StatMax,
}

// statFractions are the quantile fractions matching Statistics.
var statFractions = []float64{0, 0.25, 0.5, 0.9, 0.95, 1}

// DailyStats is the query-duration distribution of one day.
type DailyStats struct {
	StartDate string  `json:"start_date"`
	Queries   int     `json:"queries"`
	Min       float64 `json:"min"`
	P25       float64 `json:"p25"`
	Median    float64 `json:"median"`
	P90       float64 `json:"p90"`
	P95       float64 `json:"p95"`
	Max       float64 `json:"max"`
}

// values returns the statistics in Statistics order.
func (d DailyStats) values() []float64 {
	return []float64{d.Min, d.P25, d.Median, d.P90, d.P95, d.Max}
}

// QuantilePoint is one (date, statistic, value) row of the long
// form, ready to plot as one series per statistic.
type QuantilePoint struct {
	StartDate string  `json:"start_date"`
	Statistic string  `json:"statistic"`
	Value     float64 `json:"value"`
}

// DailyQuantiles groups records by start_date (ascending) and
// computes the six duration statistics of each day. Values are
// not clipped; a zero duration stays zero.
func DailyQuantiles(records []dataset.Record) []DailyStats {
	byDate := make(map[string][]float64)
	for _, r := range records {
		byDate[r.StartDate] = append(byDate[r.StartDate], r.QueryTimeSec)
	}

	dates := make([]string, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	out := make([]DailyStats, 0, len(dates))
	for _, d := range dates {
		vals := byDate[d]
		sort.Float64s(vals)
		q := make([]float64, len(statFractions))
		for i, p := range statFractions {
			q[i] = Quantile(vals, p)
		}
		out = append(out, DailyStats{
			StartDate: d,
			Queries:   len(vals),
			Min:       q[0],
			P25:       q[1],
			Median:    q[2],
			P90:       q[3],
			P95:       q[4],
			Max:       q[5],
		})
	}
	return out
}

// Melt reshapes daily statistics into long form: every date for
// min, then every date for p25, and so on.
func Melt(days []DailyStats) []QuantilePoint {
	vals := make([][]float64, len(days))
	for j, d := range days {
		vals[j] = d.values()
	}
	out := make([]QuantilePoint, 0, len(days)*len(Statistics))
	for i, name := range Statistics {
		for j, d := range days {
			out = append(out, QuantilePoint{
				StartDate: d.StartDate,
				Statistic: name,
				Value:     vals[j][i],
			})
		}
	}
	return out
}
