package pipeline

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wesm/queryview/internal/dataset"
)

func TestQuantile(t *testing.T) {
	five := []float64{1, 2, 3, 4, 5}
	tests := []struct {
		name   string
		sorted []float64
		p      float64
		want   float64
	}{
		{"min", five, 0, 1},
		{"p25", five, 0.25, 2},
		{"median", five, 0.5, 3},
		{"p90", five, 0.9, 4.6},
		{"p95", five, 0.95, 4.8},
		{"max", five, 1, 5},
		{"even median interpolates", []float64{1, 2, 3, 4}, 0.5, 2.5},
		{"single value", []float64{7}, 0.9, 7},
		{"two values", []float64{10, 20}, 0.25, 12.5},
		{"empty", nil, 0.5, 0},
		{"zero durations", []float64{0, 0, 0}, 0.95, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Quantile(tt.sorted, tt.p), 1e-9)
		})
	}
}

func TestDailyQuantilesExample(t *testing.T) {
	records := fixture()
	for _, v := range []float64{4, 2, 5, 1, 3} {
		records = append(records, mk("2024-02-01", secs(v)))
	}
	sel := Selection{From: "2024-02-01", To: "2024-02-01"}

	days := DailyQuantiles(Filter(records, sel))
	require.Len(t, days, 1)
	d := days[0]
	assert.Equal(t, "2024-02-01", d.StartDate)
	assert.Equal(t, 5, d.Queries)
	assert.InDelta(t, 1, d.Min, 1e-9)
	assert.InDelta(t, 2, d.P25, 1e-9)
	assert.InDelta(t, 3, d.Median, 1e-9)
	assert.InDelta(t, 4.6, d.P90, 1e-9)
	assert.InDelta(t, 4.8, d.P95, 1e-9)
	assert.InDelta(t, 5, d.Max, 1e-9)
}

func TestDailyQuantilesOrdering(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	var records []dataset.Record
	dates := []string{"2024-03-03", "2024-03-01", "2024-03-02"}
	for i := range 600 {
		v := rng.ExpFloat64() * 3
		if i%37 == 0 {
			v = 0
		}
		records = append(records, mk(dates[i%len(dates)], secs(v)))
	}

	days := DailyQuantiles(records)
	require.Len(t, days, 3)
	assert.True(t, sort.SliceIsSorted(days, func(i, j int) bool {
		return days[i].StartDate < days[j].StartDate
	}), "days ascending")
	for _, d := range days {
		vals := d.values()
		assert.True(t, sort.Float64sAreSorted(vals),
			"%s: statistics out of order: %v", d.StartDate, vals)
		assert.Equal(t, 200, d.Queries)
	}
}

func TestDailyQuantilesDoesNotMutateInput(t *testing.T) {
	rows := []dataset.Record{
		mk("2024-04-01", secs(3)),
		mk("2024-04-01", secs(1)),
		mk("2024-04-01", secs(2)),
	}
	before := queryIDs(t, rows)
	DailyQuantiles(rows)
	assert.Equal(t, before, queryIDs(t, rows))
	assert.Equal(t, 3.0, rows[0].QueryTimeSec)
}

func TestMelt(t *testing.T) {
	days := []DailyStats{
		{StartDate: "2024-01-01", Min: 1, P25: 2, Median: 3, P90: 4, P95: 5, Max: 6},
		{StartDate: "2024-01-02", Min: 10, P25: 20, Median: 30, P90: 40, P95: 50, Max: 60},
	}
	points := Melt(days)
	require.Len(t, points, 12)

	assert.Equal(t, QuantilePoint{"2024-01-01", StatMin, 1}, points[0])
	assert.Equal(t, QuantilePoint{"2024-01-02", StatMin, 10}, points[1])
	assert.Equal(t, QuantilePoint{"2024-01-01", StatP25, 2}, points[2])
	assert.Equal(t, QuantilePoint{"2024-01-02", StatMax, 60}, points[11])

	for i, p := range points {
		assert.Equal(t, Statistics[i/2], p.Statistic)
	}
	assert.Empty(t, Melt(nil))
}
