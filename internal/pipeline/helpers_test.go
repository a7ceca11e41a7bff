package pipeline

import (
	"fmt"
	"testing"
	"time"

	"github.com/wesm/queryview/internal/dataset"
)

// recordOpt customizes a test record.
type recordOpt func(*dataset.Record)

func team(v string) recordOpt {
	return func(r *dataset.Record) { r.TeamName = dataset.Ptr(v) }
}

func app(v string) recordOpt {
	return func(r *dataset.Record) { r.AppName = dataset.Ptr(v) }
}

func page(v string) recordOpt {
	return func(r *dataset.Record) { r.PageName = dataset.Ptr(v) }
}

func viewer(v string) recordOpt {
	return func(r *dataset.Record) { r.ViewerName = v }
}

func secs(v float64) recordOpt {
	return func(r *dataset.Record) { r.QueryTimeSec = v }
}

var seq int

// mk builds a record on date with a unique query id.
func mk(date string, opts ...recordOpt) dataset.Record {
	seq++
	start, err := time.Parse("2006-01-02", date)
	if err != nil {
		panic(err)
	}
	r := dataset.Record{
		StartTime:    start.Add(time.Duration(seq) * time.Second),
		StartDate:    date,
		ViewerName:   "alice",
		QueryText:    fmt.Sprintf("select %d", seq),
		QueryType:    "SELECT",
		QueryID:      fmt.Sprintf("q-%04d", seq),
		QueryTimeSec: 1,
	}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

func ds(records ...dataset.Record) *dataset.Dataset {
	return &dataset.Dataset{Version: 1, Records: records}
}

// fixture is a three-day history over two teams.
//
//	core/billing/{invoices,refunds}, core/search/home, growth/ads/(no page),
//	one untagged record.
func fixture() []dataset.Record {
	return []dataset.Record{
		mk("2024-01-01", team("core"), app("billing"), page("invoices"), viewer("alice"), secs(1)),
		mk("2024-01-01", team("core"), app("billing"), page("invoices"), viewer("bob"), secs(2)),
		mk("2024-01-01", team("core"), app("billing"), page("refunds"), viewer("alice"), secs(3)),
		mk("2024-01-01", team("core"), app("search"), page("home"), viewer("carol"), secs(4)),
		mk("2024-01-01", team("growth"), app("ads"), viewer("dave"), secs(5)),
		mk("2024-01-02", team("core"), app("billing"), page("invoices"), viewer("alice"), secs(10)),
		mk("2024-01-02", team("growth"), app("ads"), viewer("erin"), secs(0.5)),
		mk("2024-01-03", viewer("frank"), secs(7)),
		mk("2024-01-03", team("core"), app("search"), page("home"), viewer("bob"), secs(0)),
	}
}

func queryIDs(t *testing.T, records []dataset.Record) []string {
	t.Helper()
	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.QueryID
	}
	return ids
}
