package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand/v2"
	"os"
	"strconv"
	"time"
)

type pageSpec struct {
	team, app, page string
	viewers         []string
	// medianSec is the typical query time; samples spread
	// around it with a long right tail.
	medianSec float64
}

var specs = []pageSpec{
	{"core", "billing", "invoices", []string{"alice", "bob", "erin"}, 0.8},
	{"core", "billing", "refunds", []string{"bob", "frank"}, 1.5},
	{"core", "search", "home", []string{"alice", "carol", "dave", "erin"}, 0.3},
	{"growth", "ads", "campaigns", []string{"carol", "grace"}, 4.0},
	{"growth", "ads", "", []string{"grace"}, 2.0},
	{"platform", "", "", []string{"heidi"}, 12.0},
}

var header = []string{
	"start_time", "viewer_name", "query_tag", "database_name",
	"schema_name", "query_text", "query_type", "query_id",
	"query_time_sec",
}

func main() {
	out := flag.String("out", "", "output CSV path")
	days := flag.Int("days", 14, "number of days of history")
	perDay := flag.Int("per-day", 40, "queries per page per day")
	seed := flag.Uint64("seed", 1, "random seed")
	flag.Parse()
	if *out == "" {
		fmt.Fprintln(os.Stderr, "usage: testfixture -out <path>")
		os.Exit(1)
	}

	f, err := os.Create(*out)
	if err != nil {
		log.Fatalf("creating %s: %v", *out, err)
	}
	defer f.Close()

	n, err := writeFixture(f, *days, *perDay, *seed)
	if err != nil {
		log.Fatalf("writing fixture: %v", err)
	}
	fmt.Printf("Fixture CSV with %d rows written to %s\n", n, *out)
}

func writeFixture(f io.Writer, days, perDay int, seed uint64) (int, error) {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return 0, err
	}

	base := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	rows := 0
	for d := range days {
		day := base.AddDate(0, 0, d)
		for _, spec := range specs {
			for i := range perDay {
				start := day.Add(time.Duration(rng.IntN(10*3600)) * time.Second)
				secs := spec.medianSec * rng.ExpFloat64()
				row := []string{
					start.Format("2006-01-02 15:04:05.000"),
					spec.viewers[rng.IntN(len(spec.viewers))],
					queryTag(spec),
					"ANALYTICS",
					"PUBLIC",
					fmt.Sprintf("select * from %s_%s where id = %d",
						orNone(spec.app), orNone(spec.page), i),
					"SELECT",
					fmt.Sprintf("01b%06d-%04d-%02d", d, i, rows%100),
					strconv.FormatFloat(secs, 'f', 3, 64),
				}
				if err := w.Write(row); err != nil {
					return rows, err
				}
				rows++
			}
		}
	}
	w.Flush()
	return rows, w.Error()
}

// queryTag builds the JSON tag instrumented apps attach to their
// queries. Empty levels are left out.
func queryTag(s pageSpec) string {
	tag := `{"project_name":"sis_analytics_with_query_tags","team_name":` +
		strconv.Quote(s.team)
	if s.app != "" {
		tag += `,"app_name":` + strconv.Quote(s.app)
	}
	if s.page != "" {
		tag += `,"page_name":` + strconv.Quote(s.page)
	}
	return tag + "}"
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
