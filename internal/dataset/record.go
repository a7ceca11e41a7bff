// Package dataset holds the query-history record schema and the
// immutable, versioned in-memory table that the pipeline reads.
package dataset

import "time"

// Record is one row of the query history.
type Record struct {
	StartTime    time.Time `json:"start_time"`
	StartDate    string    `json:"start_date"` // YYYY-MM-DD of StartTime
	ViewerName   string    `json:"viewer_name"`
	TeamName     *string   `json:"team_name"` // nil when the tag is absent
	AppName      *string   `json:"app_name"`
	PageName     *string   `json:"page_name"`
	DatabaseName string    `json:"database_name"`
	SchemaName   string    `json:"schema_name"`
	QueryText    string    `json:"query_text"`
	QueryType    string    `json:"query_type"`
	QueryID      string    `json:"query_id"`
	QueryTimeSec float64   `json:"query_time_sec"`
}

// Team returns the team name and whether it is present.
func (r Record) Team() (string, bool) { return deref(r.TeamName) }

// App returns the app name and whether it is present.
func (r Record) App() (string, bool) { return deref(r.AppName) }

// Page returns the page name and whether it is present.
func (r Record) Page() (string, bool) { return deref(r.PageName) }

func deref(p *string) (string, bool) {
	if p == nil {
		return "", false
	}
	return *p, true
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T { return &v }

// Dataset is one loaded generation of the query history.
// Records must not be modified once the Dataset is published.
type Dataset struct {
	Version  uint64    `json:"version"`
	Source   string    `json:"source"`
	LoadedAt time.Time `json:"loaded_at"`
	Records  []Record  `json:"-"`
}

// Len returns the number of records.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Records)
}

// DateBounds returns the earliest and latest start_date, or two
// empty strings for an empty dataset.
func (d *Dataset) DateBounds() (string, string) {
	if d.Len() == 0 {
		return "", ""
	}
	lo, hi := d.Records[0].StartDate, d.Records[0].StartDate
	for _, r := range d.Records[1:] {
		if r.StartDate < lo {
			lo = r.StartDate
		}
		if r.StartDate > hi {
			hi = r.StartDate
		}
	}
	return lo, hi
}
