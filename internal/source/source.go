// Package source loads the query history from a CSV export, a
// SQLite snapshot, or Snowflake's account usage views.
package source

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/wesm/queryview/internal/dataset"
	"github.com/wesm/queryview/internal/timeutil"
)

// ErrSchema reports input that does not match the record schema.
var ErrSchema = errors.New("schema violation")

// Source kinds accepted by New.
const (
	KindCSV       = "csv"
	KindSQLite    = "sqlite"
	KindSnowflake = "snowflake"
)

// Params selects and configures a loader.
type Params struct {
	Kind      string
	Path      string // csv file or sqlite snapshot
	Snowflake SnowflakeConfig
}

// New returns the loader for p.Kind.
func New(p Params) (dataset.Loader, error) {
	switch p.Kind {
	case KindCSV, "":
		if p.Path == "" {
			return nil, errors.New("csv source requires a data path")
		}
		return &CSV{Path: p.Path}, nil
	case KindSQLite:
		if p.Path == "" {
			return nil, errors.New("sqlite source requires a data path")
		}
		return &SQLite{Path: p.Path}, nil
	case KindSnowflake:
		cfg := p.Snowflake
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return NewSnowflake(cfg), nil
	default:
		return nil, fmt.Errorf(
			"unknown source %q: must be csv, sqlite, or snowflake", p.Kind,
		)
	}
}

// nullTokens are cell values read as null.
var nullTokens = map[string]bool{
	"": true, "NULL": true, "null": true, "NaN": true,
	"nan": true, "None": true, "<NA>": true,
}

func nullable(s string) *string {
	s = strings.TrimSpace(s)
	if nullTokens[s] {
		return nil
	}
	return &s
}

// rawRecord is one row before validation. Hierarchy fields are
// nil when the source had no value.
type rawRecord struct {
	startTime    string
	viewerName   string
	teamName     *string
	appName      *string
	pageName     *string
	databaseName string
	schemaName   string
	queryText    string
	queryType    string
	queryID      string
	queryTime    string
	// queryTimeScale converts queryTime to seconds.
	queryTimeScale float64
}

// build validates r and derives start_date. row is 1-based and
// only used in errors.
func (r rawRecord) build(row int) (dataset.Record, error) {
	ts, err := timeutil.ParseTimestamp(r.startTime)
	if err != nil {
		return dataset.Record{}, fmt.Errorf(
			"row %d: start_time: %w", row, err,
		)
	}
	secs, err := strconv.ParseFloat(strings.TrimSpace(r.queryTime), 64)
	if err != nil {
		return dataset.Record{}, fmt.Errorf(
			"row %d: query_time_sec %q: %w", row, r.queryTime, err,
		)
	}
	if r.queryTimeScale != 0 {
		secs *= r.queryTimeScale
	}
	if math.IsNaN(secs) || math.IsInf(secs, 0) {
		return dataset.Record{}, fmt.Errorf(
			"%w: row %d: query_time_sec %q is not finite",
			ErrSchema, row, r.queryTime,
		)
	}
	if secs < 0 {
		return dataset.Record{}, fmt.Errorf(
			"row %d: query_time_sec %v is negative", row, secs,
		)
	}
	return dataset.Record{
		StartTime:    ts,
		StartDate:    timeutil.Date(ts),
		ViewerName:   r.viewerName,
		TeamName:     r.teamName,
		AppName:      r.appName,
		PageName:     r.pageName,
		DatabaseName: r.databaseName,
		SchemaName:   r.schemaName,
		QueryText:    r.queryText,
		QueryType:    r.queryType,
		QueryID:      r.queryID,
		QueryTimeSec: secs,
	}, nil
}
