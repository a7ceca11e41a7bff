package source

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/snowflakedb/gosnowflake"

	"github.com/wesm/queryview/internal/dataset"
	"github.com/wesm/queryview/internal/timeutil"
)

// Snowflake defaults.
const (
	DefaultSnowflakeSchema = "PUBLIC"
	DefaultProjectName     = "sis_analytics_with_query_tags"
)

// SnowflakeConfig holds the connection and query settings.
type SnowflakeConfig struct {
	Account   string `json:"account"`
	User      string `json:"user"`
	Password  string `json:"password,omitempty"`
	Database  string `json:"database"`
	Schema    string `json:"schema"`
	Warehouse string `json:"warehouse"`
	Role      string `json:"role,omitempty"`
	// ProjectName selects queries whose tag carries this
	// project_name.
	ProjectName string `json:"project_name"`
	// LookbackDays limits the pull to recent queries. Zero reads
	// the whole retained history.
	LookbackDays int `json:"lookback_days"`
}

// Validate checks that required fields are set and applies defaults.
func (c *SnowflakeConfig) Validate() error {
	if c.Account == "" {
		return errors.New("snowflake: account is required")
	}
	if c.User == "" {
		return errors.New("snowflake: user is required")
	}
	if c.Password == "" {
		return errors.New("snowflake: password is required")
	}
	if c.Warehouse == "" {
		return errors.New("snowflake: warehouse is required")
	}
	if c.Database == "" {
		c.Database = "SNOWFLAKE"
	}
	if c.Schema == "" {
		c.Schema = DefaultSnowflakeSchema
	}
	if c.ProjectName == "" {
		c.ProjectName = DefaultProjectName
	}
	if c.LookbackDays < 0 {
		return errors.New("snowflake: lookback_days must not be negative")
	}
	return nil
}

// DSN returns the Snowflake connection string for gosnowflake.
// Credentials are escaped by the driver.
func (c *SnowflakeConfig) DSN() (string, error) {
	dsn, err := gosnowflake.DSN(&gosnowflake.Config{
		Account:   c.Account,
		User:      c.User,
		Password:  c.Password,
		Database:  c.Database,
		Schema:    c.Schema,
		Warehouse: c.Warehouse,
		Role:      c.Role,
	})
	if err != nil {
		return "", fmt.Errorf("snowflake dsn: %w", err)
	}
	return dsn, nil
}

// queryHistorySQL reads tagged queries from account usage. The
// hierarchy keys are parsed client-side from query_tag.
const queryHistorySQL = `select
    start_time,
    user_name as viewer_name,
    query_tag,
    database_name,
    schema_name,
    query_text,
    query_type,
    query_id,
    (total_elapsed_time / 1000)::float as query_time_sec
from snowflake.account_usage.query_history
where
    try_parse_json(query_tag)['project_name']::string = ?
    and (? = 0 or start_time >= dateadd(day, -?, current_timestamp()))
order by start_time`

// Rows is the subset of *sql.Rows the loader reads.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

// Querier abstracts the Snowflake connection for testability.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (Rows, error)
	Close() error
}

// sqlQuerier wraps *sql.DB to satisfy Querier, since
// *sql.DB.QueryContext returns *sql.Rows, not our Rows interface.
type sqlQuerier struct {
	db *sql.DB
}

func (q *sqlQuerier) QueryContext(
	ctx context.Context, query string, args ...any,
) (Rows, error) {
	return q.db.QueryContext(ctx, query, args...)
}

func (q *sqlQuerier) Close() error { return q.db.Close() }

// Snowflake loads tagged queries from snowflake.account_usage.
type Snowflake struct {
	config SnowflakeConfig
	open   func(dsn string) (Querier, error)
}

// NewSnowflake creates a loader. cfg should already be validated.
func NewSnowflake(cfg SnowflakeConfig) *Snowflake {
	return &Snowflake{
		config: cfg,
		open: func(dsn string) (Querier, error) {
			db, err := sql.Open("snowflake", dsn)
			if err != nil {
				return nil, err
			}
			return &sqlQuerier{db: db}, nil
		},
	}
}

// Name implements dataset.Loader.
func (s *Snowflake) Name() string {
	return "snowflake:" + s.config.Account + "/" + s.config.ProjectName
}

// Load implements dataset.Loader.
func (s *Snowflake) Load(ctx context.Context) ([]dataset.Record, error) {
	dsn, err := s.config.DSN()
	if err != nil {
		return nil, err
	}
	q, err := s.open(dsn)
	if err != nil {
		return nil, fmt.Errorf("snowflake open: %w", err)
	}
	defer q.Close()

	days := s.config.LookbackDays
	rows, err := q.QueryContext(ctx, queryHistorySQL,
		s.config.ProjectName, days, days)
	if err != nil {
		return nil, fmt.Errorf("snowflake query: %w", err)
	}
	defer rows.Close()

	var out []dataset.Record
	for row := 1; rows.Next(); row++ {
		r, err := scanSnowflakeRow(rows)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("snowflake rows: %w", err)
	}
	return out, nil
}

func scanSnowflakeRow(rows Rows) (dataset.Record, error) {
	var (
		start                     time.Time
		viewer, tag, dbName, schm sql.NullString
		text, typ, id             sql.NullString
		secs                      sql.NullFloat64
	)
	if err := rows.Scan(
		&start, &viewer, &tag, &dbName, &schm,
		&text, &typ, &id, &secs,
	); err != nil {
		return dataset.Record{}, fmt.Errorf("%w: %v", ErrSchema, err)
	}
	if start.IsZero() {
		return dataset.Record{}, fmt.Errorf("%w: null start_time", ErrSchema)
	}
	switch {
	case !secs.Valid:
		return dataset.Record{}, fmt.Errorf("%w: null query_time_sec", ErrSchema)
	case !id.Valid:
		return dataset.Record{}, fmt.Errorf("%w: null query_id", ErrSchema)
	case !viewer.Valid:
		return dataset.Record{}, fmt.Errorf("%w: null viewer_name", ErrSchema)
	case math.IsNaN(secs.Float64) || math.IsInf(secs.Float64, 0):
		return dataset.Record{}, fmt.Errorf(
			"%w: query_time_sec %v is not finite", ErrSchema, secs.Float64,
		)
	case secs.Float64 < 0:
		return dataset.Record{}, fmt.Errorf(
			"query_time_sec %v is negative", secs.Float64,
		)
	}

	t := ParseQueryTag(tag.String)
	return dataset.Record{
		StartTime:    start,
		StartDate:    timeutil.Date(start),
		ViewerName:   viewer.String,
		TeamName:     t.Team,
		AppName:      t.App,
		PageName:     t.Page,
		DatabaseName: dbName.String,
		SchemaName:   schm.String,
		QueryText:    text.String,
		QueryType:    typ.String,
		QueryID:      id.String,
		QueryTimeSec: secs.Float64,
	}, nil
}
