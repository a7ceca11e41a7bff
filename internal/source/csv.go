package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/wesm/queryview/internal/dataset"
)

// CSV loads a query-history CSV export with a header row.
type CSV struct {
	Path string
}

// Name implements dataset.Loader.
func (c *CSV) Name() string { return "csv:" + c.Path }

// Load implements dataset.Loader.
func (c *CSV) Load(ctx context.Context) ([]dataset.Record, error) {
	f, err := os.Open(c.Path)
	if err != nil {
		return nil, fmt.Errorf("opening csv: %w", err)
	}
	defer f.Close()
	return ReadCSV(ctx, f)
}

// columnAliases maps accepted header names to the canonical
// column. Raw account_usage exports name the viewer user_name.
var columnAliases = map[string]string{
	"user_name": "viewer_name",
}

// csvColumns resolves header positions. A missing optional column
// has index -1.
type csvColumns struct {
	startTime, viewer, team, app, page   int
	database, schema, text, typ, id, tag int
	queryTime                            int
	queryTimeScale                       float64
}

func resolveColumns(header []string) (csvColumns, error) {
	idx := make(map[string]int, len(header))
	names := make([]string, len(header))
	for i, h := range header {
		names[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, exists := idx[names[i]]; !exists {
			idx[names[i]] = i
		}
	}
	// Canonical names win over aliases.
	for i, h := range names {
		alias, ok := columnAliases[h]
		if !ok {
			continue
		}
		if _, exists := idx[alias]; !exists {
			idx[alias] = i
		}
	}
	col := func(name string) int {
		if i, ok := idx[name]; ok {
			return i
		}
		return -1
	}

	c := csvColumns{
		startTime: col("start_time"),
		viewer:    col("viewer_name"),
		team:      col("team_name"),
		app:       col("app_name"),
		page:      col("page_name"),
		database:  col("database_name"),
		schema:    col("schema_name"),
		text:      col("query_text"),
		typ:       col("query_type"),
		id:        col("query_id"),
		tag:       col("query_tag"),
		queryTime: col("query_time_sec"),
	}
	if c.queryTime < 0 {
		if i := col("total_elapsed_time"); i >= 0 {
			c.queryTime = i
			c.queryTimeScale = 0.001
		}
	}

	required := []struct {
		name string
		at   int
	}{
		{"start_time", c.startTime},
		{"viewer_name", c.viewer},
		{"query_text", c.text},
		{"query_id", c.id},
		{"query_time_sec", c.queryTime},
	}
	for _, r := range required {
		if r.at < 0 {
			return c, fmt.Errorf("%w: missing column %s", ErrSchema, r.name)
		}
	}
	return c, nil
}

// ReadCSV parses query-history CSV from r. The header must name
// the required columns; start_date is always derived from
// start_time and any start_date column is ignored.
func ReadCSV(ctx context.Context, r io.Reader) ([]dataset.Record, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty file", ErrSchema)
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	cols, err := resolveColumns(header)
	if err != nil {
		return nil, err
	}

	var out []dataset.Record
	for row := 1; ; row++ {
		if row%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrSchema, row, err)
		}
		rec, err := cols.raw(fields).build(row)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (c csvColumns) raw(fields []string) rawRecord {
	get := func(i int) string {
		if i < 0 || i >= len(fields) {
			return ""
		}
		return fields[i]
	}
	opt := func(i int) *string {
		if i < 0 {
			return nil
		}
		return nullable(get(i))
	}

	r := rawRecord{
		startTime:      get(c.startTime),
		viewerName:     get(c.viewer),
		teamName:       opt(c.team),
		appName:        opt(c.app),
		pageName:       opt(c.page),
		databaseName:   get(c.database),
		schemaName:     get(c.schema),
		queryText:      get(c.text),
		queryType:      get(c.typ),
		queryID:        get(c.id),
		queryTime:      get(c.queryTime),
		queryTimeScale: c.queryTimeScale,
	}
	if c.tag >= 0 {
		tag := ParseQueryTag(get(c.tag))
		if c.team < 0 {
			r.teamName = tag.Team
		}
		if c.app < 0 {
			r.appName = tag.App
		}
		if c.page < 0 {
			r.pageName = tag.Page
		}
	}
	return r
}
