package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/wesm/queryview/internal/dataset"
	"github.com/wesm/queryview/internal/timeutil"
)

// recordCols is the column list for query_history reads and
// writes. Keep in sync with scanRecord and ReplaceRecords.
const recordCols = `query_id, start_time, start_date, viewer_name,
	team_name, app_name, page_name, database_name, schema_name,
	query_text, query_type, query_time_sec`

// ReplaceRecords swaps the stored snapshot for records in one
// transaction and stamps it with the source name.
func (db *DB) ReplaceRecords(
	ctx context.Context, records []dataset.Record, source string,
) error {
	return db.Update(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM query_history"); err != nil {
			return fmt.Errorf("clearing snapshot: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `INSERT INTO query_history (` +
			recordCols + `) VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`)
		if err != nil {
			return fmt.Errorf("preparing insert: %w", err)
		}
		defer stmt.Close()

		for i, r := range records {
			if _, err := stmt.ExecContext(ctx,
				r.QueryID, timeutil.Format(r.StartTime), r.StartDate,
				r.ViewerName, r.TeamName, r.AppName, r.PageName,
				r.DatabaseName, r.SchemaName, r.QueryText,
				r.QueryType, r.QueryTimeSec,
			); err != nil {
				return fmt.Errorf("inserting record %d: %w", i, err)
			}
		}

		meta := map[string]string{
			"source":     source,
			"written_at": time.Now().UTC().Format(time.RFC3339),
		}
		for k, v := range meta {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO snapshot_meta (key, value) VALUES (?, ?)
				 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
				k, v,
			); err != nil {
				return fmt.Errorf("writing snapshot meta: %w", err)
			}
		}
		return nil
	})
}

// ListRecords returns every stored record in insertion order.
func (db *DB) ListRecords(
	ctx context.Context,
) ([]dataset.Record, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+recordCols+` FROM query_history ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	var out []dataset.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating records: %w", err)
	}
	return out, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(rs rowScanner) (dataset.Record, error) {
	var (
		r  dataset.Record
		ts string
	)
	if err := rs.Scan(
		&r.QueryID, &ts, &r.StartDate, &r.ViewerName,
		&r.TeamName, &r.AppName, &r.PageName,
		&r.DatabaseName, &r.SchemaName, &r.QueryText,
		&r.QueryType, &r.QueryTimeSec,
	); err != nil {
		return r, fmt.Errorf("scanning record: %w", err)
	}
	t, err := timeutil.ParseTimestamp(ts)
	if err != nil {
		return r, fmt.Errorf("record %s: start_time: %w", r.QueryID, err)
	}
	r.StartTime = t
	return r, nil
}
