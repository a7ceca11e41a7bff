package db

import (
	"context"
	"database/sql"
	"fmt"
)

// Stats describes the stored snapshot.
type Stats struct {
	RecordCount int    `json:"record_count"`
	TeamCount   int    `json:"team_count"`
	FirstDate   string `json:"first_date"`
	LastDate    string `json:"last_date"`
	Source      string `json:"source"`
	WrittenAt   string `json:"written_at"`
}

// GetStats returns snapshot statistics and metadata.
func (db *DB) GetStats(ctx context.Context) (Stats, error) {
	const query = `
		SELECT
			(SELECT COUNT(*) FROM query_history),
			(SELECT COUNT(DISTINCT team_name) FROM query_history),
			(SELECT COALESCE(MIN(start_date), '') FROM query_history),
			(SELECT COALESCE(MAX(start_date), '') FROM query_history),
			(SELECT value FROM snapshot_meta WHERE key = 'source'),
			(SELECT value FROM snapshot_meta WHERE key = 'written_at')`

	var (
		s                 Stats
		source, writtenAt sql.NullString
	)
	err := db.conn.QueryRowContext(ctx, query).Scan(
		&s.RecordCount,
		&s.TeamCount,
		&s.FirstDate,
		&s.LastDate,
		&source,
		&writtenAt,
	)
	if err != nil {
		return Stats{}, fmt.Errorf("fetching stats: %w", err)
	}
	s.Source = source.String
	s.WrittenAt = writtenAt.String
	return s, nil
}
