package source

import (
	"context"

	"github.com/wesm/queryview/internal/dataset"
	"github.com/wesm/queryview/internal/db"
)

// SQLite loads a snapshot written by the snapshot command.
type SQLite struct {
	Path string
}

// Name implements dataset.Loader.
func (s *SQLite) Name() string { return "sqlite:" + s.Path }

// Load implements dataset.Loader.
func (s *SQLite) Load(ctx context.Context) ([]dataset.Record, error) {
	database, err := db.OpenReadOnly(s.Path)
	if err != nil {
		return nil, err
	}
	defer database.Close()
	return database.ListRecords(ctx)
}
