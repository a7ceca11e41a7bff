// Package db stores query-history snapshots in SQLite so a
// dataset pulled from a slow source can be reopened locally.
package db

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is stored in PRAGMA user_version. Bump it when
// schema.sql changes incompatibly.
const schemaVersion = 1

// ErrSchemaVersion reports a snapshot written by an incompatible
// version of queryview.
var ErrSchemaVersion = errors.New("unsupported snapshot schema")

// DB is an open snapshot file.
type DB struct {
	conn     *sql.DB
	readOnly bool
}

func dsn(path string, readOnly bool) string {
	params := url.Values{}
	params.Set("_busy_timeout", "5000")
	if readOnly {
		params.Set("mode", "ro")
	} else {
		params.Set("_journal_mode", "WAL")
		params.Set("_synchronous", "NORMAL")
	}
	return "file:" + path + "?" + params.Encode()
}

// Open creates or opens a snapshot for writing, applying the
// schema if needed.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating db directory: %w", err)
	}
	conn, err := sql.Open("sqlite3", dsn(path, false))
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	// One writer keeps transactions serialized.
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	return db, nil
}

// OpenReadOnly opens an existing snapshot. It fails if the file
// is missing or was written with a different schema version.
func OpenReadOnly(path string) (*DB, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("opening snapshot: %w", err)
	}
	conn, err := sql.Open("sqlite3", dsn(path, true))
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	db := &DB{conn: conn, readOnly: true}
	v, err := db.version()
	if err != nil {
		conn.Close()
		return nil, err
	}
	if v != schemaVersion {
		conn.Close()
		return nil, fmt.Errorf("%w: %s has version %d, want %d",
			ErrSchemaVersion, path, v, schemaVersion)
	}
	return db, nil
}

func (db *DB) version() (int, error) {
	var v int
	if err := db.conn.QueryRow("PRAGMA user_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return v, nil
}

func (db *DB) migrate() error {
	v, err := db.version()
	if err != nil {
		return err
	}
	switch v {
	case schemaVersion:
		return nil
	case 0:
		if _, err := db.conn.Exec(schemaSQL); err != nil {
			return err
		}
		_, err := db.conn.Exec(
			fmt.Sprintf("PRAGMA user_version = %d", schemaVersion),
		)
		return err
	default:
		return fmt.Errorf("%w: version %d, want %d",
			ErrSchemaVersion, v, schemaVersion)
	}
}

// Close closes the connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Update runs fn in a transaction, committing when fn returns nil.
func (db *DB) Update(ctx context.Context, fn func(tx *sql.Tx) error) error {
	if db.readOnly {
		return errors.New("snapshot is open read-only")
	}
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}
