package db

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/wesm/queryview/internal/dataset"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")
	d, err := Open(path)
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func canceledCtx() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}

// sampleRecords returns three records spanning two days, one of
// them without hierarchy tags.
func sampleRecords() []dataset.Record {
	t0 := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	return []dataset.Record{
		{
			StartTime: t0, StartDate: "2024-06-01", ViewerName: "alice",
			TeamName: dataset.Ptr("core"), AppName: dataset.Ptr("billing"),
			PageName: dataset.Ptr("invoices"), DatabaseName: "PROD",
			SchemaName: "PUBLIC", QueryText: "select 1", QueryType: "SELECT",
			QueryID: "q1", QueryTimeSec: 1.5,
		},
		{
			StartTime: t0.Add(time.Hour), StartDate: "2024-06-01", ViewerName: "bob",
			TeamName: dataset.Ptr("core"), AppName: dataset.Ptr("billing"),
			QueryText: "select 2", QueryType: "SELECT", QueryID: "q2",
			QueryTimeSec: 0,
		},
		{
			StartTime: t0.Add(24 * time.Hour), StartDate: "2024-06-02",
			ViewerName: "carol", QueryText: "show tables", QueryType: "SHOW",
			QueryID: "q3", QueryTimeSec: 12.25,
		},
	}
}

func TestOpenCreatesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "subdir", "test.db")
	d, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer d.Close()

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("db file not created: %v", err)
	}
}

func TestReplaceAndListRecords(t *testing.T) {
	d := testDB(t)
	want := sampleRecords()

	if err := d.ReplaceRecords(context.Background(), want, "csv:query_history.csv"); err != nil {
		t.Fatalf("ReplaceRecords: %v", err)
	}
	got, err := d.ListRecords(context.Background())
	if err != nil {
		t.Fatalf("ListRecords: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ListRecords mismatch (-want +got):\n%s", diff)
	}
}

func TestReplaceRecordsOverwrites(t *testing.T) {
	d := testDB(t)
	if err := d.ReplaceRecords(context.Background(), sampleRecords(), "first"); err != nil {
		t.Fatalf("ReplaceRecords: %v", err)
	}
	if err := d.ReplaceRecords(context.Background(), sampleRecords()[:1], "second"); err != nil {
		t.Fatalf("ReplaceRecords: %v", err)
	}

	got, err := d.ListRecords(context.Background())
	if err != nil {
		t.Fatalf("ListRecords: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d records, want 1", len(got))
	}

	stats, err := d.GetStats(context.Background())
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if stats.Source != "second" {
		t.Errorf("source = %q, want second", stats.Source)
	}
}

func TestStats(t *testing.T) {
	d := testDB(t)

	empty, err := d.GetStats(context.Background())
	if err != nil {
		t.Fatalf("GetStats on empty db: %v", err)
	}
	if empty.RecordCount != 0 || empty.FirstDate != "" || empty.Source != "" {
		t.Errorf("empty stats = %+v", empty)
	}

	if err := d.ReplaceRecords(context.Background(), sampleRecords(), "snowflake"); err != nil {
		t.Fatalf("ReplaceRecords: %v", err)
	}
	stats, err := d.GetStats(context.Background())
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if stats.RecordCount != 3 {
		t.Errorf("record_count = %d, want 3", stats.RecordCount)
	}
	if stats.TeamCount != 1 {
		t.Errorf("team_count = %d, want 1", stats.TeamCount)
	}
	if stats.FirstDate != "2024-06-01" || stats.LastDate != "2024-06-02" {
		t.Errorf("dates = %s..%s, want 2024-06-01..2024-06-02",
			stats.FirstDate, stats.LastDate)
	}
	if stats.WrittenAt == "" {
		t.Error("written_at not set")
	}
}

func TestListRecordsCanceledContext(t *testing.T) {
	d := testDB(t)
	_, err := d.ListRecords(canceledCtx())
	if err == nil {
		t.Fatal("expected error from canceled context")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got: %v", err)
	}
}

func TestOpenReadOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snap.db")
	w, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := w.ReplaceRecords(context.Background(), sampleRecords(), "csv"); err != nil {
		t.Fatalf("ReplaceRecords: %v", err)
	}
	w.Close()

	r, err := OpenReadOnly(path)
	if err != nil {
		t.Fatalf("OpenReadOnly: %v", err)
	}
	defer r.Close()

	got, err := r.ListRecords(context.Background())
	if err != nil {
		t.Fatalf("ListRecords: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d records, want 3", len(got))
	}
	if err := r.ReplaceRecords(context.Background(), nil, "x"); err == nil {
		t.Error("ReplaceRecords on a read-only snapshot should fail")
	}
}

func TestOpenReadOnlyMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.db")
	_, err := OpenReadOnly(path)
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("err = %v, want os.ErrNotExist", err)
	}
	if _, statErr := os.Stat(path); !errors.Is(statErr, os.ErrNotExist) {
		t.Error("OpenReadOnly created the file")
	}
}

func TestSchemaVersionMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snap.db")
	d, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := d.conn.Exec("PRAGMA user_version = 99"); err != nil {
		t.Fatalf("setting version: %v", err)
	}
	d.Close()

	if _, err := OpenReadOnly(path); !errors.Is(err, ErrSchemaVersion) {
		t.Errorf("OpenReadOnly err = %v, want ErrSchemaVersion", err)
	}
	if _, err := Open(path); !errors.Is(err, ErrSchemaVersion) {
		t.Errorf("Open err = %v, want ErrSchemaVersion", err)
	}
}
