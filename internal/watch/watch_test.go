package watch

import (
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// newTestWatcher builds a FileWatcher without an fsnotify handle
// for unit tests of the event and flush logic.
func newTestWatcher(
	path string, debounce time.Duration, onChange func(),
) *FileWatcher {
	return &FileWatcher{
		path:     path,
		onChange: onChange,
		log:      zap.NewNop(),
		debounce: debounce,
		now:      time.Now,
	}
}

func writeFile(t *testing.T, path, data string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

func TestFileWatcherReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "history.csv")
	writeFile(t, path, "a")

	fired := make(chan struct{}, 4)
	w, err := New(path, 30*time.Millisecond, nil, func() {
		fired <- struct{}{}
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	w.Start()
	t.Cleanup(w.Stop)

	writeFile(t, path, "b")

	select {
	case <-fired:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for onChange")
	}
}

func TestFileWatcherReloadsOnReplace(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "history.csv")
	writeFile(t, path, "a")

	fired := make(chan struct{}, 4)
	w, err := New(path, 30*time.Millisecond, nil, func() {
		fired <- struct{}{}
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	w.Start()
	t.Cleanup(w.Stop)

	tmp := filepath.Join(dir, "history.csv.tmp")
	writeFile(t, tmp, "b")
	if err := os.Rename(tmp, path); err != nil {
		t.Fatalf("rename: %v", err)
	}

	select {
	case <-fired:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for onChange after rename")
	}
}

func TestHandleEventIgnoresOtherFiles(t *testing.T) {
	w := newTestWatcher("/data/history.csv", time.Millisecond, func() {})

	w.handleEvent(fsnotify.Event{Name: "/data/other.csv", Op: fsnotify.Write})
	w.handleEvent(fsnotify.Event{Name: "/data/history.csv", Op: fsnotify.Chmod})
	w.handleEvent(fsnotify.Event{Name: "/data/history.csv", Op: fsnotify.Remove})

	if !w.pending.IsZero() {
		t.Fatal("expected nothing pending")
	}

	w.handleEvent(fsnotify.Event{Name: "/data/history.csv", Op: fsnotify.Write})
	if w.pending.IsZero() {
		t.Fatal("expected write to be pending")
	}
}

func TestFlushRespectsDebounce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.csv")
	writeFile(t, path, "a")

	var calls atomic.Int32
	w := newTestWatcher(path, time.Hour, func() { calls.Add(1) })

	w.pending = time.Now()
	w.flush()
	if calls.Load() != 0 {
		t.Fatal("flush fired before debounce elapsed")
	}

	w.pending = time.Now().Add(-2 * time.Hour)
	w.flush()
	if calls.Load() != 1 {
		t.Fatalf("calls = %d, want 1", calls.Load())
	}
	if !w.pending.IsZero() {
		t.Fatal("pending not cleared after flush")
	}

	w.flush()
	if calls.Load() != 1 {
		t.Fatal("flush with nothing pending should not fire")
	}
}

func TestFlushSkipsMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gone.csv")
	var calls atomic.Int32
	w := newTestWatcher(path, time.Millisecond, func() { calls.Add(1) })
	w.pending = time.Now().Add(-time.Second)
	w.flush()
	if calls.Load() != 0 {
		t.Fatal("flush fired for a missing file")
	}
}

func TestStopIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.csv")
	writeFile(t, path, "a")
	w, err := New(path, 0, nil, func() {})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	w.Start()
	w.Stop()
	w.Stop()
}

func TestStopWithoutStart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.csv")
	writeFile(t, path, "a")
	w, err := New(path, 0, nil, func() {})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	stopped := make(chan struct{})
	go func() {
		w.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop blocked on a watcher that was never started")
	}

	// Start after Stop must not spawn a loop on a closed watcher.
	w.Start()
	w.Stop()
}

func TestNew_NilOnChange(t *testing.T) {
	_, err := New("x.csv", time.Second, nil, nil)
	if !errors.Is(err, os.ErrInvalid) {
		t.Errorf("expected wrapped os.ErrInvalid, got %v", err)
	}
}
