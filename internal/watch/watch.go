// Package watch reloads the dataset when its source file changes
// on disk.
package watch

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is the quiet period required after the last
// change before onChange fires.
const DefaultDebounce = 500 * time.Millisecond

// FileWatcher watches a single file. It subscribes to the parent
// directory so that atomic replace-by-rename (the way exports and
// editors usually write) is still seen.
type FileWatcher struct {
	path     string
	onChange func()
	log      *zap.Logger
	watcher  *fsnotify.Watcher
	debounce time.Duration
	now      func() time.Time

	mu      sync.Mutex
	pending time.Time // zero when nothing is pending

	runMu   sync.Mutex
	started bool
	stopped bool
	stop    chan struct{}
	done    chan struct{}
}

// New creates a watcher for path. onChange runs on the watcher
// goroutine once the file has been quiet for debounce.
func New(
	path string, debounce time.Duration, log *zap.Logger, onChange func(),
) (*FileWatcher, error) {
	if onChange == nil {
		return nil, fmt.Errorf("onChange callback is nil: %w", os.ErrInvalid)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if log == nil {
		log = zap.NewNop()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watching %s: %w", filepath.Dir(abs), err)
	}

	return &FileWatcher{
		path:     abs,
		onChange: onChange,
		log:      log,
		watcher:  fsw,
		debounce: debounce,
		now:      time.Now,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

// Start begins processing file events in a goroutine. It is a
// no-op after the first call or after Stop.
func (w *FileWatcher) Start() {
	w.runMu.Lock()
	defer w.runMu.Unlock()
	if w.started || w.stopped {
		return
	}
	w.started = true
	go w.loop()
}

// Stop stops the watcher and waits for it to finish. It is safe
// to call more than once and without a prior Start.
func (w *FileWatcher) Stop() {
	w.runMu.Lock()
	defer w.runMu.Unlock()
	if w.stopped {
		return
	}
	w.stopped = true
	close(w.stop)
	if w.started {
		<-w.done
	}
	w.watcher.Close()
}

func (w *FileWatcher) loop() {
	defer close(w.done)
	// Check at a finer grain than the debounce so a change fires
	// within about 1.25x the quiet period.
	ticker := time.NewTicker(w.debounce / 4)
	defer ticker.Stop()

	for {
		select {
		case <-w.stop:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("watcher error", zap.Error(err))
		case <-ticker.C:
			w.flush()
		}
	}
}

// handleEvent marks the target pending on any write, create, or
// rename that names it. Events for sibling files are ignored.
func (w *FileWatcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.path {
		return
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Rename) {
		return
	}
	w.mu.Lock()
	w.pending = w.now()
	w.mu.Unlock()
}

func (w *FileWatcher) flush() {
	w.mu.Lock()
	if w.pending.IsZero() || w.now().Sub(w.pending) < w.debounce {
		w.mu.Unlock()
		return
	}
	w.pending = time.Time{}
	w.mu.Unlock()

	if _, err := os.Stat(w.path); err != nil {
		// Mid-replace; the create that follows re-arms us.
		w.log.Debug("watched file not present", zap.String("path", w.path))
		return
	}
	w.log.Info("data file changed, reloading", zap.String("path", w.path))
	w.onChange()
}
