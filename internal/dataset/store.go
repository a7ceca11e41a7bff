package dataset

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wesm/queryview/internal/metrics"
)

// Loader reads the full query history from a source.
type Loader interface {
	Load(ctx context.Context) ([]Record, error)
	// Name describes the source for logs and the dataset API.
	Name() string
}

// LoaderFunc adapts a function to a Loader named "func".
type LoaderFunc func(ctx context.Context) ([]Record, error)

// Load calls f.
func (f LoaderFunc) Load(ctx context.Context) ([]Record, error) {
	return f(ctx)
}

// Name implements Loader.
func (f LoaderFunc) Name() string { return "func" }

// Store publishes the current Dataset and replaces it on reload.
// Readers get a snapshot pointer and never see a partial load.
type Store struct {
	loader  Loader
	logger  *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	reloadMu sync.Mutex // serializes reloads

	mu      sync.RWMutex
	current *Dataset
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets the logger. Nil is ignored.
func WithLogger(l *zap.Logger) StoreOption {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) StoreOption {
	return func(s *Store) { s.metrics = m }
}

// NewStore creates a Store with no dataset loaded.
func NewStore(loader Loader, opts ...StoreOption) *Store {
	s := &Store{
		loader: loader,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Current returns the published dataset, or nil before the
// first successful load.
func (s *Store) Current() *Dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// SourceName returns the loader's name.
func (s *Store) SourceName() string {
	return s.loader.Name()
}

// Reload loads the source and publishes it as a new version.
// On error the previous dataset stays current.
func (s *Store) Reload(ctx context.Context) (*Dataset, error) {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	start := s.now()
	records, err := s.loader.Load(ctx)
	elapsed := s.now().Sub(start)
	if err != nil {
		s.metrics.RecordLoad(elapsed, 0, 0, err)
		s.logger.Error("dataset load failed",
			zap.String("source", s.loader.Name()),
			zap.Error(err),
		)
		return nil, fmt.Errorf("loading %s: %w", s.loader.Name(), err)
	}

	var version uint64 = 1
	if prev := s.Current(); prev != nil {
		version = prev.Version + 1
	}
	ds := &Dataset{
		Version:  version,
		Source:   s.loader.Name(),
		LoadedAt: s.now().UTC(),
		Records:  records,
	}

	s.mu.Lock()
	s.current = ds
	s.mu.Unlock()

	s.metrics.RecordLoad(elapsed, len(records), version, nil)
	s.logger.Info("dataset loaded",
		zap.String("source", ds.Source),
		zap.Uint64("version", ds.Version),
		zap.Int("records", len(records)),
		zap.Duration("elapsed", elapsed),
	)
	return ds, nil
}
