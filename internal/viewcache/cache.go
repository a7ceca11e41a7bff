// Package viewcache memoizes pipeline views per dataset version
// and selection.
package viewcache

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/wesm/queryview/internal/dataset"
	"github.com/wesm/queryview/internal/metrics"
	"github.com/wesm/queryview/internal/pipeline"
)

// DefaultSize is the default number of cached selections.
const DefaultSize = 256

// key identifies one computation. The selection is stored
// normalized so equivalent requests share an entry.
type key struct {
	version uint64
	sel     pipeline.Selection
	topN    int
}

func (k key) String() string {
	return fmt.Sprintf("%d|%s|%s|%s|%s|%s|%d",
		k.version, k.sel.From, k.sel.To,
		k.sel.Team, k.sel.App, k.sel.Page, k.topN)
}

type entry struct {
	views pipeline.Views
	err   error
}

// Cache maps (dataset version, selection) to computed views.
// Entries for older versions are dropped the first time a newer
// version is requested. Concurrent requests for the same key
// compute once.
type Cache struct {
	size    int
	metrics *metrics.Metrics
	now     func() time.Time

	group singleflight.Group

	mu      sync.Mutex
	version uint64
	entries map[key]entry
	order   []key // insertion order for eviction
}

// New creates a cache holding at most size entries. A size of
// zero or less uses DefaultSize.
func New(size int, m *metrics.Metrics) *Cache {
	if size <= 0 {
		size = DefaultSize
	}
	return &Cache{
		size:    size,
		metrics: m,
		now:     time.Now,
		entries: make(map[key]entry),
	}
}

// Views returns the views of ds for sel, computing them on a miss.
// pipeline.ErrNoData results are cached like any other; range
// errors are not.
func (c *Cache) Views(
	ds *dataset.Dataset, sel pipeline.Selection, topN int,
) (pipeline.Views, error) {
	var version uint64
	if ds != nil {
		version = ds.Version
	}
	k := key{version: version, sel: sel.Normalize(), topN: topN}

	if e, ok := c.lookup(k); ok {
		c.metrics.RecordCache(true)
		return e.views, e.err
	}
	c.metrics.RecordCache(false)

	v, _, _ := c.group.Do(k.String(), func() (any, error) {
		start := c.now()
		views, err := pipeline.ComputeViewsN(ds, k.sel, topN)
		c.metrics.RecordPipeline(c.now().Sub(start), resultLabel(err))
		e := entry{views: views, err: err}
		if err == nil || errors.Is(err, pipeline.ErrNoData) {
			c.store(k, e)
		}
		return e, nil
	})
	e := v.(entry)
	return e.views, e.err
}

// Invalidate drops every entry.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[key]entry)
	c.order = nil
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) lookup(k key) (entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if k.version > c.version {
		c.version = k.version
		c.entries = make(map[key]entry)
		c.order = nil
		return entry{}, false
	}
	e, ok := c.entries[k]
	return e, ok
}

func (c *Cache) store(k key, e entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if k.version != c.version {
		return // a newer dataset arrived while computing
	}
	if _, ok := c.entries[k]; ok {
		return
	}
	for len(c.order) >= c.size {
		delete(c.entries, c.order[0])
		c.order = c.order[1:]
	}
	c.entries[k] = e
	c.order = append(c.order, k)
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, pipeline.ErrNoData):
		return "no_data"
	default:
		return "error"
	}
}
