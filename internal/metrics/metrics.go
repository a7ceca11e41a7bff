// Package metrics defines the Prometheus collectors for dataset
// loads, pipeline runs, and the view cache.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the queryview collectors. A nil *Metrics is valid
// and records nothing, so components can run without a registry.
type Metrics struct {
	// LoadDurationSeconds tracks how long a dataset load takes.
	LoadDurationSeconds prometheus.Histogram
	// LoadsTotal counts dataset loads by result (ok, error).
	LoadsTotal *prometheus.CounterVec
	// DatasetRecords is the record count of the current dataset.
	DatasetRecords prometheus.Gauge
	// DatasetVersion is the version of the current dataset.
	DatasetVersion prometheus.Gauge
	// PipelineDurationSeconds tracks view computation time.
	PipelineDurationSeconds prometheus.Histogram
	// PipelineRunsTotal counts view computations by result
	// (ok, no_data, error).
	PipelineRunsTotal *prometheus.CounterVec
	// CacheRequestsTotal counts view cache lookups by result
	// (hit, miss).
	CacheRequestsTotal *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		LoadDurationSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "queryview_dataset_load_duration_seconds",
			Help:    "Duration of a dataset load in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
		}),
		LoadsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "queryview_dataset_loads_total",
			Help: "Total number of dataset loads by result",
		}, []string{"result"}),
		DatasetRecords: f.NewGauge(prometheus.GaugeOpts{
			Name: "queryview_dataset_records",
			Help: "Number of records in the current dataset",
		}),
		DatasetVersion: f.NewGauge(prometheus.GaugeOpts{
			Name: "queryview_dataset_version",
			Help: "Version of the current dataset",
		}),
		PipelineDurationSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "queryview_pipeline_duration_seconds",
			Help:    "Duration of a view computation in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		}),
		PipelineRunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "queryview_pipeline_runs_total",
			Help: "Total number of view computations by result",
		}, []string{"result"}),
		CacheRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "queryview_view_cache_requests_total",
			Help: "Total number of view cache lookups by result",
		}, []string{"result"}),
	}
}

// RecordLoad observes a dataset load. records and version are
// only applied on success.
func (m *Metrics) RecordLoad(
	d time.Duration, records int, version uint64, err error,
) {
	if m == nil {
		return
	}
	m.LoadDurationSeconds.Observe(d.Seconds())
	if err != nil {
		m.LoadsTotal.WithLabelValues("error").Inc()
		return
	}
	m.LoadsTotal.WithLabelValues("ok").Inc()
	m.DatasetRecords.Set(float64(records))
	m.DatasetVersion.Set(float64(version))
}

// RecordPipeline observes one view computation.
func (m *Metrics) RecordPipeline(d time.Duration, result string) {
	if m == nil {
		return
	}
	m.PipelineDurationSeconds.Observe(d.Seconds())
	m.PipelineRunsTotal.WithLabelValues(result).Inc()
}

// RecordCache counts a cache hit or miss.
func (m *Metrics) RecordCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheRequestsTotal.WithLabelValues("hit").Inc()
		return
	}
	m.CacheRequestsTotal.WithLabelValues("miss").Inc()
}
