// Package promhooks implements the observability hooks with Prometheus
// metrics. The CLI is short-lived, so metrics are written to a node_exporter
// textfile with [Metrics.WriteTextfile] rather than served over HTTP.
package promhooks

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/matzehuels/stackbump/pkg/observability"
)

// Metrics holds all Prometheus metrics and implements the resolve, apply
// and cache hooks.
type Metrics struct {
	registry *prometheus.Registry

	ResolveTotal      *prometheus.CounterVec
	ResolveDuration   prometheus.Histogram
	UpdatesTotal      *prometheus.CounterVec
	CyclesDetected    prometheus.Gauge
	ApplyTotal        *prometheus.CounterVec
	ApplyDuration     prometheus.Histogram
	FilesWrittenTotal prometheus.Counter
	RollbacksTotal    prometheus.Counter
	CacheEventsTotal  *prometheus.CounterVec
}

// New creates the metrics and registers them in a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ResolveTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stackbump_resolve_total",
				Help: "Total number of version resolutions",
			},
			[]string{"status", "cache_hit"},
		),
		ResolveDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "stackbump_resolve_duration_seconds",
			Help:    "Version resolution duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
		UpdatesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stackbump_updates_total",
				Help: "Package updates produced by resolution",
			},
			[]string{"reason"},
		),
		CyclesDetected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stackbump_cycles_detected",
			Help: "Circular dependencies found by the last resolution",
		}),
		ApplyTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stackbump_apply_total",
				Help: "Total number of apply runs",
			},
			[]string{"status", "dry_run"},
		),
		ApplyDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "stackbump_apply_duration_seconds",
			Help:    "Apply duration in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		FilesWrittenTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stackbump_files_written_total",
			Help: "Manifest files written",
		}),
		RollbacksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stackbump_rollbacks_total",
			Help: "Apply runs rolled back after a failed write",
		}),
		CacheEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stackbump_cache_events_total",
				Help: "Cache hits, misses and writes",
			},
			[]string{"key_type", "event"},
		),
	}
	m.registry.MustRegister(
		m.ResolveTotal, m.ResolveDuration, m.UpdatesTotal, m.CyclesDetected,
		m.ApplyTotal, m.ApplyDuration, m.FilesWrittenTotal, m.RollbacksTotal,
		m.CacheEventsTotal,
	)
	return m
}

// Registry returns the registry holding the metrics.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Install registers m as the global resolve, apply and cache hooks.
func (m *Metrics) Install() {
	observability.SetResolveHooks(m)
	observability.SetApplyHooks(m)
	observability.SetCacheHooks(m)
}

// WriteTextfile writes all metrics in the text exposition format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// OnResolveStart implements observability.ResolveHooks.
func (m *Metrics) OnResolveStart(context.Context, int) {}

// OnResolveComplete implements observability.ResolveHooks.
func (m *Metrics) OnResolveComplete(_ context.Context, s observability.ResolveStats, d time.Duration, err error) {
	m.ResolveTotal.WithLabelValues(status(err), strconv.FormatBool(s.CacheHit)).Inc()
	m.ResolveDuration.Observe(d.Seconds())
	if err != nil {
		return
	}
	m.UpdatesTotal.WithLabelValues("direct").Add(float64(s.Direct))
	m.UpdatesTotal.WithLabelValues("propagation").Add(float64(s.Propagated))
	m.CyclesDetected.Set(float64(s.Cycles))
}

// OnApplyStart implements observability.ApplyHooks.
func (m *Metrics) OnApplyStart(context.Context, int, bool) {}

// OnFileWritten implements observability.ApplyHooks.
func (m *Metrics) OnFileWritten(context.Context, string) { m.FilesWrittenTotal.Inc() }

// OnRollback implements observability.ApplyHooks.
func (m *Metrics) OnRollback(context.Context, int, error) { m.RollbacksTotal.Inc() }

// OnApplyComplete implements observability.ApplyHooks.
func (m *Metrics) OnApplyComplete(_ context.Context, _ int, dryRun bool, d time.Duration, err error) {
	m.ApplyTotal.WithLabelValues(status(err), strconv.FormatBool(dryRun)).Inc()
	m.ApplyDuration.Observe(d.Seconds())
}

// OnCacheHit implements observability.CacheHooks.
func (m *Metrics) OnCacheHit(_ context.Context, keyType string) {
	m.CacheEventsTotal.WithLabelValues(keyType, "hit").Inc()
}

// OnCacheMiss implements observability.CacheHooks.
func (m *Metrics) OnCacheMiss(_ context.Context, keyType string) {
	m.CacheEventsTotal.WithLabelValues(keyType, "miss").Inc()
}

// OnCacheSet implements observability.CacheHooks.
func (m *Metrics) OnCacheSet(_ context.Context, keyType string, _ int) {
	m.CacheEventsTotal.WithLabelValues(keyType, "set").Inc()
}

var (
	_ observability.ResolveHooks = (*Metrics)(nil)
	_ observability.ApplyHooks   = (*Metrics)(nil)
	_ observability.CacheHooks   = (*Metrics)(nil)
)
