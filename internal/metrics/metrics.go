// Package metrics holds the Prometheus collectors for planner mutations and
// persistence.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "schoolplanner"

// Metrics bundles every collector on its own registry so tests can build
// independent instances.
type Metrics struct {
	reg *prometheus.Registry

	mutations    *prometheus.CounterVec
	activities   prometheus.Gauge
	saveLatency  prometheus.Histogram
	saveFailures prometheus.Counter
	importedDays prometheus.Counter
	icsFetches   *prometheus.CounterVec
	backupsTotal *prometheus.CounterVec
}

// New registers all collectors, plus the Go and process collectors, on a
// fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		reg: reg,
		mutations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mutations_total",
			Help:      "Store mutations applied, by operation.",
		}, []string{"op"}),
		activities: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "activities",
			Help:      "Activities currently in the store.",
		}),
		saveLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "save_duration_seconds",
			Help:      "Latency of background store saves.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}),
		saveFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "save_failures_total",
			Help:      "Background store saves that returned an error.",
		}),
		importedDays: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "imported_days_total",
			Help:      "Day records merged in by JSON import.",
		}),
		icsFetches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ics_fetches_total",
			Help:      "Remote calendar fetches, by result (fresh, not_modified, error).",
		}, []string{"result"}),
		backupsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backups_total",
			Help:      "Scheduled backups, by result (ok, error).",
		}, []string{"result"}),
	}
}

// Mutation records one applied store operation and the resulting size.
func (m *Metrics) Mutation(op string, activities int) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(op).Inc()
	m.activities.Set(float64(activities))
}

// SetActivities updates the store size gauge, e.g. after the initial load.
func (m *Metrics) SetActivities(n int) {
	if m == nil {
		return
	}
	m.activities.Set(float64(n))
}

// ObserveSave matches persist.ObserveFunc.
func (m *Metrics) ObserveSave(elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.saveLatency.Observe(elapsed.Seconds())
	if err != nil {
		m.saveFailures.Inc()
	}
}

func (m *Metrics) Imported(days int) {
	if m == nil {
		return
	}
	m.importedDays.Add(float64(days))
}

func (m *Metrics) ICSFetch(result string) {
	if m == nil {
		return
	}
	m.icsFetches.WithLabelValues(result).Inc()
}

func (m *Metrics) Backup(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.backupsTotal.WithLabelValues(result).Inc()
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
