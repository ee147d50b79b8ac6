// Package metrics exposes Prometheus counters and histograms for the SQL
// adapter and blob storage cores. Metrics are an ambient concern carried
// regardless of spec.md's feature-scoped Non-goals; this module keeps them
// out of the hot path by registering against a caller-supplied registry
// rather than the global default, so tests can spin up isolated instances.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles every counter/histogram this module emits.
type Metrics struct {
	SQLOpsTotal      *prometheus.CounterVec
	SQLOpDuration    *prometheus.HistogramVec
	SQLErrorsTotal   *prometheus.CounterVec
	BlobOpsTotal     *prometheus.CounterVec
	BlobOpDuration   *prometheus.HistogramVec
	BlobBytesTotal   *prometheus.CounterVec
	BlobErrorsTotal  *prometheus.CounterVec
	TenantQuotaDenied *prometheus.CounterVec
}

// New registers and returns a Metrics bundle against reg. Pass
// prometheus.NewRegistry() in tests; production callers typically use
// prometheus.DefaultRegisterer via reg = prometheus.WrapRegistererWith(...).
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SQLOpsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dbal", Subsystem: "sql", Name: "operations_total",
			Help: "Total SQL adapter operations by entity and operation kind.",
		}, []string{"entity", "op"}),
		SQLOpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dbal", Subsystem: "sql", Name: "operation_duration_seconds",
			Help:    "SQL adapter operation latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"entity", "op"}),
		SQLErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dbal", Subsystem: "sql", Name: "errors_total",
			Help: "Total SQL adapter errors by taxonomy kind.",
		}, []string{"entity", "op", "kind"}),
		BlobOpsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dbal", Subsystem: "blob", Name: "operations_total",
			Help: "Total blob storage operations by backend and operation kind.",
		}, []string{"backend", "op"}),
		BlobOpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dbal", Subsystem: "blob", Name: "operation_duration_seconds",
			Help:    "Blob storage operation latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"backend", "op"}),
		BlobBytesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dbal", Subsystem: "blob", Name: "bytes_total",
			Help: "Total bytes transferred by backend and direction.",
		}, []string{"backend", "direction"}),
		BlobErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dbal", Subsystem: "blob", Name: "errors_total",
			Help: "Total blob storage errors by taxonomy kind.",
		}, []string{"backend", "op", "kind"}),
		TenantQuotaDenied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dbal", Subsystem: "tenant", Name: "quota_denied_total",
			Help: "Total admissions rejected by quota ceiling.",
		}, []string{"tenant_id", "quota"}),
	}
	reg.MustRegister(
		m.SQLOpsTotal, m.SQLOpDuration, m.SQLErrorsTotal,
		m.BlobOpsTotal, m.BlobOpDuration, m.BlobBytesTotal, m.BlobErrorsTotal,
		m.TenantQuotaDenied,
	)
	return m
}

// ObserveSQL records one SQL adapter operation's outcome and latency.
func (m *Metrics) ObserveSQL(entity, op string, start time.Time, errKind string) {
	if m == nil {
		return
	}
	m.SQLOpsTotal.WithLabelValues(entity, op).Inc()
	m.SQLOpDuration.WithLabelValues(entity, op).Observe(time.Since(start).Seconds())
	if errKind != "" {
		m.SQLErrorsTotal.WithLabelValues(entity, op, errKind).Inc()
	}
}

// ObserveBlob records one blob backend operation's outcome and latency.
func (m *Metrics) ObserveBlob(backend, op string, start time.Time, bytes int64, direction string, errKind string) {
	if m == nil {
		return
	}
	m.BlobOpsTotal.WithLabelValues(backend, op).Inc()
	m.BlobOpDuration.WithLabelValues(backend, op).Observe(time.Since(start).Seconds())
	if bytes > 0 && direction != "" {
		m.BlobBytesTotal.WithLabelValues(backend, direction).Add(float64(bytes))
	}
	if errKind != "" {
		m.BlobErrorsTotal.WithLabelValues(backend, op, errKind).Inc()
	}
}
