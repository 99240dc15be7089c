package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollector implements Collector on a private Prometheus registry.
type PrometheusCollector struct {
	resolutionsTotal   *prometheus.CounterVec
	resolutionDuration prometheus.Histogram
	ingestChunksTotal  *prometheus.CounterVec
	ingestIssuesTotal  *prometheus.CounterVec
	linksTotal         prometheus.Counter
	clauseCount        *prometheus.GaugeVec

	registry *prometheus.Registry
}

// NewPrometheusCollector creates a collector with its own registry.
func NewPrometheusCollector() *PrometheusCollector {
	registry := prometheus.NewRegistry()

	resolutionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contractlens_resolutions_total",
			Help: "Total clause resolutions by outcome",
		},
		[]string{"outcome"},
	)

	resolutionDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "contractlens_resolution_duration_seconds",
			Help:    "Duration of clause resolutions",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
		},
	)

	ingestChunksTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contractlens_ingest_chunks_total",
			Help: "Total chunks created by ingestion, per document",
		},
		[]string{"document"},
	)

	ingestIssuesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contractlens_ingest_issues_total",
			Help: "Total validation issues raised by ingestion, per document",
		},
		[]string{"document"},
	)

	linksTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "contractlens_links_total",
			Help: "Total reference wrappers emitted by link rewrites",
		},
	)

	clauseCount := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "contractlens_clause_count",
			Help: "Live clause count per contract",
		},
		[]string{"contract"},
	)

	registry.MustRegister(resolutionsTotal, resolutionDuration,
		ingestChunksTotal, ingestIssuesTotal, linksTotal, clauseCount)

	return &PrometheusCollector{
		resolutionsTotal:   resolutionsTotal,
		resolutionDuration: resolutionDuration,
		ingestChunksTotal:  ingestChunksTotal,
		ingestIssuesTotal:  ingestIssuesTotal,
		linksTotal:         linksTotal,
		clauseCount:        clauseCount,
		registry:           registry,
	}
}

// Registry exposes the private registry for HTTP handlers.
func (m *PrometheusCollector) Registry() *prometheus.Registry {
	return m.registry
}

// RecordResolution records one resolve call.
func (m *PrometheusCollector) RecordResolution(_ context.Context, outcome string, durationMs int64) {
	m.resolutionsTotal.WithLabelValues(outcome).Inc()
	m.resolutionDuration.Observe(float64(durationMs) / 1000.0)
}

// RecordIngest records one ingestion run.
func (m *PrometheusCollector) RecordIngest(_ context.Context, documentID string, chunks, issues int) {
	m.ingestChunksTotal.WithLabelValues(documentID).Add(float64(chunks))
	m.ingestIssuesTotal.WithLabelValues(documentID).Add(float64(issues))
}

// RecordLinks records emitted reference wrappers.
func (m *PrometheusCollector) RecordLinks(_ context.Context, count int) {
	m.linksTotal.Add(float64(count))
}

// SetClauseCount publishes the live clause count of a contract.
func (m *PrometheusCollector) SetClauseCount(_ context.Context, contractID string, count int64) {
	m.clauseCount.WithLabelValues(contractID).Set(float64(count))
}
