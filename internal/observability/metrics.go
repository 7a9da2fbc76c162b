package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for the query pipeline.
type Metrics struct {
	QueriesTotal  *prometheus.CounterVec   // labels: outcome={ok,no_locations,error}
	StageDuration *prometheus.HistogramVec // labels: stage={extract,geocode,retrieve,select,answer}

	// Collaborator metrics.
	CollaboratorFailures *prometheus.CounterVec // labels: collaborator={classifier,embedder,geocoder,forecast,answer}
	EmbeddingBatchSize   prometheus.Histogram

	// Geocoding cache metrics.
	GeocodeCache *prometheus.CounterVec // labels: result={hit,miss}

	// HTTP API metrics.
	HTTPRequests *prometheus.CounterVec // labels: path, status
}

// NewMetrics creates and registers all pipeline metrics with the default registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.QueriesTotal,
		m.StageDuration,
		m.CollaboratorFailures,
		m.EmbeddingBatchSize,
		m.GeocodeCache,
		m.HTTPRequests,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, so tests
// can construct the pipeline repeatedly without duplicate-registration panics.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		QueriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "floodwise",
			Name:      "queries_total",
			Help:      "Total queries processed by outcome.",
		}, []string{"outcome"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "floodwise",
			Name:      "stage_duration_seconds",
			Help:      "Duration of each pipeline stage.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"stage"}),
		CollaboratorFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "floodwise",
			Name:      "collaborator_failures_total",
			Help:      "Upstream service failures recovered by fallbacks.",
		}, []string{"collaborator"}),
		EmbeddingBatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "floodwise",
			Name:      "embedding_batch_size",
			Help:      "Number of texts per embedding request.",
			Buckets:   []float64{1, 2, 5, 10, 17, 25, 50, 100},
		}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "floodwise",
			Name:      "geocode_cache_total",
			Help:      "Geocoding cache lookups by result.",
		}, []string{"result"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "floodwise",
			Name:      "http_requests_total",
			Help:      "HTTP API requests by path and status.",
		}, []string{"path", "status"}),
	}
}
