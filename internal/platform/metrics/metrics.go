package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the pipeline.
type Metrics struct {
	ExtractionsProcessed *prometheus.CounterVec
	MatchScore           prometheus.Histogram
	PendingReviews       prometheus.Gauge
	CuratorCalls         *prometheus.CounterVec
	CuratorLatency       prometheus.Histogram
	ImportRecords        *prometheus.CounterVec
	RequestLatency       *prometheus.HistogramVec
}

// New creates and registers all metrics on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers the metrics on the given registerer. Tests pass a fresh
// registry so suites can construct metrics repeatedly.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ExtractionsProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "memoria_extractions_processed_total",
			Help: "Extracted entities processed by the pipeline, labeled by route",
		}, []string{"route"}),
		MatchScore: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "memoria_match_score",
			Help:    "Distribution of watchlist match scores (0-100)",
			Buckets: []float64{0, 50, 60, 70, 80, 85, 90, 95, 100},
		}),
		PendingReviews: factory.NewGauge(prometheus.GaugeOpts{
			Name: "memoria_pending_reviews",
			Help: "Review items currently awaiting adjudication",
		}),
		CuratorCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "memoria_curator_calls_total",
			Help: "Curator adapter invocations, labeled by outcome",
		}, []string{"outcome"}),
		CuratorLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "memoria_curator_latency_seconds",
			Help:    "Latency of external curator calls",
			Buckets: prometheus.DefBuckets,
		}),
		ImportRecords: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "memoria_import_records_total",
			Help: "Watchlist import records, labeled by result",
		}, []string{"result"}),
		RequestLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "memoria_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}
}
