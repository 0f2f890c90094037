package metrics

import "github.com/prometheus/client_golang/prometheus"

// Retrieval engine Prometheus metrics.
var (
	QueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "finrag",
			Name:      "queries_total",
			Help:      "Total number of retrieve calls",
		},
		[]string{"status"}, // ok, partial, empty, error
	)

	QueryDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "finrag",
			Name:      "query_duration_seconds",
			Help:      "End-to-end retrieve duration in seconds",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	CollectionRetrievalDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "finrag",
			Name:      "collection_retrieval_duration_seconds",
			Help:      "Per-collection KNN retrieval duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"collection"},
	)

	CollectionFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "finrag",
			Name:      "collection_failures_total",
			Help:      "Collections excluded from fusion, by reason",
		},
		[]string{"collection", "reason"}, // unavailable, timeout
	)

	QueryCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "finrag",
			Name:      "query_cache_total",
			Help:      "Query result cache lookups",
		},
		[]string{"result"}, // hit, miss
	)
)

// RegisterRetrievalMetrics registers the engine collectors. Called once from
// the composition root; no init() so tests can import without side effects.
func RegisterRetrievalMetrics() {
	prometheus.MustRegister(
		QueriesTotal,
		QueryDuration,
		CollectionRetrievalDuration,
		CollectionFailuresTotal,
		QueryCacheTotal,
	)
}
