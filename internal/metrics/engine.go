package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search engine Prometheus metrics.
var (
	EngineQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "spelunker",
			Name:      "engine_queries_total",
			Help:      "Total number of search engine queries",
		},
		[]string{"index", "status"},
	)

	EngineQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "spelunker",
			Name:      "engine_query_duration_seconds",
			Help:      "Search engine query duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"index"},
	)

	ResponseCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "spelunker",
			Name:      "response_cache_total",
			Help:      "Response cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)
)

var engineMetricsRegistered bool

// RegisterEngineMetrics registers Prometheus engine metrics. Must be called once from main.
func RegisterEngineMetrics() {
	if engineMetricsRegistered {
		return
	}
	prometheus.MustRegister(EngineQueriesTotal)
	prometheus.MustRegister(EngineQueryDuration)
	prometheus.MustRegister(ResponseCacheTotal)
	engineMetricsRegistered = true
}
