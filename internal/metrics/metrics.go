package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Recommendation Metrics
	RecommendRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookrec_recommend_requests_total",
			Help: "Total number of recommendation requests",
		},
		[]string{"strategy", "outcome"}, // outcome: "ok", "not_found", "invalid", "error"
	)

	RecommendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bookrec_recommend_duration_seconds",
			Help:    "Time to produce a recommendation list, cache lookups included",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"strategy"},
	)

	RecommendCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookrec_cache_hits_total",
			Help: "Total number of recommendation cache hits",
		},
		[]string{"strategy"},
	)

	RecommendCacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookrec_cache_misses_total",
			Help: "Total number of recommendation cache misses",
		},
		[]string{"strategy"},
	)

	HistoryWriteErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bookrec_history_write_errors_total",
			Help: "Total number of failed recommendation history writes",
		},
	)

	// Scoring cluster
	NodeRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookrec_node_requests_total",
			Help: "Batches sent to scoring nodes",
		},
		[]string{"node", "outcome"}, // outcome: "ok", "error", "fallback"
	)

	NodeBatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bookrec_node_batch_duration_seconds",
			Help:    "Round trip time of a scoring batch",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"node"},
	)

	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookrec_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bookrec_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "endpoint"},
	)

	// Loaded data sizes
	CatalogItems = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bookrec_catalog_items",
			Help: "Number of books in the loaded catalog",
		},
	)

	KnownUsers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bookrec_rating_users",
			Help: "Number of users with at least one rating",
		},
	)
)

// RecordRecommendation records the outcome and latency of one request.
func RecordRecommendation(strategy, outcome string, duration time.Duration) {
	RecommendRequests.WithLabelValues(strategy, outcome).Inc()
	RecommendDuration.WithLabelValues(strategy).Observe(duration.Seconds())
}

// RecordCache records a cache lookup.
func RecordCache(strategy string, hit bool) {
	if hit {
		RecommendCacheHits.WithLabelValues(strategy).Inc()
	} else {
		RecommendCacheMisses.WithLabelValues(strategy).Inc()
	}
}

// RecordNodeBatch records one batch sent to a scoring node.
func RecordNodeBatch(node, outcome string, duration time.Duration) {
	NodeRequests.WithLabelValues(node, outcome).Inc()
	NodeBatchDuration.WithLabelValues(node).Observe(duration.Seconds())
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// SetDataSizes publishes the sizes of the loaded snapshot.
func SetDataSizes(items, users int) {
	CatalogItems.Set(float64(items))
	KnownUsers.Set(float64(users))
}
