// Package metrics exposes Prometheus collectors for the search subsystem
// and the HTTP surface.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "storefront"

var (
	// SearchRequests counts search calls by entity, executed method and outcome.
	SearchRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "search",
		Name:      "requests_total",
		Help:      "Total search requests by entity, executed method and status.",
	}, []string{"entity", "method", "status"})

	// SearchDuration observes the strategy execution latency.
	SearchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "search",
		Name:      "duration_seconds",
		Help:      "Search strategy execution time in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"entity", "method"})

	// SearchFallbacks counts silent downgrades and vector-to-text retries.
	SearchFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "search",
		Name:      "fallbacks_total",
		Help:      "Search calls that fell back to another method.",
	}, []string{"from", "reason"})

	// EmbeddingRequests counts embedding provider calls.
	EmbeddingRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "embedding",
		Name:      "requests_total",
		Help:      "Total embedding provider calls by operation and status.",
	}, []string{"operation", "status"})

	// EmbeddingDuration observes embedding provider latency.
	EmbeddingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "embedding",
		Name:      "duration_seconds",
		Help:      "Embedding provider call time in seconds.",
		Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
	})

	// BackfillProcessed counts entities embedded by the backfill runner.
	BackfillProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "backfill",
		Name:      "processed_total",
		Help:      "Entities successfully embedded by backfill runs.",
	}, []string{"entity"})

	// BackfillFailed counts per-item backfill failures.
	BackfillFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "backfill",
		Name:      "failed_total",
		Help:      "Per-item backfill failures (batch continues).",
	}, []string{"entity"})

	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests by method, path and status code.",
	}, []string{"method", "path", "status"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path"})
)

// ObserveHTTPRequest records one served HTTP request. The path should be the
// registered route pattern, not the raw URL, to keep label cardinality bounded.
func ObserveHTTPRequest(method, path, status string, elapsed time.Duration) {
	httpRequests.WithLabelValues(method, path, status).Inc()
	httpDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

// Handler serves the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
