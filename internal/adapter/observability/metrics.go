package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"route", "method"},
	)

	WordPressRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wordpress_requests_total",
			Help: "Total number of WordPress REST requests by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)
	WordPressRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wordpress_request_duration_seconds",
			Help:    "WordPress REST request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"operation"},
	)

	SyncJobsEnqueuedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sync_jobs_enqueued_total",
			Help: "Total number of sync jobs enqueued",
		},
	)
	SyncStoriesUpsertedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sync_stories_upserted_total",
			Help: "Total number of stories written during sync",
		},
	)
	SyncStoriesSkippedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_stories_skipped_total",
			Help: "Total number of upstream posts skipped during sync",
		},
		[]string{"reason"},
	)
	SyncDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sync_duration_seconds",
			Help:    "Wall time of a full sync job",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		},
	)

	ContentCacheHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "content_cache_requests_total",
			Help: "Normalized-content cache lookups by outcome",
		},
		[]string{"outcome"},
	)
)

// InitMetrics registers all Prometheus metrics once per process.
func InitMetrics() {
	prometheus.MustRegister(HTTPRequestsTotal)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(WordPressRequestsTotal)
	prometheus.MustRegister(WordPressRequestDuration)
	prometheus.MustRegister(SyncJobsEnqueuedTotal)
	prometheus.MustRegister(SyncStoriesUpsertedTotal)
	prometheus.MustRegister(SyncStoriesSkippedTotal)
	prometheus.MustRegister(SyncDuration)
	prometheus.MustRegister(ContentCacheHitsTotal)
}

// HTTPMetricsMiddleware records Prometheus metrics for each request.
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		dur := time.Since(start).Seconds()
		// Route pattern may be unavailable outside chi router; guard nil
		var route string
		if rc := chi.RouteContext(r.Context()); rc != nil {
			route = rc.RoutePattern()
		}
		if route == "" {
			route = r.URL.Path
		}
		HTTPRequestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(ww.Status())).Inc()
		HTTPRequestDuration.WithLabelValues(route, r.Method).Observe(dur)
	})
}
