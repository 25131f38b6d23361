package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Cache metrics
	CacheRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockdash_cache_requests_total",
			Help: "Cache lookups by operation and outcome (hit, miss, error)",
		},
		[]string{"op", "outcome"},
	)
	CacheEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "stockdash_cache_entries",
			Help: "Entries held by the cache after the last purge",
		})

	// Upstream metrics
	UpstreamDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stockdash_upstream_request_duration_seconds",
			Help:    "Upstream request duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "status"},
	)
	UpstreamErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockdash_upstream_errors_total",
			Help: "Upstream request errors",
		},
		[]string{"endpoint"},
	)

	// Fetch outcome metrics
	FetchResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockdash_fetch_results_total",
			Help: "Fetch outcomes by operation and status (ok, empty, failed)",
		},
		[]string{"op", "status"},
	)

	// API metrics
	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stockdash_api_request_duration_seconds",
			Help:    "API request duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	// Session metrics
	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "stockdash_active_sessions",
			Help: "Number of live dashboard sessions",
		})
)

func init() {
	prometheus.MustRegister(
		CacheRequests, CacheEntries,
		UpstreamDuration, UpstreamErrors,
		FetchResults,
		APIRequestDuration,
		ActiveSessions,
	)
}

// ObserveUpstream records one upstream call. status is the HTTP status code,
// or 0 when the request never got a response.
func ObserveUpstream(endpoint string, start time.Time, status int, err error) {
	UpstreamDuration.WithLabelValues(endpoint, strconv.Itoa(status)).Observe(time.Since(start).Seconds())
	if err != nil || status >= 400 {
		UpstreamErrors.WithLabelValues(endpoint).Inc()
	}
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
