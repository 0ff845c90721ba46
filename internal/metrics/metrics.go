// Package metrics exposes Prometheus collectors for the acquisition service.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	fetchAttemptsTotal         *prometheus.CounterVec
	fetchResultsTotal          *prometheus.CounterVec
	cacheEventsTotal           *prometheus.CounterVec
	browserBreakerOpen         prometheus.Gauge
	batchSizePages             prometheus.Histogram
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		fetchAttemptsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webintel_fetch_attempts_total",
				Help: "Strategy attempts, labeled by kind, strategy and outcome.",
			},
			[]string{"kind", "strategy", "outcome"},
		)

		fetchResultsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webintel_fetch_results_total",
				Help: "Results returned to callers, labeled by kind, producing strategy and target site.",
			},
			[]string{"kind", "strategy", "site"},
		)

		cacheEventsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webintel_cache_events_total",
				Help: "Cache lookups, labeled by kind and hit/miss.",
			},
			[]string{"kind", "event"},
		)

		browserBreakerOpen = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "webintel_browser_breaker_open",
				Help: "1 when the browser circuit breaker is open, 0 otherwise.",
			},
		)

		batchSizePages = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "webintel_batch_size_pages",
				Help:    "Histogram of URL counts per batch fetch request.",
				Buckets: []float64{1, 2, 5, 10, 20, 50, 100},
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// SanitizeSite sanitizes a URL to a lowercase hostname label.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveFetchAttempt records one strategy attempt and its outcome
// ("accepted" or an error classification such as "quality_too_low").
func ObserveFetchAttempt(kind, strategy, outcome string) {
	fetchAttemptsTotal.WithLabelValues(kind, strategy, outcome).Inc()
}

// ObserveFetchResult records the strategy that ultimately served a caller.
// The site label comes from SanitizeSite; searches carry "none".
func ObserveFetchResult(kind, strategy, site string) {
	fetchResultsTotal.WithLabelValues(kind, strategy, site).Inc()
}

// ObserveCacheHit records a cache hit for the given result kind.
func ObserveCacheHit(kind string) {
	cacheEventsTotal.WithLabelValues(kind, "hit").Inc()
}

// ObserveCacheMiss records a cache miss for the given result kind.
func ObserveCacheMiss(kind string) {
	cacheEventsTotal.WithLabelValues(kind, "miss").Inc()
}

// SetBreakerOpen reflects the browser circuit breaker state.
func SetBreakerOpen(open bool) {
	if open {
		browserBreakerOpen.Set(1)
		return
	}
	browserBreakerOpen.Set(0)
}

// ObserveBatchSize records the URL count of one batch request.
func ObserveBatchSize(n int) {
	batchSizePages.Observe(float64(n))
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
