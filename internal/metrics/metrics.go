// Package metrics exposes Prometheus collectors for the sync service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	runsTotal                  *prometheus.CounterVec
	runDurationSeconds         prometheus.Histogram
	pagesFetchedTotal          prometheus.Counter
	pageFetchErrorsTotal       prometheus.Counter
	hitsSkippedTotal           prometheus.Counter
	rowsAppendedTotal          prometheus.Counter
	rateLimitDelaySeconds      *prometheus.HistogramVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	httpResponseSizeBytes      *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		runsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ksync_runs_total",
				Help: "Total number of sync runs, labeled by final state.",
			},
			[]string{"state"},
		)

		runDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ksync_run_duration_seconds",
				Help:    "Histogram of sync run durations.",
				Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
			},
		)

		pagesFetchedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "ksync_pages_fetched_total",
				Help: "Total number of search API pages fetched.",
			},
		)

		pageFetchErrorsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "ksync_page_fetch_errors_total",
				Help: "Total number of failed search API page fetches.",
			},
		)

		hitsSkippedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "ksync_hits_skipped_total",
				Help: "Total number of hits skipped because their Object ID was already stored.",
			},
		)

		rowsAppendedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "ksync_rows_appended_total",
				Help: "Total number of rows appended to the table store.",
			},
		)

		rateLimitDelaySeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ksync_rate_limit_delay_seconds",
				Help:    "Time spent waiting for the outbound rate limiter, labeled by host.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2},
			},
			[]string{"host"},
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
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 30, 120, 300},
			},
			[]string{"method", "route"},
		)

		httpResponseSizeBytes = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_response_size_bytes",
				Help:    "Histogram of HTTP response body sizes, labeled by route.",
				Buckets: prometheus.ExponentialBuckets(64, 4, 6),
			},
			[]string{"route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveRun records a finished run.
func ObserveRun(state string, duration time.Duration) {
	runsTotal.WithLabelValues(state).Inc()
	runDurationSeconds.Observe(duration.Seconds())
}

// ObservePageFetched increments the fetched page counter.
func ObservePageFetched() {
	pagesFetchedTotal.Inc()
}

// ObservePageFetchError increments the failed fetch counter.
func ObservePageFetchError() {
	pageFetchErrorsTotal.Inc()
}

// ObserveHitsSkipped adds n already-stored hits.
func ObserveHitsSkipped(n int) {
	if n > 0 {
		hitsSkippedTotal.Add(float64(n))
	}
}

// ObserveRowsAppended adds n appended rows.
func ObserveRowsAppended(n int) {
	if n > 0 {
		rowsAppendedTotal.Add(float64(n))
	}
}

// ObserveRateLimitDelay records time spent waiting on the limiter for host.
func ObserveRateLimitDelay(host string, d time.Duration) {
	rateLimitDelaySeconds.WithLabelValues(host).Observe(d.Seconds())
}

// ObserveHTTPRequest records one served request.
func ObserveHTTPRequest(method, route string, code, size int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
	httpResponseSizeBytes.WithLabelValues(route).Observe(float64(size))
}
