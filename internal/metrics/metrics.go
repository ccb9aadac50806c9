// Package metrics exposes Prometheus collectors for the dashboard service.
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
	storeReadFailuresTotal     *prometheus.CounterVec
	storeQueryDurationSeconds  *prometheus.HistogramVec
	taskCompletionsTotal       *prometheus.CounterVec
	exportsTotal               *prometheus.CounterVec
	eventsPublishedTotal       *prometheus.CounterVec
	latestOverallScore         prometheus.Gauge
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		storeReadFailuresTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dashboard_store_read_failures_total",
				Help: "Store reads that failed and were rendered as empty data, labeled by query.",
			},
			[]string{"query"},
		)

		storeQueryDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dashboard_store_query_duration_seconds",
				Help:    "Histogram of store call latencies, labeled by query.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"query"},
		)

		taskCompletionsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dashboard_task_completions_total",
				Help: "Mark-as-done requests, labeled by result.",
			},
			[]string{"result"},
		)

		exportsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dashboard_exports_total",
				Help: "Report exports, labeled by result.",
			},
			[]string{"result"},
		)

		eventsPublishedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dashboard_events_published_total",
				Help: "Task events handed to the publisher, labeled by result.",
			},
			[]string{"result"},
		)

		latestOverallScore = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "dashboard_latest_overall_score",
				Help: "Overall SEO score of the newest snapshot seen by a render.",
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

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Result labels.
const (
	ResultSuccess  = "success"
	ResultError    = "error"
	ResultNotFound = "not_found"
)

// ObserveStoreRead records the latency of a store call and, when it failed,
// a soft read failure.
func ObserveStoreRead(query string, duration time.Duration, failed bool) {
	Init()
	storeQueryDurationSeconds.WithLabelValues(query).Observe(duration.Seconds())
	if failed {
		storeReadFailuresTotal.WithLabelValues(query).Inc()
	}
}

// ObserveTaskCompletion counts a mark-as-done attempt.
func ObserveTaskCompletion(result string) {
	Init()
	taskCompletionsTotal.WithLabelValues(result).Inc()
}

// ObserveExport counts a report export.
func ObserveExport(result string) {
	Init()
	exportsTotal.WithLabelValues(result).Inc()
}

// ObserveEventPublished counts a task event publish.
func ObserveEventPublished(result string) {
	Init()
	eventsPublishedTotal.WithLabelValues(result).Inc()
}

// SetLatestOverallScore records the newest snapshot's score.
func SetLatestOverallScore(v float64) {
	Init()
	latestOverallScore.Set(v)
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
