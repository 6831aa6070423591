// Package metrics exposes Prometheus collectors for the resolver service.
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
	resolverOutcomesTotal      *prometheus.CounterVec
	resolverFetchAttemptsTotal *prometheus.CounterVec
	resolverJobsTotal          *prometheus.CounterVec
	resolverActiveJobs         prometheus.Gauge
	resolverRateLimitWait      *prometheus.HistogramVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init registers the collectors with the default registry.
// It is safe to call this function multiple times; every Observe helper
// calls it, so callers only need it to expose metrics before first use.
func Init() {
	once.Do(func() {
		resolverOutcomesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "resolver_outcomes_total",
				Help: "Total number of article resolutions, labeled by outcome source.",
			},
			[]string{"source"},
		)

		resolverFetchAttemptsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "resolver_fetch_attempts_total",
				Help: "Total number of page fetch attempts, labeled by host and result.",
			},
			[]string{"host", "result"},
		)

		resolverJobsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "resolver_jobs_total",
				Help: "Total number of finished jobs, labeled by final state.",
			},
			[]string{"state"},
		)

		resolverActiveJobs = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "resolver_active_jobs",
				Help: "Number of jobs currently being resolved.",
			},
		)

		resolverRateLimitWait = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "resolver_rate_limit_wait_seconds",
				Help:    "Time spent waiting on the per-host rate limiter.",
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
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// SanitizeSite reduces a URL to a lowercase hostname for use as a label.
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
	Init()
	return promhttp.Handler()
}

// ObserveOutcome counts one resolution by its outcome source.
func ObserveOutcome(source string) {
	Init()
	resolverOutcomesTotal.WithLabelValues(source).Inc()
}

// ObserveFetchAttempt counts one fetch attempt against rawURL's host.
func ObserveFetchAttempt(rawURL string, result string) {
	Init()
	resolverFetchAttemptsTotal.WithLabelValues(SanitizeSite(rawURL), result).Inc()
}

// ObserveJob counts a job reaching a terminal state.
func ObserveJob(state string) {
	Init()
	resolverJobsTotal.WithLabelValues(state).Inc()
}

// IncActiveJobs increments the active jobs gauge.
func IncActiveJobs() {
	Init()
	resolverActiveJobs.Inc()
}

// DecActiveJobs decrements the active jobs gauge.
func DecActiveJobs() {
	Init()
	resolverActiveJobs.Dec()
}

// ObserveRateLimitWait records a rate limiter delay for host.
func ObserveRateLimitWait(host string, waited time.Duration) {
	Init()
	resolverRateLimitWait.WithLabelValues(host).Observe(waited.Seconds())
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
