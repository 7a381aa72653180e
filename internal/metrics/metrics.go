// Package metrics exposes Prometheus collectors for the prospect service.
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
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	auditsTotal                *prometheus.CounterVec
	auditDurationSeconds       *prometheus.HistogramVec
	enrichItemsTotal           *prometheus.CounterVec
	upstreamDurationSeconds    *prometheus.HistogramVec
	rateLimitDelaysSeconds     *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
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
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15, 60},
			},
			[]string{"method", "route"},
		)

		auditsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "prospect_audits_total",
				Help: "Site audits run, labeled by runner mode and outcome.",
			},
			[]string{"mode", "outcome"},
		)

		auditDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "prospect_audit_duration_seconds",
				Help:    "Wall time per site audit, labeled by runner mode.",
				Buckets: []float64{1, 2, 5, 10, 15, 20, 30, 45, 60},
			},
			[]string{"mode"},
		)

		enrichItemsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "prospect_enrich_items_total",
				Help: "Enrichment lookups, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		upstreamDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "prospect_upstream_request_duration_seconds",
				Help:    "Latency of calls to external data services.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30},
			},
			[]string{"service", "outcome"},
		)

		rateLimitDelaysSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "prospect_rate_limit_delays_seconds",
				Help:    "Histogram of rate limit wait durations.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"domain"},
		)
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
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

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveAudit records one audit run.
func ObserveAudit(mode, outcome string, duration time.Duration) {
	Init()
	auditsTotal.WithLabelValues(mode, outcome).Inc()
	auditDurationSeconds.WithLabelValues(mode).Observe(duration.Seconds())
}

// ObserveEnrichItem records one enrichment lookup.
func ObserveEnrichItem(outcome string) {
	Init()
	enrichItemsTotal.WithLabelValues(outcome).Inc()
}

// ObserveUpstream records the latency of a geocoder or directory call.
func ObserveUpstream(service, outcome string, duration time.Duration) {
	Init()
	upstreamDurationSeconds.WithLabelValues(service, outcome).Observe(duration.Seconds())
}

// ObserveRateLimitDelay records the duration of a rate limit wait.
func ObserveRateLimitDelay(domain string, duration time.Duration) {
	Init()
	rateLimitDelaysSeconds.WithLabelValues(domain).Observe(duration.Seconds())
}

// Outcome maps an error to the "success"/"error" label pair.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
