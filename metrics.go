package pdsession

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector provides Prometheus metrics for the request lifecycle,
// labeled by method and canonical endpoint. It is safe for concurrent use.
type MetricsCollector struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight *prometheus.GaugeVec
	retriesTotal     *prometheus.CounterVec
	errorsTotal      *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetricsCollector creates a metrics collector on its own registry; use
// Handler to expose it.
func NewMetricsCollector() *MetricsCollector {
	registry := prometheus.NewRegistry()
	mc := newMetricsCollector(registry)
	mc.registry = registry
	return mc
}

// NewMetricsCollectorWithRegistry creates a collector using the supplied
// registerer, e.g. prometheus.DefaultRegisterer.
func NewMetricsCollectorWithRegistry(registry prometheus.Registerer) *MetricsCollector {
	return newMetricsCollector(registry)
}

func newMetricsCollector(registry prometheus.Registerer) *MetricsCollector {
	return &MetricsCollector{
		requestsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "pdsession_requests_total",
				Help: "Total number of API requests made",
			},
			[]string{"method", "status_code", "endpoint"},
		),
		requestDuration: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pdsession_request_duration_seconds",
				Help:    "Duration of API requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "status_code", "endpoint"},
		),
		requestsInFlight: promauto.With(registry).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pdsession_requests_in_flight",
				Help: "Number of API requests currently in flight",
			},
			[]string{"method", "endpoint"},
		),
		retriesTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "pdsession_retries_total",
				Help: "Total number of retry attempts by reason",
			},
			[]string{"method", "endpoint", "reason"},
		),
		errorsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "pdsession_errors_total",
				Help: "Total number of terminal request errors",
			},
			[]string{"type", "method", "endpoint"},
		),
	}
}

// Handler returns an HTTP handler serving the collector's registry, or nil if
// the collector was attached to an external registerer.
func (mc *MetricsCollector) Handler() http.Handler {
	if mc.registry == nil {
		return nil
	}
	return promhttp.HandlerFor(mc.registry, promhttp.HandlerOpts{})
}

// RecordRequestStart increments the in-flight gauge.
func (mc *MetricsCollector) RecordRequestStart(method, endpoint string) {
	mc.requestsInFlight.WithLabelValues(method, endpoint).Inc()
}

// RecordRequestEnd decrements the in-flight gauge.
func (mc *MetricsCollector) RecordRequestEnd(method, endpoint string) {
	mc.requestsInFlight.WithLabelValues(method, endpoint).Dec()
}

// RecordRequest records a completed attempt with its status and duration.
func (mc *MetricsCollector) RecordRequest(method, endpoint string, statusCode int, duration time.Duration) {
	status := strconv.Itoa(statusCode)
	mc.requestsTotal.WithLabelValues(method, status, endpoint).Inc()
	mc.requestDuration.WithLabelValues(method, status, endpoint).Observe(duration.Seconds())
}

// RecordRetry records a scheduled retry and its reason ("network",
// "rate_limit" or "http_error").
func (mc *MetricsCollector) RecordRetry(method, endpoint, reason string) {
	mc.retriesTotal.WithLabelValues(method, endpoint, reason).Inc()
}

// RecordError records a terminal error by type ("network", "auth").
func (mc *MetricsCollector) RecordError(errorType, method, endpoint string) {
	mc.errorsTotal.WithLabelValues(errorType, method, endpoint).Inc()
}
