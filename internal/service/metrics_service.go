package service

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics aggregates the Prometheus instruments used across the API.
// A nil *Metrics is a valid no-op recorder.
type Metrics struct {
	registry           *prometheus.Registry
	httpRequests       *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
	reportsGenerated   *prometheus.CounterVec
	generationDuration *prometheus.HistogramVec
	reaperDeleted      prometheus.Counter
	schedulesFired     prometheus.Counter
}

// NewMetrics builds the instruments on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Number of HTTP requests processed.",
		}, []string{"method", "path", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		reportsGenerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reports_generated_total",
			Help: "Number of reports generated, by format.",
		}, []string{"format"}),
		generationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "report_generation_duration_seconds",
			Help:    "End-to-end report generation latency.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"format"}),
		reaperDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "report_artifacts_reaped_total",
			Help: "Number of expired report artifacts removed by the reaper.",
		}),
		schedulesFired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "report_schedules_fired_total",
			Help: "Number of scheduled report executions triggered.",
		}),
	}
	m.registry.MustRegister(m.httpRequests, m.httpDuration, m.reportsGenerated, m.generationDuration, m.reaperDeleted, m.schedulesFired)
	return m
}

// Handler serves the Prometheus scrape endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveHTTP records one completed HTTP request.
func (m *Metrics) ObserveHTTP(method, path string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

// ReportGenerated records one successful generation.
func (m *Metrics) ReportGenerated(format string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.reportsGenerated.WithLabelValues(format).Inc()
	m.generationDuration.WithLabelValues(format).Observe(elapsed.Seconds())
}

// ArtifactsReaped records expired artifacts removed in one sweep.
func (m *Metrics) ArtifactsReaped(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.reaperDeleted.Add(float64(count))
}

// ScheduleFired records one triggered schedule execution.
func (m *Metrics) ScheduleFired() {
	if m == nil {
		return
	}
	m.schedulesFired.Inc()
}
