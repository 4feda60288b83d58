package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for both processes.
// Every method is safe on a nil receiver.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	submissions     *prometheus.CounterVec
	decisions       *prometheus.CounterVec
	forwards        *prometheus.CounterVec
	notifications   *prometheus.CounterVec
	interactions    *prometheus.HistogramVec
	leads           *prometheus.CounterVec
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	submissions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "workflow_submissions_total",
		Help: "Report submissions by kind and outcome",
	}, []string{"kind", "outcome"})

	decisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "workflow_decisions_total",
		Help: "Recorded reviewer decisions by kind and status",
	}, []string{"kind", "status"})

	forwards := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "workflow_forwards_total",
		Help: "Stage forwards by source, destination and outcome",
	}, []string{"from", "to", "outcome"})

	notifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "workflow_notifications_total",
		Help: "Author direct messages by outcome",
	}, []string{"outcome"})

	interactions := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bot_interaction_duration_seconds",
		Help:    "Duration of bot interaction handlers",
		Buckets: prometheus.DefBuckets,
	}, []string{"handler", "outcome"})

	leads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lead_requests_total",
		Help: "Lead submissions by outcome",
	}, []string{"outcome"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, submissions, decisions, forwards, notifications, interactions, leads, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		submissions:     submissions,
		decisions:       decisions,
		forwards:        forwards,
		notifications:   notifications,
		interactions:    interactions,
		leads:           leads,
	}
}

// Registry exposes the underlying registry.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordSubmission counts a report submission attempt.
func (m *MetricsService) RecordSubmission(kind, outcome string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(kind, outcome).Inc()
}

// RecordDecision counts a committed decision.
func (m *MetricsService) RecordDecision(kind, status string) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(kind, status).Inc()
}

// RecordForward counts a stage forward attempt.
func (m *MetricsService) RecordForward(from, to, outcome string) {
	if m == nil {
		return
	}
	m.forwards.WithLabelValues(from, to, outcome).Inc()
}

// RecordNotification counts an author notification attempt.
func (m *MetricsService) RecordNotification(outcome string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(outcome).Inc()
}

// ObserveInteraction records how long a bot handler ran.
func (m *MetricsService) ObserveInteraction(handler, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.interactions.WithLabelValues(handler, outcome).Observe(duration.Seconds())
}

// RecordLead counts a lead request outcome.
func (m *MetricsService) RecordLead(outcome string) {
	if m == nil {
		return
	}
	m.leads.WithLabelValues(outcome).Inc()
}
