package telemetry

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/fruitstand/backend/internal/domain/shared"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every store metric
const Namespace = "fruitstand"

// HTTPDurationBuckets are bucket boundaries for HTTP request duration (seconds).
var HTTPDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

// StoreMetrics is the Prometheus registry scraped on /metrics.
type StoreMetrics struct {
	registry *prometheus.Registry

	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	paymentIntents *prometheus.CounterVec
	webhookEvents  *prometheus.CounterVec
	domainEvents   *prometheus.CounterVec
	sweepRuns      *prometheus.CounterVec
	sweepAffected  *prometheus.CounterVec
}

// NewStoreMetrics creates a registry with the store collectors plus the Go
// runtime and process collectors.
func NewStoreMetrics() *StoreMetrics {
	m := &StoreMetrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds.",
			Buckets:   HTTPDurationBuckets,
		}, []string{"method", "route"}),
		paymentIntents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "checkout",
			Name:      "payment_intents_total",
			Help:      "Payment intents created or refreshed, by result.",
		}, []string{"result"}),
		webhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "checkout",
			Name:      "webhook_events_total",
			Help:      "Payment webhook events by type and outcome.",
		}, []string{"type", "outcome"}),
		domainEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "domain_events_total",
			Help:      "Domain events published on the event bus.",
		}, []string{"type"}),
		sweepRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "scheduler",
			Name:      "job_runs_total",
			Help:      "Housekeeping job runs by job and result.",
		}, []string{"job", "result"}),
		sweepAffected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "scheduler",
			Name:      "job_affected_total",
			Help:      "Records removed or cancelled by housekeeping jobs.",
		}, []string{"job"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.paymentIntents,
		m.webhookEvents,
		m.domainEvents,
		m.sweepRuns,
		m.sweepAffected,
	)
	return m
}

// Registry exposes the underlying registry
func (m *StoreMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *StoreMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveHTTP records one served request. route is the matched route
// template, never the raw path.
func (m *StoreMetrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// PaymentIntent counts an intent create/refresh attempt
func (m *StoreMetrics) PaymentIntent(result string) {
	m.paymentIntents.WithLabelValues(result).Inc()
}

// WebhookEvent counts a processed gateway event
func (m *StoreMetrics) WebhookEvent(eventType, outcome string) {
	m.webhookEvents.WithLabelValues(eventType, outcome).Inc()
}

// ObserveJob matches the scheduler observer signature
func (m *StoreMetrics) ObserveJob(name string, affected int, err error, _ time.Duration) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.sweepRuns.WithLabelValues(name, result).Inc()
	if affected > 0 {
		m.sweepAffected.WithLabelValues(name).Add(float64(affected))
	}
}

// EventCounter returns an event bus handler counting every domain event
func (m *StoreMetrics) EventCounter() shared.EventHandler {
	return eventCounter{m.domainEvents}
}

type eventCounter struct {
	counter *prometheus.CounterVec
}

func (c eventCounter) Handle(_ context.Context, event shared.DomainEvent) error {
	c.counter.WithLabelValues(event.EventType()).Inc()
	return nil
}

func (eventCounter) EventTypes() []string { return nil }
