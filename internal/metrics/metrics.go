// Package metrics defines the Prometheus instruments exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "weather_api"

// Metrics holds the Prometheus counters and histograms for the API and worker.
type Metrics struct {
	// HTTP metrics.
	HTTPRequests *prometheus.CounterVec   // labels: method, route, status
	HTTPDuration *prometheus.HistogramVec // labels: method, route

	// Domain metrics.
	EntitiesCreated   *prometheus.CounterVec // labels: entity={city,weather_record,weather_alert}
	RequestsRejected  *prometheus.CounterVec // labels: entity, kind={invalid_input,conflict,not_found}
	AlertsDeactivated prometheus.Counter

	// Event and worker metrics.
	EventsPublished *prometheus.CounterVec // labels: type, outcome={success,error}
	ExpirySweeps    *prometheus.CounterVec // labels: outcome={success,error}
	AlertsExpired   prometheus.Counter
}

func newMetrics(withHelp bool) *Metrics {
	help := func(s string) string {
		if withHelp {
			return s
		}
		return ""
	}
	return &Metrics{
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      help("HTTP requests by method, route and status code."),
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      help("HTTP request latency by method and route."),
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"method", "route"}),
		EntitiesCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entities_created_total",
			Help:      help("Entities persisted by type."),
		}, []string{"entity"}),
		RequestsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_rejected_total",
			Help:      help("Service calls rejected by entity and error kind."),
		}, []string{"entity", "kind"}),
		AlertsDeactivated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_deactivated_total",
			Help:      help("Alerts explicitly deactivated."),
		}),
		EventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alert_events_published_total",
			Help:      help("Alert lifecycle events published by type and outcome."),
		}, []string{"type", "outcome"}),
		ExpirySweeps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alert_expiry_sweeps_total",
			Help:      help("Alert expiry sweep runs by outcome."),
		}, []string{"outcome"}),
		AlertsExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_expired_total",
			Help:      help("Alerts found past their end time by the expiry sweep."),
		}),
	}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics(true)
	prometheus.MustRegister(
		m.HTTPRequests,
		m.HTTPDuration,
		m.EntitiesCreated,
		m.RequestsRejected,
		m.AlertsDeactivated,
		m.EventsPublished,
		m.ExpirySweeps,
		m.AlertsExpired,
	)
	return m
}

// NewMetricsForTesting creates unregistered metrics so tests can build as
// many as they like without "already registered" panics.
func NewMetricsForTesting() *Metrics {
	return newMetrics(false)
}
