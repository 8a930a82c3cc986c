package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for the bot.
type Metrics struct {
	EventsReceived *prometheus.CounterVec // labels: kind={text,location,command}
	RepliesSent    prometheus.Counter
	// RepliesDiscarded counts replies dropped because the session was cancelled
	// while they were being produced.
	RepliesDiscarded prometheus.Counter
	DeliveryErrors   prometheus.Counter

	FetchRequests *prometheus.CounterVec   // labels: source={current,resolve,geocode,air_pollution,onecall}, outcome={ok,error,timeout,circuit_open}
	FetchDuration *prometheus.HistogramVec // labels: source

	Lookups *prometheus.CounterVec // labels: kind={coordinates,city}, outcome={ok,not_available}

	ActiveSessionWorkers prometheus.Gauge
	SessionsEvicted      prometheus.Counter
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.EventsReceived,
		m.RepliesSent,
		m.RepliesDiscarded,
		m.DeliveryErrors,
		m.FetchRequests,
		m.FetchDuration,
		m.Lookups,
		m.ActiveSessionWorkers,
		m.SessionsEvicted,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		EventsReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weather_bot",
			Name:      "events_received_total",
			Help:      "Inbound chat events by kind.",
		}, []string{"kind"}),
		RepliesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_bot",
			Name:      "replies_sent_total",
			Help:      "Outbound replies handed to a transport.",
		}),
		RepliesDiscarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_bot",
			Name:      "replies_discarded_total",
			Help:      "Replies dropped because their session was cancelled first.",
		}),
		DeliveryErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_bot",
			Name:      "delivery_errors_total",
			Help:      "Replies the transport failed to deliver.",
		}),
		FetchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weather_bot",
			Name:      "fetch_requests_total",
			Help:      "Weather provider calls by source and outcome.",
		}, []string{"source", "outcome"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "weather_bot",
			Name:      "fetch_duration_seconds",
			Help:      "Weather provider call duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"source"}),
		Lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weather_bot",
			Name:      "lookups_total",
			Help:      "Weather report lookups by kind and outcome.",
		}, []string{"kind", "outcome"}),
		ActiveSessionWorkers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "weather_bot",
			Name:      "active_session_workers",
			Help:      "Sessions currently draining their event queue.",
		}),
		SessionsEvicted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_bot",
			Name:      "sessions_evicted_total",
			Help:      "Idle sessions removed by the sweeper.",
		}),
	}
}
