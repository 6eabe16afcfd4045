package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics are the service's Prometheus collectors, kept on a private registry
type Metrics struct {
	registry *prometheus.Registry

	Actions        *prometheus.CounterVec
	Restarts       *prometheus.CounterVec
	Retired        prometheus.Counter
	Dropped        prometheus.Counter
	Malformed      prometheus.Counter
	SnapshotErrors prometheus.Counter
	ActiveActors   prometheus.Gauge
}

// NewMetrics creates and registers all collectors
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "briscola",
			Name:      "actions_total",
			Help:      "Actions handled by game actors.",
		}, []string{"type", "status"}),
		Restarts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "briscola",
			Name:      "actor_restarts_total",
			Help:      "Actors replaced by the supervisor.",
		}, []string{"reason"}),
		Retired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "briscola",
			Name:      "actors_retired_total",
			Help:      "Actors stopped after sitting idle.",
		}),
		Dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "briscola",
			Name:      "actions_dropped_total",
			Help:      "Actions dropped because an actor mailbox was full.",
		}),
		Malformed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "briscola",
			Name:      "actions_malformed_total",
			Help:      "Inbound messages that could not be parsed.",
		}),
		SnapshotErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "briscola",
			Name:      "snapshot_errors_total",
			Help:      "Snapshots that failed to persist or load.",
		}),
		ActiveActors: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "briscola",
			Name:      "active_actors",
			Help:      "Game actors currently supervised.",
		}),
	}
	m.registry.MustRegister(
		m.Actions,
		m.Restarts,
		m.Retired,
		m.Dropped,
		m.Malformed,
		m.SnapshotErrors,
		m.ActiveActors,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the registry for tests and extra collectors
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
