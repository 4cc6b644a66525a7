// Package metrics exposes Prometheus instruments for the coordination core.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the orchestrator's instruments on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	AgentsRegistered    prometheus.Gauge
	Registrations       prometheus.Counter
	Heartbeats          *prometheus.CounterVec
	AgentsRemoved       prometheus.Counter
	ProbeFailures       prometheus.Counter
	Deployments         *prometheus.CounterVec
	SyncDistributions   *prometheus.CounterVec
	RateLimitRejections prometheus.Counter
}

// New creates and registers all instruments.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		AgentsRegistered: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "fleet",
			Name:      "agents_registered",
			Help:      "Number of agents currently in the agent table.",
		}),
		Registrations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fleet",
			Name:      "registrations_total",
			Help:      "Agent registrations, including re-registrations.",
		}),
		Heartbeats: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fleet",
			Name:      "heartbeats_total",
			Help:      "Heartbeats received, by whether the agent was known.",
		}, []string{"known"}),
		AgentsRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fleet",
			Name:      "agents_removed_total",
			Help:      "Agents removed by the staleness sweep.",
		}),
		ProbeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fleet",
			Name:      "health_probe_failures_total",
			Help:      "Health probes that failed or timed out.",
		}),
		Deployments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fleet",
			Name:      "deployments_total",
			Help:      "Deployments by terminal status.",
		}, []string{"status"}),
		SyncDistributions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fleet",
			Name:      "sync_distributions_total",
			Help:      "Per-agent sync snapshot distributions by result.",
		}, []string{"result"}),
		RateLimitRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fleet",
			Name:      "rate_limit_rejections_total",
			Help:      "Requests rejected by the rate limiter.",
		}),
	}
	reg.MustRegister(
		m.AgentsRegistered,
		m.Registrations,
		m.Heartbeats,
		m.AgentsRemoved,
		m.ProbeFailures,
		m.Deployments,
		m.SyncDistributions,
		m.RateLimitRejections,
		collectors.NewGoCollector(),
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the exposition format for the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
