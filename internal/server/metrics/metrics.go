// Package metrics exposes Prometheus counters for authentication outcomes.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "honeykeeper"

type Metrics struct {
	registry *prometheus.Registry

	AuthOutcomes       *prometheus.CounterVec
	Breaches           prometheus.Counter
	PolicyActions      *prometheus.CounterVec
	HoneycheckerErrors prometheus.Counter
	Remarks            prometheus.Counter
}

// New builds a private registry with the process and Go collectors plus
// the honeykeeper counters.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		AuthOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_attempts_total",
			Help:      "Authentication attempts by outcome.",
		}, []string{"outcome"}),
		Breaches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "breaches_total",
			Help:      "Honeyword submissions detected.",
		}),
		PolicyActions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "policy_actions_total",
			Help:      "Actions taken after a breach.",
		}, []string{"action"}),
		HoneycheckerErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "honeychecker_errors_total",
			Help:      "Failed honeychecker calls.",
		}),
		Remarks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "amnesia_remarks_total",
			Help:      "Amnesia remark rounds triggered by a successful login.",
		}),
	}
	reg.MustRegister(m.AuthOutcomes, m.Breaches, m.PolicyActions, m.HoneycheckerErrors, m.Remarks)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
