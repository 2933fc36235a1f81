// Package metrics exposes Prometheus instrumentation for gate decisions.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	decisions *prometheus.CounterVec
	failOpen  prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		decisions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "eventgate_gate_decisions_total",
				Help: "Admission decisions by pipeline stage and outcome.",
			},
			[]string{"stage", "outcome"},
		),
		failOpen: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "eventgate_gate_ratelimit_failopen_total",
				Help: "Requests admitted without a rate check because the counter store was unreachable.",
			},
		),
	}
}

func (m *Metrics) RecordDecision(stage, outcome string) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(stage, outcome).Inc()
}

func (m *Metrics) RecordFailOpen() {
	if m == nil {
		return
	}
	m.failOpen.Inc()
}
