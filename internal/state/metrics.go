package state

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	effects *prometheus.CounterVec
	tasks   prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		effects: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tarefas_effects_total",
				Help: "Side effects of task mutations by effect, operation and outcome",
			},
			[]string{"effect", "op", "outcome"},
		),
		tasks: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tarefas_tasks",
			Help: "Number of tasks in the in-memory list",
		}),
	}
	m.effects = register(reg, m.effects)
	m.tasks = register(reg, m.tasks)
	return m
}

// register reuses an already registered collector so two stores can share
// one registry.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
	}
	return c
}

func (m *metrics) observe(effect, op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.effects.WithLabelValues(effect, op, outcome).Inc()
}
