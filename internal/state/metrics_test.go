package state

import (
	"testing"

	"github.com/Makepad-fr/tarefas/internal/kv"
	"github.com/Makepad-fr/tarefas/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func prometheusRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

func TestMetrics_SharedRegistry(t *testing.T) {
	reg := prometheusRegistry()
	a := New(kv.NewMemory(), nil, WithRegisterer(reg), WithLogger(logging.NewNop()))
	b := New(kv.NewMemory(), nil, WithRegisterer(reg), WithLogger(logging.NewNop()))

	assert.Same(t, a.metrics.effects, b.metrics.effects)
}

func TestMetrics_TaskGauge(t *testing.T) {
	s := newTestStore(t, kv.NewMemory(), &recSink{})
	s.Add("one")
	s.Add("two")

	assert.Equal(t, 2.0, testutil.ToFloat64(s.metrics.tasks))
}
