// Package metrics holds the prometheus collectors for workflow dispatch.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "partnerflow"

// Outcome labels.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
	OutcomeStarted   = "started"
	OutcomeError     = "error"
)

type Metrics struct {
	registry  *prometheus.Registry
	dispatch  *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	fallbacks *prometheus.CounterVec
}

// New creates the collectors on a private registry together with the Go and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		dispatch: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflow_dispatch_total",
			Help:      "Workflow dispatches by workflow, execution mode and outcome.",
		}, []string{"workflow", "mode", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "workflow_dispatch_duration_seconds",
			Help:      "Time spent dispatching a workflow, including synchronous execution.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"workflow", "mode"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflow_fallback_total",
			Help:      "Dispatches that fell back to direct execution because the engine was unreachable.",
		}, []string{"workflow"}),
	}

	m.registry.MustRegister(
		m.dispatch,
		m.duration,
		m.fallbacks,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ObserveDispatch(workflow, mode, outcome string, elapsed time.Duration) {
	m.dispatch.WithLabelValues(workflow, mode, outcome).Inc()
	m.duration.WithLabelValues(workflow, mode).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveFallback(workflow string) {
	m.fallbacks.WithLabelValues(workflow).Inc()
}
