package observability

import (
	"context"
	"net/http"

	"github.com/aretw0/autopilot/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "autopilot"

// Metrics holds the engine collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	NodeVisits     *prometheus.CounterVec
	ActionDuration *prometheus.HistogramVec
	ActionErrors   *prometheus.CounterVec
	ActionsSkipped *prometheus.CounterVec
	RunsFinished   *prometheus.CounterVec
}

// NewMetrics creates and registers the collectors. Go runtime and process
// collectors are registered as well so /metrics is useful on its own.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		NodeVisits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "node_visits_total",
				Help:      "Total number of node visits",
			},
			[]string{"unit_id", "kind"},
		),
		ActionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "action_duration_seconds",
				Help:      "Duration of action executions",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"kind"},
		),
		ActionErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "action_errors_total",
				Help:      "Actions that failed and ended their run",
			},
			[]string{"kind"},
		),
		ActionsSkipped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "actions_skipped_total",
				Help:      "Actions skipped without failing the run",
			},
			[]string{"kind"},
		),
		RunsFinished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_finished_total",
				Help:      "Unit runs by terminal status",
			},
			[]string{"unit_id", "status"},
		),
	}
	m.registry.MustRegister(
		m.NodeVisits, m.ActionDuration, m.ActionErrors, m.ActionsSkipped, m.RunsFinished,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry, e.g. for extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Hooks returns lifecycle hooks that record into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(_ context.Context, e *domain.NodeEvent) {
			m.NodeVisits.WithLabelValues(e.UnitID, string(e.Kind)).Inc()
		},
		OnNodeLeave: func(_ context.Context, e *domain.NodeEvent) {
			m.ActionDuration.WithLabelValues(string(e.Kind)).Observe(e.Duration.Seconds())
			if e.Err != nil {
				m.ActionErrors.WithLabelValues(string(e.Kind)).Inc()
			}
		},
		OnActionSkipped: func(_ context.Context, e *domain.SkipEvent) {
			m.ActionsSkipped.WithLabelValues(string(e.Kind)).Inc()
		},
		OnRunFinished: func(_ context.Context, e *domain.RunEvent) {
			m.RunsFinished.WithLabelValues(e.UnitID, string(e.Status)).Inc()
		},
	}
}
