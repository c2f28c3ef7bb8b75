// Package metrics exposes orchestrator counters on the Prometheus registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the orchestrator's Prometheus collectors.
type Metrics struct {
	WorkflowsSubmitted prometheus.Counter
	WorkflowsRevoked   prometheus.Counter
	TasksEnqueued      prometheus.Counter
	TasksProcessed     *prometheus.CounterVec
}

// New registers the collectors on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		WorkflowsSubmitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "drama_workflows_submitted_total",
			Help: "Workflows accepted by the scheduler.",
		}),
		WorkflowsRevoked: factory.NewCounter(prometheus.CounterOpts{
			Name: "drama_workflows_revoked_total",
			Help: "Workflow revocations requested.",
		}),
		TasksEnqueued: factory.NewCounter(prometheus.CounterOpts{
			Name: "drama_tasks_enqueued_total",
			Help: "Tasks pushed onto the job queue.",
		}),
		TasksProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "drama_tasks_processed_total",
			Help: "Tasks finished by workers, by terminal status.",
		}, []string{"status"}),
	}
}

// NewDefault registers on the default Prometheus registry.
func NewDefault() *Metrics {
	return New(prometheus.DefaultRegisterer)
}

// Noop returns metrics backed by a throwaway registry. Used in tests.
func Noop() *Metrics {
	return New(prometheus.NewRegistry())
}
