// Package metrics registers the Prometheus collectors the Orchestrator
// updates as it drives a run: counts of objects by terminal outcome,
// repair attempts, deploy latency, and how deep the dependency fixpoint
// had to dig before a cycle made no further progress.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "oramigrate"

// Registry bundles every collector the migration pipeline emits, so a
// caller registers once and passes the struct down rather than reaching
// for package-level globals.
type Registry struct {
	ObjectsTotal      *prometheus.CounterVec
	RepairAttempts    *prometheus.CounterVec
	DeployDuration    *prometheus.HistogramVec
	DependencyCycles  prometheus.Histogram
	DependencyPending prometheus.Gauge
	RowsCopied        *prometheus.CounterVec
}

// New registers every collector against reg and returns the handles the
// Orchestrator uses to record observations. Passing prometheus.NewRegistry()
// keeps tests isolated from the process-wide default registry.
func New(reg prometheus.Registerer) *Registry {
	factory := promauto.With(reg)
	return &Registry{
		ObjectsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "objects_total",
			Help:      "Objects driven through the pipeline, by kind and terminal outcome.",
		}, []string{"kind", "outcome"}),
		RepairAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "repair_attempts_total",
			Help:      "Repair Controller attempts, by object kind and resulting error category.",
		}, []string{"kind", "category"}),
		DeployDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "deploy_duration_seconds",
			Help:      "Time spent in one Deployer.Deploy call, by object kind.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
		DependencyCycles: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dependency_cycles",
			Help:      "Number of retry cycles the Dependency Manager ran before reaching a fixpoint.",
			Buckets:   []float64{1, 2, 3, 5, 8, 13},
		}),
		DependencyPending: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dependency_pending",
			Help:      "Objects still queued in the Dependency Manager when the last run ended.",
		}),
		RowsCopied: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_copied_total",
			Help:      "Rows copied by the Data Copier, by table.",
		}, []string{"table"}),
	}
}

// ObserveOutcome increments ObjectsTotal for one terminal state.
func (r *Registry) ObserveOutcome(kind, outcome string) {
	r.ObjectsTotal.WithLabelValues(kind, outcome).Inc()
}

// ObserveRepairAttempt increments RepairAttempts for one root-cause category.
func (r *Registry) ObserveRepairAttempt(kind, category string) {
	r.RepairAttempts.WithLabelValues(kind, category).Inc()
}

// ObserveDeploy records one Deploy call's wall time in seconds.
func (r *Registry) ObserveDeploy(kind string, seconds float64) {
	r.DeployDuration.WithLabelValues(kind).Observe(seconds)
}
