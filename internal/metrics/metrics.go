// Package metrics exposes Prometheus counters/histograms for task and
// workflow execution, served over a dedicated HTTP handler.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// durationBuckets mirrors the bucket boundaries the orchestrator's
// external metrics contract specifies.
var durationBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 300}

// Collector bundles the registered metrics. Callers update the exported
// metric fields directly and serve the registry through Handler.
type Collector struct {
	registry *prometheus.Registry

	TasksTotal       *prometheus.CounterVec
	TaskDuration     *prometheus.HistogramVec
	ExecutionsTotal  *prometheus.CounterVec
	ActiveExecutions prometheus.Gauge
}

// New registers a fresh metric set on its own registry.
func New() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		registry: reg,
		TasksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "coreflow",
			Name:      "tasks_total",
			Help:      "Total number of task attempts, labeled by task type and outcome status.",
		}, []string{"type", "status"}),
		TaskDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "coreflow",
			Name:      "task_duration_seconds",
			Help:      "Task execution duration in seconds.",
			Buckets:   durationBuckets,
		}, []string{"type"}),
		ExecutionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "coreflow",
			Name:      "executions_total",
			Help:      "Total number of workflow executions, labeled by outcome status.",
		}, []string{"status"}),
		ActiveExecutions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "coreflow",
			Name:      "active_executions",
			Help:      "Number of workflow executions currently running.",
		}),
	}

	reg.MustRegister(c.TasksTotal, c.TaskDuration, c.ExecutionsTotal, c.ActiveExecutions)
	return c
}

// Handler returns the HTTP handler to mount at /metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
