package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// WorkflowMetrics records metadata for scheduled polling workflows.
type WorkflowMetrics struct {
	duration *prometheus.HistogramVec
	success  *prometheus.CounterVec
	failure  *prometheus.CounterVec
	skipped  *prometheus.CounterVec
}

// NewWorkflowMetrics registers the workflow metrics on the provided registerer.
func NewWorkflowMetrics(reg prometheus.Registerer) *WorkflowMetrics {
	if reg == nil {
		return &WorkflowMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "workflow_duration_seconds",
		Help:    "Duration of scheduled workflow cycles in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"workflow"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "workflow_success",
		Help: "Successful workflow cycles.",
	}, []string{"workflow"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "workflow_failure",
		Help: "Failed workflow cycles.",
	}, []string{"workflow"})
	skipped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "workflow_skipped",
		Help: "Workflow cycles skipped because the workflow switch is off.",
	}, []string{"workflow"})
	reg.MustRegister(duration, success, failure, skipped)
	return &WorkflowMetrics{
		duration: duration,
		success:  success,
		failure:  failure,
		skipped:  skipped,
	}
}

// ObserveDuration records the cycle duration for the named workflow.
func (w *WorkflowMetrics) ObserveDuration(workflow string, duration time.Duration) {
	if w == nil || w.duration == nil {
		return
	}
	w.duration.WithLabelValues(normalizeLabel(workflow)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for the named workflow.
func (w *WorkflowMetrics) IncSuccess(workflow string) {
	if w == nil || w.success == nil {
		return
	}
	w.success.WithLabelValues(normalizeLabel(workflow)).Inc()
}

// IncFailure increments the failure counter for the named workflow.
func (w *WorkflowMetrics) IncFailure(workflow string) {
	if w == nil || w.failure == nil {
		return
	}
	w.failure.WithLabelValues(normalizeLabel(workflow)).Inc()
}

// IncSkipped increments the skipped counter for the named workflow.
func (w *WorkflowMetrics) IncSkipped(workflow string) {
	if w == nil || w.skipped == nil {
		return
	}
	w.skipped.WithLabelValues(normalizeLabel(workflow)).Inc()
}

func normalizeLabel(workflow string) string {
	if workflow == "" {
		return "unknown"
	}
	return workflow
}
