package pipeline

import (
	"github.com/c360/batchkit/metric"
)

// pipelineMetrics binds the registry's core engine metrics to one run. A nil
// receiver disables every method, so call sites never branch on whether
// metrics were configured.
type pipelineMetrics struct {
	core *metric.Metrics
	run  string
}

// newPipelineMetrics returns nil when no registry was supplied.
func newPipelineMetrics(registry *metric.MetricsRegistry, runID string) *pipelineMetrics {
	if registry == nil {
		return nil
	}
	return &pipelineMetrics{
		core: registry.CoreMetrics(),
		run:  runID,
	}
}

// setRunStatus records the lifecycle state transition.
func (m *pipelineMetrics) setRunStatus(s State) {
	if m == nil {
		return
	}
	m.core.RunStatus.WithLabelValues(m.run).Set(float64(s))
}

// setWorkers records the live worker count for a stage.
func (m *pipelineMetrics) setWorkers(stage Stage, n int) {
	if m == nil {
		return
	}
	m.core.StageWorkers.WithLabelValues(m.run, string(stage)).Set(float64(n))
}

// recordBatch counts one batch outcome for a stage.
func (m *pipelineMetrics) recordBatch(stage Stage, status string) {
	if m == nil {
		return
	}
	m.core.BatchesTotal.WithLabelValues(m.run, string(stage), status).Inc()
}

// recordHandlerError counts a caller-function failure for a stage.
func (m *pipelineMetrics) recordHandlerError(stage Stage) {
	if m == nil {
		return
	}
	m.core.HandlerErrors.WithLabelValues(m.run, string(stage)).Inc()
}

// recordDuration observes per-batch handling time for a stage.
func (m *pipelineMetrics) recordDuration(stage Stage, seconds float64) {
	if m == nil {
		return
	}
	m.core.BatchDuration.WithLabelValues(m.run, string(stage)).Observe(seconds)
}
