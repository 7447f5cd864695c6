package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains all engine-level metrics (not payload-specific)
type Metrics struct {
	// RunStatus reports the pipeline lifecycle state
	// (0=created, 1=running, 2=cancelling, 3=joined).
	RunStatus *prometheus.GaugeVec

	// StageWorkers reports the number of live workers per stage.
	StageWorkers *prometheus.GaugeVec

	// BatchesTotal counts batches moving through each stage by outcome.
	BatchesTotal *prometheus.CounterVec

	// HandlerErrors counts failures raised by caller-supplied functions.
	HandlerErrors *prometheus.CounterVec

	// BatchDuration observes per-batch handling time per stage.
	BatchDuration *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance with all engine metrics
func NewMetrics() *Metrics {
	return &Metrics{
		RunStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "batchkit",
				Subsystem: "pipeline",
				Name:      "run_status",
				Help:      "Pipeline run status (0=created, 1=running, 2=cancelling, 3=joined)",
			},
			[]string{"run"},
		),

		StageWorkers: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "batchkit",
				Subsystem: "pipeline",
				Name:      "stage_workers",
				Help:      "Number of live workers per stage",
			},
			[]string{"run", "stage"},
		),

		BatchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "batchkit",
				Subsystem: "pipeline",
				Name:      "batches_total",
				Help:      "Total batches handled per stage by outcome",
			},
			[]string{"run", "stage", "status"},
		),

		HandlerErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "batchkit",
				Subsystem: "pipeline",
				Name:      "handler_errors_total",
				Help:      "Total errors raised by caller-supplied stage functions",
			},
			[]string{"run", "stage"},
		),

		BatchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "batchkit",
				Subsystem: "pipeline",
				Name:      "batch_duration_seconds",
				Help:      "Time spent handling one batch in a stage",
				Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
			},
			[]string{"run", "stage"},
		),
	}
}
