package queue

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/batchkit/metric"
)

// queueMetrics holds Prometheus metrics for queue operations.
type queueMetrics struct {
	pushes prometheus.Counter
	pops   prometheus.Counter
	peeks  prometheus.Counter
	depth  prometheus.Gauge
}

// newQueueMetrics creates and registers queue metrics with the provided registry.
func newQueueMetrics(registry *metric.MetricsRegistry, prefix string) (*queueMetrics, error) {
	m := &queueMetrics{
		pushes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "batchkit",
			Subsystem:   "queue",
			Name:        "pushes_total",
			ConstLabels: prometheus.Labels{"queue": prefix},
			Help:        "Total number of queue push operations",
		}),
		pops: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "batchkit",
			Subsystem:   "queue",
			Name:        "pops_total",
			ConstLabels: prometheus.Labels{"queue": prefix},
			Help:        "Total number of queue pop operations",
		}),
		peeks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "batchkit",
			Subsystem:   "queue",
			Name:        "peeks_total",
			ConstLabels: prometheus.Labels{"queue": prefix},
			Help:        "Total number of queue peek operations",
		}),
		depth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "batchkit",
			Subsystem:   "queue",
			Name:        "depth",
			ConstLabels: prometheus.Labels{"queue": prefix},
			Help:        "Current number of items in the queue",
		}),
	}

	if err := registry.RegisterCounter(prefix, "queue_pushes", m.pushes); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter(prefix, "queue_pops", m.pops); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter(prefix, "queue_peeks", m.peeks); err != nil {
		return nil, err
	}
	if err := registry.RegisterGauge(prefix, "queue_depth", m.depth); err != nil {
		return nil, err
	}

	return m, nil
}

// recordPush increments the push counter and updates depth.
func (m *queueMetrics) recordPush(depth int) {
	m.pushes.Inc()
	m.depth.Set(float64(depth))
}

// recordPop increments the pop counter and updates depth.
func (m *queueMetrics) recordPop(depth int) {
	m.pops.Inc()
	m.depth.Set(float64(depth))
}

// recordPeek increments the peek counter.
func (m *queueMetrics) recordPeek() {
	m.peeks.Inc()
}
