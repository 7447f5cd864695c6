package queue

import (
	"github.com/c360/batchkit/metric"
)

const defaultInitialCapacity = 64

// Option configures queue behavior using the functional options pattern.
type Option[T any] func(*queueOptions[T])

// queueOptions holds internal configuration for queue instances.
// Statistics are always collected; metrics are optional.
type queueOptions[T any] struct {
	initialCapacity int

	// metricsReg is optional - if provided, queue stats are also exposed
	// as Prometheus metrics under metricsPrefix.
	metricsReg    *metric.MetricsRegistry
	metricsPrefix string
}

// WithInitialCapacity sets the starting ring capacity. The queue still grows
// past it on demand; sizing it to the expected depth avoids early copies.
func WithInitialCapacity[T any](capacity int) Option[T] {
	return func(opts *queueOptions[T]) {
		if capacity > 0 {
			opts.initialCapacity = capacity
		}
	}
}

// WithMetrics enables Prometheus metrics export for queue statistics.
// If registry is nil or prefix is empty, the option is ignored.
func WithMetrics[T any](registry *metric.MetricsRegistry, prefix string) Option[T] {
	return func(opts *queueOptions[T]) {
		if registry != nil && prefix != "" {
			opts.metricsReg = registry
			opts.metricsPrefix = prefix
		}
	}
}

// applyOptions applies functional options to produce final configuration.
func applyOptions[T any](options ...Option[T]) *queueOptions[T] {
	opts := &queueOptions[T]{
		initialCapacity: defaultInitialCapacity,
	}

	for _, opt := range options {
		if opt != nil {
			opt(opts)
		}
	}

	return opts
}
