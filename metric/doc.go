// Package metric provides Prometheus metrics management for the batchkit engine.
//
// # Overview
//
// The package wraps a private Prometheus registry with duplicate-checked,
// per-component registration. Core engine metrics (run status, live workers
// per stage, batch throughput, handler errors, per-batch duration) are
// created and registered automatically; components register their own
// metrics under a "component.metric" key so conflicting registrations fail
// with a classified error instead of a Prometheus panic.
//
// # Usage
//
// Create one registry per process and share it:
//
//	registry := metric.NewMetricsRegistry()
//
//	p, err := pipeline.New(cfg, gen, proc, col,
//	    pipeline.WithMetricsRegistry[int, int](registry, "primes"),
//	)
//
// Expose metrics over HTTP:
//
//	mux.Handle("/metrics", registry.Handler())
//
// # Dual-Tracking Pattern
//
// Following the framework pattern, internal statistics (atomic counters on
// queues and the pipeline) are always collected; Prometheus metrics are an
// optional export layer on top. Nothing in the engine requires a registry
// to function.
package metric
