// Package batchkit provides a generic engine for splitting large workloads
// into batches and running them through a three-stage concurrent pipeline:
// generation, processing, and collation.
//
// # Architecture
//
// The module is organized in layers:
//
// Core engine:
//   - batch: the Batch contract (Input/Output/Done/Run), concrete units, and
//     the sentinel used for termination signalling
//   - pipeline: the three-stage engine with worker pools, lifecycle control
//     (Start/Cancel/Wait), and per-run statistics
//
// Infrastructure:
//   - errors: classified error handling shared by every package
//   - metric: Prometheus metrics registry and HTTP exposition
//   - pkg/queue: the concurrent FIFO queue with non-destructive Peek that
//     the sentinel protocol relies on
//   - pkg/retry: exponential-backoff retries for caller handlers
//
// The engine carries no payload of its own. Callers define what a batch
// computes (batch.RunFunc), where batches come from (pipeline.GenerateFunc),
// and where results go (pipeline.CollateFunc); the pipeline supplies the
// concurrency, termination, and failure handling around them.
//
// # Quick Start
//
//	p, err := pipeline.New(pipeline.Config{Generators: 1, Processors: 4, Collators: 1},
//	    generate, process, collate)
//	if err != nil {
//	    return err
//	}
//	if err := p.Start(ctx); err != nil {
//	    return err
//	}
//	elapsed, err := p.Wait(time.Minute)
//
// See the pipeline package documentation for the full contract, including
// the termination protocol and failure semantics.
package batchkit
