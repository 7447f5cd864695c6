// Package batch defines the minimal unit-of-work contract the pipeline
// engine operates on.
//
// # Overview
//
// A Batch pairs an immutable input with the function that computes its
// output. The contract is deliberately small:
//
//	type Batch[I, O any] interface {
//	    Input() (I, error)
//	    Output() (O, error)
//	    Done() bool
//	    Run() error
//	}
//
// Unit is the standard implementation; callers construct one per unit of
// work:
//
//	b := batch.New(42, func(n int) (string, error) {
//	    return strconv.Itoa(n), nil
//	})
//
// # Ownership
//
// A batch has exactly one owner at a time: the generator that creates it,
// then the processor that dequeues it, then the collator it is handed to.
// The handoff happens through the pipeline queues, whose internal
// synchronization publishes the batch state to the next owner. Batches
// therefore carry no locks, and Output must not be read until Done reports
// true.
//
// # Sentinel
//
// Sentinel returns the distinguished end-of-stream marker used by the
// pipeline's termination protocol. It satisfies Batch but carries no data;
// Input, Output, and Run on a sentinel return a state-classified error
// rather than silently producing zero values. Done on a sentinel is always
// true, which keeps repeated peeks by racing workers idempotent.
//
// Misreads of the contract are programmer errors and are classified as such
// by the errors package; they are never retried or absorbed by the engine.
package batch
