// Package pipeline implements a generic three-stage batch pipeline engine:
// generation, processing, and collation worker pools decoupled by two FIFO
// queues and coordinated through a non-destructive sentinel protocol.
//
// # Overview
//
// The engine splits an unbounded stream of work into discrete batches,
// distributes them across a pool of processor workers, and merges results
// back into a caller-owned accumulator:
//
//	generators --> [pending queue] --> processors --> [processed queue] --> collators
//
// Each stage is an independently sized pool. Generators call a
// caller-supplied GenerateFunc until it reports end-of-source; processors
// run each batch via a ProcessFunc; collators fold completed batches into
// sink state via a CollateFunc. The engine decides nothing about what work
// is profitable to batch and implements no payload: those belong to the
// caller's functions and batch.RunFunc.
//
// # Termination Protocol
//
// End-of-work propagates stage to stage through a sentinel batch:
//
//  1. Each generator that exhausts its source decrements the stage's
//     remaining-worker counter. The last one pushes exactly one sentinel
//     onto the pending queue and clears the generation run-flag.
//  2. Processors peek before popping. A data batch at the head is claimed
//     with a guarded pop; the sentinel is never dequeued, so every
//     processor observes it no matter how many race for it. The last
//     processor to observe it pushes the single sentinel onto the
//     processed queue.
//  3. Collators mirror the same observation on the processed queue.
//     Collation is terminal: the last collator clears its run-flag and the
//     run is over.
//
// The protocol guarantees exactly one sentinel per queue per run, always
// last, regardless of pool sizes, which is what makes Wait's join safe for
// any configuration of at least one worker per stage.
//
// # Usage
//
//	cfg := pipeline.Config{Generators: 1, Processors: 4, Collators: 1}
//
//	var mu sync.Mutex
//	var results []int
//
//	p, err := pipeline.New(cfg,
//	    func(ctx context.Context, worker int) (batch.Batch[int, int], error) {
//	        n, ok := source.Next()
//	        if !ok {
//	            return batch.Sentinel[int, int](), nil
//	        }
//	        return batch.New(n, compute), nil
//	    },
//	    func(ctx context.Context, b batch.Batch[int, int]) error {
//	        return b.Run()
//	    },
//	    func(ctx context.Context, b batch.Batch[int, int]) error {
//	        out, err := b.Output()
//	        if err != nil {
//	            return err
//	        }
//	        mu.Lock()
//	        results = append(results, out)
//	        mu.Unlock()
//	        return nil
//	    },
//	)
//	if err != nil {
//	    return err
//	}
//
//	if err := p.Start(ctx); err != nil {
//	    return err
//	}
//	elapsed, err := p.Wait(30 * time.Second)
//
// # Failure Semantics
//
// A caller function that returns an error or panics is reported (structured
// log line plus handler-error counter) and the offending batch is dropped;
// the worker continues. One bad batch never takes down the pipeline, and
// the engine never retries; callers wanting retries wrap their handler
// with pkg/retry. A batch the processor leaves incomplete is silently
// dropped, by contract.
//
// Cancellation (Cancel, a Wait timeout, or the Start context) is
// cooperative: loops observe the signal each iteration, in-flight Run and
// merge calls finish, and Wait returns normally with whatever work
// completed. The only caller-visible error is an argument-classified one at
// construction.
//
// # Concurrency Notes
//
// Batches transfer ownership through the queues; caller state is the
// caller's to synchronize. The CollateFunc in particular runs concurrently
// on every collator worker. An idle stage polls its queue with a short
// back-off (WithPollInterval); there is no blocking wait-for-data.
// Ordering between batches from different generators is unspecified;
// callers needing strict order should carry a sequence number in the batch
// input and restore order downstream.
package pipeline
