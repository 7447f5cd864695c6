// Package queue provides a generic, thread-safe FIFO queue with non-destructive peek.
//
// # Overview
//
// Queue is the decoupling structure between pipeline stages: generators push
// pending batches, processors pop them and push completed ones, collators
// drain the processed queue. It offers:
//   - MPMC safety: all operations are safe under concurrent producers and consumers
//   - FIFO ordering: successful pushes are popped in order across producers
//   - Non-destructive Peek: the head stays visible to every racing consumer
//   - Growable ring storage: pushes never block and never drop
//   - Dual-tracking observability (always-on statistics + optional Prometheus metrics)
//
// # Peek Semantics
//
// Peek is the load-bearing operation for the pipeline's sentinel protocol.
// The end-of-stream sentinel is pushed exactly once per queue and must be
// observed by every consumer of that queue, so consumers peek before they
// pop: a sentinel at the head is left in place, a data item is popped and
// owned by whichever consumer won the race. Repeated peeks of the same head
// return the same item. PopIf closes the peek-then-pop race entirely by
// checking and removing the head under one critical section.
//
// # Usage
//
//	q, err := queue.New[batch.Batch[int, int]](
//	    queue.WithInitialCapacity[batch.Batch[int, int]](256),
//	)
//	if err != nil {
//	    return err
//	}
//
//	_ = q.Push(b)
//	if head, ok := q.Peek(); ok && batch.IsSentinel(head) {
//	    // stage finished; leave the sentinel for peers
//	}
//
// With Prometheus metrics:
//
//	registry := metric.NewMetricsRegistry()
//	q, err := queue.New[task](
//	    queue.WithMetrics[task](registry, "pending"),
//	)
//
// # Design Notes
//
// Close only rejects further pushes; remaining items stay poppable so a
// downstream stage can drain after its upstream has terminated. An empty
// queue returns false from Pop and Peek rather than blocking; waiting
// strategy (poll interval, rate limits) belongs to the caller's loop.
package queue
