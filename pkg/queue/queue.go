// Package queue provides a generic, thread-safe FIFO queue with
// non-destructive peek, used to decouple the pipeline stages.
package queue

import (
	"sync"

	"github.com/c360/batchkit/errors"
)

// Queue is a multi-producer/multi-consumer FIFO queue backed by a growable
// ring. FIFO order of successful pushes is preserved across producers. Peek
// returns the head without removing it, which is what the pipeline's
// sentinel protocol relies on: every worker in a stage can observe the
// sentinel without consuming it.
type Queue[T any] struct {
	mu    sync.RWMutex
	items []T
	head  int // next read position
	tail  int // next write position
	size  int

	closed bool

	stats   *Statistics   // always initialized
	metrics *queueMetrics // optional Prometheus export
}

// New creates a queue with the supplied options. Statistics are always
// collected; Prometheus metrics are opt-in via WithMetrics. Returns an
// error if metrics registration fails when requested.
func New[T any](options ...Option[T]) (*Queue[T], error) {
	opts := applyOptions(options...)

	var metrics *queueMetrics
	if opts.metricsReg != nil && opts.metricsPrefix != "" {
		var err error
		metrics, err = newQueueMetrics(opts.metricsReg, opts.metricsPrefix)
		if err != nil {
			return nil, errors.WrapArgument(err, "Queue", "New", "metrics registration")
		}
	}

	return &Queue[T]{
		items:   make([]T, opts.initialCapacity),
		stats:   NewStatistics(),
		metrics: metrics,
	}, nil
}

// Push appends an item to the tail of the queue. The queue grows as needed;
// pushes never block and never drop. Pushing to a closed queue is a state
// error.
func (q *Queue[T]) Push(item T) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return errors.WrapState(errors.ErrQueueClosed, "Queue", "Push", "append item")
	}

	if q.size == len(q.items) {
		q.grow()
	}

	q.items[q.tail] = item
	q.tail = (q.tail + 1) % len(q.items)
	q.size++

	q.stats.Push()
	q.stats.UpdateDepth(int64(q.size))
	if q.metrics != nil {
		q.metrics.recordPush(q.size)
	}

	return nil
}

// Pop removes and returns the head item. Returns the zero value and false
// when the queue is empty.
func (q *Queue[T]) Pop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var zero T

	if q.size == 0 {
		return zero, false
	}

	item := q.items[q.head]
	q.items[q.head] = zero // release for GC
	q.head = (q.head + 1) % len(q.items)
	q.size--

	q.stats.Pop()
	q.stats.UpdateDepth(int64(q.size))
	if q.metrics != nil {
		q.metrics.recordPop(q.size)
	}

	return item, true
}

// PopIf removes and returns the head item only when pred approves it. The
// check and the removal happen under one critical section, so a consumer
// that must never dequeue a particular item (the pipeline's sentinel) cannot
// lose a peek-then-pop race against its peers.
func (q *Queue[T]) PopIf(pred func(T) bool) (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var zero T

	if q.size == 0 || !pred(q.items[q.head]) {
		return zero, false
	}

	item := q.items[q.head]
	q.items[q.head] = zero
	q.head = (q.head + 1) % len(q.items)
	q.size--

	q.stats.Pop()
	q.stats.UpdateDepth(int64(q.size))
	if q.metrics != nil {
		q.metrics.recordPop(q.size)
	}

	return item, true
}

// Peek returns the head item without removing it. Returns the zero value and
// false when the queue is empty. Peek is idempotent: racing consumers all
// observe the same head until someone pops it.
func (q *Queue[T]) Peek() (T, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	var zero T

	if q.size == 0 {
		return zero, false
	}

	q.stats.Peek()
	if q.metrics != nil {
		q.metrics.recordPeek()
	}

	return q.items[q.head], true
}

// Len returns the current number of items in the queue.
func (q *Queue[T]) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.size
}

// Stats returns queue statistics (always available for observability).
func (q *Queue[T]) Stats() *Statistics {
	return q.stats
}

// Close marks the queue closed. Further pushes fail; remaining items stay
// poppable so downstream consumers can drain. Close is idempotent.
func (q *Queue[T]) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	return nil
}

// grow doubles the ring, re-linearizing head..tail into the new slice.
// Caller must hold q.mu.
func (q *Queue[T]) grow() {
	capacity := len(q.items) * 2
	if capacity == 0 {
		capacity = 1
	}

	items := make([]T, capacity)
	for i := 0; i < q.size; i++ {
		items[i] = q.items[(q.head+i)%len(q.items)]
	}

	q.items = items
	q.head = 0
	q.tail = q.size
}
