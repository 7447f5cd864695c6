package batch

import (
	"github.com/c360/batchkit/errors"
)

// sentinel is the distinguished end-of-stream marker. It satisfies the Batch
// contract but carries no data: reading its input or output, or running it,
// is a contract violation that fails loudly instead of returning zero values.
type sentinel[I, O any] struct{}

// Sentinel returns an end-of-stream marker batch. The pipeline inserts
// exactly one per queue per run; consumers observe it by peeking and never
// dequeue it, so it stays visible to every racing worker in a stage.
func Sentinel[I, O any]() Batch[I, O] {
	return sentinel[I, O]{}
}

// IsSentinel reports whether b is an end-of-stream marker.
func IsSentinel[I, O any](b Batch[I, O]) bool {
	_, ok := b.(sentinel[I, O])
	return ok
}

// Input fails: the sentinel carries no data.
func (sentinel[I, O]) Input() (I, error) {
	var zero I
	return zero, errors.WrapState(errors.ErrSentinelBatch, "sentinel", "Input", "read input")
}

// Output fails: the sentinel carries no data.
func (sentinel[I, O]) Output() (O, error) {
	var zero O
	return zero, errors.WrapState(errors.ErrSentinelBatch, "sentinel", "Output", "read output")
}

// Done always reports true so that any worker peeking the sentinel sees a
// consistent, idempotent answer.
func (sentinel[I, O]) Done() bool {
	return true
}

// Run fails: the sentinel has no work to execute.
func (sentinel[I, O]) Run() error {
	return errors.WrapState(errors.ErrSentinelBatch, "sentinel", "Run", "execute work")
}
