// Package batch defines the unit-of-work contract consumed by the pipeline engine.
package batch

import (
	"github.com/c360/batchkit/errors"
)

// Batch is the unit-of-work abstraction the pipeline operates on: an
// immutable input, a mutable output, a completion flag, and a Run operation
// that computes the output from the input.
//
// A batch is created by a generator worker, exclusively owned by whichever
// processor worker dequeues it, then handed off to a collator worker.
// Ownership transfers through the queues; no two workers ever operate on the
// same non-sentinel batch concurrently, so implementations need no internal
// locking.
type Batch[I, O any] interface {
	// Input returns the input value. Fails on the sentinel.
	Input() (I, error)

	// Output returns the computed output. Fails before completion and on
	// the sentinel.
	Output() (O, error)

	// Done reports whether the batch has completed. Always valid,
	// including on the sentinel (which reports true).
	Done() bool

	// Run executes the unit of work, storing the output and marking the
	// batch done. Fails on the sentinel. Run must not touch shared state;
	// merging results into shared state is the collation stage's job.
	Run() error
}

// RunFunc computes a batch output from its input.
type RunFunc[I, O any] func(input I) (O, error)

// Unit is the standard Batch implementation: an input paired with the
// function that transforms it.
type Unit[I, O any] struct {
	input  I
	fn     RunFunc[I, O]
	output O
	done   bool
}

// New creates a batch from an input and the function that will compute its
// output when a processor runs it.
func New[I, O any](input I, fn RunFunc[I, O]) *Unit[I, O] {
	return &Unit[I, O]{
		input: input,
		fn:    fn,
	}
}

// Input returns the batch input.
func (u *Unit[I, O]) Input() (I, error) {
	return u.input, nil
}

// Output returns the computed output. Calling it before Run has completed is
// a contract violation.
func (u *Unit[I, O]) Output() (O, error) {
	if !u.done {
		var zero O
		return zero, errors.WrapState(errors.ErrNotDone, "Unit", "Output", "read output")
	}
	return u.output, nil
}

// Done reports whether the batch has been run.
func (u *Unit[I, O]) Done() bool {
	return u.done
}

// Run executes the work function once, storing the output and marking the
// batch done. A failing work function leaves the batch incomplete, which
// routes it onto the engine's documented drop path.
func (u *Unit[I, O]) Run() error {
	if u.done {
		return errors.WrapState(errors.ErrAlreadyRun, "Unit", "Run", "execute work")
	}

	out, err := u.fn(u.input)
	if err != nil {
		return err
	}

	u.output = out
	u.done = true
	return nil
}
