// Package errors provides standardized error handling patterns for batchkit
// components. It includes error classification, standard error variables, and
// helper functions for consistent error wrapping across the engine.
package errors

import (
	"errors"
	"fmt"
)

// ErrorClass represents the classification of errors for handling purposes
type ErrorClass int

const (
	// ErrorState represents programmer errors: an operation invoked in a
	// state that forbids it (reading a sentinel, output before completion,
	// lifecycle misuse). Never retried, always propagated.
	ErrorState ErrorClass = iota
	// ErrorArgument represents invalid configuration or arguments detected
	// at construction time, before any worker starts.
	ErrorArgument
	// ErrorHandler represents a failure raised inside a caller-supplied
	// generate/process/collate function. Reported and swallowed at the
	// stage-loop boundary; the offending batch is dropped.
	ErrorHandler
	// ErrorCancelled represents cooperative cancellation observed mid-loop.
	// Internal only; never surfaced to the caller as an error.
	ErrorCancelled
)

// String returns the string representation of ErrorClass
func (ec ErrorClass) String() string {
	switch ec {
	case ErrorState:
		return "state"
	case ErrorArgument:
		return "argument"
	case ErrorHandler:
		return "handler"
	case ErrorCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Standard error variables for common conditions
var (
	// Batch contract errors
	ErrSentinelBatch = errors.New("operation not valid on sentinel batch")
	ErrNotDone       = errors.New("output read before batch completion")
	ErrAlreadyRun    = errors.New("batch already run")

	// Pipeline configuration errors
	ErrZeroWorkers = errors.New("stage worker count must be at least one")
	ErrNilFunc     = errors.New("stage function cannot be nil")

	// Lifecycle errors
	ErrNotStarted     = errors.New("pipeline not started")
	ErrAlreadyStarted = errors.New("pipeline already started")
	ErrAlreadyJoined  = errors.New("pipeline already joined")

	// Queue errors
	ErrQueueClosed = errors.New("queue closed")
)

// ClassifiedError wraps an error with its classification
type ClassifiedError struct {
	Class     ErrorClass
	Err       error
	Message   string
	Component string
	Operation string
}

// Error implements the error interface
func (ce *ClassifiedError) Error() string {
	if ce.Message != "" {
		return ce.Message
	}
	return ce.Err.Error()
}

// Unwrap returns the underlying error
func (ce *ClassifiedError) Unwrap() error {
	return ce.Err
}

// IsState checks if an error is a programmer state error
func IsState(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorState
	}

	return errors.Is(err, ErrSentinelBatch) ||
		errors.Is(err, ErrNotDone) ||
		errors.Is(err, ErrAlreadyRun) ||
		errors.Is(err, ErrNotStarted) ||
		errors.Is(err, ErrAlreadyStarted) ||
		errors.Is(err, ErrAlreadyJoined) ||
		errors.Is(err, ErrQueueClosed)
}

// IsArgument checks if an error is an invalid-argument error
func IsArgument(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorArgument
	}

	return errors.Is(err, ErrZeroWorkers) || errors.Is(err, ErrNilFunc)
}

// IsHandler checks if an error originated inside a caller-supplied function
func IsHandler(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorHandler
	}

	return false
}

// IsCancelled checks if an error represents cooperative cancellation
func IsCancelled(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorCancelled
	}

	return false
}

// Classify returns the error class for an error
func Classify(err error) ErrorClass {
	switch {
	case IsArgument(err):
		return ErrorArgument
	case IsHandler(err):
		return ErrorHandler
	case IsCancelled(err):
		return ErrorCancelled
	default:
		// Unknown errors are treated as programmer errors so they surface
		// loudly instead of being silently retried or swallowed.
		return ErrorState
	}
}

// newClassified creates a new classified error.
// This is an internal helper - use the Wrap* functions instead.
func newClassified(class ErrorClass, err error, component, operation, message string) *ClassifiedError {
	return &ClassifiedError{
		Class:     class,
		Err:       err,
		Message:   message,
		Component: component,
		Operation: operation,
	}
}

// Wrap creates a standardized error with context following the pattern:
// "component.method: action failed: %w"
func Wrap(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s.%s: %s failed: %w", component, method, action, err)
}

// WrapState wraps an error as a programmer state error with context
func WrapState(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorState, wrappedErr, component, method, wrappedErr.Error())
}

// WrapArgument wraps an error as an invalid-argument error with context
func WrapArgument(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorArgument, wrappedErr, component, method, wrappedErr.Error())
}

// WrapHandler wraps an error raised inside a caller-supplied function
func WrapHandler(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorHandler, wrappedErr, component, method, wrappedErr.Error())
}

// WrapCancelled wraps an error as cooperative cancellation with context
func WrapCancelled(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorCancelled, wrappedErr, component, method, wrappedErr.Error())
}
