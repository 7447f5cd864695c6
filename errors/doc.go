// Package errors provides standardized error handling patterns for batchkit components.
//
// # Overview
//
// The errors package implements a four-class error classification system matched
// to the engine's failure semantics: State (programmer misuse of the batch or
// lifecycle contract), Argument (bad configuration detected before any worker
// starts), Handler (a failure inside a caller-supplied stage function), and
// Cancelled (cooperative cancellation, internal only).
//
// This classification lets the stage loops make the engine's documented
// decisions without error string matching: State and Argument errors propagate
// immediately, Handler errors are reported and the offending batch dropped,
// and Cancelled errors are absorbed so Wait returns normally.
//
// # Quick Start
//
// Use standard error variables for known conditions:
//
//	if batch.IsSentinel(b) {
//	    return errors.ErrSentinelBatch
//	}
//
// Wrap errors with component context for debugging:
//
//	if err := col(ctx, b); err != nil {
//	    return errors.WrapHandler(err, "Pipeline", "collate", "merge batch")
//	}
//
// Check classification at decision points:
//
//	if errors.IsHandler(err) {
//	    // report, drop the batch, keep the worker alive
//	}
//
// # Error Wrapping Pattern
//
// All wrapping follows the standardized format:
//
//	"component.method: action failed: <underlying error>"
//
// The wrappers preserve the error chain, so errors.Is and errors.As continue
// to work against both the standard variables and ClassifiedError.
package errors
