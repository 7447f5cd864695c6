// Package retry provides exponential backoff retry logic for caller-supplied
// stage handlers.
//
// The pipeline engine's documented failure semantic is drop-and-continue: a
// batch whose handler fails is reported and discarded, never re-queued.
// Callers that want retries apply them inside their own handler:
//
//	proc := func(ctx context.Context, b batch.Batch[int, int]) error {
//	    return retry.Do(ctx, retry.DefaultConfig(), b.Run)
//	}
//
// Mark errors that must not be retried with NonRetryable:
//
//	return retry.NonRetryable(fmt.Errorf("malformed input %v", in))
//
// Backoff is exponential with an optional 25% jitter and honors context
// cancellation both between attempts and during the backoff sleep.
package retry
