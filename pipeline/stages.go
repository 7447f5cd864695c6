package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/c360/batchkit/batch"
	"github.com/c360/batchkit/errors"
)

// defaultPollInterval is the idle back-off between queue checks. Small
// enough to keep hand-off latency negligible, large enough to stop an idle
// stage from pinning a core.
const defaultPollInterval = 100 * time.Microsecond

// generate is the generation stage loop for one worker: pull the next batch
// from the caller's source and push it onto the pending queue until the
// source is exhausted or the run is cancelled.
func (p *Pipeline[I, O]) generate(ctx context.Context, worker int) error {
	log := p.logger.With("stage", StageGeneration, "worker", worker)

	for {
		if ctx.Err() != nil {
			p.finishGeneration(true)
			log.Debug("generator cancelled")
			return nil
		}

		if p.limiter != nil {
			if err := p.limiter.Wait(ctx); err != nil {
				p.finishGeneration(true)
				log.Debug("generator cancelled during throttle")
				return nil
			}
		}

		b, err := p.callGenerate(ctx, worker)
		if err != nil {
			p.reportHandlerFailure(StageGeneration, err, log)
			continue
		}

		if b == nil || batch.IsSentinel(b) {
			p.finishGeneration(false)
			log.Debug("generator source exhausted")
			return nil
		}

		if err := p.pending.Push(b); err != nil {
			return errors.WrapState(err, "Pipeline", "generate", "push pending batch")
		}
		p.generated.Add(1)
		p.metrics.recordBatch(StageGeneration, "ok")
	}
}

// finishGeneration marks one generator done. The last one to finish performs
// the single hand-off to the processing stage: exactly one sentinel on the
// pending queue, and the generation run-flag cleared. A cancelled run skips
// the sentinel; downstream stages exit on the same cancellation signal.
func (p *Pipeline[I, O]) finishGeneration(cancelled bool) {
	if p.genRemaining.Add(-1) != 0 {
		return
	}
	if !cancelled {
		_ = p.pending.Push(batch.Sentinel[I, O]())
	}
	p.genRunning.Store(false)
}

// process is the processing stage loop for one worker: peek the pending
// queue, run data batches, forward completed ones, and leave the sentinel in
// place for peer workers.
func (p *Pipeline[I, O]) process(ctx context.Context, worker int) error {
	log := p.logger.With("stage", StageProcessing, "worker", worker)

	notSentinel := func(b batch.Batch[I, O]) bool { return !batch.IsSentinel(b) }

	for {
		if ctx.Err() != nil {
			p.finishProcessing(true)
			log.Debug("processor cancelled")
			return nil
		}

		head, ok := p.pending.Peek()
		if !ok {
			p.idle()
			continue
		}

		if batch.IsSentinel(head) {
			// Observed without dequeuing, so racing peers see it too.
			p.finishProcessing(false)
			log.Debug("processor observed end of pending work")
			return nil
		}

		b, ok := p.pending.PopIf(notSentinel)
		if !ok {
			// Lost the race for the peeked batch; the new head may be
			// the sentinel, so go around and peek again.
			continue
		}

		start := time.Now()
		err := p.callProcess(ctx, b)
		p.metrics.recordDuration(StageProcessing, time.Since(start).Seconds())

		if err != nil {
			p.reportHandlerFailure(StageProcessing, err, log)
			p.dropped.Add(1)
			p.metrics.recordBatch(StageProcessing, "error")
			continue
		}

		if !b.Done() {
			// The handler chose not to complete this batch; documented
			// drop semantics, not an error.
			p.dropped.Add(1)
			p.metrics.recordBatch(StageProcessing, "dropped")
			continue
		}

		if err := p.processed.Push(b); err != nil {
			return errors.WrapState(err, "Pipeline", "process", "push processed batch")
		}
		p.processedN.Add(1)
		p.metrics.recordBatch(StageProcessing, "ok")
	}
}

// finishProcessing marks one processor done. The last one pushes the single
// sentinel onto the processed queue, guaranteeing the collation stage
// terminates exactly once per run regardless of pool size.
func (p *Pipeline[I, O]) finishProcessing(cancelled bool) {
	if p.prcRemaining.Add(-1) != 0 {
		return
	}
	if !cancelled {
		_ = p.processed.Push(batch.Sentinel[I, O]())
	}
	p.prcRunning.Store(false)
}

// collate is the collation stage loop for one worker: drain completed
// batches from the processed queue into the caller's sink. Collation is the
// terminal stage, so observing the sentinel creates no further hand-off.
func (p *Pipeline[I, O]) collate(ctx context.Context, worker int) error {
	log := p.logger.With("stage", StageCollation, "worker", worker)

	notSentinel := func(b batch.Batch[I, O]) bool { return !batch.IsSentinel(b) }

	for {
		if ctx.Err() != nil {
			p.finishCollation()
			log.Debug("collator cancelled")
			return nil
		}

		head, ok := p.processed.Peek()
		if !ok {
			p.idle()
			continue
		}

		if batch.IsSentinel(head) {
			p.finishCollation()
			log.Debug("collator observed end of processed work")
			return nil
		}

		b, ok := p.processed.PopIf(notSentinel)
		if !ok {
			continue
		}

		start := time.Now()
		err := p.callCollate(ctx, b)
		p.metrics.recordDuration(StageCollation, time.Since(start).Seconds())

		if err != nil {
			p.reportHandlerFailure(StageCollation, err, log)
			p.dropped.Add(1)
			p.metrics.recordBatch(StageCollation, "error")
			continue
		}

		p.merged.Add(1)
		p.metrics.recordBatch(StageCollation, "ok")
	}
}

// finishCollation marks one collator done; the last one clears the
// collation run-flag and the run is over.
func (p *Pipeline[I, O]) finishCollation() {
	if p.colRemaining.Add(-1) == 0 {
		p.colRunning.Store(false)
	}
}

// idle backs off briefly on an empty queue.
func (p *Pipeline[I, O]) idle() {
	if p.pollInterval > 0 {
		time.Sleep(p.pollInterval)
	}
}

// callGenerate invokes the caller's generate function with panic isolation.
func (p *Pipeline[I, O]) callGenerate(ctx context.Context, worker int) (b batch.Batch[I, O], err error) {
	defer func() {
		if r := recover(); r != nil {
			b = nil
			err = errors.WrapHandler(fmt.Errorf("panic: %v", r), "Pipeline", "generate", "produce next batch")
		}
	}()

	b, genErr := p.gen(ctx, worker)
	if genErr != nil {
		return nil, errors.WrapHandler(genErr, "Pipeline", "generate", "produce next batch")
	}
	return b, nil
}

// callProcess invokes the caller's process function with panic isolation.
func (p *Pipeline[I, O]) callProcess(ctx context.Context, b batch.Batch[I, O]) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.WrapHandler(fmt.Errorf("panic: %v", r), "Pipeline", "process", "handle batch")
		}
	}()

	if prcErr := p.prc(ctx, b); prcErr != nil {
		return errors.WrapHandler(prcErr, "Pipeline", "process", "handle batch")
	}
	return nil
}

// callCollate invokes the caller's collate function with panic isolation.
func (p *Pipeline[I, O]) callCollate(ctx context.Context, b batch.Batch[I, O]) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.WrapHandler(fmt.Errorf("panic: %v", r), "Pipeline", "collate", "merge batch")
		}
	}()

	if colErr := p.col(ctx, b); colErr != nil {
		return errors.WrapHandler(colErr, "Pipeline", "collate", "merge batch")
	}
	return nil
}

// reportHandlerFailure implements the drop-and-continue semantic: the
// failure is logged and counted, the worker keeps running, and nothing is
// retried or re-queued by the engine.
func (p *Pipeline[I, O]) reportHandlerFailure(stage Stage, err error, log *slog.Logger) {
	p.handlerErrors.Add(1)
	p.metrics.recordHandlerError(stage)
	log.Error("stage handler failed", "error", err)
}
