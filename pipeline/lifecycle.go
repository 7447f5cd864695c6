package pipeline

import (
	"context"
	"time"

	"github.com/c360/batchkit/errors"
)

// Start spawns all three worker pools and transitions the pipeline to
// Running. The supplied context is the root of the run's cancellation
// signal: cancelling it has the same cooperative effect as Cancel.
func (p *Pipeline[I, O]) Start(ctx context.Context) error {
	if !p.state.CompareAndSwap(int32(StateCreated), int32(StateRunning)) {
		return errors.WrapState(errors.ErrAlreadyStarted, "Pipeline", "Start", "transition to running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	p.cancelMu.Lock()
	p.cancelFn = cancel
	cancelEarly := p.cancelEarly
	p.cancelMu.Unlock()
	p.startedAt = time.Now()

	p.metrics.setRunStatus(StateRunning)
	p.metrics.setWorkers(StageGeneration, p.cfg.Generators)
	p.metrics.setWorkers(StageProcessing, p.cfg.Processors)
	p.metrics.setWorkers(StageCollation, p.cfg.Collators)

	for i := 0; i < p.cfg.Generators; i++ {
		worker := i
		p.genGroup.Go(func() error { return p.generate(runCtx, worker) })
	}
	for i := 0; i < p.cfg.Processors; i++ {
		worker := i
		p.prcGroup.Go(func() error { return p.process(runCtx, worker) })
	}
	for i := 0; i < p.cfg.Collators; i++ {
		worker := i
		p.colGroup.Go(func() error { return p.collate(runCtx, worker) })
	}

	p.logger.Info("pipeline started",
		"generators", p.cfg.Generators,
		"processors", p.cfg.Processors,
		"collators", p.cfg.Collators)

	if cancelEarly {
		p.Cancel()
	}

	return nil
}

// Cancel requests cooperative shutdown: every stage loop observes the signal
// on its next iteration and exits. In-flight Run and merge calls complete;
// no worker is forcibly killed. Cancel is idempotent and equivalent to a
// Wait timeout of zero. A Cancel issued before Start is remembered and
// applied as soon as the run begins.
func (p *Pipeline[I, O]) Cancel() {
	p.cancelMu.Lock()
	defer p.cancelMu.Unlock()

	if p.cancelFn == nil {
		p.cancelEarly = true
		return
	}

	if p.state.CompareAndSwap(int32(StateRunning), int32(StateCancelling)) {
		p.metrics.setRunStatus(StateCancelling)
		p.logger.Info("pipeline cancelling")
	}
	p.cancelFn()
}

// Wait blocks until every collator, then every processor, then every
// generator worker has exited, and returns elapsed wall-clock time since
// Start. A positive timeout arms a deadline after which the cancellation
// signal fires; zero or negative waits indefinitely. Cancellation is not an
// error: a cancelled run returns normally with whatever work completed.
func (p *Pipeline[I, O]) Wait(timeout time.Duration) (time.Duration, error) {
	switch p.State() {
	case StateCreated:
		return 0, errors.WrapState(errors.ErrNotStarted, "Pipeline", "Wait", "join workers")
	case StateJoined:
		return 0, errors.WrapState(errors.ErrAlreadyJoined, "Pipeline", "Wait", "join workers")
	}

	if timeout > 0 {
		deadline := time.AfterFunc(timeout, p.Cancel)
		defer deadline.Stop()
	}

	// Collators drain first so no processed batch is left un-merged when
	// Wait returns; processors and generators follow via the same
	// cascading sentinel chain.
	if err := p.colGroup.Wait(); err != nil {
		p.logger.Error("collation pool exited with error", "error", err)
	}
	if err := p.prcGroup.Wait(); err != nil {
		p.logger.Error("processing pool exited with error", "error", err)
	}
	if err := p.genGroup.Wait(); err != nil {
		p.logger.Error("generation pool exited with error", "error", err)
	}

	_ = p.pending.Close()
	_ = p.processed.Close()

	p.state.Store(int32(StateJoined))

	// Release the run context even on an uncancelled, fully drained run.
	p.Cancel()

	p.metrics.setRunStatus(StateJoined)
	p.metrics.setWorkers(StageGeneration, 0)
	p.metrics.setWorkers(StageProcessing, 0)
	p.metrics.setWorkers(StageCollation, 0)

	elapsed := time.Since(p.startedAt)
	stats := p.Stats()
	p.logger.Info("pipeline joined",
		"elapsed", elapsed,
		"generated", stats.Generated,
		"processed", stats.Processed,
		"merged", stats.Merged,
		"dropped", stats.Dropped,
		"handler_errors", stats.HandlerErrors)

	return elapsed, nil
}
