// Package pipeline implements the three-stage batch pipeline engine:
// generation, processing, and collation worker pools decoupled by two FIFO
// queues and coordinated through a non-destructive sentinel protocol.
package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/c360/batchkit/batch"
	"github.com/c360/batchkit/errors"
	"github.com/c360/batchkit/metric"
	"github.com/c360/batchkit/pkg/queue"
)

// Stage identifies one of the three pipeline stages.
type Stage string

const (
	// StageGeneration is the pool producing batches from source state.
	StageGeneration Stage = "generation"
	// StageProcessing is the pool running batches.
	StageProcessing Stage = "processing"
	// StageCollation is the pool merging completed batches into sink state.
	StageCollation Stage = "collation"
)

// GenerateFunc produces the next batch for a generator worker. Returning the
// sentinel (or nil) signals that this worker's share of the source is
// exhausted. Shared source state lives in the closure; its synchronization
// is the caller's responsibility.
type GenerateFunc[I, O any] func(ctx context.Context, worker int) (batch.Batch[I, O], error)

// ProcessFunc handles one batch, typically by calling its Run operation. A
// batch the handler leaves incomplete is silently dropped rather than
// forwarded to collation.
type ProcessFunc[I, O any] func(ctx context.Context, b batch.Batch[I, O]) error

// CollateFunc folds one completed batch into caller-owned sink state. It is
// invoked concurrently from every collator worker and must protect its sink
// itself; the engine serializes nothing across collators.
type CollateFunc[I, O any] func(ctx context.Context, b batch.Batch[I, O]) error

// Config sizes the three worker pools.
type Config struct {
	Generators int
	Processors int
	Collators  int
}

// Validate fails fast on invalid pool sizes, before any worker is spawned.
func (c Config) Validate() error {
	if c.Generators < 1 || c.Processors < 1 || c.Collators < 1 {
		return errors.WrapArgument(errors.ErrZeroWorkers, "Pipeline", "Validate", "check pool sizes")
	}
	return nil
}

// State describes the pipeline lifecycle: Created -> Running ->
// (Cancelling) -> Joined.
type State int32

const (
	// StateCreated means New has run but Start has not.
	StateCreated State = iota
	// StateRunning means all worker pools are live.
	StateRunning
	// StateCancelling means the cancellation signal has fired and workers
	// are winding down cooperatively.
	StateCancelling
	// StateJoined means Wait has returned; the run is over.
	StateJoined
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateCancelling:
		return "cancelling"
	case StateJoined:
		return "joined"
	default:
		return "unknown"
	}
}

// Pipeline coordinates one run of the three-stage engine. All coordination
// structures (queues, remaining-worker counters, run-flags) live for exactly
// one run; create a new Pipeline for each run.
type Pipeline[I, O any] struct {
	cfg Config
	gen GenerateFunc[I, O]
	prc ProcessFunc[I, O]
	col CollateFunc[I, O]

	pending   *queue.Queue[batch.Batch[I, O]]
	processed *queue.Queue[batch.Batch[I, O]]

	// Remaining-worker counter and run-flag per stage. The last worker of a
	// stage to observe end-of-work (counter hits zero) performs the single
	// downstream sentinel push and clears the flag.
	genRemaining atomic.Int32
	prcRemaining atomic.Int32
	colRemaining atomic.Int32
	genRunning   atomic.Bool
	prcRunning   atomic.Bool
	colRunning   atomic.Bool

	state atomic.Int32

	runID  string
	logger *slog.Logger

	pollInterval time.Duration
	limiter      *rate.Limiter

	metrics *pipelineMetrics

	// cancelMu guards cancelFn and cancelEarly. A Cancel that arrives
	// before Start is remembered and applied once the run context exists.
	cancelMu    sync.Mutex
	cancelFn    context.CancelFunc
	cancelEarly bool

	genGroup errgroup.Group
	prcGroup errgroup.Group
	colGroup errgroup.Group

	startedAt time.Time

	// Statistics (atomic)
	generated     atomic.Int64
	processedN    atomic.Int64
	merged        atomic.Int64
	dropped       atomic.Int64
	handlerErrors atomic.Int64
}

// Option configures optional pipeline behavior.
type Option[I, O any] func(*options)

type options struct {
	logger        *slog.Logger
	pollInterval  time.Duration
	limiter       *rate.Limiter
	metricsReg    *metric.MetricsRegistry
	metricsPrefix string
}

// WithLogger sets the structured logger used for stage events and handler
// failure reports. Defaults to slog.Default().
func WithLogger[I, O any](logger *slog.Logger) Option[I, O] {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithPollInterval sets how long an idle worker sleeps before re-checking
// its queue. Zero keeps the hot busy-poll; a small interval trades latency
// for idle CPU.
func WithPollInterval[I, O any](d time.Duration) Option[I, O] {
	return func(o *options) {
		if d > 0 {
			o.pollInterval = d
		}
	}
}

// WithGenerateLimit throttles batch generation across all generator workers
// to the given rate and burst.
func WithGenerateLimit[I, O any](limit rate.Limit, burst int) Option[I, O] {
	return func(o *options) {
		o.limiter = rate.NewLimiter(limit, burst)
	}
}

// WithMetricsRegistry enables Prometheus metrics for the pipeline and its
// queues, registered under the given prefix.
func WithMetricsRegistry[I, O any](registry *metric.MetricsRegistry, prefix string) Option[I, O] {
	return func(o *options) {
		if registry != nil && prefix != "" {
			o.metricsReg = registry
			o.metricsPrefix = prefix
		}
	}
}

// New validates the configuration and builds a pipeline. It fails with an
// argument-classified error on a zero-sized pool or a missing stage
// function; nothing is spawned until Start.
func New[I, O any](
	cfg Config,
	gen GenerateFunc[I, O],
	prc ProcessFunc[I, O],
	col CollateFunc[I, O],
	opts ...Option[I, O],
) (*Pipeline[I, O], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if gen == nil || prc == nil || col == nil {
		return nil, errors.WrapArgument(errors.ErrNilFunc, "Pipeline", "New", "check stage functions")
	}

	o := &options{
		logger:       slog.Default(),
		pollInterval: defaultPollInterval,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	runID := uuid.NewString()

	var queueOpts []queue.Option[batch.Batch[I, O]]
	var processedOpts []queue.Option[batch.Batch[I, O]]
	if o.metricsReg != nil {
		queueOpts = append(queueOpts,
			queue.WithMetrics[batch.Batch[I, O]](o.metricsReg, o.metricsPrefix+"_pending"))
		processedOpts = append(processedOpts,
			queue.WithMetrics[batch.Batch[I, O]](o.metricsReg, o.metricsPrefix+"_processed"))
	}

	pending, err := queue.New(queueOpts...)
	if err != nil {
		return nil, err
	}
	processed, err := queue.New(processedOpts...)
	if err != nil {
		return nil, err
	}

	p := &Pipeline[I, O]{
		cfg:          cfg,
		gen:          gen,
		prc:          prc,
		col:          col,
		pending:      pending,
		processed:    processed,
		runID:        runID,
		logger:       o.logger.With("run", runID),
		pollInterval: o.pollInterval,
		limiter:      o.limiter,
		metrics:      newPipelineMetrics(o.metricsReg, runID),
	}

	p.genRemaining.Store(int32(cfg.Generators))
	p.prcRemaining.Store(int32(cfg.Processors))
	p.colRemaining.Store(int32(cfg.Collators))
	p.genRunning.Store(true)
	p.prcRunning.Store(true)
	p.colRunning.Store(true)

	return p, nil
}

// RunID returns the unique identifier of this pipeline run.
func (p *Pipeline[I, O]) RunID() string {
	return p.runID
}

// State returns the current lifecycle state.
func (p *Pipeline[I, O]) State() State {
	return State(p.state.Load())
}

// Stats is a snapshot of pipeline counters.
type Stats struct {
	Generated     int64 `json:"generated"`
	Processed     int64 `json:"processed"`
	Merged        int64 `json:"merged"`
	Dropped       int64 `json:"dropped"`
	HandlerErrors int64 `json:"handler_errors"`
}

// Stats returns current pipeline statistics.
func (p *Pipeline[I, O]) Stats() Stats {
	return Stats{
		Generated:     p.generated.Load(),
		Processed:     p.processedN.Load(),
		Merged:        p.merged.Load(),
		Dropped:       p.dropped.Load(),
		HandlerErrors: p.handlerErrors.Load(),
	}
}
