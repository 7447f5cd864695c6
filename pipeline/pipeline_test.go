package pipeline

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/c360/batchkit/batch"
	"github.com/c360/batchkit/errors"
	"github.com/c360/batchkit/metric"
	"github.com/c360/batchkit/pkg/retry"
)

// intSource hands out single-int batches [0, limit) to any number of
// concurrent generator workers.
type intSource struct {
	mu    sync.Mutex
	next  int
	limit int
	fn    batch.RunFunc[int, int]
}

func (s *intSource) generate(_ context.Context, _ int) (batch.Batch[int, int], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.next >= s.limit {
		return batch.Sentinel[int, int](), nil
	}
	n := s.next
	s.next++
	return batch.New(n, s.fn), nil
}

// intSink accumulates merged outputs under its own lock, as the collation
// contract requires.
type intSink struct {
	mu     sync.Mutex
	values []int
}

func (s *intSink) collate(_ context.Context, b batch.Batch[int, int]) error {
	out, err := b.Output()
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.values = append(s.values, out)
	s.mu.Unlock()
	return nil
}

func (s *intSink) sorted() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	values := append([]int(nil), s.values...)
	sort.Ints(values)
	return values
}

func runBatch(_ context.Context, b batch.Batch[int, int]) error {
	return b.Run()
}

func identity(n int) (int, error) { return n, nil }

func intRange(lo, hi int) []int {
	out := make([]int, 0, hi-lo)
	for i := lo; i < hi; i++ {
		out = append(out, i)
	}
	return out
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"all one", Config{1, 1, 1}, false},
		{"large pools", Config{8, 16, 4}, false},
		{"zero generators", Config{0, 1, 1}, true},
		{"zero processors", Config{1, 0, 1}, true},
		{"zero collators", Config{1, 1, 0}, true},
		{"negative", Config{-1, 1, 1}, true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := test.cfg.Validate()
			if test.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsArgument(err))
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestNew_InvalidArguments(t *testing.T) {
	src := &intSource{limit: 1, fn: identity}
	sink := &intSink{}

	_, err := New(Config{0, 1, 1}, src.generate, runBatch, sink.collate)
	require.Error(t, err)
	assert.True(t, errors.IsArgument(err))

	_, err = New[int, int](Config{1, 1, 1}, nil, runBatch, sink.collate)
	require.Error(t, err)
	assert.True(t, errors.IsArgument(err))

	_, err = New[int, int](Config{1, 1, 1}, src.generate, nil, sink.collate)
	require.Error(t, err)
	assert.True(t, errors.IsArgument(err))

	_, err = New[int, int](Config{1, 1, 1}, src.generate, runBatch, nil)
	require.Error(t, err)
	assert.True(t, errors.IsArgument(err))
}

// Scenario: three range batches [0,10), [10,20), [20,30) filtered against a
// threshold of 15 by three processors must merge to exactly {15..29}.
func TestPipeline_ThresholdScenario(t *testing.T) {
	const threshold = 15

	var mu sync.Mutex
	next := 0

	gen := func(_ context.Context, _ int) (batch.Batch[[]int, []int], error) {
		mu.Lock()
		defer mu.Unlock()
		if next >= 30 {
			return batch.Sentinel[[]int, []int](), nil
		}
		lo := next
		next += 10
		return batch.New(intRange(lo, lo+10), func(in []int) ([]int, error) {
			var kept []int
			for _, n := range in {
				if n >= threshold {
					kept = append(kept, n)
				}
			}
			return kept, nil
		}), nil
	}

	var sinkMu sync.Mutex
	var sink []int
	col := func(_ context.Context, b batch.Batch[[]int, []int]) error {
		out, err := b.Output()
		if err != nil {
			return err
		}
		sinkMu.Lock()
		sink = append(sink, out...)
		sinkMu.Unlock()
		return nil
	}

	p, err := New(Config{Generators: 1, Processors: 3, Collators: 1},
		gen,
		func(_ context.Context, b batch.Batch[[]int, []int]) error { return b.Run() },
		col,
	)
	require.NoError(t, err)
	require.NoError(t, p.Start(context.Background()))

	elapsed, err := p.Wait(10 * time.Second)
	require.NoError(t, err)
	assert.Greater(t, elapsed, time.Duration(0))

	sort.Ints(sink)
	if diff := cmp.Diff(intRange(threshold, 30), sink); diff != "" {
		t.Errorf("merged set mismatch (-want +got):\n%s", diff)
	}

	stats := p.Stats()
	assert.Equal(t, int64(3), stats.Generated)
	assert.Equal(t, int64(3), stats.Processed)
	assert.Equal(t, int64(3), stats.Merged)
	assert.Equal(t, int64(0), stats.Dropped)
	assert.Equal(t, int64(0), stats.HandlerErrors)
}

// Exactly one sentinel must remain at the head of each queue after a run:
// observed by every worker, dequeued by none.
func TestPipeline_SentinelInvariants(t *testing.T) {
	src := &intSource{limit: 20, fn: identity}
	sink := &intSink{}

	p, err := New(Config{Generators: 2, Processors: 4, Collators: 3},
		src.generate, runBatch, sink.collate)
	require.NoError(t, err)
	require.NoError(t, p.Start(context.Background()))

	_, err = p.Wait(10 * time.Second)
	require.NoError(t, err)

	require.Equal(t, 1, p.pending.Len(), "pending queue must hold exactly the sentinel")
	head, ok := p.pending.Peek()
	require.True(t, ok)
	assert.True(t, batch.IsSentinel(head))

	require.Equal(t, 1, p.processed.Len(), "processed queue must hold exactly the sentinel")
	head, ok = p.processed.Peek()
	require.True(t, ok)
	assert.True(t, batch.IsSentinel(head))

	assert.False(t, p.genRunning.Load())
	assert.False(t, p.prcRunning.Load())
	assert.False(t, p.colRunning.Load())
}

// An immediately exhausted source must terminate promptly with an empty sink.
func TestPipeline_EmptySource(t *testing.T) {
	src := &intSource{limit: 0, fn: identity}
	sink := &intSink{}

	p, err := New(Config{Generators: 1, Processors: 1, Collators: 1},
		src.generate, runBatch, sink.collate)
	require.NoError(t, err)
	require.NoError(t, p.Start(context.Background()))

	elapsed, err := p.Wait(5 * time.Second)
	require.NoError(t, err)
	assert.Less(t, elapsed, 2*time.Second)
	assert.Empty(t, sink.sorted())
	assert.Equal(t, StateJoined, p.State())
}

// A nil batch from the generator means the same thing as the sentinel.
func TestPipeline_NilBatchEndsSource(t *testing.T) {
	produced := false
	gen := func(_ context.Context, _ int) (batch.Batch[int, int], error) {
		if produced {
			return nil, nil
		}
		produced = true
		return batch.New(1, identity), nil
	}

	sink := &intSink{}
	p, err := New(Config{Generators: 1, Processors: 1, Collators: 1},
		gen, runBatch, sink.collate)
	require.NoError(t, err)
	require.NoError(t, p.Start(context.Background()))

	_, err = p.Wait(5 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, sink.sorted())
}

// Cancelling a slow run must return without error, faster than the full run
// would have taken, with only the work that completed.
func TestPipeline_CancelMidRun(t *testing.T) {
	src := &intSource{limit: 100, fn: identity}
	sink := &intSink{}

	slow := func(_ context.Context, b batch.Batch[int, int]) error {
		time.Sleep(5 * time.Millisecond)
		return b.Run()
	}

	// One processor: an uncancelled run takes at least 500ms.
	p, err := New(Config{Generators: 1, Processors: 1, Collators: 1},
		src.generate, slow, sink.collate)
	require.NoError(t, err)
	require.NoError(t, p.Start(context.Background()))

	go func() {
		time.Sleep(25 * time.Millisecond)
		p.Cancel()
	}()

	elapsed, err := p.Wait(0)
	require.NoError(t, err)
	assert.Less(t, elapsed, 400*time.Millisecond,
		"cancelled run must finish well before the full run would")
	assert.Less(t, p.Stats().Merged, int64(100))
	assert.Equal(t, StateJoined, p.State())
}

// A Wait timeout arms the same cooperative cancellation.
func TestPipeline_WaitTimeout(t *testing.T) {
	src := &intSource{limit: 100, fn: identity}
	sink := &intSink{}

	slow := func(_ context.Context, b batch.Batch[int, int]) error {
		time.Sleep(5 * time.Millisecond)
		return b.Run()
	}

	p, err := New(Config{Generators: 1, Processors: 1, Collators: 1},
		src.generate, slow, sink.collate)
	require.NoError(t, err)
	require.NoError(t, p.Start(context.Background()))

	elapsed, err := p.Wait(40 * time.Millisecond)
	require.NoError(t, err, "timeout is cancellation, not an error")
	assert.Less(t, elapsed, 400*time.Millisecond)
}

// A Cancel issued before Start must still take effect: the run starts, the
// remembered request fires, and Wait returns promptly instead of grinding
// through the whole source.
func TestPipeline_CancelBeforeStart(t *testing.T) {
	src := &intSource{limit: 1 << 20, fn: identity}
	sink := &intSink{}

	slow := func(_ context.Context, b batch.Batch[int, int]) error {
		time.Sleep(time.Millisecond)
		return b.Run()
	}

	p, err := New(Config{Generators: 1, Processors: 1, Collators: 1},
		src.generate, slow, sink.collate)
	require.NoError(t, err)

	p.Cancel()
	assert.Equal(t, StateCreated, p.State(), "pre-start cancel must not disturb lifecycle state")

	require.NoError(t, p.Start(context.Background()))

	elapsed, err := p.Wait(100 * time.Millisecond)
	require.NoError(t, err)
	assert.Less(t, elapsed, 2*time.Second)
	assert.Less(t, p.Stats().Merged, int64(1<<20))
	assert.Equal(t, StateJoined, p.State())
}

// A Wait deadline must still fire after an earlier Cancel call, even one
// made before Start.
func TestPipeline_WaitTimeoutAfterEarlyCancelRequest(t *testing.T) {
	src := &intSource{limit: 1 << 20, fn: identity}
	sink := &intSink{}

	p, err := New(Config{Generators: 1, Processors: 1, Collators: 1},
		src.generate, runBatch, sink.collate)
	require.NoError(t, err)

	p.Cancel()
	require.NoError(t, p.Start(context.Background()))

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, waitErr := p.Wait(100 * time.Millisecond)
		assert.NoError(t, waitErr)
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Wait did not return after its deadline")
	}
}

// A handler error on one input drops that batch, reports once, and leaves
// the rest of the run intact.
func TestPipeline_HandlerErrorDropsBatch(t *testing.T) {
	src := &intSource{limit: 10, fn: identity}
	sink := &intSink{}

	proc := func(_ context.Context, b batch.Batch[int, int]) error {
		in, err := b.Input()
		if err != nil {
			return err
		}
		if in == 7 {
			return fmt.Errorf("refusing to process %d", in)
		}
		return b.Run()
	}

	p, err := New(Config{Generators: 1, Processors: 3, Collators: 1},
		src.generate, proc, sink.collate)
	require.NoError(t, err)
	require.NoError(t, p.Start(context.Background()))

	_, err = p.Wait(10 * time.Second)
	require.NoError(t, err)

	want := []int{0, 1, 2, 3, 4, 5, 6, 8, 9}
	assert.Equal(t, want, sink.sorted())

	stats := p.Stats()
	assert.Equal(t, int64(1), stats.HandlerErrors, "the failure must be reported exactly once")
	assert.Equal(t, int64(1), stats.Dropped)
	assert.Equal(t, int64(9), stats.Merged)
}

// A panicking handler is isolated exactly like an error return.
func TestPipeline_PanicIsolated(t *testing.T) {
	src := &intSource{limit: 5, fn: identity}
	sink := &intSink{}

	proc := func(_ context.Context, b batch.Batch[int, int]) error {
		in, err := b.Input()
		if err != nil {
			return err
		}
		if in == 2 {
			panic("poisoned batch")
		}
		return b.Run()
	}

	p, err := New(Config{Generators: 1, Processors: 2, Collators: 1},
		src.generate, proc, sink.collate)
	require.NoError(t, err)
	require.NoError(t, p.Start(context.Background()))

	_, err = p.Wait(10 * time.Second)
	require.NoError(t, err)

	assert.Equal(t, []int{0, 1, 3, 4}, sink.sorted())
	assert.Equal(t, int64(1), p.Stats().HandlerErrors)
}

// A handler that never completes its batch triggers the silent drop path:
// no error report, no merge.
func TestPipeline_IncompleteBatchDropped(t *testing.T) {
	src := &intSource{limit: 6, fn: identity}
	sink := &intSink{}

	proc := func(_ context.Context, b batch.Batch[int, int]) error {
		in, err := b.Input()
		if err != nil {
			return err
		}
		if in%2 == 0 {
			return nil // never ran; engine drops it silently
		}
		return b.Run()
	}

	p, err := New(Config{Generators: 1, Processors: 2, Collators: 1},
		src.generate, proc, sink.collate)
	require.NoError(t, err)
	require.NoError(t, p.Start(context.Background()))

	_, err = p.Wait(10 * time.Second)
	require.NoError(t, err)

	assert.Equal(t, []int{1, 3, 5}, sink.sorted())

	stats := p.Stats()
	assert.Equal(t, int64(0), stats.HandlerErrors)
	assert.Equal(t, int64(3), stats.Dropped)
}

// Liveness: every pool-size combination must terminate and merge every
// generated batch exactly once.
func TestPipeline_Liveness(t *testing.T) {
	sizes := []Config{
		{Generators: 1, Processors: 1, Collators: 1},
		{Generators: 2, Processors: 3, Collators: 2},
		{Generators: 5, Processors: 4, Collators: 3},
		{Generators: 3, Processors: 1, Collators: 1},
		{Generators: 1, Processors: 8, Collators: 1},
	}

	for _, cfg := range sizes {
		cfg := cfg
		name := fmt.Sprintf("%dg_%dp_%dc", cfg.Generators, cfg.Processors, cfg.Collators)
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			const total = 50
			src := &intSource{limit: total, fn: identity}
			sink := &intSink{}

			p, err := New(cfg, src.generate, runBatch, sink.collate)
			require.NoError(t, err)
			require.NoError(t, p.Start(context.Background()))

			_, err = p.Wait(30 * time.Second)
			require.NoError(t, err)

			require.Equal(t, intRange(0, total), sink.sorted(),
				"every batch must be merged exactly once")
		})
	}
}

func TestPipeline_Lifecycle(t *testing.T) {
	src := &intSource{limit: 3, fn: identity}
	sink := &intSink{}

	p, err := New(Config{Generators: 1, Processors: 1, Collators: 1},
		src.generate, runBatch, sink.collate)
	require.NoError(t, err)
	assert.Equal(t, StateCreated, p.State())
	assert.NotEmpty(t, p.RunID())

	// Wait before Start is a state error
	_, err = p.Wait(time.Second)
	require.Error(t, err)
	assert.True(t, errors.IsState(err))

	require.NoError(t, p.Start(context.Background()))
	assert.Equal(t, StateRunning, p.State())

	// Double Start is a state error
	err = p.Start(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsState(err))

	_, err = p.Wait(10 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, StateJoined, p.State())

	// Double Wait is a state error
	_, err = p.Wait(time.Second)
	require.Error(t, err)
	assert.True(t, errors.IsState(err))

	// Cancel after the run is a no-op
	p.Cancel()
	assert.Equal(t, StateJoined, p.State())
}

func TestPipeline_StartContextCancellation(t *testing.T) {
	src := &intSource{limit: 100, fn: identity}
	sink := &intSink{}

	slow := func(_ context.Context, b batch.Batch[int, int]) error {
		time.Sleep(5 * time.Millisecond)
		return b.Run()
	}

	p, err := New(Config{Generators: 1, Processors: 1, Collators: 1},
		src.generate, slow, sink.collate)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, p.Start(ctx))
	cancel()

	elapsed, err := p.Wait(0)
	require.NoError(t, err)
	assert.Less(t, elapsed, 400*time.Millisecond)
}

func TestPipeline_GenerateLimit(t *testing.T) {
	src := &intSource{limit: 10, fn: identity}
	sink := &intSink{}

	p, err := New(Config{Generators: 2, Processors: 2, Collators: 1},
		src.generate, runBatch, sink.collate,
		WithGenerateLimit[int, int](rate.Limit(2000), 1),
	)
	require.NoError(t, err)
	require.NoError(t, p.Start(context.Background()))

	_, err = p.Wait(10 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, intRange(0, 10), sink.sorted())
}

func TestPipeline_WithMetrics(t *testing.T) {
	registry := metric.NewMetricsRegistry()

	src := &intSource{limit: 10, fn: identity}
	sink := &intSink{}

	p, err := New(Config{Generators: 1, Processors: 2, Collators: 1},
		src.generate, runBatch, sink.collate,
		WithMetricsRegistry[int, int](registry, "test_pipeline"),
	)
	require.NoError(t, err)
	require.NoError(t, p.Start(context.Background()))

	_, err = p.Wait(10 * time.Second)
	require.NoError(t, err)

	families, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)

	found := map[string]bool{}
	for _, mf := range families {
		found[mf.GetName()] = true
	}
	assert.True(t, found["batchkit_pipeline_batches_total"])
	assert.True(t, found["batchkit_pipeline_run_status"])
	assert.True(t, found["batchkit_queue_pushes_total"])
}

// Retries belong inside caller handlers; the engine itself never re-queues.
func TestPipeline_RetryInsideHandler(t *testing.T) {
	var mu sync.Mutex
	attempts := map[int]int{}

	flaky := func(n int) (int, error) {
		mu.Lock()
		attempts[n]++
		count := attempts[n]
		mu.Unlock()
		if n == 4 && count < 3 {
			return 0, fmt.Errorf("flaky failure %d for input %d", count, n)
		}
		return n, nil
	}

	src := &intSource{limit: 8, fn: flaky}
	sink := &intSink{}

	proc := func(ctx context.Context, b batch.Batch[int, int]) error {
		cfg := retry.Config{
			MaxAttempts:  5,
			InitialDelay: time.Millisecond,
			MaxDelay:     5 * time.Millisecond,
			Multiplier:   2.0,
		}
		return retry.Do(ctx, cfg, b.Run)
	}

	p, err := New(Config{Generators: 1, Processors: 2, Collators: 1},
		src.generate, proc, sink.collate)
	require.NoError(t, err)
	require.NoError(t, p.Start(context.Background()))

	_, err = p.Wait(10 * time.Second)
	require.NoError(t, err)

	assert.Equal(t, intRange(0, 8), sink.sorted())
	assert.Equal(t, int64(0), p.Stats().HandlerErrors)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 3, attempts[4], "flaky input must have been retried to success")
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "created", StateCreated.String())
	assert.Equal(t, "running", StateRunning.String())
	assert.Equal(t, "cancelling", StateCancelling.String())
	assert.Equal(t, "joined", StateJoined.String())
	assert.Equal(t, "unknown", State(99).String())
}
