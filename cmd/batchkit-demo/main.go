// Package main implements a small demonstration binary for the batchkit
// pipeline engine: it sums squares over a configurable number of integer
// range batches and optionally exposes Prometheus metrics while running.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/c360/batchkit/batch"
	"github.com/c360/batchkit/metric"
	"github.com/c360/batchkit/pipeline"
)

const appName = "batchkit-demo"

func main() {
	if err := run(); err != nil {
		slog.Error("demo failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		generators  = flag.Int("generators", 1, "generator pool size")
		processors  = flag.Int("processors", 4, "processor pool size")
		collators   = flag.Int("collators", 1, "collator pool size")
		batches     = flag.Int("batches", 100, "number of range batches to generate")
		batchSize   = flag.Int("batch-size", 10000, "integers per batch")
		timeout     = flag.Duration("timeout", time.Minute, "run deadline; cancels cooperatively when exceeded")
		metricsAddr = flag.String("metrics-addr", "", "address to serve /metrics on (empty disables)")
		logLevel    = flag.String("log-level", "info", "log level: debug, info, warn, error")
	)
	flag.Parse()

	logger := newLogger(*logLevel)
	slog.SetDefault(logger)

	opts := []pipeline.Option[[]int, int]{
		pipeline.WithLogger[[]int, int](logger),
	}

	var registry *metric.MetricsRegistry
	if *metricsAddr != "" {
		registry = metric.NewMetricsRegistry()
		opts = append(opts, pipeline.WithMetricsRegistry[[]int, int](registry, appName))

		mux := http.NewServeMux()
		mux.Handle("/metrics", registry.Handler())
		go func() {
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				logger.Error("metrics server stopped", "error", err)
			}
		}()
		logger.Info("serving metrics", "addr", *metricsAddr)
	}

	var srcMu sync.Mutex
	next := 0
	gen := func(_ context.Context, _ int) (batch.Batch[[]int, int], error) {
		srcMu.Lock()
		defer srcMu.Unlock()
		if next >= *batches {
			return batch.Sentinel[[]int, int](), nil
		}
		lo := next * *batchSize
		next++
		values := make([]int, *batchSize)
		for i := range values {
			values[i] = lo + i
		}
		return batch.New(values, sumOfSquares), nil
	}

	proc := func(_ context.Context, b batch.Batch[[]int, int]) error {
		return b.Run()
	}

	var sinkMu sync.Mutex
	total := 0
	col := func(_ context.Context, b batch.Batch[[]int, int]) error {
		out, err := b.Output()
		if err != nil {
			return err
		}
		sinkMu.Lock()
		total += out
		sinkMu.Unlock()
		return nil
	}

	cfg := pipeline.Config{
		Generators: *generators,
		Processors: *processors,
		Collators:  *collators,
	}
	p, err := pipeline.New(cfg, gen, proc, col, opts...)
	if err != nil {
		return fmt.Errorf("building pipeline: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := p.Start(ctx); err != nil {
		return fmt.Errorf("starting pipeline: %w", err)
	}

	elapsed, err := p.Wait(*timeout)
	if err != nil {
		return fmt.Errorf("joining pipeline: %w", err)
	}

	stats := p.Stats()
	logger.Info("run complete",
		"run", p.RunID(),
		"elapsed", elapsed,
		"generated", stats.Generated,
		"merged", stats.Merged,
		"dropped", stats.Dropped,
		"total", total)

	return nil
}

func sumOfSquares(values []int) (int, error) {
	sum := 0
	for _, v := range values {
		sum += v * v
	}
	return sum, nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
