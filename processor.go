package batch

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
)

// Transform is a pure, deterministic mapping applied to each item of a
// batch. A transform error aborts the current batch.
type Transform[T, R any] func(item T) (R, error)

// Processor applies a transform to each item of a batch, preserving input
// order. An optional simulated latency is waited out before the transform
// pass; the wait honors context cancellation. When a counter is attached,
// successful batches add their length to it.
type Processor[T, R any] struct {
	transform Transform[T, R]
	latency   time.Duration
	clock     Clock
	logger    *slog.Logger
	counter   *atomic.Int64
}

// ProcessorOption is a functional option for configuring a Processor.
type ProcessorOption func(*processorConfig)

type processorConfig struct {
	latency time.Duration
	clock   Clock
	logger  *slog.Logger
	counter *atomic.Int64
}

// WithProcessorLatency sets the simulated per-batch delay.
func WithProcessorLatency(latency time.Duration) ProcessorOption {
	return func(c *processorConfig) {
		c.latency = latency
	}
}

// WithProcessorClock sets the clock used for the simulated delay.
func WithProcessorClock(clock Clock) ProcessorOption {
	return func(c *processorConfig) {
		c.clock = clock
	}
}

// WithProcessorLogger sets a custom logger for batch processing events.
func WithProcessorLogger(logger *slog.Logger) ProcessorOption {
	return func(c *processorConfig) {
		c.logger = logger
	}
}

// WithProcessedCounter attaches a counter that successful batches increment
// by their length. Sessions attach their own processed counter this way.
func WithProcessedCounter(counter *atomic.Int64) ProcessorOption {
	return func(c *processorConfig) {
		c.counter = counter
	}
}

// NewProcessor creates a batch processor around the given transform.
// A nil transform is a configuration error.
func NewProcessor[T, R any](transform Transform[T, R], opts ...ProcessorOption) (*Processor[T, R], error) {
	if transform == nil {
		return nil, fmt.Errorf("%w: transform must not be nil", ErrInvalidConfig)
	}

	config := &processorConfig{
		clock:  SystemClock(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(config)
	}
	if config.clock == nil {
		config.clock = SystemClock()
	}
	if config.logger == nil {
		config.logger = slog.Default()
	}

	return &Processor[T, R]{
		transform: transform,
		latency:   config.latency,
		clock:     config.clock,
		logger:    config.logger,
		counter:   config.counter,
	}, nil
}

// Process transforms every item of the batch in order. The simulated
// latency, if configured, is waited out first and aborts early if ctx is
// done. A transform error aborts the batch: no partial results are returned
// and the counter is not incremented.
func (p *Processor[T, R]) Process(ctx context.Context, items []T) ([]R, error) {
	if p.latency > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-p.clock.After(p.latency):
		}
	}

	results := make([]R, 0, len(items))
	for i, item := range items {
		r, err := p.transform(item)
		if err != nil {
			return nil, fmt.Errorf("transform item %d: %w", i, err)
		}
		results = append(results, r)
	}

	if p.counter != nil {
		p.counter.Add(int64(len(items)))
	}

	p.logger.Debug("batch processed",
		"items", len(items))

	return results, nil
}
