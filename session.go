package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
)

// Session is a scoped processing context wrapping a sequence of batch
// operations. Opening a session reports its start; closing it, on success or
// failure, reports the processed count and resets it to zero. A closed
// session rejects further operations and cannot be re-opened - each
// acquisition is a fresh cycle.
//
// The zero value is not usable; sessions are created with OpenSession or
// driven entirely through Run.
type Session[T, R any] struct {
	config    *SessionConfig
	logger    *slog.Logger
	processor *Processor[T, R]

	processed atomic.Int64
	active    atomic.Bool
}

// OpenSession opens a processing session around the given transform.
// The caller owns the session's lifecycle and must call Close on every exit
// path; Run is the scoped form that guarantees this.
//
// Example:
//
//	s, err := batch.OpenSession(tag, batch.WithBatchSize(5))
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
func OpenSession[T, R any](transform Transform[T, R], opts ...SessionOption) (*Session[T, R], error) {
	config := DefaultSessionConfig()
	for _, opt := range opts {
		opt(config)
	}

	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Clock == nil {
		config.Clock = SystemClock()
	}
	if config.BatchSize < 1 {
		return nil, fmt.Errorf("%w: batch size must be at least 1, got %d",
			ErrInvalidConfig, config.BatchSize)
	}

	processor, err := NewProcessor(transform,
		WithProcessorLatency(config.Latency),
		WithProcessorClock(config.Clock),
		WithProcessorLogger(config.Logger),
	)
	if err != nil {
		return nil, err
	}

	s := &Session[T, R]{
		config:    config,
		logger:    config.Logger,
		processor: processor,
	}
	s.processor.counter = &s.processed
	s.active.Store(true)

	s.logger.Info("session started",
		"batch_size", config.BatchSize)

	return s, nil
}

// ProcessItems drives the slicer over items and processes each batch in
// sequence order, aggregating results. Any failure aborts the remaining
// batches and propagates; the session stays open so the caller's teardown
// (Close) still reports and resets the count.
func (s *Session[T, R]) ProcessItems(ctx context.Context, items []T) ([]R, error) {
	if !s.active.Load() {
		return nil, ErrSessionClosed
	}

	slicer, err := NewSlicer(items, s.config.BatchSize)
	if err != nil {
		return nil, err
	}

	results := make([]R, 0, len(items))
	for {
		chunk, err := slicer.Next(ctx)
		if errors.Is(err, ErrEndOfInput) {
			break
		}
		if err != nil {
			return nil, err
		}

		transformed, err := s.processor.Process(ctx, chunk)
		if err != nil {
			return nil, err
		}
		results = append(results, transformed...)
	}

	return results, nil
}

// ProcessedCount returns the number of items processed so far in this
// session. It never exceeds the number of items submitted, and it reads
// zero after Close.
func (s *Session[T, R]) ProcessedCount() int {
	return int(s.processed.Load())
}

// Active reports whether the session is still open.
func (s *Session[T, R]) Active() bool {
	return s.active.Load()
}

// Close finalizes the session: the processed count is reported, reset to
// zero, and the session deactivated. Closing an already-closed session
// returns ErrSessionClosed, so an explicit early Close composes with a
// deferred one.
func (s *Session[T, R]) Close() error {
	if !s.active.CompareAndSwap(true, false) {
		return ErrSessionClosed
	}

	n := s.processed.Swap(0)
	s.logger.Info("session closed",
		"processed", n)
	return nil
}

// Run opens a session, invokes fn with it, and guarantees teardown on every
// exit path: normal return, error return, or panic (re-raised after the
// session is closed). Cancellation inside fn surfaces as fn's error after
// teardown has run.
//
// Example:
//
//	results, err := batch.Run(ctx, tag, func(ctx context.Context, s *batch.Session[string, string]) ([]string, error) {
//	    return s.ProcessItems(ctx, items)
//	}, batch.WithBatchSize(5))
func Run[T, R any](
	ctx context.Context,
	transform Transform[T, R],
	fn func(ctx context.Context, s *Session[T, R]) ([]R, error),
	opts ...SessionOption,
) ([]R, error) {
	s, err := OpenSession(transform, opts...)
	if err != nil {
		return nil, err
	}
	defer s.Close() //nolint:errcheck // double close is the only error path

	return fn(ctx, s)
}
