package batch

import (
	"context"
	"log/slog"
	"time"
)

// TimingWrapper wraps an Operation and logs the elapsed wall-clock time of
// every invocation. It composes with the retry and circuit breaker wrappers;
// placed outermost it measures the full retry schedule, placed innermost it
// measures individual attempts.
type TimingWrapper[Req, Resp any] struct {
	op     Operation[Req, Resp]
	name   string
	logger *slog.Logger
}

// WithTiming wraps op so each Execute logs its duration under the given
// operation name. A nil logger falls back to slog.Default().
//
// Example:
//
//	timed := batch.WithTiming(handle.Connector(), "connect", logger)
func WithTiming[Req, Resp any](
	op Operation[Req, Resp],
	name string,
	logger *slog.Logger,
) *TimingWrapper[Req, Resp] {
	if logger == nil {
		logger = slog.Default()
	}
	return &TimingWrapper[Req, Resp]{
		op:     op,
		name:   name,
		logger: logger,
	}
}

// Execute runs the wrapped operation and logs its elapsed time.
func (w *TimingWrapper[Req, Resp]) Execute(ctx context.Context, req Req) (Resp, error) {
	start := time.Now()
	resp, err := w.op.Execute(ctx, req)
	elapsed := time.Since(start)

	if err != nil {
		w.logger.Warn("operation failed",
			"operation", w.name,
			"elapsed", elapsed,
			"error", err)
	} else {
		w.logger.Debug("operation completed",
			"operation", w.name,
			"elapsed", elapsed)
	}

	return resp, err
}
