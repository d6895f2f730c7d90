package batch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
)

// RetryWrapper wraps an Operation with configurable retry logic.
// Recoverable failures are re-attempted under the configured backoff
// schedule; unrecoverable failures propagate immediately. When all attempts
// are exhausted the original failure is re-surfaced unmodified.
type RetryWrapper[Req, Resp any] struct {
	op         Operation[Req, Resp]
	config     *RetryConfig
	logger     *slog.Logger
	classifier ErrorClassifier
	stats      *retryStats
}

// retryStats tracks retry operation statistics.
type retryStats struct {
	mu              sync.RWMutex
	totalAttempts   int64
	totalRetries    int64
	totalSuccesses  int64
	totalFailures   int64
	lastAttemptTime time.Time
	lastError       error
}

// NewRetryWrapper creates a new retry wrapper around an Operation.
// It applies the provided options to configure retry behavior.
//
// Example:
//
//	wrapper := batch.NewRetryWrapper(
//	    handle.Connector(),
//	    batch.WithMaxAttempts(5),
//	    batch.WithConstantBackoff(time.Second),
//	)
func NewRetryWrapper[Req, Resp any](
	op Operation[Req, Resp],
	opts ...RetryOption,
) *RetryWrapper[Req, Resp] {
	config := DefaultRetryConfig()
	for _, opt := range opts {
		opt(config)
	}

	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	if config.ErrorClassifier == nil {
		config.ErrorClassifier = DefaultErrorClassifier()
	}

	return &RetryWrapper[Req, Resp]{
		op:         op,
		config:     config,
		logger:     config.Logger,
		classifier: config.ErrorClassifier,
		stats:      &retryStats{},
	}
}

// WithRetry wraps a plain function with retry under a constant backoff
// schedule: up to maxAttempts total attempts with baseDelay between them.
// It is shorthand for NewRetryWrapper over an OperationFunc.
//
// Example:
//
//	wrapped := batch.WithRetry(connect, 5, 2*time.Second)
//	resp, err := wrapped.Execute(ctx, "a-valid-connection-string")
func WithRetry[Req, Resp any](
	fn OperationFunc[Req, Resp],
	maxAttempts int,
	baseDelay time.Duration,
) *RetryWrapper[Req, Resp] {
	return NewRetryWrapper(Operation[Req, Resp](fn),
		WithMaxAttempts(maxAttempts),
		WithConstantBackoff(baseDelay),
	)
}

// Execute performs the request with retry logic.
// It will retry on recoverable errors up to MaxAttempts times using the
// configured backoff strategy. A MaxAttempts below 1 is a configuration
// error and no request is made.
func (w *RetryWrapper[Req, Resp]) Execute(ctx context.Context, req Req) (Resp, error) {
	var zero Resp

	if w.config.MaxAttempts < 1 {
		return zero, fmt.Errorf("%w: max attempts must be at least 1, got %d",
			ErrInvalidConfig, w.config.MaxAttempts)
	}

	// Check if parent context is already done before attempting any requests
	select {
	case <-ctx.Done():
		w.logger.Warn("context already done before request (expected condition)",
			"error", ctx.Err())
		return zero, ctx.Err()
	default:
	}

	var response Resp
	var attempts int

	backoff := w.getBackoffStrategy()

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++

		// Track attempt and calculate retries (attempts after the first)
		w.stats.mu.Lock()
		w.stats.totalAttempts++
		if attempts > 1 {
			w.stats.totalRetries++
		}
		w.stats.lastAttemptTime = time.Now()
		w.stats.mu.Unlock()

		// Check if parent context is done before each retry attempt
		select {
		case <-ctx.Done():
			w.logger.Warn("context done before retry attempt (expected condition)",
				"attempt", attempts,
				"error", ctx.Err())
			return ctx.Err()
		default:
		}

		// Try the request
		resp, err := w.op.Execute(ctx, req)
		if err == nil {
			if attempts > 1 {
				w.logger.Info("operation succeeded after retry",
					"attempts", attempts)
			}
			response = resp
			return nil
		}

		// Unrecoverable errors propagate immediately
		if !w.classifier.IsRetryable(err) {
			w.logger.Debug("unrecoverable error, giving up",
				"error", err,
				"attempts", attempts)
			return err
		}

		// Report each non-final failed attempt with its index and cause
		w.logger.Warn("attempt failed, retrying after delay",
			"attempt", attempts,
			"max_attempts", w.config.MaxAttempts,
			"error", err)

		// Return retryable error to continue retry loop
		return retry.RetryableError(err)
	})
	if err != nil {
		w.logger.Warn("operation failed after retries",
			"attempts", attempts,
			"error", err)
		// Track failure
		w.stats.mu.Lock()
		w.stats.totalFailures++
		w.stats.lastError = err
		w.stats.mu.Unlock()
		return zero, err
	}

	// Track success
	w.stats.mu.Lock()
	w.stats.totalSuccesses++
	w.stats.mu.Unlock()

	return response, nil
}

// getBackoffStrategy returns the appropriate backoff strategy based on configuration.
// Constant backoff carries no jitter; exponential adds jitter to prevent thundering herd.
// Note: retry.Do() counts the initial attempt, so MaxAttempts-1 is passed to WithMaxRetries.
func (w *RetryWrapper[Req, Resp]) getBackoffStrategy() retry.Backoff {
	// Validate MaxAttempts to prevent overflow in conversions
	maxAttempts := w.config.MaxAttempts
	if maxAttempts < 0 {
		maxAttempts = 0
	}
	if maxAttempts > 1000 { // Cap at reasonable upper bound
		maxAttempts = 1000
	}

	// Calculate retry attempts (subtract 1 because Do() counts initial attempt)
	maxRetries := maxAttempts - 1
	if maxRetries < 0 {
		maxRetries = 0
	}

	switch w.config.Strategy {
	case RetryStrategyExponential:
		return retry.WithMaxRetries(
			uint64(maxRetries), // #nosec G115 - bounds checked above
			retry.WithCappedDuration(
				w.config.MaxDelay,
				retry.WithJitter(
					w.config.BaseDelay/10,
					retry.NewExponential(w.config.BaseDelay),
				),
			),
		)
	default:
		return retry.WithMaxRetries(
			uint64(maxRetries), // #nosec G115 - bounds checked above
			retry.BackoffFunc(func() (time.Duration, bool) {
				return w.config.BaseDelay, false
			}),
		)
	}
}

// RetryStats holds statistics about retry operations.
type RetryStats struct {
	// TotalAttempts is the total number of attempts made (including initial and retries)
	TotalAttempts int64

	// TotalRetries is the number of retry attempts (not including initial attempts)
	TotalRetries int64

	// TotalSuccesses is the number of successful operations
	TotalSuccesses int64

	// TotalFailures is the number of failed operations (after all retries exhausted)
	TotalFailures int64

	// LastAttemptTime is the time of the last attempt
	LastAttemptTime time.Time

	// LastError is the last error encountered (if any)
	LastError error
}

// GetRetryStats returns statistics about retry operations.
// This method is thread-safe and returns a snapshot of the current statistics.
func (w *RetryWrapper[Req, Resp]) GetRetryStats() RetryStats {
	w.stats.mu.RLock()
	defer w.stats.mu.RUnlock()

	return RetryStats{
		TotalAttempts:   w.stats.totalAttempts,
		TotalRetries:    w.stats.totalRetries,
		TotalSuccesses:  w.stats.totalSuccesses,
		TotalFailures:   w.stats.totalFailures,
		LastAttemptTime: w.stats.lastAttemptTime,
		LastError:       w.stats.lastError,
	}
}
