package batch

import (
	"log/slog"
	"time"
)

// RetryStrategy defines the backoff strategy for retry operations.
type RetryStrategy string

const (
	// RetryStrategyConstant uses a constant delay between retries with no jitter.
	RetryStrategyConstant RetryStrategy = "constant"

	// RetryStrategyExponential uses exponential backoff with jitter.
	RetryStrategyExponential RetryStrategy = "exponential"
)

// RetryConfig holds retry configuration options.
type RetryConfig struct {
	// ErrorClassifier determines which errors should trigger retries.
	// Default: RecoverableClassifier
	ErrorClassifier ErrorClassifier

	// Logger for retry operations.
	// Default: slog.Default()
	Logger *slog.Logger

	// Strategy defines the backoff strategy.
	// Default: RetryStrategyConstant
	Strategy RetryStrategy

	// BaseDelay is the delay before each retry (constant strategy) or before
	// the first retry (exponential strategy).
	// Default: 1 second
	BaseDelay time.Duration

	// MaxDelay is the maximum delay between retries (exponential strategy only).
	// Default: 30 seconds
	MaxDelay time.Duration

	// MaxAttempts is the maximum number of attempts (including the initial request).
	// Must be at least 1; a lower value is a configuration error.
	// Default: 3
	MaxAttempts int
}

// RetryOption is a functional option for configuring retry behavior.
type RetryOption func(*RetryConfig)

// WithMaxAttempts sets the maximum number of retry attempts.
// The total number of calls will be MaxAttempts (including the initial attempt).
//
// Example:
//
//	batch.WithMaxAttempts(5) // Try up to 5 times total
func WithMaxAttempts(attempts int) RetryOption {
	return func(c *RetryConfig) {
		c.MaxAttempts = attempts
	}
}

// WithConstantBackoff configures a fixed delay between retries, with no
// jitter. This is the default strategy.
//
// Example:
//
//	batch.WithConstantBackoff(2 * time.Second)
//	// Delays: 2s, 2s, 2s, 2s
func WithConstantBackoff(delay time.Duration) RetryOption {
	return func(c *RetryConfig) {
		c.Strategy = RetryStrategyConstant
		c.BaseDelay = delay
		c.MaxDelay = delay
	}
}

// WithExponentialBackoff configures exponential backoff with jitter.
// Each retry delay doubles, up to maxDelay.
//
// Example:
//
//	batch.WithExponentialBackoff(time.Second, 30*time.Second)
//	// Delays: ~1s, ~2s, ~4s, ~8s, ~16s, 30s (capped)
func WithExponentialBackoff(baseDelay, maxDelay time.Duration) RetryOption {
	return func(c *RetryConfig) {
		c.Strategy = RetryStrategyExponential
		c.BaseDelay = baseDelay
		c.MaxDelay = maxDelay
	}
}

// WithErrorClassifier sets a custom error classifier for retry decisions.
//
// Example:
//
//	classifier := &MyCustomClassifier{}
//	batch.WithErrorClassifier(classifier)
func WithErrorClassifier(classifier ErrorClassifier) RetryOption {
	return func(c *RetryConfig) {
		c.ErrorClassifier = classifier
	}
}

// WithRetryLogger sets a custom logger for retry operations.
//
// Example:
//
//	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
//	batch.WithRetryLogger(logger)
func WithRetryLogger(logger *slog.Logger) RetryOption {
	return func(c *RetryConfig) {
		c.Logger = logger
	}
}

// DefaultRetryConfig returns retry configuration with sensible defaults.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:     3,
		Strategy:        RetryStrategyConstant,
		BaseDelay:       time.Second,
		MaxDelay:        30 * time.Second,
		ErrorClassifier: DefaultErrorClassifier(),
		Logger:          slog.Default(),
	}
}

// SessionConfig holds processing session configuration options.
type SessionConfig struct {
	// Clock supplies timers for the processor's simulated latency.
	// Default: the system clock.
	Clock Clock

	// Logger for session lifecycle and batch processing events.
	// Default: slog.Default()
	Logger *slog.Logger

	// BatchSize controls how many items each batch holds. The final batch
	// of a sequence may be smaller. Must be at least 1.
	// Default: 10
	BatchSize int

	// Latency is the simulated per-batch processing delay.
	// Default: 0 (no delay)
	Latency time.Duration
}

// SessionOption is a functional option for configuring a processing session.
type SessionOption func(*SessionConfig)

// WithBatchSize sets the number of items per batch.
//
// Example:
//
//	batch.WithBatchSize(5)
func WithBatchSize(size int) SessionOption {
	return func(c *SessionConfig) {
		c.BatchSize = size
	}
}

// WithLatency sets a simulated per-batch processing delay. The delay
// honors context cancellation.
//
// Example:
//
//	batch.WithLatency(100 * time.Millisecond)
func WithLatency(latency time.Duration) SessionOption {
	return func(c *SessionConfig) {
		c.Latency = latency
	}
}

// WithClock sets the clock used for the processor's simulated latency.
// Tests can inject a manual clock to avoid real waiting.
func WithClock(clock Clock) SessionOption {
	return func(c *SessionConfig) {
		c.Clock = clock
	}
}

// WithSessionLogger sets a custom logger for session operations.
//
// Example:
//
//	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
//	batch.WithSessionLogger(logger)
func WithSessionLogger(logger *slog.Logger) SessionOption {
	return func(c *SessionConfig) {
		c.Logger = logger
	}
}

// DefaultSessionConfig returns session configuration with sensible defaults.
func DefaultSessionConfig() *SessionConfig {
	return &SessionConfig{
		BatchSize: 10,
		Latency:   0,
		Clock:     SystemClock(),
		Logger:    slog.Default(),
	}
}

// CircuitBreakerConfig holds circuit breaker configuration options.
type CircuitBreakerConfig struct {
	// ReadyToTrip is called with a copy of counts whenever a request fails in the closed state.
	// If ReadyToTrip returns true, the circuit breaker will be placed into the open state.
	// Default: trips after 3 requests with 60% failure rate
	ReadyToTrip func(counts CircuitBreakerCounts) bool

	// ErrorClassifier determines which errors should trip the circuit breaker.
	// Default: RecoverableClassifier
	ErrorClassifier CircuitBreakerErrorClassifier

	// OnStateChange is called whenever the circuit breaker changes state.
	OnStateChange func(name string, from, to CircuitBreakerState)

	// Logger for circuit breaker operations.
	// Default: slog.Default()
	Logger *slog.Logger

	// Interval is the cyclic period of the closed state for the circuit breaker
	// to clear the internal counts. If 0, never clears.
	// Default: 10 seconds
	Interval time.Duration

	// Timeout is the period of the open state, after which the state becomes half-open.
	// Default: 30 seconds
	Timeout time.Duration

	// MaxRequests is the maximum number of requests allowed to pass through
	// when the circuit breaker is in the half-open state.
	// Default: 3
	MaxRequests uint32
}

// CircuitBreakerOption is a functional option for configuring circuit breaker behavior.
type CircuitBreakerOption func(*CircuitBreakerConfig)

// CircuitBreakerCounts holds the internal counts of the circuit breaker.
type CircuitBreakerCounts struct {
	Requests             uint32
	TotalSuccesses       uint32
	TotalFailures        uint32
	ConsecutiveSuccesses uint32
	ConsecutiveFailures  uint32
}

// CircuitBreakerState represents the state of the circuit breaker.
type CircuitBreakerState int

const (
	// StateClosed means the circuit is closed and requests flow normally.
	StateClosed CircuitBreakerState = iota

	// StateHalfOpen means the circuit is testing if the service has recovered.
	StateHalfOpen

	// StateOpen means the circuit is open and requests are rejected immediately.
	StateOpen
)

// String returns the string representation of the circuit breaker state.
func (s CircuitBreakerState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// WithMaxRequests sets the maximum number of requests in half-open state.
//
// Example:
//
//	batch.WithMaxRequests(5)
func WithMaxRequests(maxRequests uint32) CircuitBreakerOption {
	return func(c *CircuitBreakerConfig) {
		c.MaxRequests = maxRequests
	}
}

// WithInterval sets the interval for clearing counts in closed state.
//
// Example:
//
//	batch.WithInterval(10 * time.Second)
func WithInterval(interval time.Duration) CircuitBreakerOption {
	return func(c *CircuitBreakerConfig) {
		c.Interval = interval
	}
}

// WithTimeout sets the timeout for staying in open state.
//
// Example:
//
//	batch.WithTimeout(60 * time.Second)
func WithTimeout(timeout time.Duration) CircuitBreakerOption {
	return func(c *CircuitBreakerConfig) {
		c.Timeout = timeout
	}
}

// WithReadyToTrip sets a custom function to determine when to trip the circuit.
//
// Example:
//
//	batch.WithReadyToTrip(func(counts batch.CircuitBreakerCounts) bool {
//	    failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
//	    return counts.Requests >= 5 && failureRatio >= 0.5
//	})
func WithReadyToTrip(fn func(counts CircuitBreakerCounts) bool) CircuitBreakerOption {
	return func(c *CircuitBreakerConfig) {
		c.ReadyToTrip = fn
	}
}

// WithCircuitBreakerErrorClassifier sets a custom error classifier for circuit breaker decisions.
//
// Example:
//
//	classifier := &MyCustomClassifier{}
//	batch.WithCircuitBreakerErrorClassifier(classifier)
func WithCircuitBreakerErrorClassifier(classifier CircuitBreakerErrorClassifier) CircuitBreakerOption {
	return func(c *CircuitBreakerConfig) {
		c.ErrorClassifier = classifier
	}
}

// WithStateChangeHandler sets a callback for circuit breaker state changes.
//
// Example:
//
//	batch.WithStateChangeHandler(func(name string, from, to batch.CircuitBreakerState) {
//	    log.Printf("Circuit %s changed from %s to %s", name, from, to)
//	})
func WithStateChangeHandler(fn func(name string, from, to CircuitBreakerState)) CircuitBreakerOption {
	return func(c *CircuitBreakerConfig) {
		c.OnStateChange = fn
	}
}

// WithCircuitBreakerLogger sets a custom logger for circuit breaker operations.
//
// Example:
//
//	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
//	batch.WithCircuitBreakerLogger(logger)
func WithCircuitBreakerLogger(logger *slog.Logger) CircuitBreakerOption {
	return func(c *CircuitBreakerConfig) {
		c.Logger = logger
	}
}

// DefaultCircuitBreakerConfig returns circuit breaker configuration with sensible defaults.
func DefaultCircuitBreakerConfig() *CircuitBreakerConfig {
	return &CircuitBreakerConfig{
		MaxRequests: 3,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts CircuitBreakerCounts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		ErrorClassifier: DefaultCircuitBreakerErrorClassifier(),
		Logger:          slog.Default(),
	}
}
