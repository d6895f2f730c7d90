package batch

import (
	"context"
	"errors"
	"fmt"

	pkgerrors "github.com/JohnPlummer/jp-go-errors"
)

// ErrInvalidConfig indicates a configuration error (for example a batch size
// or attempt count below 1). Configuration errors are fatal: they are raised
// immediately and never retried.
var ErrInvalidConfig = errors.New("invalid configuration")

// ErrEndOfInput is returned by Slicer.Next once the input sequence has been
// fully consumed. It signals normal exhaustion, not a failure.
var ErrEndOfInput = errors.New("end of input")

// ErrSessionClosed is returned when an operation is issued against a session
// that has already been closed. A closed session cannot be re-opened; open a
// fresh one instead.
var ErrSessionClosed = errors.New("session closed")

// ErrorClassifier determines whether an error should trigger a retry.
// Implement this interface to customize retry behavior for your specific error types.
type ErrorClassifier interface {
	// IsRetryable returns true if the error represents a transient failure
	// that should be retried.
	IsRetryable(err error) bool
}

// CircuitBreakerErrorClassifier determines whether an error should trip the circuit breaker.
// Implement this interface to customize circuit breaker behavior for your specific error types.
type CircuitBreakerErrorClassifier interface {
	// ShouldTripCircuit returns true if the error represents a failure serious enough
	// to open the circuit breaker and stop requests temporarily.
	ShouldTripCircuit(err error) bool
}

// recoverable is implemented by errors for which re-attempting the operation
// may succeed. ConnectionError and RecoverableError both implement it.
type recoverable interface {
	error
	Recoverable() bool
}

// IsRecoverable reports whether err (or any error in its chain) marks itself
// as recoverable.
func IsRecoverable(err error) bool {
	var r recoverable
	return errors.As(err, &r) && r.Recoverable()
}

// RecoverableError marks an existing error as recoverable so the default
// classifier will retry it. Use this when wrapping failures from systems
// that don't carry retryability information themselves.
//
// Example:
//
//	if err := doWork(); err != nil {
//	    return batch.Recoverable(err)
//	}
type RecoverableError struct {
	Err error
}

// Recoverable wraps err as a RecoverableError. A nil err returns nil.
func Recoverable(err error) error {
	if err == nil {
		return nil
	}
	return &RecoverableError{Err: err}
}

// Error implements the error interface.
func (e *RecoverableError) Error() string {
	return e.Err.Error()
}

// Unwrap implements error unwrapping for errors.Is and errors.As.
func (e *RecoverableError) Unwrap() error {
	return e.Err
}

// Recoverable marks the error as retryable.
func (e *RecoverableError) Recoverable() bool {
	return true
}

// ConnectionError is returned by ResourceHandle.Connect when the connection
// string is shorter than the handle's configured minimum. It is recoverable:
// the default classifier will retry it.
type ConnectionError struct {
	// ResourceType identifies the handle the connection was attempted against.
	ResourceType string

	// Length is the length of the rejected connection string.
	Length int

	// MinLength is the minimum accepted connection string length.
	MinLength int
}

// Error implements the error interface.
func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection to %q failed: connection string too short (%d < %d)",
		e.ResourceType, e.Length, e.MinLength)
}

// Recoverable marks connection errors as retryable.
func (e *ConnectionError) Recoverable() bool {
	return true
}

// RecoverableClassifier is the default error classification for both retry
// and circuit breaker decisions. It retries errors that mark themselves as
// recoverable, plus the jp-go-errors rate-limit and timeout conditions; it
// never retries context or configuration errors.
type RecoverableClassifier struct{}

// IsRetryable implements ErrorClassifier.
func (c *RecoverableClassifier) IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	// Context errors are NOT retryable - if the parent context is exceeded or canceled,
	// retrying with the same context will fail immediately.
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}

	// Configuration errors are fatal and never retried.
	if errors.Is(err, ErrInvalidConfig) {
		return false
	}

	// Check for jp-go-errors sentinel errors
	if errors.Is(err, pkgerrors.ErrRateLimited) {
		return true
	}
	if pkgerrors.IsTimeout(err) {
		return true
	}

	return IsRecoverable(err)
}

// ShouldTripCircuit implements CircuitBreakerErrorClassifier.
// Rate limits, timeouts, and context errors are transient and do not trip
// the circuit; anything else counts as a failure.
func (c *RecoverableClassifier) ShouldTripCircuit(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, pkgerrors.ErrRateLimited) {
		return false
	}
	if pkgerrors.IsTimeout(err) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}

	return true
}

// DefaultErrorClassifier provides reasonable defaults for most use cases.
// It retries recoverable failures (connection errors, explicitly wrapped
// errors, rate limits, timeouts) and refuses to retry configuration and
// context errors.
func DefaultErrorClassifier() ErrorClassifier {
	return &RecoverableClassifier{}
}

// DefaultCircuitBreakerErrorClassifier provides reasonable defaults for circuit breaker tripping.
// It trips on persistent failures but not on rate limits or timeouts which are transient.
func DefaultCircuitBreakerErrorClassifier() CircuitBreakerErrorClassifier {
	return &RecoverableClassifier{}
}
