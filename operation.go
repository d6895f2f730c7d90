// Package batch provides a resilient batch-processing pipeline: a generic
// retry wrapper with configurable backoff, a circuit breaker, a process-wide
// resource registry, a lazy batch slicer, and a scoped processing session
// that guarantees teardown on every exit path. It supports any request and
// response type using Go generics and integrates with jp-go-errors for
// standardized error handling.
package batch

import (
	"context"
)

// Operation defines a generic interface for executing a fallible request.
// Type parameters Req and Resp can be any types, making this suitable for
// connection attempts, remote calls, or any other operation that needs
// resilience patterns wrapped around it.
//
// Example:
//
//	handle := batch.GetOrCreate("database")
//
//	// Wrap the handle's connect operation with retry
//	resilient := batch.NewRetryWrapper(
//	    handle.Connector(),
//	    batch.WithMaxAttempts(5),
//	    batch.WithConstantBackoff(time.Second),
//	)
type Operation[Req, Resp any] interface {
	// Execute performs a request and returns a response or error.
	// The context should be used to control timeouts and cancellation.
	Execute(ctx context.Context, req Req) (Resp, error)
}

// OperationFunc adapts an ordinary function to the Operation interface,
// allowing plain functions to be wrapped without declaring a type.
type OperationFunc[Req, Resp any] func(ctx context.Context, req Req) (Resp, error)

// Execute implements Operation by calling the function itself.
func (f OperationFunc[Req, Resp]) Execute(ctx context.Context, req Req) (Resp, error) {
	return f(ctx, req)
}
