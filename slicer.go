package batch

import (
	"context"
	"fmt"
)

// Slicer lazily partitions an ordered input sequence into fixed-size
// contiguous batches. Each call to Next produces one batch and returns
// control to the caller, so the consumer paces production. A Slicer is a
// one-shot traversal: once exhausted it cannot be restarted, and it is not
// safe for concurrent use.
//
// Batches partition the input exactly: every batch has the configured size
// except possibly the last, and concatenating all batches in order
// reproduces the original sequence.
type Slicer[T any] struct {
	items []T
	size  int
	pos   int
}

// NewSlicer creates a slicer over items with the given batch size.
// A size below 1 is a configuration error.
func NewSlicer[T any](items []T, size int) (*Slicer[T], error) {
	if size < 1 {
		return nil, fmt.Errorf("%w: batch size must be at least 1, got %d",
			ErrInvalidConfig, size)
	}
	return &Slicer[T]{
		items: items,
		size:  size,
	}, nil
}

// Next returns the next batch in sequence order. It returns ErrEndOfInput
// once the input is exhausted, and the context's error if ctx is done
// before the batch is produced. Returned batches alias the input slice.
func (s *Slicer[T]) Next(ctx context.Context) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if s.pos >= len(s.items) {
		return nil, ErrEndOfInput
	}

	end := s.pos + s.size
	if end > len(s.items) {
		end = len(s.items)
	}

	// Full slice expression caps capacity so a consumer append cannot
	// clobber the next batch.
	out := s.items[s.pos:end:end]
	s.pos = end
	return out, nil
}

// Remaining returns the number of items not yet produced.
func (s *Slicer[T]) Remaining() int {
	return len(s.items) - s.pos
}
