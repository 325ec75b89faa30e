package sched

import (
	"context"
	"errors"
	"time"
)

// ErrTimeout is returned when work misses its deadline. The late result
// is discarded.
var ErrTimeout = errors.New("deadline exceeded, result discarded")

// WithTimeout runs fn under a deadline. On timeout the derived context
// is cancelled, whatever fn eventually returns is discarded, and
// ErrTimeout comes back. fn keeps its goroutine until it honors the
// context, so it must not retain mutable state shared with the caller.
func WithTimeout[T any](ctx context.Context, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	type outcome struct {
		v   T
		err error
	}
	// Buffered so the worker can always deliver and exit.
	ch := make(chan outcome, 1)
	go func() {
		v, err := fn(ctx)
		ch <- outcome{v: v, err: err}
	}()

	select {
	case out := <-ch:
		return out.v, out.err
	case <-ctx.Done():
		var zero T
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return zero, ErrTimeout
		}
		return zero, ctx.Err()
	}
}
