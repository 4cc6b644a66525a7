package service

import (
	"context"
	"fmt"
)

// callBounded runs fn on its own goroutine and returns when fn does or when
// ctx is done, whichever comes first. fn may keep running after a timeout;
// its late result is discarded. A panic in fn is returned as an error.
func callBounded[T any](ctx context.Context, what string, fn func(context.Context) (T, error)) (T, error) {
	type result struct {
		val T
		err error
	}
	done := make(chan result, 1)
	go func() {
		var r result
		defer func() {
			if p := recover(); p != nil {
				r.err = fmt.Errorf("%s panicked: %v", what, p)
			}
			done <- r
		}()
		r.val, r.err = fn(ctx)
	}()

	select {
	case r := <-done:
		return r.val, r.err
	case <-ctx.Done():
		var zero T
		return zero, fmt.Errorf("%s did not return in time: %w", what, ctx.Err())
	}
}
