// Package task runs one blocking device exchange under a hard deadline.
//
// A context deadline alone is not enough: a transport may block inside its
// own resend logic without watching the context. Run therefore executes the
// work on its own goroutine and, once the deadline passes, calls an abort
// hook (typically closing the socket) so the blocked call returns and its
// resources are released.
package task

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultTimeout bounds a full handshake-then-fetch sequence.
const DefaultTimeout = 20 * time.Second

// AbortGrace is how long Run waits for the work to unwind after aborting it.
const AbortGrace = time.Second

var ErrTimeout = errors.New("task: deadline exceeded")

// Aborter forcibly releases whatever the work is blocked on.
type Aborter func()

// Run executes fn with a context bounded by timeout. When the deadline
// passes first, abort is called, Run waits up to AbortGrace for fn to
// return, and the result is ErrTimeout. A non-positive timeout uses DefaultTimeout.
func Run[T any](ctx context.Context, timeout time.Duration, abort Aborter, fn func(context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn(ctx)
		done <- result{v: v, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			var zero T
			return zero, fmt.Errorf("%w after %s: %v", ErrTimeout, timeout, r.err)
		}
		return r.v, r.err
	case <-ctx.Done():
	}

	if abort != nil {
		abort()
	}
	select {
	case <-done:
	case <-time.After(AbortGrace):
	}

	var zero T
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return zero, fmt.Errorf("%w after %s", ErrTimeout, timeout)
	}
	return zero, ctx.Err()
}
