// Package race bounds an operation by a wall-clock budget.
package race

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTimeout is matched by every TimeoutError
var ErrTimeout = errors.New("timeout")

// TimeoutError reports an operation that lost the race against its budget
type TimeoutError struct {
	Label  string
	Budget time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Label, e.Budget)
}

// Is makes errors.Is(err, ErrTimeout) hold for any TimeoutError
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

type outcome[T any] struct {
	value T
	err   error
}

// Run starts fn with a context derived from ctx and a timer of length d.
// Whichever finishes first wins. When the timer wins, Run returns a *TimeoutError
// and cancels fn's context so fn can release what it holds; fn's eventual result
// is discarded. A non-positive d disables the timer.
//
// Cancellation of ctx itself is reported as ctx.Err().
func Run[T any](ctx context.Context, d time.Duration, label string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	opCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan outcome[T], 1)
	go func() {
		v, err := fn(opCtx)
		done <- outcome[T]{value: v, err: err}
	}()

	var timeout <-chan time.Time
	if d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case out := <-done:
		return out.value, out.err
	case <-timeout:
		return zero, &TimeoutError{Label: label, Budget: d}
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
