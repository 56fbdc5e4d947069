package suggest

import (
	"context"
	"errors"
	"fmt"
)

// retry invokes op up to attempts times and returns the first success.
// Cancellation is never retried: a done context, or a Canceled or
// DeadlineExceeded error from op, surfaces immediately. After the budget
// is exhausted the last failure is returned unwrapped so the caller sees
// the backend's own error.
func retry[T any](ctx context.Context, attempts int, op func() (T, error)) (T, error) {
	var zero T
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		result, err := op()
		if err == nil {
			return result, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return zero, err
		}
		lastErr = err
	}
	if lastErr == nil {
		return zero, fmt.Errorf("retry: attempt budget is %d, nothing was tried", attempts)
	}
	return zero, lastErr
}
