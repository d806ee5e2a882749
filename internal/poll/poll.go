package poll

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrExhausted is returned when the attempt budget runs out before the
// condition holds.
var ErrExhausted = errors.New("retry budget exhausted")

// Func reports whether the awaited condition holds. A non-nil error does not
// stop the loop: the condition is treated as not met and polling continues.
type Func func(ctx context.Context) (bool, error)

// Until invokes fn up to attempts times with a fixed interval between
// attempts. The first attempt runs immediately. It returns nil as soon as fn
// reports true; when the budget is exhausted it returns ErrExhausted wrapping
// the last error fn produced, if any.
func Until(ctx context.Context, attempts int, interval time.Duration, fn Func) error {
	if attempts < 1 {
		return fmt.Errorf("%w: attempt budget must be positive, got %d", ErrExhausted, attempts)
	}

	t := time.NewTicker(interval)
	defer t.Stop()

	var lastErr error

	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-t.C:
			}
		}

		ok, err := fn(ctx)
		if ok {
			return nil
		}

		if err != nil {
			lastErr = err
		}
	}

	if lastErr != nil {
		return fmt.Errorf("%w after %d attempts, last error: %v", ErrExhausted, attempts, lastErr)
	}

	return fmt.Errorf("%w after %d attempts", ErrExhausted, attempts)
}
