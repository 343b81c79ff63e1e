package asyncutil

import (
	"context"
	"fmt"
	"time"

	sferrors "github.com/randalmurphal/sagaflow/pkg/sagaflow/errors"
)

// WithTimeout races fn against ms milliseconds, returning fn's result if
// it finishes first, or a *errors.TimeoutError if the deadline elapses
// first. ms must be positive. fn receives a context derived from ctx
// that is canceled once the deadline fires, so a well-behaved fn can
// abandon its work promptly.
func WithTimeout(ctx context.Context, ms int, op string, fn func(context.Context) error) error {
	if ms <= 0 {
		return fmt.Errorf("asyncutil: WithTimeout requires ms > 0, got %d", ms)
	}

	deadlineCtx, cancel := context.WithTimeout(ctx, time.Duration(ms)*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- fn(deadlineCtx)
	}()

	select {
	case err := <-done:
		return err
	case <-deadlineCtx.Done():
		return &sferrors.TimeoutError{
			Operation: op,
			DurationM: fmt.Sprintf("%dms", ms),
		}
	}
}
