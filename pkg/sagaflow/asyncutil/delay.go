package asyncutil

import (
	"context"
	"time"
)

// Delay sleeps for d, returning early with ctx.Err() if ctx is canceled
// first. A zero or negative d returns immediately without blocking.
func Delay(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
