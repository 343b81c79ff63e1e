package asyncutil

import (
	"context"
	"time"

	"github.com/randalmurphal/sagaflow/pkg/sagaflow/envelope"
	sferrors "github.com/randalmurphal/sagaflow/pkg/sagaflow/errors"
)

// Publisher is the subset of bus.Bus that PublishWithRetry needs. It is
// declared locally to avoid an import cycle with package bus.
type Publisher interface {
	Push(ctx context.Context, queue string, env *envelope.EventEnvelope) error
}

// RetryOptions configures PublishWithRetry. A zero value is not valid;
// use DefaultRetryOptions.
type RetryOptions struct {
	Retries int
	BaseMs  int
}

// DefaultRetryOptions gives 3 retries (4 total attempts) with a 100ms
// base backoff.
var DefaultRetryOptions = RetryOptions{Retries: 3, BaseMs: 100}

// PublishWithRetry attempts to push env to queue, retrying transport
// failures with exponential backoff (baseMs · 2^(attempt-1)) up to
// opts.Retries additional times. Validation errors are never retried —
// they indicate a caller bug, not a transient condition. On exhaustion
// the last error observed is returned.
func PublishWithRetry(ctx context.Context, pub Publisher, queue string, env *envelope.EventEnvelope, opts RetryOptions) error {
	attempts := opts.Retries + 1

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := pub.Push(ctx, queue, env)
		if err == nil {
			return nil
		}
		lastErr = err

		if sferrors.Categorize(err) != sferrors.CategoryTransport {
			return err
		}

		if attempt == attempts {
			break
		}

		backoff := time.Duration(opts.BaseMs) * time.Duration(1<<uint(attempt-1)) * time.Millisecond
		if err := Delay(ctx, backoff); err != nil {
			return err
		}
	}

	return lastErr
}
