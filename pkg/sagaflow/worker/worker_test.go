package worker_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/randalmurphal/sagaflow/pkg/sagaflow/bus"
	"github.com/randalmurphal/sagaflow/pkg/sagaflow/envelope"
	"github.com/randalmurphal/sagaflow/pkg/sagaflow/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pushEnvelope(t *testing.T, b *bus.MemoryBus, queue, eventID string) {
	t.Helper()
	env := &envelope.EventEnvelope{
		EventName:     "OrderPlaced",
		Version:       1,
		EventID:       eventID,
		TraceID:       "trace-1",
		CorrelationID: "order-1",
		OccurredAt:    "2025-01-01T00:00:00Z",
		Data:          map[string]any{},
	}
	require.NoError(t, b.Push(context.Background(), queue, env))
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}

func TestWorkerDispatchesPoppedEnvelope(t *testing.T) {
	b := bus.NewMemoryBus()
	pushEnvelope(t, b, "order", "id-1")

	var dispatched atomic.Int32
	w := worker.New("order", b, func(ctx context.Context, env *envelope.EventEnvelope) error {
		dispatched.Add(1)
		return nil
	}, 10, nil)

	w.Start(context.Background())
	defer w.Stop()

	waitFor(t, time.Second, func() bool { return dispatched.Load() == 1 })
}

func TestWorkerStartIsIdempotent(t *testing.T) {
	b := bus.NewMemoryBus()
	var calls atomic.Int32
	w := worker.New("order", b, func(ctx context.Context, env *envelope.EventEnvelope) error {
		calls.Add(1)
		return nil
	}, 5, nil)

	w.Start(context.Background())
	w.Start(context.Background())
	defer w.Stop()

	pushEnvelope(t, b, "order", "id-1")
	waitFor(t, time.Second, func() bool { return calls.Load() == 1 })
}

func TestWorkerStopIsIdempotent(t *testing.T) {
	b := bus.NewMemoryBus()
	w := worker.New("order", b, func(ctx context.Context, env *envelope.EventEnvelope) error {
		return nil
	}, 5, nil)

	w.Start(context.Background())
	w.Stop()
	assert.NotPanics(t, func() { w.Stop() })
}

func TestWorkerStopSafetyNoDispatchAfterStop(t *testing.T) {
	b := bus.NewMemoryBus()
	var dispatched atomic.Int32
	w := worker.New("order", b, func(ctx context.Context, env *envelope.EventEnvelope) error {
		dispatched.Add(1)
		return nil
	}, 5, nil)

	w.Start(context.Background())
	w.Stop()

	pushEnvelope(t, b, "order", "id-1")
	time.Sleep(30 * time.Millisecond)

	assert.Equal(t, int32(0), dispatched.Load())
}

// TestWorkerDedupAcrossRedelivery asserts that a worker which pops the
// same envelope id twice dispatches it exactly once.
func TestWorkerDedupAcrossRedelivery(t *testing.T) {
	b := bus.NewMemoryBus()
	pushEnvelope(t, b, "order", "id-1")
	pushEnvelope(t, b, "order", "id-1") // simulated redelivery, same id

	var mu sync.Mutex
	var dispatchedIDs []string

	w := worker.New("order", b, func(ctx context.Context, env *envelope.EventEnvelope) error {
		mu.Lock()
		dispatchedIDs = append(dispatchedIDs, env.EventID)
		mu.Unlock()
		return nil
	}, 5, nil)

	w.Start(context.Background())
	defer w.Stop()

	waitFor(t, time.Second, func() bool { return b.Len("order") == 0 })
	time.Sleep(20 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"id-1"}, dispatchedIDs)
}

func TestWorkerDoesNotRetryAfterDispatchError(t *testing.T) {
	b := bus.NewMemoryBus()
	pushEnvelope(t, b, "order", "id-1")

	var attempts atomic.Int32
	w := worker.New("order", b, func(ctx context.Context, env *envelope.EventEnvelope) error {
		n := attempts.Add(1)
		if n == 1 {
			return errors.New("transient dispatch failure")
		}
		return nil
	}, 10, nil)

	w.Start(context.Background())
	defer w.Stop()

	waitFor(t, time.Second, func() bool { return attempts.Load() >= 1 })
	time.Sleep(50 * time.Millisecond)

	// The envelope is consumed on the first attempt (popped once); a
	// dispatch failure does not retry the same envelope since the bus
	// already removed it.
	assert.Equal(t, int32(1), attempts.Load())
}

func TestWorkerFIFOOrdering(t *testing.T) {
	b := bus.NewMemoryBus()
	pushEnvelope(t, b, "order", "id-1")
	pushEnvelope(t, b, "order", "id-2")

	var mu sync.Mutex
	var order []string

	w := worker.New("order", b, func(ctx context.Context, env *envelope.EventEnvelope) error {
		mu.Lock()
		order = append(order, env.EventID)
		mu.Unlock()
		return nil
	}, 5, nil)

	w.Start(context.Background())
	defer w.Stop()

	waitFor(t, time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 2
	})

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"id-1", "id-2"}, order)
}
