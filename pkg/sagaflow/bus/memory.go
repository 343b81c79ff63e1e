package bus

import (
	"context"
	"sync"

	"github.com/randalmurphal/sagaflow/pkg/sagaflow/envelope"
)

// MemoryBus is the reference in-memory Bus: a map from queue name to an
// ordered slice of envelopes, guarded by a single mutex. Push appends,
// Pop removes from the head. There is no redelivery — a popped envelope
// is gone from the queue whether or not the caller successfully
// processes it.
type MemoryBus struct {
	mu     sync.Mutex
	queues map[string][]*envelope.EventEnvelope
}

// NewMemoryBus returns an empty MemoryBus ready for use.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{queues: make(map[string][]*envelope.EventEnvelope)}
}

// Push validates env and appends it to the tail of queue. An invalid
// envelope is rejected before the queue is touched, so queue length is
// unchanged on error.
func (b *MemoryBus) Push(_ context.Context, queue string, env *envelope.EventEnvelope) error {
	if err := env.Validate(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.queues[queue] = append(b.queues[queue], env.Clone())
	return nil
}

// Pop removes and returns the head envelope of queue, validated before
// being handed to the caller. ok is false when the queue is empty or has
// never been pushed to.
func (b *MemoryBus) Pop(_ context.Context, queue string) (*envelope.EventEnvelope, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	q := b.queues[queue]
	if len(q) == 0 {
		return nil, false, nil
	}

	head := q[0]
	b.queues[queue] = q[1:]
	if len(b.queues[queue]) == 0 {
		delete(b.queues, queue)
	}

	if err := head.Validate(); err != nil {
		return nil, false, err
	}
	return head, true, nil
}

// Len reports the current depth of queue. It is not part of the Bus
// interface; the worker uses it, when the bus provides it, to record
// queue-depth metrics, and tests use it for assertions.
func (b *MemoryBus) Len(queue string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queues[queue])
}
