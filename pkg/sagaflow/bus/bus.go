// Package bus defines the event-bus contract the scenario runtime polls
// against, plus two implementations: an in-memory FIFO reference bus for
// tests and single-process deployments, and an HTTP client for a remote
// broker.
//
// Every push and pop validates the envelope first: a malformed envelope
// never enters a queue and is never handed back out of one.
package bus

import (
	"context"

	"github.com/randalmurphal/sagaflow/pkg/sagaflow/envelope"
)

// Bus is the two-method contract every queue implementation satisfies.
// Push appends to the named queue; Pop removes and returns the head
// envelope, or reports the queue empty via ok=false.
type Bus interface {
	Push(ctx context.Context, queue string, env *envelope.EventEnvelope) error
	Pop(ctx context.Context, queue string) (env *envelope.EventEnvelope, ok bool, err error)
}
