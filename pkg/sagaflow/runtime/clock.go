package runtime

import (
	"time"

	"github.com/google/uuid"
)

// Clock returns the current instant as an RFC-3339 string. Tests inject
// a fake to assert on exact emitted timestamps.
type Clock interface {
	Now() string
}

// SystemClock is the production Clock, backed by time.Now().
type SystemClock struct{}

// Now returns the current UTC instant formatted as RFC-3339.
func (SystemClock) Now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// IDGenerator mints globally unique identifiers for emitted envelopes.
// Tests inject a fake for deterministic assertions.
type IDGenerator interface {
	NewID() string
}

// UUIDGenerator is the production IDGenerator, backed by google/uuid.
type UUIDGenerator struct{}

// NewID returns a fresh random (v4) UUID string.
func (UUIDGenerator) NewID() string {
	return uuid.NewString()
}
