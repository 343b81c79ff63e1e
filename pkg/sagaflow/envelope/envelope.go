// Package envelope defines the wire unit that every sagaflow component
// exchanges: a validated, immutable-once-published event envelope carrying
// identity, correlation, and causation metadata alongside a free-form
// payload.
//
// Design influences (carried from the scenario runtime's source
// repository): Kafka-style correlation/causation propagation, and
// AWS-EventBridge-style strict schema validation at every bus boundary.
package envelope

import (
	"bytes"
	"encoding/json"
	"time"

	sferrors "github.com/randalmurphal/sagaflow/pkg/sagaflow/errors"
)

// SupportedVersion is the only envelope wire version this module
// understands. Reserved for forward compatibility.
const SupportedVersion = 1

// EventEnvelope is the wire unit exchanged between the scenario runtime and
// the event bus. Every field except CausationID is required; validation
// rejects strict-equal violations (empty strings, a version other than 1,
// a non-object data map).
type EventEnvelope struct {
	EventName     string         `json:"eventName"`
	Version       int            `json:"version"`
	EventID       string         `json:"eventId"`
	TraceID       string         `json:"traceId"`
	CorrelationID string         `json:"correlationId"`
	OccurredAt    string         `json:"occurredAt"`
	CausationID   string         `json:"causationId,omitempty"`
	Data          map[string]any `json:"data"`
}

// Validate checks the envelope against its strict contract: every field
// but CausationID is required and non-empty, Version must
// equal SupportedVersion, OccurredAt must parse as RFC-3339, and Data must
// be non-nil (an empty object is valid; a missing one is not).
//
// Validate is invoked on every ingress (push into a queue) and every
// egress (pop from a queue) by the Bus implementations in package bus.
func (e *EventEnvelope) Validate() error {
	if e == nil {
		return &sferrors.InvalidEnvelopeError{Message: "envelope is nil"}
	}
	if e.EventName == "" {
		return &sferrors.InvalidEnvelopeError{EventID: e.EventID, Field: "eventName", Message: "must not be empty"}
	}
	if e.Version != SupportedVersion {
		return &sferrors.InvalidEnvelopeError{
			EventID: e.EventID,
			Field:   "version",
			Message: "must equal 1",
		}
	}
	if e.EventID == "" {
		return &sferrors.InvalidEnvelopeError{Field: "eventId", Message: "must not be empty"}
	}
	if e.TraceID == "" {
		return &sferrors.InvalidEnvelopeError{EventID: e.EventID, Field: "traceId", Message: "must not be empty"}
	}
	if e.CorrelationID == "" {
		return &sferrors.InvalidEnvelopeError{EventID: e.EventID, Field: "correlationId", Message: "must not be empty"}
	}
	if e.OccurredAt == "" {
		return &sferrors.InvalidEnvelopeError{EventID: e.EventID, Field: "occurredAt", Message: "must not be empty"}
	}
	if _, err := time.Parse(time.RFC3339, e.OccurredAt); err != nil {
		return &sferrors.InvalidEnvelopeError{
			EventID: e.EventID,
			Field:   "occurredAt",
			Message: "must be a valid RFC-3339 instant: " + err.Error(),
		}
	}
	if e.Data == nil {
		return &sferrors.InvalidEnvelopeError{EventID: e.EventID, Field: "data", Message: "must be a JSON object"}
	}
	return nil
}

// Clone returns a deep copy of the envelope, safe to mutate independently
// of the original. MemoryBus stores a clone on Push, so a caller that
// mutates the envelope it pushed cannot corrupt queue state.
func (e *EventEnvelope) Clone() *EventEnvelope {
	if e == nil {
		return nil
	}
	clone := *e
	if e.Data != nil {
		clone.Data = deepCopyValue(e.Data).(map[string]any)
	}
	return &clone
}

// deepCopyValue deep-copies a JSON-shaped value (the sum of
// null | bool | number | string | []any | map[string]any), matching the
// payload shapes produced by encoding/json and the mapping engine.
func deepCopyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = deepCopyValue(elem)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = deepCopyValue(elem)
		}
		return out
	default:
		return val
	}
}

// MarshalForWire serializes the envelope to JSON, omitting CausationID
// entirely when empty rather than emitting a null.
func (e *EventEnvelope) MarshalForWire() ([]byte, error) {
	return json.Marshal(e)
}

// UnmarshalFromWire parses envelope JSON, strictly rejecting unknown
// top-level keys. Both an omitted causationId and an explicit
// causationId:null are accepted on ingress; encoding/json already
// treats a JSON null for a string field as the zero value, so no
// special-casing is required here.
func UnmarshalFromWire(data []byte) (*EventEnvelope, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var e EventEnvelope
	if err := dec.Decode(&e); err != nil {
		return nil, &sferrors.InvalidEnvelopeError{Message: "malformed envelope JSON: " + err.Error()}
	}
	return &e, nil
}
