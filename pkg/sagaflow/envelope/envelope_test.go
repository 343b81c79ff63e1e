package envelope_test

import (
	"testing"

	"github.com/randalmurphal/sagaflow/pkg/sagaflow/envelope"
	sferrors "github.com/randalmurphal/sagaflow/pkg/sagaflow/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validEnvelope() *envelope.EventEnvelope {
	return &envelope.EventEnvelope{
		EventName:     "OrderPlaced",
		Version:       1,
		EventID:       "11111111-1111-1111-1111-111111111111",
		TraceID:       "trace-1",
		CorrelationID: "order-123",
		OccurredAt:    "2025-01-01T00:00:00Z",
		Data:          map[string]any{"sku": "abc", "quantity": float64(1)},
	}
}

func TestValidateHappyPath(t *testing.T) {
	env := validEnvelope()
	assert.NoError(t, env.Validate())
}

func TestValidateRejectsWrongVersion(t *testing.T) {
	env := validEnvelope()
	env.Version = 2

	err := env.Validate()
	require.Error(t, err)
	assert.Equal(t, sferrors.CategoryValidation, sferrors.Categorize(err))
}

func TestValidateRejectsMissingRequiredFields(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*envelope.EventEnvelope)
		wantErr string
	}{
		{"empty eventName", func(e *envelope.EventEnvelope) { e.EventName = "" }, "eventName"},
		{"empty eventId", func(e *envelope.EventEnvelope) { e.EventID = "" }, "eventId"},
		{"empty traceId", func(e *envelope.EventEnvelope) { e.TraceID = "" }, "traceId"},
		{"empty correlationId", func(e *envelope.EventEnvelope) { e.CorrelationID = "" }, "correlationId"},
		{"empty occurredAt", func(e *envelope.EventEnvelope) { e.OccurredAt = "" }, "occurredAt"},
		{"bad occurredAt", func(e *envelope.EventEnvelope) { e.OccurredAt = "not-a-date" }, "occurredAt"},
		{"nil data", func(e *envelope.EventEnvelope) { e.Data = nil }, "data"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := validEnvelope()
			tt.mutate(env)

			err := env.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateAllowsMissingCausationID(t *testing.T) {
	env := validEnvelope()
	env.CausationID = ""
	assert.NoError(t, env.Validate())
}

func TestCloneIsIndependent(t *testing.T) {
	env := validEnvelope()
	clone := env.Clone()

	clone.Data["sku"] = "mutated"
	clone.EventName = "Mutated"

	assert.Equal(t, "abc", env.Data["sku"])
	assert.Equal(t, "OrderPlaced", env.EventName)
}

func TestMarshalOmitsEmptyCausationID(t *testing.T) {
	env := validEnvelope()

	data, err := env.MarshalForWire()
	require.NoError(t, err)
	assert.NotContains(t, string(data), "causationId")
}

func TestMarshalIncludesCausationIDWhenSet(t *testing.T) {
	env := validEnvelope()
	env.CausationID = "22222222-2222-2222-2222-222222222222"

	data, err := env.MarshalForWire()
	require.NoError(t, err)
	assert.Contains(t, string(data), "causationId")
}

func TestUnmarshalRejectsUnknownFields(t *testing.T) {
	raw := []byte(`{
		"eventName": "OrderPlaced",
		"version": 1,
		"eventId": "11111111-1111-1111-1111-111111111111",
		"traceId": "trace-1",
		"correlationId": "order-123",
		"occurredAt": "2025-01-01T00:00:00Z",
		"data": {},
		"unexpected": true
	}`)

	_, err := envelope.UnmarshalFromWire(raw)
	require.Error(t, err)
}

func TestUnmarshalAcceptsNullCausationID(t *testing.T) {
	raw := []byte(`{
		"eventName": "OrderPlaced",
		"version": 1,
		"eventId": "11111111-1111-1111-1111-111111111111",
		"traceId": "trace-1",
		"correlationId": "order-123",
		"occurredAt": "2025-01-01T00:00:00Z",
		"causationId": null,
		"data": {}
	}`)

	env, err := envelope.UnmarshalFromWire(raw)
	require.NoError(t, err)
	assert.Empty(t, env.CausationID)
	assert.NoError(t, env.Validate())
}

func TestRoundTrip(t *testing.T) {
	env := validEnvelope()
	env.CausationID = "22222222-2222-2222-2222-222222222222"

	data, err := env.MarshalForWire()
	require.NoError(t, err)

	parsed, err := envelope.UnmarshalFromWire(data)
	require.NoError(t, err)
	assert.Equal(t, env, parsed)
}
