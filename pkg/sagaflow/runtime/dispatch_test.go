package runtime

import (
	"context"
	"errors"
	"testing"

	"github.com/randalmurphal/sagaflow/pkg/sagaflow/bus"
	"github.com/randalmurphal/sagaflow/pkg/sagaflow/envelope"
	sferrors "github.com/randalmurphal/sagaflow/pkg/sagaflow/errors"
	"github.com/randalmurphal/sagaflow/pkg/sagaflow/scenario"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func minimalRuntime(t *testing.T) *Runtime {
	t.Helper()
	s := &scenario.Scenario{
		Name:    "panic-demo",
		Domains: []scenario.Domain{{ID: "order", Queue: "order"}},
		Events:  []scenario.EventDef{{Name: "OrderPlaced"}},
		Listeners: []scenario.Listener{
			{
				ID: "set-state",
				On: scenario.ListenerOn{Event: "OrderPlaced"},
				Actions: []scenario.ListenerAction{
					{Type: scenario.ActionSetState, Domain: "order", Status: "PLACED"},
				},
			},
		},
	}
	rt, err := New(Config{Scenario: s, Bus: bus.NewMemoryBus()})
	require.NoError(t, err)
	return rt
}

// TestRunListenerRecoversPanic confirms a panic raised while executing a
// listener's actions is caught, turned into a *errors.DispatchError, and
// never escapes to the caller's goroutine.
func TestRunListenerRecoversPanic(t *testing.T) {
	rt := minimalRuntime(t)
	rt.state = nil // StateStore.Set on a nil receiver panics on lock

	listener := rt.scenario.Listeners[0]
	source := &envelope.EventEnvelope{
		EventName:     "OrderPlaced",
		EventID:       "evt-1",
		CorrelationID: "corr-1",
	}

	var err error
	assert.NotPanics(t, func() {
		err = rt.runListener(context.Background(), listener, source, nil)
	})

	require.Error(t, err)
	var dispatchErr *sferrors.DispatchError
	require.ErrorAs(t, err, &dispatchErr)
	assert.Equal(t, "set-state", dispatchErr.ListenerID)
	assert.Equal(t, "OrderPlaced", dispatchErr.EventName)
}

// TestRunListenerPassesCancellationThroughUnwrapped confirms a context
// cancellation observed during an action's delayMs wait is returned
// as-is rather than wrapped as *errors.DispatchError.
func TestRunListenerPassesCancellationThroughUnwrapped(t *testing.T) {
	rt := minimalRuntime(t)

	listener := scenario.Listener{
		ID: "delayed",
		On: scenario.ListenerOn{Event: "OrderPlaced"},
		Actions: []scenario.ListenerAction{
			{Type: scenario.ActionEmit, Event: "Nope", ToDomain: "order", DelayMs: 10_000},
		},
	}
	source := &envelope.EventEnvelope{EventName: "OrderPlaced", EventID: "evt-1", CorrelationID: "corr-1"}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := rt.runListener(ctx, listener, source, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	var dispatchErr *sferrors.DispatchError
	assert.False(t, errors.As(err, &dispatchErr), "a shutdown cancellation must pass through unwrapped")
}
