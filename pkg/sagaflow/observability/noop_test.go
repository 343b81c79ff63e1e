package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNoopMetricsImplementsInterface(t *testing.T) {
	var _ MetricsRecorder = NoopMetrics{}
}

func TestNoopMetricsDoesNotPanic(t *testing.T) {
	m := NoopMetrics{}

	assert.NotPanics(t, func() {
		m.RecordDispatch(context.Background(), "OrderPlaced", 10*time.Millisecond, nil)
		m.RecordDispatch(context.Background(), "OrderPlaced", 10*time.Millisecond, errors.New("boom"))
		m.RecordEmit(context.Background(), "InventoryReserved", "inventory", true)
		m.RecordEmit(context.Background(), "InventoryReserved", "inventory", false)
		m.RecordQueueDepth(context.Background(), "order", 3)
		m.RecordMappingWarning(context.Background(), "OrderConfirmed")
	})
}

func TestNoopSpanManagerImplementsInterface(t *testing.T) {
	var _ SpanManager = NoopSpanManager{}
}

func TestNoopSpanManagerDoesNotPanic(t *testing.T) {
	sm := NoopSpanManager{}

	assert.NotPanics(t, func() {
		ctx, span := sm.StartDispatchSpan(context.Background(), "OrderPlaced", "order-123")
		sm.AddSpanEvent(ctx, "listener matched")
		sm.EndSpanWithError(span, nil)

		ctx2, span2 := sm.StartEmitSpan(context.Background(), "InventoryReserved", "inventory")
		sm.AddSpanEvent(ctx2, "publishing")
		sm.EndSpanWithError(span2, errors.New("publish failed"))
	})
}
