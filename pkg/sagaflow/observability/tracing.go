package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("sagaflow")

// SpanManager handles the trace span lifecycle around a dispatch and
// its emitted events. Use NewSpanManager() for OpenTelemetry tracing or
// NoopSpanManager{} when disabled.
type SpanManager interface {
	// StartDispatchSpan starts a span covering one listener's reaction
	// to a popped envelope.
	StartDispatchSpan(ctx context.Context, eventName, correlationID string) (context.Context, trace.Span)

	// StartEmitSpan starts a span covering construction and publication
	// of one emitted envelope.
	StartEmitSpan(ctx context.Context, eventName, toQueue string) (context.Context, trace.Span)

	// EndSpanWithError completes a span, recording err if non-nil.
	EndSpanWithError(span trace.Span, err error)

	// AddSpanEvent adds an event to the span found in ctx.
	AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue)
}

type otelSpanManager struct{}

// NewSpanManager returns a SpanManager backed by the global OpenTelemetry
// tracer provider. Configure the provider before calling this function:
//
//	otel.SetTracerProvider(yourProvider)
func NewSpanManager() SpanManager {
	return &otelSpanManager{}
}

func (m *otelSpanManager) StartDispatchSpan(ctx context.Context, eventName, correlationID string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "sagaflow.dispatch",
		trace.WithAttributes(
			attribute.String("event.name", eventName),
			attribute.String("correlation.id", correlationID),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

func (m *otelSpanManager) StartEmitSpan(ctx context.Context, eventName, toQueue string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "sagaflow.emit."+eventName,
		trace.WithAttributes(
			attribute.String("event.name", eventName),
			attribute.String("to.queue", toQueue),
		),
		trace.WithSpanKind(trace.SpanKindProducer),
	)
}

func (m *otelSpanManager) EndSpanWithError(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

func (m *otelSpanManager) AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if span == nil || !span.IsRecording() {
		return
	}
	span.AddEvent(name, trace.WithAttributes(attrs...))
}
