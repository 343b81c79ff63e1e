package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records runtime metrics. Use NewMetricsRecorder() for
// OpenTelemetry-backed metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordDispatch records one listener dispatch for an event.
	RecordDispatch(ctx context.Context, eventName string, duration time.Duration, err error)

	// RecordEmit records a publish attempt for an emitted event.
	RecordEmit(ctx context.Context, eventName, toQueue string, success bool)

	// RecordQueueDepth records the observed depth of a domain queue.
	RecordQueueDepth(ctx context.Context, queue string, depth int64)

	// RecordMappingWarning records one warning raised by the mapping
	// engine while applying an emit mapping.
	RecordMappingWarning(ctx context.Context, eventName string)
}

type otelMetrics struct {
	dispatches      metric.Int64Counter
	dispatchLatency metric.Float64Histogram
	dispatchErrors  metric.Int64Counter
	emits           metric.Int64Counter
	queueDepth      metric.Int64Histogram
	mappingWarnings metric.Int64Counter
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("sagaflow")

	dispatches, err := meter.Int64Counter("sagaflow.dispatch.count",
		metric.WithDescription("Number of listener dispatches"),
	)
	if err != nil {
		return nil, err
	}

	dispatchLatency, err := meter.Float64Histogram("sagaflow.dispatch.latency_ms",
		metric.WithDescription("Dispatch latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	dispatchErrors, err := meter.Int64Counter("sagaflow.dispatch.errors",
		metric.WithDescription("Number of dispatch errors"),
	)
	if err != nil {
		return nil, err
	}

	emits, err := meter.Int64Counter("sagaflow.emit.count",
		metric.WithDescription("Number of emit attempts, tagged by success"),
	)
	if err != nil {
		return nil, err
	}

	queueDepth, err := meter.Int64Histogram("sagaflow.queue.depth",
		metric.WithDescription("Observed domain queue depth"),
	)
	if err != nil {
		return nil, err
	}

	mappingWarnings, err := meter.Int64Counter("sagaflow.mapping.warnings",
		metric.WithDescription("Number of mapping engine warnings"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		dispatches:      dispatches,
		dispatchLatency: dispatchLatency,
		dispatchErrors:  dispatchErrors,
		emits:           emits,
		queueDepth:      queueDepth,
		mappingWarnings: mappingWarnings,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder backed by the global
// OpenTelemetry meter provider. If instrument registration fails, it
// falls back to a no-op recorder rather than panicking at startup.
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

func (m *otelMetrics) RecordDispatch(ctx context.Context, eventName string, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{attribute.String("event_name", eventName)}
	m.dispatches.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.dispatchLatency.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
	if err != nil {
		m.dispatchErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

func (m *otelMetrics) RecordEmit(ctx context.Context, eventName, toQueue string, success bool) {
	m.emits.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event_name", eventName),
		attribute.String("to_queue", toQueue),
		attribute.Bool("success", success),
	))
}

func (m *otelMetrics) RecordQueueDepth(ctx context.Context, queue string, depth int64) {
	m.queueDepth.Record(ctx, depth, metric.WithAttributes(attribute.String("queue", queue)))
}

func (m *otelMetrics) RecordMappingWarning(ctx context.Context, eventName string) {
	m.mappingWarnings.Add(ctx, 1, metric.WithAttributes(attribute.String("event_name", eventName)))
}
