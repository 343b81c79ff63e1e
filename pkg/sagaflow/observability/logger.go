// Package observability provides structured logging, OpenTelemetry
// metrics, and OpenTelemetry tracing for the scenario runtime. All three
// are opt-in; NoopMetrics and NoopSpanManager are available for
// deployments that don't want the overhead.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger returns a logger with correlationId, traceId, and domain
// bound to every subsequent record, so a dispatch's whole lifecycle can
// be filtered on those three fields alone.
func EnrichLogger(logger *slog.Logger, correlationID, traceID, domain string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("correlation_id", correlationID),
		slog.String("trace_id", traceID),
		slog.String("domain", domain),
	)
}

// LogWorkerPoll logs a worker's attempt to pop the next envelope off its
// queue, at debug level since this fires on every poll interval.
func LogWorkerPoll(logger *slog.Logger, queue string) {
	if logger == nil {
		return
	}
	logger.Debug("worker polling queue", slog.String("queue", queue))
}

// LogWorkerEmpty logs an empty poll result.
func LogWorkerEmpty(logger *slog.Logger, queue string) {
	if logger == nil {
		return
	}
	logger.Debug("queue empty", slog.String("queue", queue))
}

// LogWorkerDuplicate logs a redelivered envelope that the processed-id
// set has already seen. This is debug, not a warning: deduplication is
// expected, routine traffic, not an anomaly.
func LogWorkerDuplicate(logger *slog.Logger, queue, eventID string) {
	if logger == nil {
		return
	}
	logger.Debug("duplicate envelope skipped",
		slog.String("queue", queue),
		slog.String("event_id", eventID),
	)
}

// LogWorkerDispatchError logs a failed dispatch; the worker still
// consumes the envelope and reschedules after the poll interval.
func LogWorkerDispatchError(logger *slog.Logger, queue, eventID string, err error) {
	if logger == nil {
		return
	}
	logger.Error("dispatch failed",
		slog.String("queue", queue),
		slog.String("event_id", eventID),
		slog.String("error", err.Error()),
	)
}

// LogWorkerShutdown logs a dispatch interrupted by context cancellation
// during an in-flight delayMs wait, at debug level: this is the shape a
// routine Stop() takes mid-dispatch, not a dispatch failure.
func LogWorkerShutdown(logger *slog.Logger, queue, eventID string) {
	if logger == nil {
		return
	}
	logger.Debug("dispatch interrupted by shutdown",
		slog.String("queue", queue),
		slog.String("event_id", eventID),
	)
}

// LogNoListeners logs that a popped event had no matching listener. The
// envelope is still considered processed.
func LogNoListeners(logger *slog.Logger, eventName string) {
	if logger == nil {
		return
	}
	logger.Debug("no listeners for event", slog.String("event_name", eventName))
}

// LogEmitFailed logs a publish that exhausted its retries; the
// emission is dropped but the saga continues.
func LogEmitFailed(logger *slog.Logger, eventName, toQueue string, err error) {
	if logger == nil {
		return
	}
	logger.Error("emit failed after retries",
		slog.String("event_name", eventName),
		slog.String("to_queue", toQueue),
		slog.String("error", err.Error()),
	)
}

// LogMappingWarning logs a single warning produced by the mapping
// engine while projecting a source payload onto a destination schema.
func LogMappingWarning(logger *slog.Logger, path, message string) {
	if logger == nil {
		return
	}
	logger.Warn("mapping warning",
		slog.String("path", path),
		slog.String("message", message),
	)
}

// LogConfigurationError logs a fatal startup problem before the caller
// aborts scenario loading.
func LogConfigurationError(logger *slog.Logger, err error) {
	if logger == nil {
		return
	}
	logger.Error("scenario configuration invalid", slog.String("error", err.Error()))
}

// TimedOperation returns a function that, when called, yields the
// elapsed milliseconds since TimedOperation was invoked.
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Microseconds()) / 1000.0
	}
}
