package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/randalmurphal/sagaflow/pkg/sagaflow/asyncutil"
	"github.com/randalmurphal/sagaflow/pkg/sagaflow/envelope"
	sferrors "github.com/randalmurphal/sagaflow/pkg/sagaflow/errors"
	"github.com/randalmurphal/sagaflow/pkg/sagaflow/mapping"
	"github.com/randalmurphal/sagaflow/pkg/sagaflow/observability"
	"github.com/randalmurphal/sagaflow/pkg/sagaflow/scenario"
	"go.opentelemetry.io/otel/attribute"
)

// dispatch is the worker.DispatchFunc closed over by every worker this
// Runtime owns. It looks up the listeners reacting to env's event and
// runs each one's actions in declaration order.
func (r *Runtime) dispatch(ctx context.Context, env *envelope.EventEnvelope) error {
	start := time.Now()
	logger := observability.EnrichLogger(r.logger, env.CorrelationID, env.TraceID, env.EventName)
	dispatchCtx, span := r.spans.StartDispatchSpan(ctx, env.EventName, env.CorrelationID)

	listeners, ok := r.listenersByEvent.Get(env.EventName)
	if !ok || len(listeners) == 0 {
		observability.LogNoListeners(logger, env.EventName)
		r.spans.AddSpanEvent(dispatchCtx, "dispatch.no_listeners", attribute.String("event.name", env.EventName))
		r.spans.EndSpanWithError(span, nil)
		r.metrics.RecordDispatch(ctx, env.EventName, time.Since(start), nil)
		return nil
	}

	var dispatchErr error
	for _, listener := range listeners {
		if listener.DelayMs > 0 {
			if err := asyncutil.Delay(dispatchCtx, time.Duration(listener.DelayMs)*time.Millisecond); err != nil {
				dispatchErr = err
				break
			}
		}
		if err := r.runListener(dispatchCtx, listener, env, logger); err != nil {
			dispatchErr = err
			break
		}
	}

	r.spans.EndSpanWithError(span, dispatchErr)
	r.metrics.RecordDispatch(ctx, env.EventName, time.Since(start), dispatchErr)
	return dispatchErr
}

// runListener runs one listener's actions behind a recover boundary, so a
// panicking action can't take down the worker goroutine driving it. A
// panic or a genuine action error is wrapped as *errors.DispatchError
// identifying the listener and event; a context cancellation observed
// while suspended for a delayMs wait passes through unwrapped, since it
// reflects shutdown rather than a dispatch failure.
func (r *Runtime) runListener(ctx context.Context, listener scenario.Listener, source *envelope.EventEnvelope, logger *slog.Logger) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.spans.AddSpanEvent(ctx, "listener.panic_recovered",
				attribute.String("listener.id", listener.ID),
				attribute.String("event.name", source.EventName),
			)
			err = &sferrors.DispatchError{
				ListenerID: listener.ID,
				EventName:  source.EventName,
				Err:        fmt.Errorf("panic: %v", rec),
			}
		}
	}()

	actionErr := r.executeActions(ctx, listener, source, logger)
	if actionErr == nil {
		return nil
	}
	if ctx.Err() != nil {
		return actionErr
	}
	return &sferrors.DispatchError{
		ListenerID: listener.ID,
		EventName:  source.EventName,
		Err:        actionErr,
	}
}

// executeActions runs one listener's actions in order. The only error it
// can return is context cancellation observed while suspended for an
// action's delayMs; a failed emit is logged and swallowed internally; it
// never aborts the listener, since the runtime's philosophy is
// best-effort progress, not halting the saga on a downstream failure. A
// panicking action is the caller's (runListener's) concern, not this
// function's.
func (r *Runtime) executeActions(ctx context.Context, listener scenario.Listener, source *envelope.EventEnvelope, logger *slog.Logger) error {
	for _, action := range listener.Actions {
		switch action.Type {
		case scenario.ActionSetState:
			r.state.Set(source.CorrelationID, action.Domain, action.Status)

		case scenario.ActionEmit:
			if action.DelayMs > 0 {
				if err := asyncutil.Delay(ctx, time.Duration(action.DelayMs)*time.Millisecond); err != nil {
					return err
				}
			}
			r.emit(ctx, action, source, logger)
		}
	}
	return nil
}

// emit builds and publishes the event named by action.Event, preserving
// source's traceId and correlationId and chaining causationId to
// source's eventId. Publish failures beyond PublishWithRetry's retries
// are logged and dropped; the saga is not halted.
func (r *Runtime) emit(ctx context.Context, action scenario.ListenerAction, source *envelope.EventEnvelope, logger *slog.Logger) {
	domain, ok := r.domainsByID.Get(action.ToDomain)
	if !ok {
		observability.LogEmitFailed(logger, action.Event, action.ToDomain, fmt.Errorf("unknown domain %q", action.ToDomain))
		return
	}

	eventDef, ok := r.eventsByName.Get(action.Event)
	if !ok {
		observability.LogEmitFailed(logger, action.Event, domain.Queue, fmt.Errorf("unknown event %q", action.Event))
		return
	}

	var warnings []mapping.Warning
	data := mapping.ApplyEmitMapping(source.Data, eventDef.PayloadSchema, action.Mapping, func(w mapping.Warning) {
		warnings = append(warnings, w)
	})
	for _, w := range warnings {
		observability.LogMappingWarning(logger, w.Path, w.Message)
		r.metrics.RecordMappingWarning(ctx, action.Event)
	}

	emitCtx, span := r.spans.StartEmitSpan(ctx, action.Event, domain.Queue)

	out := &envelope.EventEnvelope{
		EventName:     action.Event,
		Version:       envelope.SupportedVersion,
		EventID:       r.ids.NewID(),
		TraceID:       source.TraceID,
		CorrelationID: source.CorrelationID,
		OccurredAt:    r.clock.Now(),
		CausationID:   source.EventID,
		Data:          data.Flatten(),
	}

	err := asyncutil.PublishWithRetry(emitCtx, r.bus, domain.Queue, out, asyncutil.DefaultRetryOptions)
	r.spans.EndSpanWithError(span, err)
	r.metrics.RecordEmit(ctx, action.Event, domain.Queue, err == nil)
	if err != nil {
		observability.LogEmitFailed(logger, action.Event, domain.Queue, err)
	}
}
