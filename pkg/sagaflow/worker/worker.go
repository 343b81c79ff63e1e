// Package worker implements the per-domain-queue polling loop: pop,
// dedup, dispatch, reschedule. One Worker runs one goroutine against one
// queue; the scenario runtime creates one Worker per declared domain.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/randalmurphal/sagaflow/pkg/sagaflow/bus"
	"github.com/randalmurphal/sagaflow/pkg/sagaflow/envelope"
	"github.com/randalmurphal/sagaflow/pkg/sagaflow/observability"
)

// DefaultPollIntervalMs is used when a non-positive pollIntervalMs is
// supplied to New.
const DefaultPollIntervalMs = 250

// DispatchFunc handles one popped envelope. A non-nil error is logged
// and the envelope is still consumed (not re-enqueued, and still marked
// processed).
type DispatchFunc func(ctx context.Context, env *envelope.EventEnvelope) error

// DepthReporter is implemented by a Bus that can report its current
// queue depth. MemoryBus implements it; a Bus that can't (RemoteBus,
// where depth lives behind a network call) simply doesn't, and depth
// metrics are skipped for it.
type DepthReporter interface {
	Len(queue string) int
}

// Worker polls one named queue, deduplicates by envelope id, and
// dispatches each fresh envelope exactly once. It has two states, idle
// and running; Start and Stop are both idempotent.
type Worker struct {
	queue          string
	bus            bus.Bus
	dispatch       DispatchFunc
	processed      *ProcessedSet
	pollIntervalMs int
	logger         *slog.Logger
	metrics        observability.MetricsRecorder

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// New constructs a Worker for queue. pollIntervalMs <= 0 defaults to
// DefaultPollIntervalMs.
func New(queue string, b bus.Bus, dispatch DispatchFunc, pollIntervalMs int, logger *slog.Logger) *Worker {
	if pollIntervalMs <= 0 {
		pollIntervalMs = DefaultPollIntervalMs
	}
	return &Worker{
		queue:          queue,
		bus:            b,
		dispatch:       dispatch,
		processed:      NewProcessedSet(),
		pollIntervalMs: pollIntervalMs,
		logger:         logger,
		metrics:        observability.NoopMetrics{},
	}
}

// SetMetrics installs the recorder used to report queue depth. Called
// by the runtime after New; a Worker constructed without it keeps
// recording into a no-op.
func (w *Worker) SetMetrics(m observability.MetricsRecorder) {
	if m != nil {
		w.metrics = m
	}
}

// Start transitions the worker to running and schedules the first
// iteration at delay zero. Calling Start on an already-running worker
// is a silent no-op.
func (w *Worker) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	w.running = true

	go w.run(loopCtx)
}

// Stop cancels the pending timer, awaits the in-flight iteration (if
// any) to drain, and transitions back to idle. Calling Stop on an
// already-idle worker is a silent no-op. After Stop returns, no further
// dispatch calls occur.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	cancel := w.cancel
	done := w.done
	w.running = false
	w.mu.Unlock()

	cancel()
	<-done
}

func (w *Worker) run(ctx context.Context) {
	defer close(w.done)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		delay := w.iterate(ctx)
		if ctx.Err() != nil {
			return
		}
		timer.Reset(delay)
	}
}

// iterate runs one pop→dedup→dispatch→mark cycle and returns the delay
// before the next iteration should run.
func (w *Worker) iterate(ctx context.Context) time.Duration {
	pollInterval := time.Duration(w.pollIntervalMs) * time.Millisecond

	observability.LogWorkerPoll(w.logger, w.queue)

	env, ok, err := w.bus.Pop(ctx, w.queue)
	if err != nil {
		observability.LogWorkerDispatchError(w.logger, w.queue, "", err)
		return pollInterval
	}
	if !ok {
		observability.LogWorkerEmpty(w.logger, w.queue)
		return pollInterval
	}

	if reporter, ok := w.bus.(DepthReporter); ok {
		w.metrics.RecordQueueDepth(ctx, w.queue, int64(reporter.Len(w.queue)))
	}

	if w.processed.IsProcessed(env.EventID) {
		observability.LogWorkerDuplicate(w.logger, w.queue, env.EventID)
		return 0
	}

	if err := w.dispatch(ctx, env); err != nil {
		if ctx.Err() != nil {
			// ctx was canceled by Stop() while dispatch was suspended in a
			// delayMs wait; this is routine shutdown, not a dispatch
			// failure, so it doesn't belong at error level.
			observability.LogWorkerShutdown(w.logger, w.queue, env.EventID)
		} else {
			observability.LogWorkerDispatchError(w.logger, w.queue, env.EventID, err)
		}
		// Dispatch errors are logged and swallowed, not retried: the
		// runtime's philosophy is best-effort progress via compensation
		// events, not redelivery of the same envelope, so it is still
		// marked processed.
		w.processed.MarkProcessed(env.EventID)
		return pollInterval
	}

	w.processed.MarkProcessed(env.EventID)
	return 0
}
