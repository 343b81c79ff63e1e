// Package runtime implements the scenario orchestrator: it indexes a
// loaded scenario's events, domains, and listeners, runs one
// worker.Worker per domain queue, and dispatches each popped envelope
// to its matching listeners, executing their set-state/emit actions and
// maintaining the per-correlation state snapshot.
package runtime

import (
	"context"
	"log/slog"
	"sync"

	"github.com/randalmurphal/sagaflow/pkg/sagaflow/bus"
	sferrors "github.com/randalmurphal/sagaflow/pkg/sagaflow/errors"
	"github.com/randalmurphal/sagaflow/pkg/sagaflow/observability"
	"github.com/randalmurphal/sagaflow/pkg/sagaflow/registry"
	"github.com/randalmurphal/sagaflow/pkg/sagaflow/scenario"
	"github.com/randalmurphal/sagaflow/pkg/sagaflow/worker"
)

// Config configures a Runtime. Scenario and Bus are required; every
// other field has a usable default.
type Config struct {
	Scenario       *scenario.Scenario
	Bus            bus.Bus
	Logger         *slog.Logger
	PollIntervalMs int
	Clock          Clock
	IDs            IDGenerator
	Metrics        observability.MetricsRecorder
	Spans          observability.SpanManager
}

// Runtime is the scenario orchestrator: one worker per declared domain,
// dispatching popped envelopes to the listeners that react to them.
type Runtime struct {
	scenario *scenario.Scenario
	bus      bus.Bus
	logger   *slog.Logger
	clock    Clock
	ids      IDGenerator
	metrics  observability.MetricsRecorder
	spans    observability.SpanManager

	eventsByName     *registry.Registry[string, scenario.EventDef]
	domainsByID      *registry.Registry[string, scenario.Domain]
	listenersByEvent *registry.Registry[string, []scenario.Listener]
	workersByDomain  *registry.Registry[string, *worker.Worker]

	state *StateStore

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
}

// New builds a Runtime from cfg. The scenario is re-validated via
// scenario.Normalize so a Runtime refuses to start against a malformed
// document even if the caller bypassed scenario.Load; a configuration
// error here is fatal, per the error-handling design's treatment of
// missing scenarios and duplicate identifiers as startup failures.
func New(cfg Config) (*Runtime, error) {
	if cfg.Scenario == nil {
		return nil, &sferrors.ConfigurationError{Message: "scenario is required"}
	}
	if cfg.Bus == nil {
		return nil, &sferrors.ConfigurationError{Message: "bus is required"}
	}
	if err := scenario.Normalize(cfg.Scenario); err != nil {
		return nil, err
	}

	if cfg.Clock == nil {
		cfg.Clock = SystemClock{}
	}
	if cfg.IDs == nil {
		cfg.IDs = UUIDGenerator{}
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observability.NewMetricsRecorder()
	}
	if cfg.Spans == nil {
		cfg.Spans = observability.NewSpanManager()
	}

	rt := &Runtime{
		scenario: cfg.Scenario,
		bus:      cfg.Bus,
		logger:   cfg.Logger,
		clock:    cfg.Clock,
		ids:      cfg.IDs,
		metrics:  cfg.Metrics,
		spans:    cfg.Spans,
		state:    NewStateStore(),

		eventsByName:     registry.New[string, scenario.EventDef](),
		domainsByID:      registry.New[string, scenario.Domain](),
		listenersByEvent: registry.New[string, []scenario.Listener](),
		workersByDomain:  registry.New[string, *worker.Worker](),
	}

	for _, e := range cfg.Scenario.Events {
		rt.eventsByName.Register(e.Name, e)
	}
	for _, d := range cfg.Scenario.Domains {
		rt.domainsByID.Register(d.ID, d)
	}
	for _, l := range cfg.Scenario.Listeners {
		existing, _ := rt.listenersByEvent.Get(l.On.Event)
		rt.listenersByEvent.Register(l.On.Event, append(existing, l))
	}
	for _, d := range cfg.Scenario.Domains {
		w := worker.New(d.Queue, cfg.Bus, rt.dispatch, cfg.PollIntervalMs, cfg.Logger)
		w.SetMetrics(rt.metrics)
		rt.workersByDomain.Register(d.ID, w)
	}

	return rt, nil
}

// Start is idempotent: starting an already-running Runtime is a silent
// no-op. It starts every domain's worker against a context derived from
// ctx, cancelled by Stop.
func (r *Runtime) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.running = true

	r.workersByDomain.Range(func(_ string, w *worker.Worker) bool {
		w.Start(runCtx)
		return true
	})
}

// Stop is idempotent: stopping an already-idle Runtime is a silent
// no-op. It cancels every worker's context and awaits all of them to
// drain concurrently, so stop's wall-clock cost is the slowest single
// worker's in-flight dispatch, not the sum of all of them.
func (r *Runtime) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	cancel := r.cancel
	r.running = false
	r.mu.Unlock()

	cancel()

	var wg sync.WaitGroup
	r.workersByDomain.Range(func(_ string, w *worker.Worker) bool {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Stop()
		}()
		return true
	})
	wg.Wait()
}

// GetStateSnapshot returns a deep copy of the per-correlation state map,
// safe to inspect from outside the dispatch loop.
func (r *Runtime) GetStateSnapshot() map[string]map[string]string {
	return r.state.Snapshot()
}
