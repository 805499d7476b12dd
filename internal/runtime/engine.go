package runtime

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/aretw0/autopilot/internal/logging"
	"github.com/aretw0/autopilot/pkg/domain"
	"github.com/aretw0/autopilot/pkg/ports"
)

// DefaultLease is how long a running record stays valid without a heartbeat.
const DefaultLease = 30 * time.Second

// Engine runs units. Each run executes on its own goroutine; callers poll
// status snapshots.
type Engine struct {
	units      ports.UnitRepository
	store      ports.StatusStore
	dispatcher *Dispatcher
	walker     *Walker

	logger         *slog.Logger
	hooks          domain.LifecycleHooks
	sleep          SleepFunc
	now            func() time.Time
	lease          time.Duration
	dispatcherOpts []DispatcherOption

	mu   sync.Mutex
	runs map[string]*ExecutionContext
	wg   sync.WaitGroup
}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = e.hooks.Merge(hooks)
	}
}

// WithSleep replaces every timed wait of the engine: slow motion, loop and
// settle pauses, holds and wait actions. Tests use it to run instantly.
func WithSleep(fn SleepFunc) EngineOption {
	return func(e *Engine) {
		if fn != nil {
			e.sleep = fn
		}
	}
}

// WithClock replaces the time source used for run timestamps.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithLease sets how long a running record survives without a heartbeat
// before another start may take it over. Zero disables expiry.
func WithLease(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d >= 0 {
			e.lease = d
		}
	}
}

// WithDispatcherOptions forwards options to the action dispatcher.
func WithDispatcherOptions(opts ...DispatcherOption) EngineOption {
	return func(e *Engine) {
		e.dispatcherOpts = append(e.dispatcherOpts, opts...)
	}
}

// NewEngine creates an engine. matcher may be nil.
func NewEngine(units ports.UnitRepository, store ports.StatusStore, actuator ports.Actuator, matcher ports.ImageMatcher, opts ...EngineOption) *Engine {
	e := &Engine{
		units:  units,
		store:  store,
		logger: logging.NewNop(),
		sleep:  sleepContext,
		now:    time.Now,
		lease:  DefaultLease,
		runs:   make(map[string]*ExecutionContext),
	}
	for _, opt := range opts {
		opt(e)
	}

	dopts := append([]DispatcherOption{
		WithDispatcherLogger(e.logger),
		WithPause(e.sleep),
	}, e.dispatcherOpts...)
	e.dispatcher = NewDispatcher(actuator, matcher, dopts...)
	e.walker = NewWalker(e.dispatcher, e.logger, e.hooks, e.sleep)
	return e
}

func (e *Engine) execContext(unitID string) *ExecutionContext {
	e.mu.Lock()
	defer e.mu.Unlock()

	ec, ok := e.runs[unitID]
	if !ok {
		ec = newExecutionContext(unitID, e.store, e.now, e.lease)
		e.runs[unitID] = ec
	}
	return ec
}

// StartUnit starts a detached run of the unit and returns immediately.
// It fails with domain.ErrConflict if the unit is already running.
func (e *Engine) StartUnit(ctx context.Context, unitID string, loop bool, speed float64) (domain.ExecutionState, error) {
	if err := checkSpeed(speed); err != nil {
		return domain.ExecutionState{}, err
	}
	unit, err := e.units.Get(ctx, unitID)
	if err != nil {
		return domain.ExecutionState{}, err
	}

	if _, err := e.start(ctx, unit, loop, speed); err != nil {
		return domain.ExecutionState{}, err
	}
	return e.execContext(unitID).Snapshot(ctx)
}

func checkSpeed(speed float64) error {
	if speed <= 0 {
		return fmt.Errorf("%w: got %v", domain.ErrInvalidSpeed, speed)
	}
	return nil
}

func (e *Engine) start(ctx context.Context, unit domain.Unit, loop bool, speed float64) (*activeRun, error) {
	ec := e.execContext(unit.ID)
	r, err := ec.Begin(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, fmt.Errorf("unit %s: %w", unit.ID, err)
		}
		return nil, err
	}

	e.wg.Add(1)
	go e.run(r, unit, loop, speed)
	return r, nil
}

func (e *Engine) run(r *activeRun, unit domain.Unit, loop bool, speed float64) {
	defer e.wg.Done()
	defer r.close()

	logger := e.logger.With("unit_id", unit.ID, "run_id", r.id)
	logger.Info("run started", "loop", loop, "speed", speed, "nodes", len(unit.Nodes))

	walkErr := e.walker.Walk(r.ctx, r, unit, loop, speed)

	bg := context.WithoutCancel(r.ctx)
	finishedAt := e.now()
	if err := e.units.MarkExecuted(bg, unit.ID, finishedAt); err != nil {
		logger.Warn("failed to record last run", "error", err)
	}

	st, err := r.ec.Finish(bg, r, walkErr)
	if err != nil {
		logger.Error("failed to record run outcome", "error", err)
	}
	logger.Info("run finished", "status", st.Status, "error", st.Error)

	if e.hooks.OnRunFinished != nil {
		e.hooks.OnRunFinished(bg, &domain.RunEvent{
			EventBase: domain.EventBase{Timestamp: finishedAt, Type: domain.EventRunFinished, UnitID: unit.ID, RunID: r.id},
			Status:    st.Status,
			Err:       walkErr,
		})
	}
}

// StopUnit requests a cooperative stop. The run leaves running once the
// action in flight completes.
func (e *Engine) StopUnit(ctx context.Context, unitID string) (domain.ExecutionState, error) {
	if _, err := e.units.Get(ctx, unitID); err != nil {
		return domain.ExecutionState{}, err
	}
	return e.execContext(unitID).Stop(ctx)
}

// Status returns a snapshot of the unit's execution state.
func (e *Engine) Status(ctx context.Context, unitID string) (domain.ExecutionState, error) {
	if _, err := e.units.Get(ctx, unitID); err != nil {
		return domain.ExecutionState{}, err
	}
	return e.execContext(unitID).Snapshot(ctx)
}

// Statuses returns a snapshot for every unit, in run order.
func (e *Engine) Statuses(ctx context.Context) ([]domain.ExecutionState, error) {
	units, err := e.Units(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.ExecutionState, 0, len(units))
	for _, u := range units {
		st, err := e.execContext(u.ID).Snapshot(ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}

// Units lists units in run order: by order key, ties broken by id.
func (e *Engine) Units(ctx context.Context) ([]domain.Unit, error) {
	units, err := e.units.List(ctx)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(units, func(a, b domain.Unit) int {
		if c := cmp.Compare(a.Order, b.Order); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return units, nil
}

// Unit returns a single unit definition.
func (e *Engine) Unit(ctx context.Context, unitID string) (domain.Unit, error) {
	return e.units.Get(ctx, unitID)
}

// Wait blocks until every run started so far has finished.
func (e *Engine) Wait() {
	e.wg.Wait()
}
