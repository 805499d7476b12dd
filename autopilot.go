package autopilot

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/aretw0/autopilot/internal/logging"
	"github.com/aretw0/autopilot/internal/runtime"
	"github.com/aretw0/autopilot/pkg/adapters/file"
	"github.com/aretw0/autopilot/pkg/adapters/memory"
	"github.com/aretw0/autopilot/pkg/adapters/simulated"
	"github.com/aretw0/autopilot/pkg/domain"
	"github.com/aretw0/autopilot/pkg/ports"
)

// Autopilot is the high-level entry point for the library.
// It wraps the internal engine and run-all sequencer behind a small API.
type Autopilot struct {
	engine       *runtime.Engine
	orchestrator *runtime.Orchestrator

	units       ports.UnitRepository
	store       ports.StatusStore
	actuator    ports.Actuator
	matcher     ports.ImageMatcher
	logger      *slog.Logger
	hooks       domain.LifecycleHooks
	templateDir string
	sleep       runtime.SleepFunc
	stopWait    time.Duration
	runtimeOpts []runtime.EngineOption

	// Name is the base name of the units directory, when one is used.
	Name string
}

// Option defines a functional option for configuring Autopilot.
type Option func(*Autopilot)

// WithUnits injects a unit repository, bypassing the default file repository.
func WithUnits(repo ports.UnitRepository) Option {
	return func(a *Autopilot) {
		a.units = repo
	}
}

// WithStore sets the status store. The default is an in-memory store.
func WithStore(store ports.StatusStore) Option {
	return func(a *Autopilot) {
		a.store = store
	}
}

// WithActuator sets the device backend. The default is a simulated actuator,
// which makes every run a dry run.
func WithActuator(act ports.Actuator) Option {
	return func(a *Autopilot) {
		a.actuator = act
	}
}

// WithMatcher sets the template matcher used by image nodes.
// Without one, image searches are skipped as not found.
func WithMatcher(m ports.ImageMatcher) Option {
	return func(a *Autopilot) {
		a.matcher = m
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Autopilot) {
		a.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks. Repeated calls merge.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(a *Autopilot) {
		a.hooks = a.hooks.Merge(hooks)
	}
}

// WithTemplateDir resolves relative image paths against dir.
func WithTemplateDir(dir string) Option {
	return func(a *Autopilot) {
		a.templateDir = dir
	}
}

// WithSleep replaces every timed wait. Tests use it to run instantly.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(a *Autopilot) {
		a.sleep = fn
	}
}

// WithStopWait bounds how long StopAll waits for the sequencer to exit.
func WithStopWait(d time.Duration) Option {
	return func(a *Autopilot) {
		a.stopWait = d
	}
}

// WithEngineOptions forwards low-level options to the runtime engine.
func WithEngineOptions(opts ...runtime.EngineOption) Option {
	return func(a *Autopilot) {
		a.runtimeOpts = append(a.runtimeOpts, opts...)
	}
}

// New initializes Autopilot.
// By default units are read from the YAML/JSON files in unitsDir.
// If WithUnits is provided, unitsDir can be empty.
func New(unitsDir string, opts ...Option) (*Autopilot, error) {
	a := &Autopilot{}
	for _, opt := range opts {
		opt(a)
	}

	if a.units == nil {
		if unitsDir == "" {
			return nil, fmt.Errorf("unitsDir is required when no unit repository is provided")
		}
		absPath, err := filepath.Abs(unitsDir)
		if err != nil {
			return nil, fmt.Errorf("invalid path: %w", err)
		}
		a.Name = filepath.Base(absPath)
		a.units = file.NewUnitRepository(absPath)
	}
	if a.store == nil {
		a.store = memory.NewStore()
	}
	if a.logger == nil {
		a.logger = logging.NewNop()
	}
	if a.actuator == nil {
		a.logger.Warn("No actuator configured, using the simulated backend")
		a.actuator = simulated.NewActuator()
	}

	engineOpts := []runtime.EngineOption{
		runtime.WithLogger(a.logger),
		runtime.WithLifecycleHooks(a.hooks),
		runtime.WithSleep(a.sleep),
	}
	if a.templateDir != "" {
		engineOpts = append(engineOpts, runtime.WithDispatcherOptions(runtime.WithTemplateDir(a.templateDir)))
	}
	engineOpts = append(engineOpts, a.runtimeOpts...)

	a.engine = runtime.NewEngine(a.units, a.store, a.actuator, a.matcher, engineOpts...)

	var orchOpts []runtime.OrchestratorOption
	if a.stopWait > 0 {
		orchOpts = append(orchOpts, runtime.WithStopWait(a.stopWait))
	}
	a.orchestrator = runtime.NewOrchestrator(a.engine, orchOpts...)
	return a, nil
}

// StartUnit starts a detached run of one unit and returns the running state.
// speed scales every pause; loop repeats the unit until stopped.
func (a *Autopilot) StartUnit(ctx context.Context, unitID string, loop bool, speed float64) (domain.ExecutionState, error) {
	return a.engine.StartUnit(ctx, unitID, loop, speed)
}

// StopUnit requests a cooperative stop of a unit run.
func (a *Autopilot) StopUnit(ctx context.Context, unitID string) (domain.ExecutionState, error) {
	return a.engine.StopUnit(ctx, unitID)
}

// UnitStatus returns a snapshot of a unit's execution state.
func (a *Autopilot) UnitStatus(ctx context.Context, unitID string) (domain.ExecutionState, error) {
	return a.engine.Status(ctx, unitID)
}

// Statuses returns a snapshot for every unit, in run order.
func (a *Autopilot) Statuses(ctx context.Context) ([]domain.ExecutionState, error) {
	return a.engine.Statuses(ctx)
}

// StartAll runs every unit in order on a background sequencer.
func (a *Autopilot) StartAll(ctx context.Context, loop bool, speed float64) (domain.MasterState, error) {
	return a.orchestrator.StartAll(ctx, loop, speed)
}

// StopAll stops the sequencer and every running unit.
func (a *Autopilot) StopAll(ctx context.Context) (domain.MasterState, error) {
	return a.orchestrator.StopAll(ctx)
}

// AllStatus returns a snapshot of the run-all sequence.
func (a *Autopilot) AllStatus() domain.MasterState {
	return a.orchestrator.AllStatus()
}

// Units lists unit definitions in run order.
func (a *Autopilot) Units(ctx context.Context) ([]domain.Unit, error) {
	return a.engine.Units(ctx)
}

// Unit returns a single unit definition.
func (a *Autopilot) Unit(ctx context.Context, unitID string) (domain.Unit, error) {
	return a.engine.Unit(ctx, unitID)
}

// Wait blocks until the sequencer and every run started so far have finished.
func (a *Autopilot) Wait() {
	a.orchestrator.Wait()
	a.engine.Wait()
}

// Store returns the status store in use.
func (a *Autopilot) Store() ports.StatusStore {
	return a.store
}
