package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/autopilot/pkg/domain"
)

const (
	// cyclePause separates two cycles of a looping run-all sequence.
	cyclePause = time.Second
	// stopAllWait bounds how long StopAll waits for the sequencer to exit.
	stopAllWait = 2 * time.Second
)

// Orchestrator runs every unit one after another.
//
// A unit that ends in error is skipped and the sequence moves on. A failsafe
// aborts the whole sequence, since the operator has to intervene first.
type Orchestrator struct {
	engine   *Engine
	logger   *slog.Logger
	sleep    SleepFunc
	stopWait time.Duration

	mu     sync.Mutex
	state  domain.MasterState
	gen    int
	cancel context.CancelFunc
	done   chan struct{}
}

// OrchestratorOption configures the Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithStopWait bounds how long StopAll waits for the sequencer.
func WithStopWait(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		o.stopWait = d
	}
}

// NewOrchestrator creates a run-all sequencer over engine's units.
// It shares the engine's logger and sleep function.
func NewOrchestrator(engine *Engine, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		engine:   engine,
		logger:   engine.logger.With("component", "orchestrator"),
		sleep:    engine.sleep,
		stopWait: stopAllWait,
		state:    domain.MasterState{Status: domain.StatusIdle},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// StartAll starts the sequencer and returns immediately. Units run with
// loop=false regardless of loop, which instead repeats the whole sequence.
// It fails with domain.ErrConflict if a sequence or any unit is running.
func (o *Orchestrator) StartAll(ctx context.Context, loop bool, speed float64) (domain.MasterState, error) {
	if err := checkSpeed(speed); err != nil {
		return domain.MasterState{}, err
	}

	if o.AllStatus().IsRunning {
		return domain.MasterState{}, fmt.Errorf("run-all sequence: %w", domain.ErrConflict)
	}

	// Store I/O happens outside the lock so status polls never wait on it.
	units, err := o.engine.Units(ctx)
	if err != nil {
		return domain.MasterState{}, err
	}
	for _, u := range units {
		running, err := o.engine.execContext(u.ID).Running(ctx)
		if err != nil {
			return domain.MasterState{}, err
		}
		if running {
			return domain.MasterState{}, fmt.Errorf("unit %s: %w", u.ID, domain.ErrConflict)
		}
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	// Another StartAll may have won the race while the lock was released.
	if o.state.IsRunning {
		return domain.MasterState{}, fmt.Errorf("run-all sequence: %w", domain.ErrConflict)
	}

	o.gen++
	if len(units) == 0 {
		o.state = domain.MasterState{Status: domain.StatusCompleted, Progress: 100}
		return o.state, nil
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	o.cancel = cancel
	o.done = make(chan struct{})
	o.state = domain.MasterState{
		IsRunning:  true,
		Status:     domain.StatusRunning,
		TotalUnits: len(units),
	}

	o.logger.Info("run-all started", "units", len(units), "loop", loop, "speed", speed)
	go o.sequence(runCtx, o.gen, o.done, units, loop, speed)
	return o.state, nil
}

func (o *Orchestrator) sequence(ctx context.Context, gen int, done chan struct{}, units []domain.Unit, loop bool, speed float64) {
	defer close(done)
	total := len(units)

	for cycle := 1; ; cycle++ {
		for i, u := range units {
			if ctx.Err() != nil {
				o.finish(gen, domain.StatusStopped, "")
				return
			}
			o.update(gen, func(s *domain.MasterState) {
				s.CurrentUnit = u.DisplayName()
				s.UnitsCompleted = i
				s.Progress = i * 100 / total
			})

			r, err := o.engine.start(ctx, u, false, speed)
			if err != nil {
				o.logger.Error("run-all aborted: unit could not start", "unit_id", u.ID, "error", err)
				o.finish(gen, domain.StatusError, err.Error())
				return
			}

			select {
			case <-r.Done():
			case <-ctx.Done():
				if _, err := o.engine.execContext(u.ID).Stop(context.WithoutCancel(ctx)); err != nil {
					o.logger.Warn("failed to stop unit", "unit_id", u.ID, "error", err)
				}
				<-r.Done()
			}

			var failsafe *domain.FailsafeError
			switch {
			case errors.As(r.err, &failsafe):
				o.logger.Error("run-all aborted: failsafe", "unit_id", u.ID)
				o.finish(gen, domain.StatusError, domain.FailsafeMessage)
				return
			case r.final.Status == domain.StatusError:
				o.logger.Warn("unit failed, continuing with next unit", "unit_id", u.ID, "error", r.final.Error)
			}

			o.update(gen, func(s *domain.MasterState) {
				s.UnitsCompleted = i + 1
			})
		}

		o.update(gen, func(s *domain.MasterState) {
			s.Progress = 100
		})

		if !loop {
			o.finish(gen, domain.StatusCompleted, "")
			return
		}
		o.logger.Debug("run-all cycle finished", "cycle", cycle)
		if err := o.sleep(ctx, cyclePause); err != nil {
			o.finish(gen, domain.StatusStopped, "")
			return
		}
	}
}

func (o *Orchestrator) update(gen int, fn func(*domain.MasterState)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.gen == gen {
		fn(&o.state)
	}
}

func (o *Orchestrator) finish(gen int, status domain.ExecutionStatus, msg string) {
	o.update(gen, func(s *domain.MasterState) {
		if !s.IsRunning {
			return
		}
		s.IsRunning = false
		s.Status = status
		s.Error = msg
		if status == domain.StatusCompleted {
			s.CurrentUnit = ""
		}
	})
}

// StopAll stops the sequence and every running unit, then waits (bounded)
// for the sequencer to exit. The sequence ends as stopped.
func (o *Orchestrator) StopAll(ctx context.Context) (domain.MasterState, error) {
	o.mu.Lock()
	gen, cancel, done := o.gen, o.cancel, o.done
	if o.state.IsRunning {
		o.state.Status = domain.StatusStopping
	}
	o.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	units, err := o.engine.Units(ctx)
	if err != nil {
		return domain.MasterState{}, err
	}
	for _, u := range units {
		st, err := o.engine.execContext(u.ID).Snapshot(ctx)
		if err != nil || !st.IsRunning {
			continue
		}
		if _, err := o.engine.execContext(u.ID).Stop(ctx); err != nil {
			o.logger.Warn("failed to stop unit", "unit_id", u.ID, "error", err)
		}
	}

	if done != nil {
		select {
		case <-done:
		case <-time.After(o.stopWait):
			o.logger.Warn("sequencer did not exit in time", "wait", o.stopWait)
		}
	}

	o.finish(gen, domain.StatusStopped, "")
	return o.AllStatus(), nil
}

// AllStatus returns a snapshot of the sequence state.
func (o *Orchestrator) AllStatus() domain.MasterState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Wait blocks until the current sequence exits.
func (o *Orchestrator) Wait() {
	o.mu.Lock()
	done := o.done
	o.mu.Unlock()
	if done != nil {
		<-done
	}
}
