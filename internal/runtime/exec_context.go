package runtime

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/aretw0/autopilot/pkg/domain"
	"github.com/aretw0/autopilot/pkg/ports"
	"github.com/google/uuid"
)

type runIDKey struct{}

func withRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

func runIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}

// errNotOwner aborts a heartbeat once the record belongs to another run.
var errNotOwner = errors.New("run no longer owns the status record")

// ExecutionContext owns the lifecycle of one unit's runs.
// The status record lives in a StatusStore; the context keeps the live run's
// cancellation token and completion signal.
//
// A running record is leased: the owning run refreshes HeartbeatAt every
// lease/3. A record whose heartbeat is older than the lease was left behind
// by a process that died, and no longer counts as running.
type ExecutionContext struct {
	unitID string
	store  ports.StatusStore
	now    func() time.Time
	lease  time.Duration

	mu      sync.Mutex
	current *activeRun
}

func newExecutionContext(unitID string, store ports.StatusStore, now func() time.Time, lease time.Duration) *ExecutionContext {
	return &ExecutionContext{unitID: unitID, store: store, now: now, lease: lease}
}

// live reports whether s is held by a run that is still alive.
// Callers hold ec.mu.
func (ec *ExecutionContext) live(s domain.ExecutionState) bool {
	if !s.IsRunning {
		return false
	}
	if ec.current != nil && ec.current.id == s.RunID {
		return true
	}
	return !ec.expired(s)
}

func (ec *ExecutionContext) expired(s domain.ExecutionState) bool {
	if ec.lease <= 0 {
		return false
	}
	last := s.HeartbeatAt
	if last == nil {
		last = s.StartedAt
	}
	if last == nil {
		return true
	}
	return ec.now().Sub(*last) > ec.lease
}

// activeRun is one in-flight run. It reports progress into the store.
type activeRun struct {
	ec     *ExecutionContext
	id     string
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	// Set before done is closed.
	final domain.ExecutionState
	err   error
}

// Done is closed once the run's terminal state is recorded.
func (r *activeRun) Done() <-chan struct{} {
	return r.done
}

// Visit implements Reporter. A stop flag raised elsewhere (another process
// sharing the store) cancels the run at this checkpoint.
func (r *activeRun) Visit(ctx context.Context, nodeID string, progress int) error {
	at := r.ec.now()
	st, err := r.ec.store.Update(context.WithoutCancel(ctx), r.ec.unitID, func(s *domain.ExecutionState) error {
		s.HeartbeatAt = &at
		// The node will not run; keep the last one that did.
		if s.ShouldStop {
			return nil
		}
		s.CurrentNode = nodeID
		s.Progress = progress
		return nil
	})
	if err != nil {
		return err
	}
	if st.ShouldStop {
		r.cancel()
	}
	return nil
}

// heartbeat refreshes the lease until the run is done. It also picks up stop
// flags raised elsewhere while a long action is in flight.
func (r *activeRun) heartbeat(every time.Duration) {
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-r.done:
			return
		case <-ticker.C:
			at := r.ec.now()
			st, err := r.ec.store.Update(context.WithoutCancel(r.ctx), r.ec.unitID, func(s *domain.ExecutionState) error {
				if !s.IsRunning || s.RunID != r.id {
					return errNotOwner
				}
				s.HeartbeatAt = &at
				return nil
			})
			if err == nil && st.ShouldStop {
				r.cancel()
			}
		}
	}
}

func (r *activeRun) close() {
	r.cancel()
	close(r.done)

	r.ec.mu.Lock()
	defer r.ec.mu.Unlock()
	if r.ec.current == r {
		r.ec.current = nil
	}
}

// Begin transitions the unit to running and resets its record, failing with
// domain.ErrConflict if a live run is already in progress. The check and the
// transition are a single store update. An expired record is taken over.
//
// The returned run is detached from parent's cancellation.
func (ec *ExecutionContext) Begin(parent context.Context) (*activeRun, error) {
	ec.mu.Lock()
	defer ec.mu.Unlock()

	runID := uuid.NewString()
	startedAt := ec.now()
	_, err := ec.store.Update(parent, ec.unitID, func(s *domain.ExecutionState) error {
		if ec.live(*s) {
			return domain.ErrConflict
		}
		*s = domain.ExecutionState{
			UnitID:      ec.unitID,
			RunID:       runID,
			IsRunning:   true,
			Status:      domain.StatusRunning,
			StartedAt:   &startedAt,
			HeartbeatAt: &startedAt,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(withRunID(context.WithoutCancel(parent), runID))
	r := &activeRun{
		ec:     ec,
		id:     runID,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	ec.current = r
	go r.heartbeat(ec.lease / 3)
	return r, nil
}

// Stop raises the stop flag and cancels the live run, if any.
// It is a no-op for a unit that is not running. An expired record is
// finalized as stopped right away since no run is left to honor the flag.
func (ec *ExecutionContext) Stop(ctx context.Context) (domain.ExecutionState, error) {
	ec.mu.Lock()
	defer ec.mu.Unlock()

	st, err := ec.store.Update(ctx, ec.unitID, func(s *domain.ExecutionState) error {
		if !s.IsRunning {
			return nil
		}
		if !ec.live(*s) {
			finishedAt := ec.now()
			s.IsRunning = false
			s.ShouldStop = true
			s.Status = domain.StatusStopped
			s.FinishedAt = &finishedAt
			return nil
		}
		s.ShouldStop = true
		s.Status = domain.StatusStopping
		return nil
	})
	if err != nil {
		return domain.ExecutionState{}, err
	}

	if ec.current != nil {
		ec.current.cancel()
	}
	return st, nil
}

// Finish records the terminal state of r.
//
// An error recorded during the run is never overwritten. Otherwise a failsafe
// ends as error with should_stop raised, a stop request ends as stopped and a
// natural end as completed at 100%.
func (ec *ExecutionContext) Finish(ctx context.Context, r *activeRun, walkErr error) (domain.ExecutionState, error) {
	ec.mu.Lock()
	defer ec.mu.Unlock()

	finishedAt := ec.now()
	st, err := ec.store.Update(ctx, ec.unitID, func(s *domain.ExecutionState) error {
		s.IsRunning = false
		s.FinishedAt = &finishedAt

		var failsafe *domain.FailsafeError
		switch {
		case errors.As(walkErr, &failsafe):
			s.Status = domain.StatusError
			s.ShouldStop = true
			s.Error = domain.FailsafeMessage
		case walkErr != nil:
			s.Status = domain.StatusError
			s.Error = walkErr.Error()
		case s.Status == domain.StatusError:
		case s.ShouldStop:
			s.Status = domain.StatusStopped
		default:
			s.Status = domain.StatusCompleted
			s.Progress = 100
			s.CurrentNode = ""
		}
		return nil
	})

	r.final = st
	r.err = walkErr
	return st, err
}

// Running reports whether the unit has a live run.
func (ec *ExecutionContext) Running(ctx context.Context) (bool, error) {
	st, err := ec.Snapshot(ctx)
	if err != nil {
		return false, err
	}
	ec.mu.Lock()
	defer ec.mu.Unlock()
	return ec.live(st), nil
}

// Snapshot returns a copy of the unit's state, idle if it never ran.
func (ec *ExecutionContext) Snapshot(ctx context.Context) (domain.ExecutionState, error) {
	st, err := ec.store.Load(ctx, ec.unitID)
	if errors.Is(err, domain.ErrStateNotFound) {
		return domain.NewExecutionState(ec.unitID), nil
	}
	return st, err
}
