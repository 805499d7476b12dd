package ports

import (
	"context"

	"github.com/aretw0/autopilot/pkg/domain"
)

// StatusStore holds the ExecutionState of every unit.
// Reads always return copies. Writes go through Update, which is atomic per unit.
type StatusStore interface {
	// Load retrieves the state for a unit.
	// Returns domain.ErrStateNotFound if no run was ever recorded.
	Load(ctx context.Context, unitID string) (domain.ExecutionState, error)

	// Update applies fn to the current state (an idle state when none exists yet)
	// and persists the result atomically. If fn returns an error nothing is written
	// and the error is returned unchanged.
	Update(ctx context.Context, unitID string, fn func(*domain.ExecutionState) error) (domain.ExecutionState, error)

	// Delete removes the state for a unit.
	Delete(ctx context.Context, unitID string) error

	// List returns the ids of all units with a recorded state.
	List(ctx context.Context) ([]string, error)
}
