package ports

import (
	"context"
	"time"

	"github.com/aretw0/autopilot/pkg/domain"
)

// UnitRepository is the storage collaborator that owns unit definitions.
// The engine only reads units, except for the last-run timestamp.
type UnitRepository interface {
	// Get returns a unit by id or domain.ErrUnitNotFound.
	Get(ctx context.Context, id string) (domain.Unit, error)

	// List returns every unit. Ordering is left to the caller.
	List(ctx context.Context) ([]domain.Unit, error)

	// MarkExecuted records the time a run of the unit finished.
	MarkExecuted(ctx context.Context, id string, at time.Time) error
}
