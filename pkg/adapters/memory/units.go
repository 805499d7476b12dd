package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aretw0/autopilot/pkg/domain"
)

// UnitRepository implements ports.UnitRepository using an in-memory map.
type UnitRepository struct {
	mu    sync.RWMutex
	units map[string]domain.Unit
	order []string
}

// NewUnitRepository creates a repository seeded with units.
// Units without an id are rejected.
func NewUnitRepository(units ...domain.Unit) (*UnitRepository, error) {
	r := &UnitRepository{
		units: make(map[string]domain.Unit, len(units)),
	}
	for _, u := range units {
		if err := r.Put(u); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Put inserts or replaces a unit.
func (r *UnitRepository) Put(u domain.Unit) error {
	if u.ID == "" {
		return fmt.Errorf("%w: unit missing ID", domain.ErrInvalidUnit)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.units[u.ID]; !exists {
		r.order = append(r.order, u.ID)
	}
	r.units[u.ID] = u
	return nil
}

// Get returns a unit by id.
func (r *UnitRepository) Get(ctx context.Context, id string) (domain.Unit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.units[id]
	if !ok {
		return domain.Unit{}, fmt.Errorf("%w: %s", domain.ErrUnitNotFound, id)
	}
	return u, nil
}

// List returns units in insertion order.
func (r *UnitRepository) List(ctx context.Context) ([]domain.Unit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Unit, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.units[id])
	}
	return out, nil
}

// MarkExecuted records the last run timestamp.
func (r *UnitRepository) MarkExecuted(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.units[id]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrUnitNotFound, id)
	}
	at = at.UTC()
	u.LastRun = &at
	r.units[id] = u
	return nil
}
