package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/autopilot/pkg/domain"
)

// Store implements ports.StatusStore in memory.
// Safe for concurrent use. ExecutionState has no reference fields besides
// timestamps, so a value copy isolates callers from the table.
type Store struct {
	data map[string]domain.ExecutionState
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]domain.ExecutionState),
	}
}

// Load retrieves a copy of the state.
func (s *Store) Load(ctx context.Context, unitID string) (domain.ExecutionState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.data[unitID]
	if !ok {
		return domain.ExecutionState{}, domain.ErrStateNotFound
	}
	return state, nil
}

// Update applies fn under the write lock.
// fn runs on a copy, so an error leaves the stored value untouched.
func (s *Store) Update(ctx context.Context, unitID string, fn func(*domain.ExecutionState) error) (domain.ExecutionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.data[unitID]
	if !ok {
		state = domain.NewExecutionState(unitID)
	}

	if err := fn(&state); err != nil {
		return domain.ExecutionState{}, err
	}

	s.data[unitID] = state
	return state, nil
}

// Delete removes the state.
func (s *Store) Delete(ctx context.Context, unitID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, unitID)
	return nil
}

// List returns the ids of units with a recorded state.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
