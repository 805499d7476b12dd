package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/autopilot/pkg/domain"
	"github.com/gofrs/flock"
)

// Store implements ports.StatusStore using the local filesystem.
// Each unit's state is a JSON file; updates hold a per-unit file lock so
// several processes can share the directory.
type Store struct {
	BasePath string
}

// NewStore creates a new Store with the given base path.
// If basePath is empty, it defaults to ".autopilot/status".
func NewStore(basePath string) *Store {
	if basePath == "" {
		basePath = filepath.Join(".autopilot", "status")
	}
	return &Store{BasePath: basePath}
}

func (s *Store) path(unitID string) string {
	return filepath.Join(s.BasePath, unitID+".json")
}

// Load retrieves the unit's state from its JSON file.
func (s *Store) Load(ctx context.Context, unitID string) (domain.ExecutionState, error) {
	if unitID == "" {
		return domain.ExecutionState{}, fmt.Errorf("unitID cannot be empty")
	}
	return s.read(unitID)
}

func (s *Store) read(unitID string) (domain.ExecutionState, error) {
	data, err := os.ReadFile(s.path(unitID))
	if err != nil {
		if os.IsNotExist(err) {
			return domain.ExecutionState{}, fmt.Errorf("%w: %s", domain.ErrStateNotFound, unitID)
		}
		return domain.ExecutionState{}, fmt.Errorf("failed to read status file: %w", err)
	}

	var st domain.ExecutionState
	if err := json.Unmarshal(data, &st); err != nil {
		return domain.ExecutionState{}, fmt.Errorf("failed to unmarshal status: %w", err)
	}
	return st, nil
}

// Update applies fn under the unit's file lock and persists the result atomically.
func (s *Store) Update(ctx context.Context, unitID string, fn func(*domain.ExecutionState) error) (domain.ExecutionState, error) {
	if unitID == "" {
		return domain.ExecutionState{}, fmt.Errorf("unitID cannot be empty")
	}
	if err := os.MkdirAll(s.BasePath, 0755); err != nil {
		return domain.ExecutionState{}, fmt.Errorf("failed to ensure status directory: %w", err)
	}

	fileLock := flock.New(filepath.Join(s.BasePath, unitID+".lock"))
	locked, err := fileLock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return domain.ExecutionState{}, fmt.Errorf("failed to lock status of %s: %w", unitID, err)
	}
	if !locked {
		return domain.ExecutionState{}, fmt.Errorf("failed to lock status of %s", unitID)
	}
	defer func() { _ = fileLock.Unlock() }()

	st, err := s.read(unitID)
	if errors.Is(err, domain.ErrStateNotFound) {
		st = domain.NewExecutionState(unitID)
	} else if err != nil {
		return domain.ExecutionState{}, err
	}

	if err := fn(&st); err != nil {
		return domain.ExecutionState{}, err
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return domain.ExecutionState{}, fmt.Errorf("failed to marshal status: %w", err)
	}
	if err := writeAtomic(s.path(unitID), data); err != nil {
		return domain.ExecutionState{}, err
	}
	return st, nil
}

// Delete removes the status file.
func (s *Store) Delete(ctx context.Context, unitID string) error {
	if unitID == "" {
		return fmt.Errorf("unitID cannot be empty")
	}
	err := os.Remove(s.path(unitID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete status file: %w", err)
	}
	return nil
}

// List returns the ids of every unit with a stored state.
func (s *Store) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list status files: %w", err)
	}

	ids := []string{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".json" || strings.HasPrefix(name, "tmp-") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(ids)
	return ids, nil
}
