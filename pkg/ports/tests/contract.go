package tests

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aretw0/autopilot/pkg/domain"
	"github.com/aretw0/autopilot/pkg/ports"
)

// UnitRepositoryContractTest is a reusable test suite that verifies if an adapter complies with ports.UnitRepository.
// The repository must be seeded with setupData before the call.
func UnitRepositoryContractTest(t *testing.T, repo ports.UnitRepository, setupData []domain.Unit) {
	t.Helper()
	ctx := context.Background()

	// 1. Test Get (Success)
	t.Run("Get_Success", func(t *testing.T) {
		for _, expected := range setupData {
			got, err := repo.Get(ctx, expected.ID)
			if err != nil {
				t.Fatalf("unexpected error getting unit %s: %v", expected.ID, err)
			}
			if got.ID != expected.ID || len(got.Nodes) != len(expected.Nodes) {
				t.Errorf("unit mismatch for %s. got %d nodes, want %d", expected.ID, len(got.Nodes), len(expected.Nodes))
			}
		}
	})

	// 2. Test Get (NotFound)
	t.Run("Get_NotFound", func(t *testing.T) {
		_, err := repo.Get(ctx, "non-existent-unit")
		if !errors.Is(err, domain.ErrUnitNotFound) {
			t.Errorf("expected ErrUnitNotFound, got %v", err)
		}
	})

	// 3. Test List
	t.Run("List", func(t *testing.T) {
		units, err := repo.List(ctx)
		if err != nil {
			t.Fatalf("unexpected error listing units: %v", err)
		}

		if len(units) != len(setupData) {
			t.Errorf("expected %d units, got %d", len(setupData), len(units))
		}

		lookup := make(map[string]bool)
		for _, u := range units {
			lookup[u.ID] = true
		}
		for _, u := range setupData {
			if !lookup[u.ID] {
				t.Errorf("unit %s missing from list", u.ID)
			}
		}
	})

	// 4. Test MarkExecuted
	t.Run("MarkExecuted", func(t *testing.T) {
		if len(setupData) == 0 {
			t.Skip("no units to mark")
		}
		id := setupData[0].ID
		at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

		if err := repo.MarkExecuted(ctx, id, at); err != nil {
			t.Fatalf("unexpected error marking %s: %v", id, err)
		}

		got, err := repo.Get(ctx, id)
		if err != nil {
			t.Fatalf("unexpected error getting unit %s: %v", id, err)
		}
		if got.LastRun == nil || !got.LastRun.Equal(at) {
			t.Errorf("last run mismatch for %s. got %v, want %v", id, got.LastRun, at)
		}

		if err := repo.MarkExecuted(ctx, "non-existent-unit", at); !errors.Is(err, domain.ErrUnitNotFound) {
			t.Errorf("expected ErrUnitNotFound marking unknown unit, got %v", err)
		}
	})
}
