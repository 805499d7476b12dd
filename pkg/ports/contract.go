package ports

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/autopilot/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunStatusStoreContract runs a suite of tests to verify that a StatusStore implementation
// adheres to the defined interface contract.
func RunStatusStoreContract(t *testing.T, store StatusStore) {
	ctx := context.Background()
	unitID := "contract-test-unit-" + time.Now().Format("20060102150405")

	t.Run("Update creates idle state lazily", func(t *testing.T) {
		id := unitID + "-lazy"
		defer func() { _ = store.Delete(ctx, id) }()

		var seen domain.ExecutionState
		_, err := store.Update(ctx, id, func(s *domain.ExecutionState) error {
			seen = *s
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, id, seen.UnitID)
		assert.Equal(t, domain.StatusIdle, seen.Status)
	})

	t.Run("Update and Load", func(t *testing.T) {
		updated, err := store.Update(ctx, unitID, func(s *domain.ExecutionState) error {
			s.Status = domain.StatusRunning
			s.IsRunning = true
			s.CurrentNode = "n1"
			s.Progress = 33
			return nil
		})
		require.NoError(t, err, "Update should not return error")
		assert.Equal(t, domain.StatusRunning, updated.Status)

		loaded, err := store.Load(ctx, unitID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, "n1", loaded.CurrentNode)
		assert.Equal(t, 33, loaded.Progress)
		assert.True(t, loaded.IsRunning)
	})

	t.Run("Update aborts on error", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := store.Update(ctx, unitID, func(s *domain.ExecutionState) error {
			s.Progress = 99
			return boom
		})
		assert.ErrorIs(t, err, boom)

		loaded, err := store.Load(ctx, unitID)
		require.NoError(t, err)
		assert.Equal(t, 33, loaded.Progress, "aborted update must not be written")
	})

	t.Run("Load returns a copy", func(t *testing.T) {
		loaded, err := store.Load(ctx, unitID)
		require.NoError(t, err)
		loaded.Progress = 0

		again, err := store.Load(ctx, unitID)
		require.NoError(t, err)
		assert.Equal(t, 33, again.Progress)
	})

	t.Run("Concurrent updates are serialized", func(t *testing.T) {
		id := unitID + "-concurrent"
		defer func() { _ = store.Delete(ctx, id) }()

		const workers = 10
		var wg sync.WaitGroup
		for range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := store.Update(ctx, id, func(s *domain.ExecutionState) error {
					s.Progress++
					return nil
				})
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		loaded, err := store.Load(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, workers, loaded.Progress)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+unitID)
		assert.ErrorIs(t, err, domain.ErrStateNotFound)
	})

	t.Run("List", func(t *testing.T) {
		id1 := unitID + "-1"
		id2 := unitID + "-2"
		noop := func(*domain.ExecutionState) error { return nil }
		_, _ = store.Update(ctx, id1, noop)
		_, _ = store.Update(ctx, id2, noop)

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, id1)
		assert.Contains(t, ids, id2)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Delete(ctx, unitID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, unitID)
		assert.ErrorIs(t, err, domain.ErrStateNotFound, "Load after Delete should return ErrStateNotFound")
	})
}
