package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/autopilot/pkg/adapters/redis"
	"github.com/aretw0/autopilot/pkg/domain"
	"github.com/aretw0/autopilot/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T, opts ...redis.Option) (*redis.Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err, "Failed to start miniredis")
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{
		Addr: mr.Addr(),
	})
	store := redis.NewFromClient(client, opts...)
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func TestRedisStore_Contract(t *testing.T) {
	store, _ := newStore(t)
	ports.RunStatusStoreContract(t, store)
}

func TestRedisStore_ConflictCheckIsAtomic(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	begin := func(s *domain.ExecutionState) error {
		if s.IsRunning {
			return domain.ErrConflict
		}
		s.IsRunning = true
		s.Status = domain.StatusRunning
		return nil
	}

	_, err := store.Update(ctx, "u1", begin)
	require.NoError(t, err)

	_, err = store.Update(ctx, "u1", begin)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestRedisStore_TTL(t *testing.T) {
	store, mr := newStore(t, redis.WithTTL(time.Minute), redis.WithPrefix("test:"))
	ctx := context.Background()

	_, err := store.Update(ctx, "u1", func(*domain.ExecutionState) error { return nil })
	require.NoError(t, err)
	assert.True(t, mr.Exists("test:u1"))

	mr.FastForward(2 * time.Minute)

	_, err = store.Load(ctx, "u1")
	assert.ErrorIs(t, err, domain.ErrStateNotFound)
	assert.NoError(t, store.Ping(ctx))
}
