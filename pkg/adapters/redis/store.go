package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/autopilot/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// maxTxRetries bounds optimistic transaction retries under contention.
const maxTxRetries = 100

// ErrContention is returned when Update cannot commit after maxTxRetries attempts.
var ErrContention = errors.New("redis: too much contention on execution state")

// Store implements ports.StatusStore using Redis.
// Each state is a JSON string; read-modify-write cycles use WATCH/MULTI so
// several autopilot processes can share one status table.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type Option func(*Store)

// WithTTL sets the expiration for execution states.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix for execution states.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: "autopilot:status:",
		ttl:    0, // No expiration by default
	}

	for _, opt := range opts {
		opt(store)
	}

	return store
}

func (s *Store) key(unitID string) string {
	return s.prefix + unitID
}

func (s *Store) indexKey() string {
	return s.prefix + "index"
}

// Load retrieves the state from Redis.
func (s *Store) Load(ctx context.Context, unitID string) (domain.ExecutionState, error) {
	val, err := s.client.Get(ctx, s.key(unitID)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return domain.ExecutionState{}, domain.ErrStateNotFound
		}
		return domain.ExecutionState{}, fmt.Errorf("failed to get from redis: %w", err)
	}
	return decode(val)
}

// Update runs fn inside an optimistic transaction on the unit key.
func (s *Store) Update(ctx context.Context, unitID string, fn func(*domain.ExecutionState) error) (domain.ExecutionState, error) {
	key := s.key(unitID)
	var result domain.ExecutionState

	txf := func(tx *backend.Tx) error {
		state := domain.NewExecutionState(unitID)

		val, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, backend.Nil):
		case err != nil:
			return fmt.Errorf("failed to get from redis: %w", err)
		default:
			if state, err = decode(val); err != nil {
				return err
			}
		}

		if err := fn(&state); err != nil {
			return err
		}

		data, err := json.Marshal(state)
		if err != nil {
			return fmt.Errorf("failed to marshal state: %w", err)
		}

		// Score = Now + TTL. If TTL = 0, Score = +Inf (approx).
		score := float64(time.Now().Add(s.ttl).Unix())
		if s.ttl == 0 {
			score = 4102444800 // 2100-01-01
		}

		_, err = tx.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
			pipe.Set(ctx, key, data, s.ttl)
			pipe.ZAdd(ctx, s.indexKey(), backend.Z{Score: score, Member: unitID})
			return nil
		})
		if err == nil {
			result = state
		}
		return err
	}

	for range maxTxRetries {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, backend.TxFailedErr) {
			continue
		}
		return domain.ExecutionState{}, err
	}
	return domain.ExecutionState{}, ErrContention
}

// Delete removes the state.
func (s *Store) Delete(ctx context.Context, unitID string) error {
	pipe := s.client.Pipeline()

	pipe.Del(ctx, s.key(unitID))
	pipe.ZRem(ctx, s.indexKey(), unitID)

	_, err := pipe.Exec(ctx)
	return err
}

// List returns recorded unit ids, pruning expired entries from the index first.
func (s *Store) List(ctx context.Context) ([]string, error) {
	now := float64(time.Now().Unix())

	err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", fmt.Sprintf("%f", now)).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to prune expired states: %w", err)
	}

	ids, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list states: %w", err)
	}

	return ids, nil
}

// Ping checks connectivity, used by health probes.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}

func decode(val []byte) (domain.ExecutionState, error) {
	var state domain.ExecutionState
	if err := json.Unmarshal(val, &state); err != nil {
		return domain.ExecutionState{}, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	return state, nil
}
