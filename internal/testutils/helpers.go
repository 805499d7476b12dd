package testutils

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/autopilot/pkg/adapters/memory"
	"github.com/aretw0/autopilot/pkg/domain"
	"github.com/stretchr/testify/require"
)

// NoSleep returns immediately, honoring cancellation.
func NoSleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

// SleepRecorder is a sleep function that records requested durations
// without waiting. Safe for concurrent use.
type SleepRecorder struct {
	mu    sync.Mutex
	calls []time.Duration
}

// Sleep records d and returns immediately, honoring cancellation.
func (r *SleepRecorder) Sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.calls = append(r.calls, d)
	r.mu.Unlock()
	return ctx.Err()
}

// Calls returns the recorded durations.
func (r *SleepRecorder) Calls() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]time.Duration, len(r.calls))
	copy(out, r.calls)
	return out
}

// Gate blocks sleeps of one specific duration until released, so a test can
// hold a run inside an action. Other durations return immediately.
type Gate struct {
	Duration time.Duration
	open     chan struct{}
	once     sync.Once
	entered  chan struct{}
	enter    sync.Once
}

// NewGate creates a closed gate for sleeps of d.
func NewGate(d time.Duration) *Gate {
	return &Gate{Duration: d, open: make(chan struct{}), entered: make(chan struct{})}
}

// Sleep blocks on the gate for the gated duration, ignoring ctx like an
// in-flight action would.
func (g *Gate) Sleep(ctx context.Context, d time.Duration) error {
	if d == g.Duration {
		g.enter.Do(func() { close(g.entered) })
		<-g.open
		return nil
	}
	return ctx.Err()
}

// Entered is closed the first time a sleep blocks on the gate.
func (g *Gate) Entered() <-chan struct{} {
	return g.entered
}

// Release opens the gate for good.
func (g *Gate) Release() {
	g.once.Do(func() { close(g.open) })
}

// WaitEntered fails the test if nothing blocks on the gate within a second.
func (g *Gate) WaitEntered(t *testing.T) {
	t.Helper()
	select {
	case <-g.entered:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for the gated action")
	}
}

// Units builds an in-memory unit repository and fails the test on error.
func Units(t *testing.T, units ...domain.Unit) *memory.UnitRepository {
	t.Helper()
	repo, err := memory.NewUnitRepository(units...)
	require.NoError(t, err, "Failed to seed unit repository")
	return repo
}

// Chain builds nodes of kind linked in declaration order: ids[0] -> ids[1] -> ...
func Chain(kind domain.ActionKind, ids ...string) []domain.Node {
	nodes := make([]domain.Node, len(ids))
	for i, id := range ids {
		nodes[i] = domain.Node{ID: id, Kind: kind}
		if i+1 < len(ids) {
			nodes[i].Connections = []string{ids[i+1]}
		}
	}
	return nodes
}
