package simulated_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/autopilot/pkg/adapters/simulated"
	"github.com/aretw0/autopilot/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActuator_RecordsAndTracksPointer(t *testing.T) {
	ctx := context.Background()
	a := simulated.NewActuator(simulated.WithScreen(800, 600))

	require.NoError(t, a.MoveTo(ctx, 10, 20, 0))
	require.NoError(t, a.Click(ctx, "left"))
	require.NoError(t, a.KeyDown(ctx, "ctrl"))
	require.NoError(t, a.Scroll(ctx, -3))

	pos, err := a.Position(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.Point{X: 10, Y: 20}, pos)
	assert.Equal(t, []string{"move(10,20)", "click(left)", "keydown(ctrl)", "scroll(-3)"}, a.Ops())
	assert.Equal(t, []string{"ctrl"}, a.Held())

	require.NoError(t, a.KeyUp(ctx, "ctrl"))
	assert.Empty(t, a.Held())
}

func TestActuator_Failsafe(t *testing.T) {
	ctx := context.Background()
	a := simulated.NewActuator(simulated.WithScreen(800, 600), simulated.WithFailsafe(), simulated.WithPosition(0, 0))

	err := a.Click(ctx, "left")
	assert.ErrorIs(t, err, domain.ErrFailsafe)
	assert.Empty(t, a.Calls())

	a.SetPosition(400, 300)
	assert.NoError(t, a.Click(ctx, "left"))
}

func TestActuator_FailWith(t *testing.T) {
	boom := errors.New("device unplugged")
	a := simulated.NewActuator()
	a.FailWith = func(c simulated.Call) error {
		if c.Op == "type" {
			return boom
		}
		return nil
	}

	assert.ErrorIs(t, a.TypeText(context.Background(), "hello"), boom)
	assert.NoError(t, a.Press(context.Background(), "enter"))
}

func TestMatcher_Locate(t *testing.T) {
	ctx := context.Background()
	m := simulated.NewMatcher()
	m.Place("ok.png", 50, 50, 0.95)
	m.Place("weak.png", 50, 50, 0.5)

	hit, err := m.Locate(ctx, "ok.png", nil, 0.8)
	require.NoError(t, err)
	assert.True(t, hit.Found)

	miss, _ := m.Locate(ctx, "weak.png", nil, 0.8)
	assert.False(t, miss.Found)

	outside, _ := m.Locate(ctx, "ok.png", &domain.Region{X: 100, Y: 100, Width: 10, Height: 10}, 0.8)
	assert.False(t, outside.Found)

	m.IgnoreRegion = true
	ignored, _ := m.Locate(ctx, "ok.png", &domain.Region{X: 100, Y: 100, Width: 10, Height: 10}, 0.8)
	assert.True(t, ignored.Found)
	assert.Len(t, m.Calls(), 4)
}
