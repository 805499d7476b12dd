package runtime

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aretw0/autopilot/internal/testutils"
	"github.com/aretw0/autopilot/pkg/adapters/simulated"
	"github.com/aretw0/autopilot/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rig struct {
	act     *simulated.Actuator
	matcher *simulated.Matcher
	sleeps  *testutils.SleepRecorder
	d       *Dispatcher
}

func newRig(opts ...DispatcherOption) *rig {
	r := &rig{
		act:     simulated.NewActuator(simulated.WithScreen(1920, 1080), simulated.WithPosition(300, 400)),
		matcher: simulated.NewMatcher(),
		sleeps:  &testutils.SleepRecorder{},
	}
	base := []DispatcherOption{
		WithPause(r.sleeps.Sleep),
		WithRandom(func() float64 { return 0.75 }), // offset = +0.5 * bound
		WithTemplateCheck(func(path string) bool { return path != "missing.png" }),
	}
	r.d = NewDispatcher(r.act, r.matcher, append(base, opts...)...)
	return r
}

func (r *rig) exec(t *testing.T, unit domain.Unit, kind domain.ActionKind, params map[string]any) Outcome {
	t.Helper()
	out, err := r.d.Execute(context.Background(), unit, domain.Node{ID: "n1", Kind: kind, Params: params})
	require.NoError(t, err)
	return out
}

func TestDispatcher_Pointer(t *testing.T) {
	free := domain.Unit{ID: "u"}

	tests := []struct {
		name    string
		kind    domain.ActionKind
		params  map[string]any
		ops     []string
		skipped bool
	}{
		{
			name:   "click absolute",
			kind:   domain.ActionClick,
			params: map[string]any{"x": 100, "y": 200},
			ops:    []string{"move(100,200)", "click(left)"},
		},
		{
			name:   "click with jitter truncates",
			kind:   domain.ActionClick,
			params: map[string]any{"x": 100, "y": 200, "x_random": 10.0, "y_random": 3},
			ops:    []string{"move(105,201)", "click(left)"},
		},
		{
			name:   "click current position in place",
			kind:   domain.ActionClick,
			params: map[string]any{"position_mode": "current", "x": 5, "y": 5},
			ops:    []string{"click(left)"},
		},
		{
			name:   "click current position with jitter moves",
			kind:   domain.ActionClick,
			params: map[string]any{"position_mode": "current", "x_random": 4},
			ops:    []string{"move(302,400)", "click(left)"},
		},
		{
			name:    "click at unset origin is skipped",
			kind:    domain.ActionClick,
			params:  map[string]any{"x": 0, "y": 0},
			skipped: true,
		},
		{
			name:    "move at unset origin is skipped",
			kind:    domain.ActionMove,
			params:  nil,
			skipped: true,
		},
		{
			name:   "mousedown at origin uses current position",
			kind:   domain.ActionMouseDown,
			params: map[string]any{"x": 0, "y": 0, "x_random": 50, "button": "right"},
			ops:    []string{"move(300,400)", "buttondown(right)"},
		},
		{
			name:   "mouseup",
			kind:   domain.ActionMouseUp,
			params: map[string]any{"x": 10, "y": 10},
			ops:    []string{"move(10,10)", "buttonup(left)"},
		},
		{
			name:   "scroll at origin uses current position",
			kind:   domain.ActionScroll,
			params: map[string]any{"direction": "down", "clicks": 5},
			ops:    []string{"move(300,400)", "scroll(-5)"},
		},
		{
			name:   "scroll defaults up by three",
			kind:   domain.ActionScroll,
			params: map[string]any{"x": 20, "y": 30},
			ops:    []string{"move(20,30)", "scroll(3)"},
		},
		{
			name:   "screen edge is inclusive",
			kind:   domain.ActionMove,
			params: map[string]any{"x": 1920, "y": 1080},
			ops:    []string{"move(1920,1080)"},
		},
		{
			name:    "outside screen is skipped",
			kind:    domain.ActionMove,
			params:  map[string]any{"x": 1921, "y": 10},
			skipped: true,
		},
		{
			name:   "string coordinates are accepted",
			kind:   domain.ActionMove,
			params: map[string]any{"x": "15", "y": "25"},
			ops:    []string{"move(15,25)"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRig()
			out := r.exec(t, free, tt.kind, tt.params)
			assert.Equal(t, tt.skipped, out.Skipped, out.Reason)
			if tt.skipped {
				assert.Empty(t, r.act.Calls())
				return
			}
			assert.Equal(t, tt.ops, r.act.Ops())
		})
	}
}

func TestDispatcher_ClickOutsideBoundaryIsSkipped(t *testing.T) {
	r := newRig()
	unit := domain.Unit{ID: "u", Boundary: &domain.Boundary{X: 0, Y: 0, Width: 100, Height: 100}}

	out := r.exec(t, unit, domain.ActionClick, map[string]any{"x": 500, "y": 500})

	assert.True(t, out.Skipped)
	assert.Contains(t, out.Reason, "boundary")
	assert.Empty(t, r.act.Calls(), "no actuator interaction")
}

func TestDispatcher_ClickSettles(t *testing.T) {
	r := newRig()
	r.exec(t, domain.Unit{ID: "u"}, domain.ActionClick, map[string]any{"x": 1, "y": 1})

	calls := r.act.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, 100*time.Millisecond, calls[0].Duration)
	assert.Equal(t, []time.Duration{100 * time.Millisecond}, r.sleeps.Calls())
}

func TestDispatcher_MoveDuration(t *testing.T) {
	tests := []struct {
		name   string
		params map[string]any
		want   time.Duration
	}{
		{"default", map[string]any{}, 200 * time.Millisecond},
		{"speed factor", map[string]any{"duration": 1.0, "speed_factor": 2}, 500 * time.Millisecond},
		{"floor", map[string]any{"duration": 0.01}, 50 * time.Millisecond},
		// 0.75 random -> +0.5 * spread on both: 1.2s / 1.1
		{"randomized", map[string]any{"duration": 1.0, "duration_random": 0.4, "speed_factor": 1.0, "speed_random": 0.2}, 1090909090 * time.Nanosecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRig()
			tt.params["x"], tt.params["y"] = 10, 10
			r.exec(t, domain.Unit{ID: "u"}, domain.ActionMove, tt.params)

			calls := r.act.Calls()
			require.Len(t, calls, 1)
			assert.InDelta(t, float64(tt.want), float64(calls[0].Duration), float64(time.Millisecond))
		})
	}
}

func TestDispatcher_Keyboard(t *testing.T) {
	tests := []struct {
		name    string
		params  map[string]any
		ops     []string
		skipped bool
	}{
		{"text", map[string]any{"input_type": "text", "text": "hello"}, []string{"type(hello)"}, false},
		{"empty text", map[string]any{"text": ""}, nil, true},
		{"key tap", map[string]any{"input_type": "key", "key": "a"}, []string{"press(a)"}, false},
		{"key hold", map[string]any{"input_type": "key", "key": "a", "hold_duration": 0.5}, []string{"keydown(a)", "keyup(a)"}, false},
		{"special mapped", map[string]any{"input_type": "special", "special_key": "page_up"}, []string{"press(pageup)"}, false},
		{"special win", map[string]any{"input_type": "special", "special_key": "win"}, []string{"press(winleft)"}, false},
		{"special passthrough", map[string]any{"input_type": "special", "special_key": "enter"}, []string{"press(enter)"}, false},
		{"combo hotkey", map[string]any{"input_type": "combo", "key": "c", "modifier_keys": "Ctrl + Shift"}, []string{"hotkey(ctrl+shift+c)"}, false},
		{"combo win modifier", map[string]any{"input_type": "combo", "key": "d", "modifier_keys": "win"}, []string{"hotkey(winleft+d)"}, false},
		{
			"combo hold releases in reverse",
			map[string]any{"input_type": "combo", "key": "v", "modifier_keys": "ctrl+alt", "hold_duration": 1},
			[]string{"keydown(ctrl)", "keydown(alt)", "keydown(v)", "keyup(v)", "keyup(alt)", "keyup(ctrl)"},
			false,
		},
		{"combo without modifiers", map[string]any{"input_type": "combo", "key": "x"}, []string{"press(x)"}, false},
		{"unknown input type", map[string]any{"input_type": "morse"}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRig()
			out := r.exec(t, domain.Unit{ID: "u"}, domain.ActionKeyboard, tt.params)
			assert.Equal(t, tt.skipped, out.Skipped)
			assert.Equal(t, tt.ops, nilIfEmpty(r.act.Ops()))
		})
	}
}

func nilIfEmpty(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	return s
}

func TestDispatcher_KeyboardFailureReleasesModifiers(t *testing.T) {
	r := newRig()
	boom := errors.New("keyboard gone")
	r.act.FailWith = func(c simulated.Call) error {
		if c.Op == "keydown" && c.Arg == "v" {
			return boom
		}
		return nil
	}

	_, err := r.d.Execute(context.Background(), domain.Unit{ID: "u"}, domain.Node{
		ID:     "k",
		Kind:   domain.ActionKeyboard,
		Params: map[string]any{"input_type": "combo", "key": "v", "modifier_keys": "ctrl", "hold_duration": 1},
	})

	var actionErr *domain.ActionError
	require.ErrorAs(t, err, &actionErr)
	assert.Equal(t, "k", actionErr.NodeID)
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, r.act.Held(), "modifiers must be released")
	assert.Equal(t, []string{"keydown(ctrl)", "keyup(ctrl)", "keyup(alt)", "keyup(shift)", "keyup(cmd)", "keyup(winleft)"}, r.act.Ops())
}

func TestDispatcher_Wait(t *testing.T) {
	r := newRig()
	r.exec(t, domain.Unit{ID: "u"}, domain.ActionWait, map[string]any{"duration": 0.01})
	r.exec(t, domain.Unit{ID: "u"}, domain.ActionWait, nil)
	r.exec(t, domain.Unit{ID: "u"}, domain.ActionWait, map[string]any{"duration": 2.5})

	assert.Equal(t, []time.Duration{100 * time.Millisecond, time.Second, 2500 * time.Millisecond}, r.sleeps.Calls())
	assert.Empty(t, r.act.Calls())
}

func TestDispatcher_Image(t *testing.T) {
	boundary := &domain.Boundary{X: 0, Y: 0, Width: 200, Height: 200}

	t.Run("missing template is skipped", func(t *testing.T) {
		r := newRig()
		out := r.exec(t, domain.Unit{ID: "u"}, domain.ActionClickImage, map[string]any{"image_path": "missing.png"})
		assert.True(t, out.Skipped)
		assert.Empty(t, r.matcher.Calls())
	})

	t.Run("not found is skipped", func(t *testing.T) {
		r := newRig()
		out := r.exec(t, domain.Unit{ID: "u"}, domain.ActionFindImage, map[string]any{"image_path": "ok.png"})
		assert.True(t, out.Skipped)
		require.Len(t, r.matcher.Calls(), 1)
		assert.Equal(t, 0.8, r.matcher.Calls()[0].Threshold)
	})

	t.Run("find performs no device action", func(t *testing.T) {
		r := newRig()
		r.matcher.Place("ok.png", 50, 60, 0.9)
		out := r.exec(t, domain.Unit{ID: "u"}, domain.ActionFindImage, map[string]any{"image_path": "ok.png"})
		assert.False(t, out.Skipped)
		assert.Empty(t, r.act.Calls())
	})

	t.Run("follow moves to match", func(t *testing.T) {
		r := newRig()
		r.matcher.Place("ok.png", 50, 60, 0.9)
		r.exec(t, domain.Unit{ID: "u", Boundary: boundary}, domain.ActionFollowImage, map[string]any{"image_path": "ok.png", "threshold": 0.85})

		assert.Equal(t, []string{"move(50,60)"}, r.act.Ops())
		call := r.matcher.Calls()[0]
		assert.Equal(t, &domain.Region{X: 0, Y: 0, Width: 200, Height: 200}, call.Region)
		assert.Equal(t, 0.85, call.Threshold)
	})

	t.Run("click applies jitter", func(t *testing.T) {
		r := newRig()
		r.matcher.Place("ok.png", 50, 60, 0.9)
		r.exec(t, domain.Unit{ID: "u"}, domain.ActionClickImage, map[string]any{"image_path": "ok.png", "x_random": 10})
		assert.Equal(t, []string{"move(55,60)", "click(left)"}, r.act.Ops())
	})

	t.Run("match outside boundary is revalidated", func(t *testing.T) {
		r := newRig()
		r.matcher.IgnoreRegion = true
		r.matcher.Place("ok.png", 500, 500, 0.9)
		out := r.exec(t, domain.Unit{ID: "u", Boundary: boundary}, domain.ActionClickImage, map[string]any{"image_path": "ok.png"})
		assert.True(t, out.Skipped)
		assert.Empty(t, r.act.Calls())
	})

	t.Run("relative paths resolve against template dir", func(t *testing.T) {
		r := newRig(WithTemplateDir("/assets"))
		r.matcher.Place("/assets/ok.png", 5, 5, 1)
		out := r.exec(t, domain.Unit{ID: "u"}, domain.ActionFollowImage, map[string]any{"image_path": "ok.png"})
		assert.False(t, out.Skipped)
	})

	t.Run("no matcher", func(t *testing.T) {
		r := newRig()
		r.d.matcher = nil
		out := r.exec(t, domain.Unit{ID: "u"}, domain.ActionFindImage, map[string]any{"image_path": "ok.png"})
		assert.True(t, out.Skipped)
	})
}

func TestDispatcher_Condition(t *testing.T) {
	tests := []struct {
		name   string
		params map[string]any
		want   bool
	}{
		{"image present", map[string]any{"image_path": "ok.png"}, true},
		{"image absent", map[string]any{"image_path": "other.png"}, false},
		{"image file missing", map[string]any{"condition_type": "image_exists", "image_path": "missing.png"}, false},
		{"node result default", map[string]any{"condition_type": "node_result"}, true},
		{"node result false", map[string]any{"condition_type": "node_result", "expected_result": "false"}, false},
		{"node result bool", map[string]any{"condition_type": "node_result", "expected_result": false}, false},
		{"unknown type", map[string]any{"condition_type": "weather"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRig()
			r.matcher.Place("ok.png", 10, 10, 0.99)
			out := r.exec(t, domain.Unit{ID: "u"}, domain.ActionIf, tt.params)
			require.NotNil(t, out.Condition)
			assert.Equal(t, tt.want, *out.Condition)
			assert.Empty(t, r.act.Calls())
		})
	}
}

func TestDispatcher_Errors(t *testing.T) {
	t.Run("failsafe", func(t *testing.T) {
		r := newRig()
		r.act.FailWith = func(simulated.Call) error { return domain.ErrFailsafe }

		_, err := r.d.Execute(context.Background(), domain.Unit{ID: "u"}, domain.Node{ID: "n", Kind: domain.ActionClick, Params: map[string]any{"x": 1, "y": 1}})
		var fe *domain.FailsafeError
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, domain.FailsafeMessage, err.Error())
	})

	t.Run("generic failure", func(t *testing.T) {
		r := newRig()
		r.act.FailWith = func(simulated.Call) error { return errors.New("bus error") }

		_, err := r.d.Execute(context.Background(), domain.Unit{ID: "u"}, domain.Node{ID: "n", Kind: domain.ActionMove, Params: map[string]any{"x": 1, "y": 1}})
		var ae *domain.ActionError
		require.ErrorAs(t, err, &ae)
		assert.Equal(t, domain.ActionMove, ae.Kind)
		assert.NotErrorIs(t, err, domain.ErrFailsafe)
	})

	t.Run("invalid params", func(t *testing.T) {
		r := newRig()
		_, err := r.d.Execute(context.Background(), domain.Unit{ID: "u"}, domain.Node{ID: "n", Kind: domain.ActionMove, Params: map[string]any{"x": "left"}})
		assert.Error(t, err)
	})

	t.Run("unknown kind is skipped", func(t *testing.T) {
		r := newRig()
		out := r.exec(t, domain.Unit{ID: "u"}, domain.ActionKind("teleport"), nil)
		assert.True(t, out.Skipped)
	})

	t.Run("connection marker does nothing", func(t *testing.T) {
		r := newRig()
		out := r.exec(t, domain.Unit{ID: "u"}, domain.ActionConnection, map[string]any{"source_id": "a", "target_id": "b"})
		assert.False(t, out.Skipped)
		assert.Empty(t, r.act.Calls())
	})
}
