package process

import (
	"context"
	"errors"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/aretw0/autopilot/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeExec records invocations and answers queries from a table.
type fakeExec struct {
	mu      sync.Mutex
	calls   []string
	replies map[string]string
	err     error
}

func newFakeExec(x, y int) *fakeExec {
	return &fakeExec{replies: map[string]string{
		"getmouselocation --shell": "X=" + strconv.Itoa(x) + "\nY=" + strconv.Itoa(y) + "\nSCREEN=0\nWINDOW=1234\n",
		"getdisplaygeometry":       "1920 1080\n",
	}}
}

func (f *fakeExec) Run(_ context.Context, name string, args ...string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	line := strings.Join(args, " ")
	if reply, ok := f.replies[line]; ok {
		return reply, nil
	}
	f.calls = append(f.calls, name+" "+line)
	return "", f.err
}

func (f *fakeExec) actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func TestActuator_Commands(t *testing.T) {
	ctx := context.Background()
	ex := newFakeExec(500, 500)
	a := NewActuator(ex)

	require.NoError(t, a.MoveTo(ctx, 10, 20, 0))
	require.NoError(t, a.Click(ctx, "right"))
	require.NoError(t, a.ButtonDown(ctx, "left"))
	require.NoError(t, a.ButtonUp(ctx, "bogus"))
	require.NoError(t, a.Scroll(ctx, 3))
	require.NoError(t, a.Scroll(ctx, -2))
	require.NoError(t, a.Scroll(ctx, 0))
	require.NoError(t, a.Press(ctx, "enter"))
	require.NoError(t, a.KeyDown(ctx, "f5"))
	require.NoError(t, a.KeyUp(ctx, "a"))
	require.NoError(t, a.Hotkey(ctx, "ctrl", "winleft", "pageup"))
	require.NoError(t, a.TypeText(ctx, "-n hi"))

	assert.Equal(t, []string{
		"xdotool mousemove --sync 10 20",
		"xdotool click 3",
		"xdotool mousedown 1",
		"xdotool mouseup 1",
		"xdotool click --repeat 3 4",
		"xdotool click --repeat 2 5",
		"xdotool key Return",
		"xdotool keydown F5",
		"xdotool keyup a",
		"xdotool key ctrl+super+Prior",
		"xdotool type --delay 12 -- -n hi",
	}, ex.actions())
}

func TestActuator_Queries(t *testing.T) {
	ctx := context.Background()
	a := NewActuator(newFakeExec(12, 34))

	pos, err := a.Position(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.Point{X: 12, Y: 34}, pos)

	size, err := a.ScreenSize(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.Size{Width: 1920, Height: 1080}, size)
}

func TestActuator_BadOutput(t *testing.T) {
	ex := &fakeExec{replies: map[string]string{
		"getmouselocation --shell": "garbage",
		"getdisplaygeometry":       "wide",
	}}
	a := NewActuator(ex, WithFailsafe(false))

	_, err := a.Position(context.Background())
	assert.Error(t, err)
	_, err = a.ScreenSize(context.Background())
	assert.Error(t, err)
}

func TestActuator_Failsafe(t *testing.T) {
	for _, corner := range [][2]int{{0, 0}, {1919, 0}, {0, 1079}, {1919, 1079}} {
		ex := newFakeExec(corner[0], corner[1])
		a := NewActuator(ex)

		err := a.Click(context.Background(), "left")
		assert.ErrorIs(t, err, domain.ErrFailsafe, corner)
		assert.Empty(t, ex.actions())
	}

	ex := newFakeExec(0, 0)
	require.NoError(t, NewActuator(ex, WithFailsafe(false)).Click(context.Background(), "left"))
	assert.Equal(t, []string{"xdotool click 1"}, ex.actions())
}

func TestActuator_PropagatesErrors(t *testing.T) {
	ex := newFakeExec(100, 100)
	ex.err = errors.New("no display")

	assert.ErrorContains(t, NewActuator(ex).Press(context.Background(), "a"), "no display")
}

func TestMatcher_Locate(t *testing.T) {
	ex := &fakeExec{replies: map[string]string{
		"ok.png 0.8 0,0,100,100": `{"found":true,"x":40,"y":50,"confidence":0.91}`,
		"weak.png 0.8":           `{"found":true,"x":1,"y":1,"confidence":0.5}`,
		"none.png 0.8":           `{"found":false}`,
		"bad.png 0.8":            `not json`,
	}}
	m := NewMatcher(ex)
	ctx := context.Background()

	got, err := m.Locate(ctx, "ok.png", &domain.Region{Width: 100, Height: 100}, 0.8)
	require.NoError(t, err)
	assert.True(t, got.Found)
	assert.Equal(t, domain.Point{X: 40, Y: 50}, got.Position)

	got, err = m.Locate(ctx, "weak.png", nil, 0.8)
	require.NoError(t, err)
	assert.False(t, got.Found, "below threshold")

	got, err = m.Locate(ctx, "none.png", nil, 0.8)
	require.NoError(t, err)
	assert.False(t, got.Found)

	_, err = m.Locate(ctx, "bad.png", nil, 0.8)
	assert.Error(t, err)
}

func TestRunner_Run(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}
	ctx := context.Background()

	r := NewRunner(WithRegistry([]CommandConfig{
		{Name: "greet", Command: "sh", Args: []string{"-c", `echo "$GREETING $0"`}, Environment: map[string]string{"GREETING": "hello"}},
		{Name: "fail", Command: "sh", Args: []string{"-c", "echo oops >&2; exit 3"}},
		{Name: "", Command: "ignored"},
	}))

	t.Run("Executes Registered Command", func(t *testing.T) {
		out, err := r.Run(ctx, "greet", "world")
		require.NoError(t, err)
		assert.Equal(t, "hello world\n", out)
	})

	t.Run("Arguments Are Not Shell Expanded", func(t *testing.T) {
		out, err := r.Run(ctx, "greet", "$(id)")
		require.NoError(t, err)
		assert.Equal(t, "hello $(id)\n", out)
	})

	t.Run("Reports Stderr On Failure", func(t *testing.T) {
		_, err := r.Run(ctx, "fail")
		assert.ErrorContains(t, err, "oops")
	})

	t.Run("Fails For Unregistered Command", func(t *testing.T) {
		_, err := r.Run(ctx, "hacker_script")
		assert.ErrorIs(t, err, ErrNotRegistered)
		assert.False(t, r.Registered("hacker_script"))
		assert.True(t, r.Registered("greet"))
	})
}
