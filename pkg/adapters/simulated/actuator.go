package simulated

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/autopilot/pkg/domain"
)

// Call is one recorded actuator invocation.
type Call struct {
	Op       string        `json:"op"`
	X        int           `json:"x,omitempty"`
	Y        int           `json:"y,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
	Arg      string        `json:"arg,omitempty"`
	Amount   int           `json:"amount,omitempty"`
}

func (c Call) String() string {
	switch c.Op {
	case "move":
		return fmt.Sprintf("move(%d,%d)", c.X, c.Y)
	case "scroll":
		return fmt.Sprintf("scroll(%d)", c.Amount)
	}
	if c.Arg != "" {
		return c.Op + "(" + c.Arg + ")"
	}
	return c.Op
}

// Actuator implements ports.Actuator without touching real devices.
// Safe for concurrent use.
type Actuator struct {
	mu       sync.Mutex
	screen   domain.Size
	pos      domain.Point
	calls    []Call
	down     map[string]bool
	failsafe bool

	// FailWith, when set, is consulted before every call; a non-nil result is returned as-is.
	FailWith func(Call) error
}

// ActuatorOption configures the simulated actuator.
type ActuatorOption func(*Actuator)

// WithScreen sets the virtual screen size (default 1920x1080).
func WithScreen(width, height int) ActuatorOption {
	return func(a *Actuator) {
		a.screen = domain.Size{Width: width, Height: height}
	}
}

// WithPosition sets the initial pointer position.
func WithPosition(x, y int) ActuatorOption {
	return func(a *Actuator) {
		a.pos = domain.Point{X: x, Y: y}
	}
}

// WithFailsafe enables the corner failsafe: any call made while the pointer
// rests on a screen corner fails with domain.ErrFailsafe.
func WithFailsafe() ActuatorOption {
	return func(a *Actuator) {
		a.failsafe = true
	}
}

// NewActuator creates a simulated actuator.
func NewActuator(opts ...ActuatorOption) *Actuator {
	a := &Actuator{
		screen: domain.Size{Width: 1920, Height: 1080},
		pos:    domain.Point{X: 960, Y: 540},
		down:   make(map[string]bool),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Calls returns a copy of the recorded calls.
func (a *Actuator) Calls() []Call {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Call, len(a.calls))
	copy(out, a.calls)
	return out
}

// Ops returns the recorded calls rendered as short strings, handy in assertions.
func (a *Actuator) Ops() []string {
	calls := a.Calls()
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.String()
	}
	return out
}

// Held reports the keys and buttons currently held down.
func (a *Actuator) Held() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []string
	for k, v := range a.down {
		if v {
			out = append(out, k)
		}
	}
	return out
}

// Reset clears the call log.
func (a *Actuator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = nil
}

// SetPosition teleports the pointer without recording a call.
func (a *Actuator) SetPosition(x, y int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pos = domain.Point{X: x, Y: y}
}

func (a *Actuator) record(c Call) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.failsafe && a.inCorner() {
		return fmt.Errorf("%s at (%d,%d): %w", c.Op, a.pos.X, a.pos.Y, domain.ErrFailsafe)
	}
	if a.FailWith != nil {
		if err := a.FailWith(c); err != nil {
			return err
		}
	}

	a.calls = append(a.calls, c)
	switch c.Op {
	case "move":
		a.pos = domain.Point{X: c.X, Y: c.Y}
	case "buttondown", "keydown":
		a.down[c.Arg] = true
	case "buttonup", "keyup":
		delete(a.down, c.Arg)
	}
	return nil
}

func (a *Actuator) inCorner() bool {
	maxX, maxY := a.screen.Width-1, a.screen.Height-1
	return (a.pos.X == 0 || a.pos.X == maxX) && (a.pos.Y == 0 || a.pos.Y == maxY)
}

func (a *Actuator) MoveTo(ctx context.Context, x, y int, duration time.Duration) error {
	return a.record(Call{Op: "move", X: x, Y: y, Duration: duration})
}

func (a *Actuator) Click(ctx context.Context, button string) error {
	return a.record(Call{Op: "click", Arg: button})
}

func (a *Actuator) ButtonDown(ctx context.Context, button string) error {
	return a.record(Call{Op: "buttondown", Arg: button})
}

func (a *Actuator) ButtonUp(ctx context.Context, button string) error {
	return a.record(Call{Op: "buttonup", Arg: button})
}

func (a *Actuator) Scroll(ctx context.Context, amount int) error {
	return a.record(Call{Op: "scroll", Amount: amount})
}

func (a *Actuator) Press(ctx context.Context, key string) error {
	return a.record(Call{Op: "press", Arg: key})
}

func (a *Actuator) KeyDown(ctx context.Context, key string) error {
	return a.record(Call{Op: "keydown", Arg: key})
}

func (a *Actuator) KeyUp(ctx context.Context, key string) error {
	return a.record(Call{Op: "keyup", Arg: key})
}

func (a *Actuator) Hotkey(ctx context.Context, keys ...string) error {
	return a.record(Call{Op: "hotkey", Arg: strings.Join(keys, "+")})
}

func (a *Actuator) TypeText(ctx context.Context, text string) error {
	return a.record(Call{Op: "type", Arg: text})
}

func (a *Actuator) Position(ctx context.Context) (domain.Point, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pos, nil
}

func (a *Actuator) ScreenSize(ctx context.Context) (domain.Size, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.screen, nil
}
