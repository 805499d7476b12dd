package process

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/autopilot/pkg/domain"
)

// Xdotool is the registry name the actuator invokes.
const Xdotool = "xdotool"

// keysyms maps key names used in unit files to X keysym names.
var keysyms = map[string]string{
	"enter":       "Return",
	"return":      "Return",
	"esc":         "Escape",
	"escape":      "Escape",
	"tab":         "Tab",
	"space":       "space",
	"backspace":   "BackSpace",
	"delete":      "Delete",
	"insert":      "Insert",
	"home":        "Home",
	"end":         "End",
	"pageup":      "Prior",
	"pagedown":    "Next",
	"up":          "Up",
	"down":        "Down",
	"left":        "Left",
	"right":       "Right",
	"printscreen": "Print",
	"capslock":    "Caps_Lock",
	"numlock":     "Num_Lock",
	"scrolllock":  "Scroll_Lock",
	"cmd":         "super",
	"win":         "super",
	"winleft":     "super",
}

var buttons = map[string]string{
	"left":   "1",
	"middle": "2",
	"right":  "3",
}

// Actuator drives the X11 pointer and keyboard through xdotool.
type Actuator struct {
	exec     Executor
	failsafe bool
	typing   time.Duration

	mu     sync.Mutex
	screen *domain.Size
}

// ActuatorOption configures the xdotool actuator.
type ActuatorOption func(*Actuator)

// WithFailsafe refuses every action while the pointer rests on a screen corner.
func WithFailsafe(enabled bool) ActuatorOption {
	return func(a *Actuator) {
		a.failsafe = enabled
	}
}

// WithTypingDelay sets the delay between typed characters (default 12ms).
func WithTypingDelay(d time.Duration) ActuatorOption {
	return func(a *Actuator) {
		a.typing = d
	}
}

// NewActuator creates an actuator that runs the command registered as Xdotool on exec.
func NewActuator(exec Executor, opts ...ActuatorOption) *Actuator {
	a := &Actuator{exec: exec, failsafe: true, typing: 12 * time.Millisecond}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Actuator) run(ctx context.Context, args ...string) error {
	if err := a.guard(ctx); err != nil {
		return err
	}
	_, err := a.exec.Run(ctx, Xdotool, args...)
	return err
}

func (a *Actuator) guard(ctx context.Context) error {
	if !a.failsafe {
		return nil
	}
	pos, err := a.Position(ctx)
	if err != nil {
		return err
	}
	size, err := a.ScreenSize(ctx)
	if err != nil {
		return err
	}
	maxX, maxY := size.Width-1, size.Height-1
	if (pos.X <= 0 || pos.X >= maxX) && (pos.Y <= 0 || pos.Y >= maxY) {
		return fmt.Errorf("pointer at (%d,%d): %w", pos.X, pos.Y, domain.ErrFailsafe)
	}
	return nil
}

// MoveTo warps the pointer. xdotool has no glide, so duration is ignored.
func (a *Actuator) MoveTo(ctx context.Context, x, y int, duration time.Duration) error {
	return a.run(ctx, "mousemove", "--sync", strconv.Itoa(x), strconv.Itoa(y))
}

func (a *Actuator) Click(ctx context.Context, button string) error {
	return a.run(ctx, "click", buttonCode(button))
}

func (a *Actuator) ButtonDown(ctx context.Context, button string) error {
	return a.run(ctx, "mousedown", buttonCode(button))
}

func (a *Actuator) ButtonUp(ctx context.Context, button string) error {
	return a.run(ctx, "mouseup", buttonCode(button))
}

// Scroll turns the wheel; positive amounts scroll up.
func (a *Actuator) Scroll(ctx context.Context, amount int) error {
	if amount == 0 {
		return nil
	}
	wheel := "4"
	if amount < 0 {
		wheel, amount = "5", -amount
	}
	return a.run(ctx, "click", "--repeat", strconv.Itoa(amount), wheel)
}

func (a *Actuator) Press(ctx context.Context, key string) error {
	return a.run(ctx, "key", keysym(key))
}

func (a *Actuator) KeyDown(ctx context.Context, key string) error {
	return a.run(ctx, "keydown", keysym(key))
}

func (a *Actuator) KeyUp(ctx context.Context, key string) error {
	return a.run(ctx, "keyup", keysym(key))
}

func (a *Actuator) Hotkey(ctx context.Context, keys ...string) error {
	mapped := make([]string, len(keys))
	for i, k := range keys {
		mapped[i] = keysym(k)
	}
	return a.run(ctx, "key", strings.Join(mapped, "+"))
}

func (a *Actuator) TypeText(ctx context.Context, text string) error {
	return a.run(ctx, "type", "--delay", strconv.FormatInt(a.typing.Milliseconds(), 10), "--", text)
}

// Position parses `getmouselocation --shell` output (X=..\nY=..).
func (a *Actuator) Position(ctx context.Context) (domain.Point, error) {
	out, err := a.exec.Run(ctx, Xdotool, "getmouselocation", "--shell")
	if err != nil {
		return domain.Point{}, err
	}

	var (
		p            domain.Point
		seenX, seenY bool
	)
	for _, line := range strings.Split(out, "\n") {
		k, v, ok := strings.Cut(strings.TrimSpace(line), "=")
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			continue
		}
		switch k {
		case "X":
			p.X, seenX = n, true
		case "Y":
			p.Y, seenY = n, true
		}
	}
	if !seenX || !seenY {
		return domain.Point{}, fmt.Errorf("unexpected getmouselocation output %q", out)
	}
	return p, nil
}

// ScreenSize parses `getdisplaygeometry` output ("W H"). The result is cached.
func (a *Actuator) ScreenSize(ctx context.Context) (domain.Size, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.screen != nil {
		return *a.screen, nil
	}

	out, err := a.exec.Run(ctx, Xdotool, "getdisplaygeometry")
	if err != nil {
		return domain.Size{}, err
	}
	fields := strings.Fields(out)
	if len(fields) != 2 {
		return domain.Size{}, fmt.Errorf("unexpected getdisplaygeometry output %q", out)
	}
	w, errW := strconv.Atoi(fields[0])
	h, errH := strconv.Atoi(fields[1])
	if errW != nil || errH != nil {
		return domain.Size{}, fmt.Errorf("unexpected getdisplaygeometry output %q", out)
	}
	a.screen = &domain.Size{Width: w, Height: h}
	return *a.screen, nil
}

func buttonCode(button string) string {
	if code, ok := buttons[strings.ToLower(button)]; ok {
		return code
	}
	return buttons["left"]
}

func keysym(key string) string {
	if s, ok := keysyms[strings.ToLower(key)]; ok {
		return s
	}
	// f1..f24
	if len(key) >= 2 && (key[0] == 'f' || key[0] == 'F') {
		if _, err := strconv.Atoi(key[1:]); err == nil {
			return "F" + key[1:]
		}
	}
	return key
}
