package ports

import (
	"context"
	"time"

	"github.com/aretw0/autopilot/pkg/domain"
)

// Actuator drives the process-wide pointer and keyboard.
// Implementations return an error wrapping domain.ErrFailsafe when they refuse
// to act because the pointer is parked in a guarded zone.
//
// The actuator is an exclusive resource. Callers are responsible for not
// driving it from two runs at once.
type Actuator interface {
	// MoveTo glides the pointer to (x, y) over duration.
	MoveTo(ctx context.Context, x, y int, duration time.Duration) error
	Click(ctx context.Context, button string) error
	ButtonDown(ctx context.Context, button string) error
	ButtonUp(ctx context.Context, button string) error
	// Scroll turns the wheel; positive amounts scroll up.
	Scroll(ctx context.Context, amount int) error

	Press(ctx context.Context, key string) error
	KeyDown(ctx context.Context, key string) error
	KeyUp(ctx context.Context, key string) error
	// Hotkey presses keys in order and releases them in reverse.
	Hotkey(ctx context.Context, keys ...string) error
	TypeText(ctx context.Context, text string) error

	Position(ctx context.Context) (domain.Point, error)
	ScreenSize(ctx context.Context) (domain.Size, error)
}
