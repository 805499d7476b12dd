package runtime

import (
	"context"
	"fmt"
	"math"

	"github.com/aretw0/autopilot/pkg/domain"
)

const (
	approachDuration = 0.1 // seconds spent gliding to a click/press target
	settlePause      = 0.1 // seconds between arriving and pressing
	minMoveDuration  = 0.05
)

func (d *Dispatcher) pointer(ctx context.Context, unit domain.Unit, node domain.Node) (Outcome, error) {
	p := defaultPointerParams()
	if err := decodeParams(node.Params, &p); err != nil {
		return Outcome{}, err
	}

	target, reason, err := d.resolvePoint(ctx, node.Kind, p)
	if err != nil {
		return Outcome{}, err
	}
	if reason != "" {
		return skipped(reason), nil
	}

	reason, err = d.checkPoint(ctx, unit, target)
	if err != nil {
		return Outcome{}, err
	}
	if reason != "" {
		return skipped(reason), nil
	}

	switch node.Kind {
	case domain.ActionMove:
		return Outcome{}, d.actuator.MoveTo(ctx, target.X, target.Y, secondsToDuration(d.moveDuration(p)))

	case domain.ActionClick:
		// In current mode without jitter the pointer is already there.
		inPlace := p.Mode == modeCurrent && p.XRandom <= 0 && p.YRandom <= 0
		if !inPlace {
			if err := d.approach(ctx, target); err != nil {
				return Outcome{}, err
			}
		}
		return Outcome{}, d.actuator.Click(ctx, p.Button)

	case domain.ActionMouseDown:
		if err := d.approach(ctx, target); err != nil {
			return Outcome{}, err
		}
		return Outcome{}, d.actuator.ButtonDown(ctx, p.Button)

	case domain.ActionMouseUp:
		if err := d.approach(ctx, target); err != nil {
			return Outcome{}, err
		}
		return Outcome{}, d.actuator.ButtonUp(ctx, p.Button)

	case domain.ActionScroll:
		if err := d.approach(ctx, target); err != nil {
			return Outcome{}, err
		}
		amount := p.Clicks
		if p.Direction != "up" {
			amount = -amount
		}
		return Outcome{}, d.actuator.Scroll(ctx, amount)
	}

	return Outcome{}, fmt.Errorf("unsupported pointer action %q", node.Kind)
}

// resolvePoint picks the target coordinate. A non-empty reason means skip.
func (d *Dispatcher) resolvePoint(ctx context.Context, kind domain.ActionKind, p pointerParams) (domain.Point, string, error) {
	if p.Mode == modeCurrent {
		pos, err := d.actuator.Position(ctx)
		if err != nil {
			return domain.Point{}, "", err
		}
		return domain.Point{X: d.jitter(pos.X, p.XRandom), Y: d.jitter(pos.Y, p.YRandom)}, "", nil
	}

	x, y := int(p.X), int(p.Y)
	if x == 0 && y == 0 {
		// (0,0) means "unset". Press and scroll fall back to where the pointer is.
		if kind == domain.ActionMouseDown || kind == domain.ActionScroll {
			pos, err := d.actuator.Position(ctx)
			return pos, "", err
		}
		return domain.Point{}, "coordinate unset (0,0)", nil
	}

	return domain.Point{X: d.jitter(x, p.XRandom), Y: d.jitter(y, p.YRandom)}, "", nil
}

// checkPoint applies the screen and boundary checks. A non-empty reason means skip.
func (d *Dispatcher) checkPoint(ctx context.Context, unit domain.Unit, pt domain.Point) (string, error) {
	size, err := d.actuator.ScreenSize(ctx)
	if err != nil {
		return "", err
	}
	if !onScreen(size, pt.X, pt.Y) {
		return fmt.Sprintf("(%d,%d) outside screen %dx%d", pt.X, pt.Y, size.Width, size.Height), nil
	}
	if !Contains(unit.Boundary, pt.X, pt.Y) {
		return fmt.Sprintf("(%d,%d) outside boundary", pt.X, pt.Y), nil
	}
	return "", nil
}

// approach glides to pt and lets the pointer settle.
func (d *Dispatcher) approach(ctx context.Context, pt domain.Point) error {
	if err := d.actuator.MoveTo(ctx, pt.X, pt.Y, secondsToDuration(approachDuration)); err != nil {
		return err
	}
	d.pause(ctx, settlePause)
	return nil
}

// moveDuration combines duration and speed factor, each with optional jitter.
func (d *Dispatcher) moveDuration(p pointerParams) float64 {
	duration := p.Duration
	if p.DurationRandom > 0 {
		duration = math.Max(0.1, d.uniform(duration, p.DurationRandom))
	}

	factor := p.SpeedFactor
	if p.SpeedRandom > 0 {
		factor = math.Max(0.1, d.uniform(factor, p.SpeedRandom))
	}
	if factor <= 0 {
		factor = 1
	}

	return math.Max(minMoveDuration, duration/factor)
}
