package runtime

import (
	"context"
	"fmt"

	"github.com/aretw0/autopilot/pkg/domain"
	"github.com/aretw0/autopilot/pkg/ports"
)

const followDuration = 0.2

// locate runs a boundary-scoped template search. A non-empty reason means skip.
func (d *Dispatcher) locate(ctx context.Context, unit domain.Unit, path string, threshold float64) (ports.Match, string, error) {
	path = d.resolveTemplate(path)
	if path == "" || !d.templateExists(path) {
		return ports.Match{}, fmt.Sprintf("template %q does not exist", path), nil
	}
	if d.matcher == nil {
		return ports.Match{}, "no image matcher configured", nil
	}
	if threshold <= 0 {
		threshold = defaultThreshold
	}

	m, err := d.matcher.Locate(ctx, path, ClipRegion(unit.Boundary), threshold)
	if err != nil {
		return ports.Match{}, "", fmt.Errorf("locate %s: %w", path, err)
	}
	if !m.Found {
		return ports.Match{}, fmt.Sprintf("template %q not found", path), nil
	}
	// The region is only a hint; matchers may ignore it.
	if !Contains(unit.Boundary, m.Position.X, m.Position.Y) {
		return ports.Match{}, fmt.Sprintf("template %q matched outside boundary", path), nil
	}
	return m, "", nil
}

func (d *Dispatcher) image(ctx context.Context, unit domain.Unit, node domain.Node) (Outcome, error) {
	p := imageParams{Threshold: defaultThreshold}
	if err := decodeParams(node.Params, &p); err != nil {
		return Outcome{}, err
	}

	m, reason, err := d.locate(ctx, unit, p.ImagePath, p.Threshold)
	if err != nil {
		return Outcome{}, err
	}
	if reason != "" {
		return skipped(reason), nil
	}

	d.logger.Debug("template found", "node_id", node.ID, "x", m.Position.X, "y", m.Position.Y, "confidence", m.Confidence)

	switch node.Kind {
	case domain.ActionFindImage:
		return Outcome{}, nil

	case domain.ActionFollowImage:
		size, err := d.actuator.ScreenSize(ctx)
		if err != nil {
			return Outcome{}, err
		}
		if !onScreen(size, m.Position.X, m.Position.Y) {
			return skipped("match outside screen"), nil
		}
		return Outcome{}, d.actuator.MoveTo(ctx, m.Position.X, m.Position.Y, secondsToDuration(followDuration))

	case domain.ActionClickImage:
		target := domain.Point{X: d.jitter(m.Position.X, p.XRandom), Y: d.jitter(m.Position.Y, p.YRandom)}
		reason, err := d.checkPoint(ctx, unit, target)
		if err != nil {
			return Outcome{}, err
		}
		if reason != "" {
			return skipped(reason), nil
		}
		if err := d.approach(ctx, target); err != nil {
			return Outcome{}, err
		}
		return Outcome{}, d.actuator.Click(ctx, "left")
	}

	return Outcome{}, fmt.Errorf("unsupported image action %q", node.Kind)
}

// condition evaluates an "if" node. Skips inside the evaluation count as false.
func (d *Dispatcher) condition(ctx context.Context, unit domain.Unit, node domain.Node) (Outcome, error) {
	p := conditionParams{
		ConditionType:  conditionImageExists,
		Threshold:      defaultThreshold,
		ExpectedResult: "true",
	}
	if err := decodeParams(node.Params, &p); err != nil {
		return Outcome{}, err
	}

	var result bool
	switch p.ConditionType {
	case conditionImageExists:
		_, reason, err := d.locate(ctx, unit, p.ImagePath, p.Threshold)
		if err != nil {
			return Outcome{}, err
		}
		result = reason == ""
		if reason != "" {
			d.logger.Debug("image condition false", "node_id", node.ID, "reason", reason)
		}

	case conditionNodeResult:
		// Fixed expectation; the referenced node's outcome is not consulted.
		result = truthy(p.ExpectedResult)
		d.logger.Debug("node result condition", "node_id", node.ID, "target_node_id", p.TargetNodeID, "result", result)

	default:
		d.logger.Warn("unknown condition type", "node_id", node.ID, "condition_type", p.ConditionType)
	}

	return Outcome{Condition: &result}, nil
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t == "true"
	}
	return false
}
