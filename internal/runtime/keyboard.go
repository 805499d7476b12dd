package runtime

import (
	"context"
	"strings"

	"github.com/aretw0/autopilot/pkg/domain"
)

// holdThreshold is the hold duration (seconds) above which keys are held
// down instead of tapped.
const holdThreshold = 0.1

var specialKeys = map[string]string{
	"page_up":      "pageup",
	"page_down":    "pagedown",
	"print_screen": "printscreen",
	"scroll_lock":  "scrolllock",
	"caps_lock":    "capslock",
	"num_lock":     "numlock",
	"win":          "winleft",
}

var modifierKeys = map[string]string{
	"win": "winleft",
}

// releasedOnFailure are released after any keyboard failure so no modifier stays stuck.
var releasedOnFailure = []string{"ctrl", "alt", "shift", "cmd", "winleft"}

func (d *Dispatcher) keyboard(ctx context.Context, node domain.Node) (Outcome, error) {
	p := defaultKeyboardParams()
	if err := decodeParams(node.Params, &p); err != nil {
		return Outcome{}, err
	}

	out, err := d.typeKeys(ctx, p)
	if err != nil {
		for _, k := range releasedOnFailure {
			_ = d.actuator.KeyUp(ctx, k)
		}
	}
	return out, err
}

func (d *Dispatcher) typeKeys(ctx context.Context, p keyboardParams) (Outcome, error) {
	hold := p.HoldDuration > holdThreshold

	switch p.InputType {
	case "text":
		if p.Text == "" {
			return skipped("empty text"), nil
		}
		return Outcome{}, d.actuator.TypeText(ctx, p.Text)

	case "key":
		if p.Key == "" {
			return skipped("empty key"), nil
		}
		return Outcome{}, d.tap(ctx, hold, p.HoldDuration, p.Key)

	case "special":
		if p.SpecialKey == "" {
			return skipped("empty special key"), nil
		}
		return Outcome{}, d.tap(ctx, hold, p.HoldDuration, mapKey(specialKeys, p.SpecialKey))

	case "combo":
		if p.Key == "" {
			return skipped("empty key"), nil
		}
		var keys []string
		for _, m := range strings.Split(p.ModifierKeys, "+") {
			m = strings.ToLower(strings.TrimSpace(m))
			if m != "" {
				keys = append(keys, mapKey(modifierKeys, m))
			}
		}
		keys = append(keys, p.Key)
		if len(keys) == 1 {
			return Outcome{}, d.tap(ctx, hold, p.HoldDuration, p.Key)
		}
		if !hold {
			return Outcome{}, d.actuator.Hotkey(ctx, keys...)
		}
		return Outcome{}, d.tap(ctx, true, p.HoldDuration, keys...)
	}

	return skipped("unknown input type " + p.InputType), nil
}

// tap presses a single key, or holds every key for seconds and releases them in reverse.
func (d *Dispatcher) tap(ctx context.Context, hold bool, seconds float64, keys ...string) error {
	if !hold {
		return d.actuator.Press(ctx, keys[0])
	}
	for _, k := range keys {
		if err := d.actuator.KeyDown(ctx, k); err != nil {
			return err
		}
	}
	d.pause(ctx, seconds)
	for i := len(keys) - 1; i >= 0; i-- {
		if err := d.actuator.KeyUp(ctx, keys[i]); err != nil {
			return err
		}
	}
	return nil
}

func mapKey(table map[string]string, k string) string {
	if mapped, ok := table[k]; ok {
		return mapped
	}
	return k
}
