package runtime

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// pointerParams covers move, click, mousedown, mouseup and mousescroll.
type pointerParams struct {
	Mode    string  `mapstructure:"position_mode"`
	X       float64 `mapstructure:"x"`
	Y       float64 `mapstructure:"y"`
	XRandom float64 `mapstructure:"x_random"`
	YRandom float64 `mapstructure:"y_random"`

	Button    string `mapstructure:"button"`
	Direction string `mapstructure:"direction"`
	Clicks    int    `mapstructure:"clicks"`

	Duration       float64 `mapstructure:"duration"`
	DurationRandom float64 `mapstructure:"duration_random"`
	SpeedFactor    float64 `mapstructure:"speed_factor"`
	SpeedRandom    float64 `mapstructure:"speed_random"`
}

const (
	modeAbsolute = "absolute"
	modeCurrent  = "current"
)

func defaultPointerParams() pointerParams {
	return pointerParams{
		Mode:        modeAbsolute,
		Button:      "left",
		Direction:   "up",
		Clicks:      3,
		Duration:    0.2,
		SpeedFactor: 1.0,
	}
}

type keyboardParams struct {
	InputType    string  `mapstructure:"input_type"`
	Text         string  `mapstructure:"text"`
	Key          string  `mapstructure:"key"`
	SpecialKey   string  `mapstructure:"special_key"`
	ModifierKeys string  `mapstructure:"modifier_keys"`
	HoldDuration float64 `mapstructure:"hold_duration"`
}

func defaultKeyboardParams() keyboardParams {
	return keyboardParams{
		InputType:    "text",
		HoldDuration: 0.1,
	}
}

type waitParams struct {
	Duration float64 `mapstructure:"duration"`
}

type imageParams struct {
	ImagePath string  `mapstructure:"image_path"`
	Threshold float64 `mapstructure:"threshold"`
	XRandom   float64 `mapstructure:"x_random"`
	YRandom   float64 `mapstructure:"y_random"`
}

type conditionParams struct {
	ConditionType string  `mapstructure:"condition_type"`
	ImagePath     string  `mapstructure:"image_path"`
	Threshold     float64 `mapstructure:"threshold"`
	TargetNodeID  string  `mapstructure:"target_node_id"`
	// ExpectedResult accepts both the string and the boolean spelling.
	ExpectedResult any `mapstructure:"expected_result"`
}

const (
	conditionImageExists = "image_exists"
	conditionNodeResult  = "node_result"

	defaultThreshold = 0.8
)

// decodeParams fills out from a node's parameter bag. Fields already set on
// out act as defaults for absent keys. Numbers may arrive as ints, floats or
// strings depending on the unit file format.
func decodeParams(params map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(params); err != nil {
		return fmt.Errorf("invalid params: %w", err)
	}
	return nil
}
