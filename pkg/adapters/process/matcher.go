package process

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/aretw0/autopilot/pkg/domain"
	"github.com/aretw0/autopilot/pkg/ports"
)

// MatcherCommand is the registry name the matcher invokes.
const MatcherCommand = "matcher"

// matchResult is the JSON line an external matcher prints on stdout.
type matchResult struct {
	Found      bool    `json:"found"`
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Confidence float64 `json:"confidence"`
}

// Matcher delegates template matching to an external program invoked as
//
//	<matcher> <template> <threshold> [x,y,width,height]
//
// which must print a single JSON object: {"found":true,"x":10,"y":20,"confidence":0.93}.
type Matcher struct {
	exec Executor
}

// NewMatcher creates a matcher that runs the command registered as MatcherCommand.
func NewMatcher(exec Executor) *Matcher {
	return &Matcher{exec: exec}
}

func (m *Matcher) Locate(ctx context.Context, template string, region *domain.Region, threshold float64) (ports.Match, error) {
	args := []string{template, strconv.FormatFloat(threshold, 'f', -1, 64)}
	if region != nil {
		args = append(args, fmt.Sprintf("%d,%d,%d,%d", region.X, region.Y, region.Width, region.Height))
	}

	out, err := m.exec.Run(ctx, MatcherCommand, args...)
	if err != nil {
		return ports.Match{}, err
	}

	var res matchResult
	if err := json.Unmarshal([]byte(strings.TrimSpace(out)), &res); err != nil {
		return ports.Match{}, fmt.Errorf("invalid matcher output %q: %w", out, err)
	}
	if !res.Found || res.Confidence < threshold {
		return ports.Match{}, nil
	}
	return ports.Match{
		Found:      true,
		Position:   domain.Point{X: res.X, Y: res.Y},
		Confidence: res.Confidence,
	}, nil
}
