package simulated

import (
	"context"
	"sync"

	"github.com/aretw0/autopilot/pkg/domain"
	"github.com/aretw0/autopilot/pkg/ports"
)

// LocateCall is one recorded template search.
type LocateCall struct {
	Template  string
	Region    *domain.Region
	Threshold float64
}

// Matcher implements ports.ImageMatcher from a fixed template table.
// A template is found when its entry exists, its confidence reaches the
// threshold and, if a region is given, its position lies inside the region.
type Matcher struct {
	mu        sync.Mutex
	templates map[string]ports.Match
	calls     []LocateCall

	// IgnoreRegion makes the matcher report hits regardless of the region hint.
	IgnoreRegion bool
}

// NewMatcher creates an empty matcher.
func NewMatcher() *Matcher {
	return &Matcher{templates: make(map[string]ports.Match)}
}

// Place puts template on screen at (x, y) with the given confidence.
func (m *Matcher) Place(template string, x, y int, confidence float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.templates[template] = ports.Match{Found: true, Position: domain.Point{X: x, Y: y}, Confidence: confidence}
}

// Remove takes template off screen.
func (m *Matcher) Remove(template string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.templates, template)
}

// Calls returns the recorded searches.
func (m *Matcher) Calls() []LocateCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]LocateCall, len(m.calls))
	copy(out, m.calls)
	return out
}

func (m *Matcher) Locate(ctx context.Context, template string, region *domain.Region, threshold float64) (ports.Match, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, LocateCall{Template: template, Region: region, Threshold: threshold})

	hit, ok := m.templates[template]
	if !ok || hit.Confidence < threshold {
		return ports.Match{}, nil
	}
	if region != nil && !m.IgnoreRegion {
		p := hit.Position
		if p.X < region.X || p.Y < region.Y || p.X > region.X+region.Width || p.Y > region.Y+region.Height {
			return ports.Match{}, nil
		}
	}
	return hit, nil
}
