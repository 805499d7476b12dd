package ports

import (
	"context"

	"github.com/aretw0/autopilot/pkg/domain"
)

// Match is the result of a template search.
type Match struct {
	Found      bool         `json:"found"`
	Position   domain.Point `json:"position"` // Center of the match
	Confidence float64      `json:"confidence"`
}

// ImageMatcher locates template images on screen.
type ImageMatcher interface {
	// Locate searches for template. A nil region searches the whole screen.
	// A miss is reported as Match{Found: false} with a nil error.
	Locate(ctx context.Context, template string, region *domain.Region, threshold float64) (Match, error)
}
