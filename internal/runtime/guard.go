package runtime

import "github.com/aretw0/autopilot/pkg/domain"

// Contains reports whether (x, y) lies inside b, edges included.
// A nil boundary contains every point.
func Contains(b *domain.Boundary, x, y int) bool {
	if b == nil {
		return true
	}
	return b.X <= x && x <= b.X+b.Width &&
		b.Y <= y && y <= b.Y+b.Height
}

// ClipRegion converts a boundary into the search region handed to the image matcher.
// It returns nil (search the whole screen) when no boundary is set.
func ClipRegion(b *domain.Boundary) *domain.Region {
	if b == nil {
		return nil
	}
	return &domain.Region{X: b.X, Y: b.Y, Width: b.Width, Height: b.Height}
}

// onScreen applies the actuator's inclusive screen check.
func onScreen(s domain.Size, x, y int) bool {
	return 0 <= x && x <= s.Width && 0 <= y && y <= s.Height
}
