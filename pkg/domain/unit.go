package domain

import (
	"fmt"
	"time"
)

// Point is a screen coordinate in pixels.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Size is a screen extent in pixels.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Region is a rectangle handed to the image matcher to scope a search.
type Region struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Boundary constrains where spatial actions and image searches may operate.
type Boundary struct {
	X      int `json:"x" yaml:"x"`
	Y      int `json:"y" yaml:"y"`
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// Validate checks that every field is non-negative.
func (b Boundary) Validate() error {
	if b.X < 0 || b.Y < 0 || b.Width < 0 || b.Height < 0 {
		return fmt.Errorf("%w: boundary fields must be >= 0, got %+v", ErrInvalidUnit, b)
	}
	return nil
}

// Unit (a.k.a. drawing) is one independently executable graph.
type Unit struct {
	ID       string    `json:"id" yaml:"id"`
	Name     string    `json:"name" yaml:"name"`
	Nodes    []Node    `json:"nodes" yaml:"nodes"`
	Boundary *Boundary `json:"boundary,omitempty" yaml:"boundary,omitempty"`

	// Order is the stable key used by run-all sequencing.
	Order int `json:"order" yaml:"order"`

	CreatedAt *time.Time `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	// LastRun is written by the engine when a run finishes.
	LastRun *time.Time `json:"last_executed,omitempty" yaml:"last_executed,omitempty"`
}

// DisplayName returns the name, falling back to the id.
func (u Unit) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.ID
}

// Graph builds the traversal view of the unit's nodes.
func (u Unit) Graph() *Graph {
	return NewGraph(u.Nodes)
}
