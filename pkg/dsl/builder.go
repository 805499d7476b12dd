package dsl

import (
	"fmt"

	"github.com/aretw0/autopilot/pkg/adapters/memory"
	"github.com/aretw0/autopilot/pkg/domain"
)

// Builder manages the unit construction.
type Builder struct {
	unit  domain.Unit
	order []string
	nodes map[string]*NodeBuilder
}

// New creates a new unit builder.
func New(unitID string) *Builder {
	return &Builder{
		unit:  domain.Unit{ID: unitID},
		nodes: make(map[string]*NodeBuilder),
	}
}

// Name sets the display name.
func (b *Builder) Name(name string) *Builder {
	b.unit.Name = name
	return b
}

// Order sets the run-all position.
func (b *Builder) Order(order int) *Builder {
	b.unit.Order = order
	return b
}

// Boundary restricts pointer actions and image searches to a rectangle.
func (b *Builder) Boundary(x, y, width, height int) *Builder {
	b.unit.Boundary = &domain.Boundary{X: x, Y: y, Width: width, Height: height}
	return b
}

// Add creates a new node in the unit, in declaration order.
// If the node already exists, it returns the existing builder.
func (b *Builder) Add(id string) *NodeBuilder {
	if nb, ok := b.nodes[id]; ok {
		return nb
	}
	nb := &NodeBuilder{
		node: domain.Node{
			ID:     id,
			Params: make(map[string]any),
		},
	}
	b.nodes[id] = nb
	b.order = append(b.order, id)
	return nb
}

// Link adds a connection node from source to target. output is one of
// domain.OutputTrue, domain.OutputFalse or domain.OutputAny.
func (b *Builder) Link(id, source, target, output string) *Builder {
	b.Add(id).kind(domain.ActionConnection).
		Param(domain.ParamSourceID, source).
		Param(domain.ParamTargetID, target).
		Param(domain.ParamOutputType, output)
	return b
}

// Build compiles the unit.
func (b *Builder) Build() (domain.Unit, error) {
	if b.unit.ID == "" {
		return domain.Unit{}, fmt.Errorf("%w: unit missing ID", domain.ErrInvalidUnit)
	}
	if b.unit.Boundary != nil {
		if err := b.unit.Boundary.Validate(); err != nil {
			return domain.Unit{}, err
		}
	}

	u := b.unit
	u.Nodes = make([]domain.Node, 0, len(b.order))
	for _, id := range b.order {
		nb := b.nodes[id]
		if id == "" {
			return domain.Unit{}, fmt.Errorf("%w: node missing ID", domain.ErrInvalidUnit)
		}
		if nb.node.Kind == "" {
			return domain.Unit{}, fmt.Errorf("%w: node %s has no action", domain.ErrInvalidUnit, id)
		}
		u.Nodes = append(u.Nodes, nb.Build())
	}
	return u, nil
}

// Repository builds the unit into a single-unit in-memory repository.
func (b *Builder) Repository() (*memory.UnitRepository, error) {
	u, err := b.Build()
	if err != nil {
		return nil, err
	}
	repo, err := memory.NewUnitRepository(u)
	if err != nil {
		return nil, fmt.Errorf("failed to build memory repository: %w", err)
	}
	return repo, nil
}
