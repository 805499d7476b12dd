package domain_test

import (
	"testing"

	"github.com/aretw0/autopilot/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func ids(nodes []domain.Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.ID)
	}
	return out
}

func TestGraph_Roots(t *testing.T) {
	tests := []struct {
		name  string
		nodes []domain.Node
		want  []string
	}{
		{
			name:  "empty",
			nodes: nil,
			want:  []string{},
		},
		{
			name: "linear chain",
			nodes: []domain.Node{
				{ID: "a", Kind: domain.ActionWait, Connections: []string{"b"}},
				{ID: "b", Kind: domain.ActionWait, Connections: []string{"c"}},
				{ID: "c", Kind: domain.ActionWait},
			},
			want: []string{"a"},
		},
		{
			name: "two islands keep declaration order",
			nodes: []domain.Node{
				{ID: "x", Kind: domain.ActionWait},
				{ID: "a", Kind: domain.ActionWait, Connections: []string{"b"}},
				{ID: "b", Kind: domain.ActionWait},
			},
			want: []string{"x", "a"},
		},
		{
			name: "pure cycle falls back to first node",
			nodes: []domain.Node{
				{ID: "a", Kind: domain.ActionWait, Connections: []string{"b"}},
				{ID: "b", Kind: domain.ActionWait, Connections: []string{"a"}},
			},
			want: []string{"a"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := domain.NewGraph(tt.nodes)
			assert.Equal(t, tt.want, ids(g.Roots()))
		})
	}
}

func TestGraph_NodeLookup(t *testing.T) {
	g := domain.NewGraph([]domain.Node{
		{ID: "a", Kind: domain.ActionWait},
		{ID: "a", Kind: domain.ActionClick},
	})

	n, ok := g.Node("a")
	assert.True(t, ok)
	assert.Equal(t, domain.ActionWait, n.Kind, "first duplicate wins")

	_, ok = g.Node("missing")
	assert.False(t, ok)
	assert.Equal(t, 2, g.Len())
}

func TestGraph_ConnectionsFrom(t *testing.T) {
	g := domain.NewGraph([]domain.Node{
		{ID: "cond", Kind: domain.ActionIf},
		{ID: "c1", Kind: domain.ActionConnection, Params: map[string]any{"source_id": "cond", "target_id": "t", "output_type": "true"}},
		{ID: "c2", Kind: domain.ActionConnection, Params: map[string]any{"source_id": "other", "target_id": "t"}},
		{ID: "c3", Kind: domain.ActionConnection, Params: map[string]any{"source_id": "cond", "target_id": "f", "output_type": "false"}},
		{ID: "t", Kind: domain.ActionWait, Params: map[string]any{"source_id": "cond"}},
	})

	assert.Equal(t, []string{"c1", "c3"}, ids(g.ConnectionsFrom("cond")))
	assert.Empty(t, g.ConnectionsFrom("t"))
}

func TestActionKind(t *testing.T) {
	assert.True(t, domain.ActionScroll.IsPointer())
	assert.False(t, domain.ActionClickImage.IsPointer())
	assert.True(t, domain.ActionClickImage.IsImage())
	assert.True(t, domain.ActionConnection.Known())
	assert.False(t, domain.ActionKind("teleport").Known())
}

func TestBoundary_Validate(t *testing.T) {
	assert.NoError(t, domain.Boundary{X: 0, Y: 0, Width: 100, Height: 100}.Validate())
	assert.ErrorIs(t, domain.Boundary{X: -1, Width: 10, Height: 10}.Validate(), domain.ErrInvalidUnit)
}

func TestUnit_DisplayName(t *testing.T) {
	assert.Equal(t, "Login", domain.Unit{ID: "u1", Name: "Login"}.DisplayName())
	assert.Equal(t, "u1", domain.Unit{ID: "u1"}.DisplayName())
}

func TestGraph_RootsWithAdvancedConnections(t *testing.T) {
	g := domain.NewGraph([]domain.Node{
		{ID: "cond", Kind: domain.ActionIf},
		{ID: "c1", Kind: domain.ActionConnection, Params: map[string]any{"source_id": "cond", "target_id": "yes", "output_type": "true"}},
		{ID: "yes", Kind: domain.ActionWait},
	})

	assert.Equal(t, []string{"cond"}, ids(g.Roots()))
}
