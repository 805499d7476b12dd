package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/autopilot/internal/presentation/graph"
	"github.com/aretw0/autopilot/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestGenerateMermaid(t *testing.T) {
	tests := []struct {
		name     string
		nodes    []domain.Node
		contains []string
		absent   []string
	}{
		{
			name: "Node Shapes",
			nodes: []domain.Node{
				{ID: "start", Kind: domain.ActionClick, Connections: []string{"cond"}},
				{ID: "cond", Kind: domain.ActionIf, Connections: []string{"img", "kbd"}},
				{ID: "img", Kind: domain.ActionClickImage, Connections: []string{"pause"}},
				{ID: "kbd", Kind: domain.ActionKeyboard, Connections: []string{"pause"}},
				{ID: "pause", Kind: domain.ActionWait, Connections: []string{"move"}},
				{ID: "move", Kind: domain.ActionMove},
			},
			contains: []string{
				`start(("start <br/> click"))`,
				`cond{"cond <br/> if"}`,
				`img[["img <br/> clickimg"]]`,
				`kbd[/"kbd <br/> keyboard"/]`,
				`pause(["pause <br/> wait"])`,
				`move["move <br/> move"]`,
			},
		},
		{
			name: "Conditional Branch Labels",
			nodes: []domain.Node{
				{ID: "c", Kind: domain.ActionIf, Connections: []string{"a", "b", "ignored"}},
				{ID: "a", Kind: domain.ActionWait},
				{ID: "b", Kind: domain.ActionWait},
			},
			contains: []string{`c -- "true" --> a`, `c -- "false" --> b`},
			absent:   []string{"ignored"},
		},
		{
			name: "Connection Nodes Become Edges",
			nodes: []domain.Node{
				{ID: "c", Kind: domain.ActionIf},
				{ID: "a", Kind: domain.ActionWait},
				{ID: "link-1", Kind: domain.ActionConnection, Params: map[string]any{
					domain.ParamSourceID:   "c",
					domain.ParamTargetID:   "a",
					domain.ParamOutputType: domain.OutputTrue,
				}},
			},
			contains: []string{`c -. "true" .-> a`},
			absent:   []string{"link_1"},
		},
		{
			name: "ID Sanitization",
			nodes: []domain.Node{
				{ID: "path/to/file.png", Kind: domain.ActionFindImage},
				{ID: "hyphen-ated", Kind: domain.ActionWait},
			},
			contains: []string{
				`path_to_file_png(("path/to/file.png <br/> findimg"))`,
				`hyphen_ated(("hyphen-ated <br/> wait"))`,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := graph.GenerateMermaid(domain.Unit{ID: "u", Nodes: tt.nodes}, nil)
			assert.True(t, strings.HasPrefix(got, "graph TD\n"))
			for _, want := range tt.contains {
				assert.Contains(t, got, want)
			}
			for _, unwanted := range tt.absent {
				assert.NotContains(t, got, unwanted)
			}
		})
	}
}

func TestGenerateMermaid_Overlay(t *testing.T) {
	unit := domain.Unit{
		ID:       "u",
		Boundary: &domain.Boundary{X: 1, Y: 2, Width: 3, Height: 4},
		Nodes: []domain.Node{
			{ID: "a", Kind: domain.ActionWait, Connections: []string{"b"}},
			{ID: "b", Kind: domain.ActionWait},
		},
	}

	got := graph.GenerateMermaid(unit, &graph.GraphOverlay{VisitedNodes: []string{"a", "a"}, CurrentNode: "b"})

	assert.Equal(t, 1, strings.Count(got, "class a visited;"))
	assert.Contains(t, got, "class b current;")
	assert.Contains(t, got, "%% boundary x=1 y=2 w=3 h=4")
}
