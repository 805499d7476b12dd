package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/autopilot/pkg/domain"
)

// GraphOverlay contains dynamic state data to visualize on the graph.
type GraphOverlay struct {
	VisitedNodes []string
	CurrentNode  string
}

// GenerateMermaid produces a Mermaid flowchart for a unit.
// It applies semantic styling:
// - Root: ((Circle))
// - Condition: {Diamond}
// - Image search: [[Subroutine]]
// - Keyboard: [/Parallelogram/]
// - Wait: ([Stadium])
// - Default: [Rectangle]
// Connection nodes are drawn as dotted labelled edges rather than boxes.
// It also applies overlay styles (Visited/Current) if provided.
func GenerateMermaid(unit domain.Unit, overlay *GraphOverlay) string {
	g := unit.Graph()
	roots := make(map[string]bool)
	for _, r := range g.Roots() {
		roots[r.ID] = true
	}

	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, node := range g.Nodes() {
		if node.Kind == domain.ActionConnection {
			continue
		}
		safeID := sanitizeMermaidID(node.ID)

		opener, closer := "[", "]"
		switch {
		case roots[node.ID]:
			opener, closer = "((", "))"
		case node.Kind == domain.ActionIf:
			opener, closer = "{", "}"
		case node.Kind.IsImage():
			opener, closer = "[[", "]]"
		case node.Kind == domain.ActionKeyboard:
			opener, closer = "[/", "/]"
		case node.Kind == domain.ActionWait:
			opener, closer = "([", "])"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s <br/> %s\"%s\n", safeID, opener, escape(node.ID), node.Kind, closer)

		for i, to := range node.Connections {
			arrow := "-->"
			if node.Kind == domain.ActionIf {
				switch i {
				case 0:
					arrow = `-- "true" -->`
				case 1:
					arrow = `-- "false" -->`
				default:
					continue
				}
			}
			fmt.Fprintf(&sb, "    %s %s %s\n", safeID, arrow, sanitizeMermaidID(to))
		}
	}

	for _, c := range g.Nodes() {
		if c.Kind != domain.ActionConnection {
			continue
		}
		from := c.StringParam(domain.ParamSourceID, "")
		to := c.StringParam(domain.ParamTargetID, "")
		if from == "" || to == "" {
			continue
		}
		out := c.StringParam(domain.ParamOutputType, domain.OutputAny)
		fmt.Fprintf(&sb, "    %s -. \"%s\" .-> %s\n", sanitizeMermaidID(from), escape(out), sanitizeMermaidID(to))
	}

	if unit.Boundary != nil {
		b := unit.Boundary
		fmt.Fprintf(&sb, "    %%%% boundary x=%d y=%d w=%d h=%d\n", b.X, b.Y, b.Width, b.Height)
	}

	// Apply Overlay Styles
	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		visitedSet := make(map[string]bool)
		for _, id := range overlay.VisitedNodes {
			safeID := sanitizeMermaidID(id)
			if !visitedSet[safeID] && safeID != "" {
				visitedSet[safeID] = true
				fmt.Fprintf(&sb, "    class %s visited;\n", safeID)
			}
		}

		if overlay.CurrentNode != "" {
			fmt.Fprintf(&sb, "    class %s current;\n", sanitizeMermaidID(overlay.CurrentNode))
		}
	}

	return sb.String()
}

func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
