package dsl

import (
	"strings"

	"github.com/aretw0/autopilot/pkg/domain"
)

// NodeBuilder provides a fluent API for configuring a node.
type NodeBuilder struct {
	node      domain.Node
	then, els string
	branchSet bool
}

func (n *NodeBuilder) kind(k domain.ActionKind) *NodeBuilder {
	n.node.Kind = k
	return n
}

func (n *NodeBuilder) point(k domain.ActionKind, x, y int) *NodeBuilder {
	n.node.Kind = k
	n.node.Params["x"] = x
	n.node.Params["y"] = y
	return n
}

// Move glides the pointer to (x, y).
func (n *NodeBuilder) Move(x, y int) *NodeBuilder {
	return n.point(domain.ActionMove, x, y)
}

// Click moves to (x, y) and clicks the left button.
func (n *NodeBuilder) Click(x, y int) *NodeBuilder {
	return n.point(domain.ActionClick, x, y)
}

// ClickHere clicks wherever the pointer currently is.
func (n *NodeBuilder) ClickHere() *NodeBuilder {
	n.node.Kind = domain.ActionClick
	n.node.Params["position_mode"] = "current"
	return n
}

// MouseDown presses a button at (x, y); (0, 0) presses in place.
func (n *NodeBuilder) MouseDown(x, y int) *NodeBuilder {
	return n.point(domain.ActionMouseDown, x, y)
}

// MouseUp releases a button at (x, y).
func (n *NodeBuilder) MouseUp(x, y int) *NodeBuilder {
	return n.point(domain.ActionMouseUp, x, y)
}

// Scroll turns the wheel by clicks notches; direction is "up" or "down".
func (n *NodeBuilder) Scroll(direction string, clicks int) *NodeBuilder {
	n.node.Kind = domain.ActionScroll
	n.node.Params["direction"] = direction
	n.node.Params["clicks"] = clicks
	return n
}

// Button selects the mouse button for click and press actions.
func (n *NodeBuilder) Button(button string) *NodeBuilder {
	return n.Param("button", button)
}

// Jitter adds a random offset of up to dx/dy pixels to the target.
func (n *NodeBuilder) Jitter(dx, dy float64) *NodeBuilder {
	n.node.Params["x_random"] = dx
	n.node.Params["y_random"] = dy
	return n
}

// Type enters text.
func (n *NodeBuilder) Type(text string) *NodeBuilder {
	n.node.Kind = domain.ActionKeyboard
	n.node.Params["input_type"] = "text"
	n.node.Params["text"] = text
	return n
}

// Key taps a single key.
func (n *NodeBuilder) Key(key string) *NodeBuilder {
	n.node.Kind = domain.ActionKeyboard
	n.node.Params["input_type"] = "key"
	n.node.Params["key"] = key
	return n
}

// Special taps a named key such as "page_up" or "win".
func (n *NodeBuilder) Special(key string) *NodeBuilder {
	n.node.Kind = domain.ActionKeyboard
	n.node.Params["input_type"] = "special"
	n.node.Params["special_key"] = key
	return n
}

// Combo presses key while holding modifiers, e.g. Combo("c", "ctrl", "shift").
func (n *NodeBuilder) Combo(key string, modifiers ...string) *NodeBuilder {
	n.node.Kind = domain.ActionKeyboard
	n.node.Params["input_type"] = "combo"
	n.node.Params["key"] = key
	n.node.Params["modifier_keys"] = strings.Join(modifiers, "+")
	return n
}

// Hold sets how long keys stay pressed, in seconds.
func (n *NodeBuilder) Hold(seconds float64) *NodeBuilder {
	return n.Param("hold_duration", seconds)
}

// Wait pauses for seconds.
func (n *NodeBuilder) Wait(seconds float64) *NodeBuilder {
	n.node.Kind = domain.ActionWait
	n.node.Params["duration"] = seconds
	return n
}

func (n *NodeBuilder) image(k domain.ActionKind, path string) *NodeBuilder {
	n.node.Kind = k
	n.node.Params["image_path"] = path
	return n
}

// FindImage searches for a template without acting on it.
func (n *NodeBuilder) FindImage(path string) *NodeBuilder {
	return n.image(domain.ActionFindImage, path)
}

// FollowImage moves the pointer onto a template.
func (n *NodeBuilder) FollowImage(path string) *NodeBuilder {
	return n.image(domain.ActionFollowImage, path)
}

// ClickImage clicks on a template.
func (n *NodeBuilder) ClickImage(path string) *NodeBuilder {
	return n.image(domain.ActionClickImage, path)
}

// Threshold sets the minimum match confidence for image actions.
func (n *NodeBuilder) Threshold(t float64) *NodeBuilder {
	return n.Param("threshold", t)
}

// IfImage makes the node a condition that holds when the template is on screen.
func (n *NodeBuilder) IfImage(path string) *NodeBuilder {
	n.node.Kind = domain.ActionIf
	n.node.Params["condition_type"] = "image_exists"
	n.node.Params["image_path"] = path
	return n
}

// IfResult makes the node a condition with a fixed expected result.
func (n *NodeBuilder) IfResult(targetNodeID string, expected bool) *NodeBuilder {
	n.node.Kind = domain.ActionIf
	n.node.Params["condition_type"] = "node_result"
	n.node.Params["target_node_id"] = targetNodeID
	n.node.Params["expected_result"] = expected
	return n
}

// Then sets the branch taken when a condition holds.
func (n *NodeBuilder) Then(target string) *NodeBuilder {
	n.then, n.branchSet = target, true
	return n
}

// Else sets the branch taken when a condition fails.
func (n *NodeBuilder) Else(target string) *NodeBuilder {
	n.els, n.branchSet = target, true
	return n
}

// Param sets a raw parameter.
func (n *NodeBuilder) Param(key string, value any) *NodeBuilder {
	n.node.Params[key] = value
	return n
}

// Go adds an outgoing connection to the target node.
func (n *NodeBuilder) Go(target string) *NodeBuilder {
	n.node.Connections = append(n.node.Connections, target)
	return n
}

// Build returns the underlying domain.Node.
// This is primarily used by the Builder, but exposed for advanced usage.
func (n *NodeBuilder) Build() domain.Node {
	node := n.node
	node.Params = make(map[string]any, len(n.node.Params))
	for k, v := range n.node.Params {
		node.Params[k] = v
	}
	if len(node.Params) == 0 {
		node.Params = nil
	}
	if n.branchSet {
		node.Connections = []string{n.then}
		if n.els != "" {
			node.Connections = append(node.Connections, n.els)
		}
	} else {
		node.Connections = append([]string(nil), n.node.Connections...)
	}
	return node
}
