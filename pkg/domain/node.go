package domain

// ActionKind identifies what a node does when it is visited.
// The values are the wire names used in unit files.
type ActionKind string

const (
	ActionMove        ActionKind = "move"
	ActionClick       ActionKind = "click"
	ActionMouseDown   ActionKind = "mousedown"
	ActionMouseUp     ActionKind = "mouseup"
	ActionScroll      ActionKind = "mousescroll"
	ActionKeyboard    ActionKind = "keyboard"
	ActionWait        ActionKind = "wait"
	ActionFindImage   ActionKind = "findimg"
	ActionFollowImage ActionKind = "followimg"
	ActionClickImage  ActionKind = "clickimg"
	ActionIf          ActionKind = "if"
	// ActionConnection marks a pass-through node used by the advanced
	// branching scheme. It performs no device action.
	ActionConnection ActionKind = "connection"
)

// IsPointer reports whether the kind resolves a screen coordinate from its params.
func (k ActionKind) IsPointer() bool {
	switch k {
	case ActionMove, ActionClick, ActionMouseDown, ActionMouseUp, ActionScroll:
		return true
	}
	return false
}

// IsImage reports whether the kind searches for a template on screen.
func (k ActionKind) IsImage() bool {
	switch k {
	case ActionFindImage, ActionFollowImage, ActionClickImage:
		return true
	}
	return false
}

// Known reports whether the engine has a handler for the kind.
func (k ActionKind) Known() bool {
	if k.IsPointer() || k.IsImage() {
		return true
	}
	switch k {
	case ActionKeyboard, ActionWait, ActionIf, ActionConnection:
		return true
	}
	return false
}

// Parameter keys read by the traversal itself (the rest belong to the dispatcher).
const (
	ParamSourceID   = "source_id"
	ParamTargetID   = "target_id"
	ParamOutputType = "output_type"
)

// Output types carried by connection nodes.
const (
	OutputTrue  = "true"
	OutputFalse = "false"
	OutputAny   = "output"
)

// Node represents an atomic action in a unit's graph.
type Node struct {
	ID   string     `json:"id" yaml:"id"`
	Kind ActionKind `json:"action_type" yaml:"action_type"`

	// Params is the kind-specific parameter bag. It is decoded into typed
	// structs by the dispatcher.
	Params map[string]any `json:"params,omitempty" yaml:"params,omitempty"`

	// Connections lists outgoing node ids. For conditional nodes the first
	// entry is the true branch and the second the false branch.
	Connections []string `json:"connections,omitempty" yaml:"connections,omitempty"`
}

// StringParam returns a string parameter or def when absent or not a string.
func (n Node) StringParam(key, def string) string {
	if v, ok := n.Params[key].(string); ok {
		return v
	}
	return def
}
