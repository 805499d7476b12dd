package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventNodeEnter     EventType = "node_enter"
	EventNodeLeave     EventType = "node_leave"
	EventActionSkipped EventType = "action_skipped"
	EventRunFinished   EventType = "run_finished"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	UnitID    string    `json:"unit_id"`
	RunID     string    `json:"run_id"`
}

// NodeEvent represents entry into or exit from a node.
type NodeEvent struct {
	EventBase
	NodeID   string        `json:"node_id"`
	Kind     ActionKind    `json:"kind"`
	Duration time.Duration `json:"duration,omitempty"` // Set on leave
	Err      error         `json:"-"`
}

// SkipEvent represents an action that was skipped without failing the run.
type SkipEvent struct {
	EventBase
	NodeID string     `json:"node_id"`
	Kind   ActionKind `json:"kind"`
	Reason string     `json:"reason"`
}

// RunEvent represents the end of a unit run.
type RunEvent struct {
	EventBase
	Status   ExecutionStatus `json:"status"`
	Executed int             `json:"executed"`
	Err      error           `json:"-"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnNodeEnter     func(context.Context, *NodeEvent)
	OnNodeLeave     func(context.Context, *NodeEvent)
	OnActionSkipped func(context.Context, *SkipEvent)
	OnRunFinished   func(context.Context, *RunEvent)
}

// Merge returns hooks that call h first and then other.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnNodeEnter:     chain(h.OnNodeEnter, other.OnNodeEnter),
		OnNodeLeave:     chain(h.OnNodeLeave, other.OnNodeLeave),
		OnActionSkipped: chain(h.OnActionSkipped, other.OnActionSkipped),
		OnRunFinished:   chain(h.OnRunFinished, other.OnRunFinished),
	}
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
