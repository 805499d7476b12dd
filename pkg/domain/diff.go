package domain

// StatusDiff represents the changes between two execution snapshots.
// It is designed to be serialized to JSON for partial updates on the client.
type StatusDiff struct {
	// UnitID is always present to identify the target.
	UnitID string `json:"unit_id"`

	Status      *ExecutionStatus `json:"status,omitempty"`
	CurrentNode *string          `json:"current_node,omitempty"`
	Progress    *int             `json:"progress,omitempty"`
	IsRunning   *bool            `json:"is_running,omitempty"`
	Error       *string          `json:"error,omitempty"`
	RunID       *string          `json:"run_id,omitempty"`
}

// Diff calculates the difference between oldState and newState.
// If oldState is nil, it returns a diff representing the entire newState (initial load).
// It returns nil when nothing changed.
func Diff(oldState, newState *ExecutionState) *StatusDiff {
	if newState == nil {
		return nil
	}

	diff := &StatusDiff{UnitID: newState.UnitID}

	if oldState == nil || oldState.Status != newState.Status {
		diff.Status = &newState.Status
	}
	if oldState == nil || oldState.CurrentNode != newState.CurrentNode {
		diff.CurrentNode = &newState.CurrentNode
	}
	if oldState == nil || oldState.Progress != newState.Progress {
		diff.Progress = &newState.Progress
	}
	if oldState == nil || oldState.IsRunning != newState.IsRunning {
		diff.IsRunning = &newState.IsRunning
	}
	if oldState == nil || oldState.RunID != newState.RunID {
		diff.RunID = &newState.RunID
	}
	if (oldState == nil && newState.Error != "") || (oldState != nil && oldState.Error != newState.Error) {
		diff.Error = &newState.Error
	}

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *StatusDiff) IsEmpty() bool {
	return d.Status == nil &&
		d.CurrentNode == nil &&
		d.Progress == nil &&
		d.IsRunning == nil &&
		d.Error == nil &&
		d.RunID == nil
}
