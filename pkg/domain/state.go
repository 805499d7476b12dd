package domain

import "time"

// ExecutionStatus defines where a unit run is in its lifecycle.
type ExecutionStatus string

const (
	StatusIdle      ExecutionStatus = "idle"
	StatusRunning   ExecutionStatus = "running"
	StatusStopping  ExecutionStatus = "stopping"  // Stop requested, run loop still draining
	StatusCompleted ExecutionStatus = "completed" // Natural end of the last pass
	StatusStopped   ExecutionStatus = "stopped"   // Ended because a stop was requested
	StatusError     ExecutionStatus = "error"
)

// IsTerminal reports whether the status ends a run.
func (s ExecutionStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusStopped, StatusError:
		return true
	}
	return false
}

// ExecutionState is the per-unit status record.
// Values are always copies; mutate them only through a StatusStore.
type ExecutionState struct {
	UnitID      string          `json:"unit_id"`
	RunID       string          `json:"run_id,omitempty"`
	IsRunning   bool            `json:"is_running"`
	CurrentNode string          `json:"current_node,omitempty"`
	Status      ExecutionStatus `json:"status"`
	Progress    int             `json:"progress"`
	ShouldStop  bool            `json:"should_stop"`
	Error       string          `json:"error,omitempty"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	FinishedAt  *time.Time      `json:"finished_at,omitempty"`
	// HeartbeatAt is refreshed by the owning run while it is alive.
	HeartbeatAt *time.Time      `json:"heartbeat_at,omitempty"`
}

// NewExecutionState returns the idle record a unit starts with.
func NewExecutionState(unitID string) ExecutionState {
	return ExecutionState{
		UnitID: unitID,
		Status: StatusIdle,
	}
}

// MasterState aggregates a run-all sequence over many units.
type MasterState struct {
	IsRunning      bool            `json:"is_running"`
	Status         ExecutionStatus `json:"status"`
	Progress       int             `json:"progress"`
	CurrentUnit    string          `json:"current_unit,omitempty"`
	UnitsCompleted int             `json:"units_completed"`
	TotalUnits     int             `json:"total_units"`
	Error          string          `json:"error,omitempty"`
}
