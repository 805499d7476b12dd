package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrConflict is returned when a run is requested for a unit (or a run-all
	// sequence) that is already running.
	ErrConflict = errors.New("already running")

	// ErrUnitNotFound is returned when a unit id cannot be found in the repository.
	ErrUnitNotFound = errors.New("unit not found")

	// ErrStateNotFound is returned by a StatusStore when no record exists yet.
	ErrStateNotFound = errors.New("execution state not found")

	// ErrInvalidSpeed is returned when the speed factor is not positive.
	ErrInvalidSpeed = errors.New("speed must be greater than zero")

	// ErrInvalidUnit is returned when a unit definition breaks a structural rule.
	ErrInvalidUnit = errors.New("invalid unit")

	// ErrFailsafe is wrapped by actuators that refuse to act because the
	// pointer sits in a guarded zone.
	ErrFailsafe = errors.New("actuator failsafe triggered")
)

// FailsafeMessage is the user-facing error stored when the failsafe fires.
const FailsafeMessage = "Failsafe triggered: the pointer was moved into a screen corner. Move it away and try again."

// ActionError reports an unexpected failure inside a single action.
type ActionError struct {
	NodeID string
	Kind   ActionKind
	Err    error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("error executing %s action (node %s): %v", e.Kind, e.NodeID, e.Err)
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

// FailsafeError reports that the actuator refused an action and operator
// intervention is required. It halts the run.
type FailsafeError struct {
	NodeID string
	Kind   ActionKind
	Err    error
}

func (e *FailsafeError) Error() string {
	return FailsafeMessage
}

func (e *FailsafeError) Unwrap() error {
	return e.Err
}
