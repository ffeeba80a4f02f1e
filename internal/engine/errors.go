package engine

import (
	"errors"
	"fmt"
	"strings"
)

// Capability names used in CapabilityError.
const (
	CapabilityMatcher = "matcher"
	CapabilityGuard   = "guard"
	CapabilityTasks   = "tasks"
)

var (
	// ErrNoCapability is returned when a required collaborator was not supplied.
	ErrNoCapability = errors.New("capability not configured")
	// ErrAwaitingData is returned when completing a priority whose latest
	// activation only asked for missing data.
	ErrAwaitingData = errors.New("priority is still waiting for data")
)

// CapabilityError reports a failure in an external collaborator. It ends the
// turn with no activation.
type CapabilityError struct {
	Capability string
	PriorityID string
	Err        error
}

func (e *CapabilityError) Error() string {
	if e.PriorityID == "" {
		return fmt.Sprintf("%s failed: %v", e.Capability, e.Err)
	}
	return fmt.Sprintf("%s failed for %s: %v", e.Capability, e.PriorityID, e.Err)
}

func (e *CapabilityError) Unwrap() error { return e.Err }

// TaskUnavailableError is returned when a selected priority is bound to a task
// the catalog does not have, or has disabled.
type TaskUnavailableError struct {
	PriorityID string
	TaskID     string
	Disabled   bool
}

func (e *TaskUnavailableError) Error() string {
	if e.Disabled {
		return fmt.Sprintf("priority %s: task %s is disabled", e.PriorityID, e.TaskID)
	}
	return fmt.Sprintf("priority %s: task %s not found", e.PriorityID, e.TaskID)
}

// AwaitingDataError is returned by Complete when the priority's latest
// activation was a data request: its own effect has not run yet.
type AwaitingDataError struct {
	PriorityID string
	Missing    []string
}

func (e *AwaitingDataError) Error() string {
	return fmt.Sprintf("priority %s cannot complete: still waiting for %s", e.PriorityID, strings.Join(e.Missing, ", "))
}

func (e *AwaitingDataError) Unwrap() error { return ErrAwaitingData }
