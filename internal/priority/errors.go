package priority

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel kinds. Every typed error below unwraps to one of these so callers
// can use errors.Is for the kind and errors.As for the details.
var (
	ErrDuplicateID        = errors.New("duplicate priority id")
	ErrNotFound           = errors.New("priority not found")
	ErrCyclicDependency   = errors.New("cyclic dependency")
	ErrInvalidWeight      = errors.New("invalid weight")
	ErrDanglingDependency = errors.New("dangling dependency")
	ErrMutuallyExclusive  = errors.New("mutually exclusive fields")
	ErrInvalidPriority    = errors.New("invalid priority")
	ErrUnknownTask        = errors.New("unknown task")
)

// DuplicateIDError is returned when adding a priority whose id already exists.
type DuplicateIDError struct {
	ID string
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("priority %s already exists", e.ID)
}

func (e *DuplicateIDError) Unwrap() error { return ErrDuplicateID }

// NotFoundError is returned when an operation targets an unknown id.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("priority %s not found", e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// CyclicDependencyError reports a dependency edit that would close a cycle.
// Path starts and ends with the same id.
type CyclicDependencyError struct {
	ID   string
	Path []string
}

func (e *CyclicDependencyError) Error() string {
	if len(e.Path) == 0 {
		return fmt.Sprintf("priority %s: dependency cycle", e.ID)
	}
	return fmt.Sprintf("priority %s: dependency cycle: %s", e.ID, strings.Join(e.Path, " -> "))
}

func (e *CyclicDependencyError) Unwrap() error { return ErrCyclicDependency }

// InvalidWeightError is returned for weights outside [MinWeight, MaxWeight].
type InvalidWeightError struct {
	ID     string
	Weight int
}

func (e *InvalidWeightError) Error() string {
	return fmt.Sprintf("priority %s: weight %d out of range [%d,%d]", e.ID, e.Weight, MinWeight, MaxWeight)
}

func (e *InvalidWeightError) Unwrap() error { return ErrInvalidWeight }

// DanglingDependencyError reports a DependsOn entry naming a missing priority.
type DanglingDependencyError struct {
	ID      string
	Missing string
}

func (e *DanglingDependencyError) Error() string {
	return fmt.Sprintf("priority %s depends on unknown priority %s", e.ID, e.Missing)
}

func (e *DanglingDependencyError) Unwrap() error { return ErrDanglingDependency }

// MutuallyExclusiveFieldError is returned when a task id and non-empty
// completion criteria would be stored together.
type MutuallyExclusiveFieldError struct {
	ID     string
	TaskID string
}

func (e *MutuallyExclusiveFieldError) Error() string {
	return fmt.Sprintf("priority %s: task %s and completion criteria are mutually exclusive", e.ID, e.TaskID)
}

func (e *MutuallyExclusiveFieldError) Unwrap() error { return ErrMutuallyExclusive }

// ValidationError reports any other structural problem with a field.
type ValidationError struct {
	ID      string
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("priority %s: %s: %s", e.ID, e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidPriority }

// UnknownTaskError is returned when a priority links a task the task catalog
// does not know.
type UnknownTaskError struct {
	ID     string
	TaskID string
}

func (e *UnknownTaskError) Error() string {
	return fmt.Sprintf("priority %s: unknown task %s", e.ID, e.TaskID)
}

func (e *UnknownTaskError) Unwrap() error { return ErrUnknownTask }
