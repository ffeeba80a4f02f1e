package priority

import (
	"strconv"
	"strings"
)

// Validate checks the invariants that hold for a single priority on its own.
// Cross-record rules (uniqueness, dangling references, cycles) belong to the
// registry.
func Validate(p Priority) error {
	if strings.TrimSpace(p.ID) == "" {
		return &ValidationError{Field: "id", Message: "id is required"}
	}

	if p.Weight < MinWeight || p.Weight > MaxWeight {
		return &InvalidWeightError{ID: p.ID, Weight: p.Weight}
	}

	for _, t := range p.Triggers {
		if strings.TrimSpace(t) == "" {
			return &ValidationError{ID: p.ID, Field: "triggers", Message: "trigger phrase must not be empty"}
		}
	}

	seen := make(map[string]bool, len(p.RequiredData))
	for _, key := range p.RequiredData {
		if strings.TrimSpace(key) == "" {
			return &ValidationError{ID: p.ID, Field: "required_data", Message: "field key must not be empty"}
		}
		if seen[key] {
			return &ValidationError{ID: p.ID, Field: "required_data", Message: "duplicate field key " + key}
		}
		seen[key] = true
	}

	deps := make(map[string]bool, len(p.DependsOn))
	for _, dep := range p.DependsOn {
		if dep == p.ID {
			return &CyclicDependencyError{ID: p.ID, Path: []string{p.ID, p.ID}}
		}
		if deps[dep] {
			return &ValidationError{ID: p.ID, Field: "depends_on", Message: "duplicate dependency " + dep}
		}
		deps[dep] = true
	}

	if p.TaskID != "" && p.CompletionCriteria != "" {
		return &MutuallyExclusiveFieldError{ID: p.ID, TaskID: p.TaskID}
	}

	for i, a := range p.Actions {
		if strings.TrimSpace(a.Type) == "" {
			return &ValidationError{ID: p.ID, Field: "actions", Message: "action type is required at position " + strconv.Itoa(i)}
		}
	}

	return nil
}
