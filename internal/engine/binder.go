package engine

import "github.com/andywolf/agenda/internal/priority"

// EffectKind says what an activation asks the agent to do.
type EffectKind string

const (
	// EffectRequestData asks the user for the listed fields first.
	EffectRequestData EffectKind = "request_data"
	// EffectRunTask hands the work to a linked task.
	EffectRunTask EffectKind = "run_task"
	// EffectRunInline follows the priority's criteria and actions.
	EffectRunInline EffectKind = "run_inline"
	// EffectNone means the priority carries nothing to execute.
	EffectNone EffectKind = "none"
)

// Effect is the bound outcome of an activation, consumed by an action
// executor outside this package.
type Effect struct {
	Kind               EffectKind        `json:"kind" yaml:"kind"`
	Fields             []string          `json:"fields,omitempty" yaml:"fields,omitempty"`
	TaskID             string            `json:"task_id,omitempty" yaml:"task_id,omitempty"`
	CompletionCriteria string            `json:"completion_criteria,omitempty" yaml:"completion_criteria,omitempty"`
	Actions            []priority.Action `json:"actions,omitempty" yaml:"actions,omitempty"`
}

// ResolveEffect binds a selected priority to its effect. Missing data always
// wins: nothing runs until every required field is known.
func ResolveEffect(p priority.Priority, missing []string) Effect {
	if len(missing) > 0 {
		return Effect{Kind: EffectRequestData, Fields: append([]string(nil), missing...)}
	}

	actions := p.Clone().Actions
	switch d := p.Directive().(type) {
	case priority.TaskDirective:
		return Effect{Kind: EffectRunTask, TaskID: d.TaskID, Actions: actions}
	case priority.InlineDirective:
		if d.CompletionCriteria == "" && len(actions) == 0 {
			return Effect{Kind: EffectNone}
		}
		return Effect{Kind: EffectRunInline, CompletionCriteria: d.CompletionCriteria, Actions: actions}
	}
	return Effect{Kind: EffectNone}
}
