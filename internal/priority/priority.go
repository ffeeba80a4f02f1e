// Package priority defines the Priority record an agent is configured with,
// its identity rules and the errors raised when a record breaks an invariant.
package priority

const (
	// MinWeight and MaxWeight bound Priority.Weight (inclusive).
	MinWeight = 1
	MaxWeight = 100

	// DefaultWeight is assigned to newly created priorities.
	DefaultWeight = 50

	// IDPrefix is prepended to every generated id.
	IDPrefix = "priority_"
)

// Action is a side-effecting step run when a priority activates.
// Its semantics belong to the action executor; the engine only carries it.
type Action struct {
	Type   string            `json:"type" yaml:"type" toml:"type"`
	Params map[string]string `json:"params,omitempty" yaml:"params,omitempty" toml:"params,omitempty"`
}

// Guard is a precondition evaluated by an external guard evaluator.
// The engine never interprets it.
type Guard struct {
	// Match is "all" (default) or "any".
	Match      string      `json:"match,omitempty" yaml:"match,omitempty" toml:"match,omitempty"`
	Conditions []Condition `json:"conditions" yaml:"conditions" toml:"conditions"`
}

// Condition is a single guard clause over conversation state.
type Condition struct {
	Field string `json:"field" yaml:"field" toml:"field"`
	Op    string `json:"op" yaml:"op" toml:"op"`
	Value string `json:"value,omitempty" yaml:"value,omitempty" toml:"value,omitempty"`
}

// Priority is a weighted, trigger-activated goal for a conversational agent.
type Priority struct {
	ID                 string   `json:"id" yaml:"id" toml:"id"`
	Name               string   `json:"name" yaml:"name" toml:"name"`
	Description        string   `json:"description,omitempty" yaml:"description,omitempty" toml:"description,omitempty"`
	Weight             int      `json:"weight" yaml:"weight" toml:"weight"`
	Triggers           []string `json:"triggers,omitempty" yaml:"triggers,omitempty" toml:"triggers,omitempty"`
	RequiredData       []string `json:"required_data,omitempty" yaml:"required_data,omitempty" toml:"required_data,omitempty"`
	DependsOn          []string `json:"depends_on,omitempty" yaml:"depends_on,omitempty" toml:"depends_on,omitempty"`
	Guard              *Guard   `json:"guard,omitempty" yaml:"guard,omitempty" toml:"guard,omitempty"`
	TaskID             string   `json:"task_id,omitempty" yaml:"task_id,omitempty" toml:"task_id,omitempty"`
	CompletionCriteria string   `json:"completion_criteria,omitempty" yaml:"completion_criteria,omitempty" toml:"completion_criteria,omitempty"`
	Actions            []Action `json:"actions,omitempty" yaml:"actions,omitempty" toml:"actions,omitempty"`
	Enabled            bool     `json:"enabled" yaml:"enabled" toml:"enabled"`
	ExecuteOnce        bool     `json:"execute_once" yaml:"execute_once" toml:"execute_once"`
}

// New creates an enabled priority with a generated id and the default weight.
func New(name string) Priority {
	return Priority{
		ID:      GenerateID(name),
		Name:    name,
		Weight:  DefaultWeight,
		Enabled: true,
	}
}

// Directive is what an activated priority is asked to do: either run a linked
// task or follow inline completion criteria. Exactly one applies.
type Directive interface {
	isDirective()
}

// TaskDirective delegates the work to an external task.
type TaskDirective struct {
	TaskID string
}

// InlineDirective carries free-text completion criteria. Criteria may be empty.
type InlineDirective struct {
	CompletionCriteria string
}

func (TaskDirective) isDirective() {}
func (InlineDirective) isDirective() {}

// Directive returns the directive derived from TaskID and CompletionCriteria.
// A task id always wins; the registry keeps the two from coexisting.
func (p Priority) Directive() Directive {
	if p.TaskID != "" {
		return TaskDirective{TaskID: p.TaskID}
	}
	return InlineDirective{CompletionCriteria: p.CompletionCriteria}
}

// HasGuard reports whether activation is gated by a guard.
func (p Priority) HasGuard() bool {
	return p.Guard != nil && len(p.Guard.Conditions) > 0
}

// Clone returns a deep copy so callers cannot mutate registry state through
// shared slices or maps.
func (p Priority) Clone() Priority {
	c := p
	c.Triggers = cloneStrings(p.Triggers)
	c.RequiredData = cloneStrings(p.RequiredData)
	c.DependsOn = cloneStrings(p.DependsOn)
	if p.Guard != nil {
		g := *p.Guard
		if p.Guard.Conditions != nil {
			g.Conditions = make([]Condition, len(p.Guard.Conditions))
			copy(g.Conditions, p.Guard.Conditions)
		}
		c.Guard = &g
	}
	if p.Actions != nil {
		c.Actions = make([]Action, len(p.Actions))
		for i, a := range p.Actions {
			c.Actions[i] = Action{Type: a.Type}
			if a.Params != nil {
				c.Actions[i].Params = make(map[string]string, len(a.Params))
				for k, v := range a.Params {
					c.Actions[i].Params[k] = v
				}
			}
		}
	}
	return c
}

// DependsOnSet returns DependsOn as a set.
func (p Priority) DependsOnSet() map[string]bool {
	set := make(map[string]bool, len(p.DependsOn))
	for _, id := range p.DependsOn {
		set[id] = true
	}
	return set
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
