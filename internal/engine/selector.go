package engine

import (
	"context"
	"sort"

	"github.com/andywolf/agenda/internal/graph"
	"github.com/andywolf/agenda/internal/priority"
)

// Reason explains why a priority was or was not selected on a turn.
type Reason string

const (
	ReasonSelected      Reason = "selected"
	ReasonDisabled      Reason = "disabled"
	ReasonNotTriggered  Reason = "not_triggered"
	ReasonAlreadyUsed   Reason = "already_used"
	ReasonDependencies  Reason = "dependencies_unsatisfied"
	ReasonGuardRejected Reason = "guard_rejected"
	ReasonOutranked     Reason = "outranked"
)

// Decision is the selector's verdict on one priority.
type Decision struct {
	PriorityID string   `json:"priority_id" yaml:"priority_id"`
	Weight     int      `json:"weight" yaml:"weight"`
	Reason     Reason   `json:"reason" yaml:"reason"`
	Unmet      []string `json:"unmet,omitempty" yaml:"unmet,omitempty"`
}

// Selection is the outcome of one evaluation. Selected is nil when no
// priority activates this turn.
type Selection struct {
	Selected  *priority.Priority
	Decisions []Decision
}

// Triggered asks the matcher which enabled priorities the text proposes.
// Priorities without triggers are never proposed.
func Triggered(ctx context.Context, m TriggerMatcher, ps []priority.Priority, text string) (map[string]bool, error) {
	triggered := make(map[string]bool)
	for _, p := range ps {
		if !p.Enabled || len(p.Triggers) == 0 {
			continue
		}
		if m == nil {
			return nil, &CapabilityError{Capability: CapabilityMatcher, PriorityID: p.ID, Err: ErrNoCapability}
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ok, err := m.Match(ctx, text, p.Triggers)
		if err != nil {
			return nil, &CapabilityError{Capability: CapabilityMatcher, PriorityID: p.ID, Err: err}
		}
		if ok {
			triggered[p.ID] = true
		}
	}
	return triggered, nil
}

// SelectNext returns the one priority to activate this turn, or nil.
// ps must be in registry insertion order; ties on weight keep that order.
func SelectNext(ctx context.Context, ps []priority.Priority, turn Turn, guards GuardEvaluator) (*priority.Priority, error) {
	sel, err := Evaluate(ctx, ps, turn, guards)
	if err != nil {
		return nil, err
	}
	return sel.Selected, nil
}

// Evaluate runs selection and records a Decision for every priority, in the
// order given. A guard failure aborts the turn.
func Evaluate(ctx context.Context, ps []priority.Priority, turn Turn, guards GuardEvaluator) (Selection, error) {
	decisions := make([]Decision, len(ps))
	var candidates []int
	deps := turn.Graph
	if deps == nil {
		deps = graphOf(ps)
	}

	for i, p := range ps {
		decisions[i] = Decision{PriorityID: p.ID, Weight: p.Weight}
		switch {
		case !p.Enabled:
			decisions[i].Reason = ReasonDisabled
		case !turn.Triggered[p.ID]:
			decisions[i].Reason = ReasonNotTriggered
		case p.ExecuteOnce && turn.used(p.ID):
			decisions[i].Reason = ReasonAlreadyUsed
		default:
			if unmet := deps.Unmet(p.ID, turn.Completed); len(unmet) > 0 {
				decisions[i].Reason = ReasonDependencies
				decisions[i].Unmet = unmet
				continue
			}
			candidates = append(candidates, i)
		}
	}

	passed := candidates[:0]
	for _, i := range candidates {
		p := ps[i]
		if !p.HasGuard() {
			passed = append(passed, i)
			continue
		}
		if guards == nil {
			return Selection{}, &CapabilityError{Capability: CapabilityGuard, PriorityID: p.ID, Err: ErrNoCapability}
		}
		if err := ctx.Err(); err != nil {
			return Selection{}, err
		}
		ok, err := guards.Evaluate(ctx, p.Guard, turn.State)
		if err != nil {
			return Selection{}, &CapabilityError{Capability: CapabilityGuard, PriorityID: p.ID, Err: err}
		}
		if !ok {
			decisions[i].Reason = ReasonGuardRejected
			continue
		}
		passed = append(passed, i)
	}

	if len(passed) == 0 {
		return Selection{Decisions: decisions}, nil
	}

	sort.SliceStable(passed, func(a, b int) bool {
		return ps[passed[a]].Weight > ps[passed[b]].Weight
	})
	for n, i := range passed {
		if n == 0 {
			decisions[i].Reason = ReasonSelected
			continue
		}
		decisions[i].Reason = ReasonOutranked
	}

	selected := ps[passed[0]].Clone()
	return Selection{Selected: &selected, Decisions: decisions}, nil
}

func graphOf(ps []priority.Priority) *graph.Graph {
	order := make([]string, len(ps))
	edges := make(map[string][]string, len(ps))
	for i, p := range ps {
		order[i] = p.ID
		edges[p.ID] = p.DependsOn
	}
	return graph.New(order, edges)
}
