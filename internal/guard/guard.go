// Package guard is the default guard evaluator. Conditions compare known
// conversation fields or check which priorities have completed.
package guard

import (
	"context"
	"fmt"
	"strings"

	"github.com/andywolf/agenda/internal/engine"
	"github.com/andywolf/agenda/internal/priority"
)

// Supported condition operators.
const (
	OpExists    = "exists"
	OpMissing   = "missing"
	OpEq        = "eq"
	OpNeq       = "neq"
	OpContains  = "contains"
	OpIn        = "in"
	OpCompleted = "completed"
)

// Match modes.
const (
	MatchAll = "all"
	MatchAny = "any"
)

// Evaluator implements engine.GuardEvaluator.
type Evaluator struct{}

// New returns an evaluator.
func New() *Evaluator {
	return &Evaluator{}
}

var _ engine.GuardEvaluator = (*Evaluator)(nil)

// Evaluate reports whether g holds for s. A nil or empty guard holds.
func (ev *Evaluator) Evaluate(ctx context.Context, g *priority.Guard, s engine.State) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if g == nil || len(g.Conditions) == 0 {
		return true, nil
	}

	match := strings.ToLower(g.Match)
	if match != "" && match != MatchAll && match != MatchAny {
		return false, fmt.Errorf("unknown guard match %q", g.Match)
	}
	matchAny := match == MatchAny

	for i, c := range g.Conditions {
		ok, err := condition(c, s)
		if err != nil {
			return false, fmt.Errorf("condition %d: %w", i, err)
		}
		if matchAny && ok {
			return true, nil
		}
		if !matchAny && !ok {
			return false, nil
		}
	}
	return !matchAny, nil
}

// Check validates a guard without evaluating it.
func Check(g *priority.Guard) error {
	if g == nil {
		return nil
	}
	switch strings.ToLower(g.Match) {
	case "", MatchAll, MatchAny:
	default:
		return fmt.Errorf("unknown guard match %q", g.Match)
	}
	for i, c := range g.Conditions {
		if err := checkCondition(c); err != nil {
			return fmt.Errorf("condition %d: %w", i, err)
		}
	}
	return nil
}

func checkCondition(c priority.Condition) error {
	switch c.Op {
	case OpCompleted:
		if c.Value == "" {
			return fmt.Errorf("%s needs a priority id in value", c.Op)
		}
	case OpExists, OpMissing, OpEq, OpNeq, OpContains, OpIn:
		if c.Field == "" {
			return fmt.Errorf("%s needs a field", c.Op)
		}
	default:
		return fmt.Errorf("unknown operator %q", c.Op)
	}
	return nil
}

func condition(c priority.Condition, s engine.State) (bool, error) {
	if err := checkCondition(c); err != nil {
		return false, err
	}

	v, known := s.Values[c.Field]
	switch c.Op {
	case OpExists:
		return known, nil
	case OpMissing:
		return !known, nil
	case OpEq:
		return known && v == c.Value, nil
	case OpNeq:
		return !known || v != c.Value, nil
	case OpContains:
		return known && strings.Contains(strings.ToLower(v), strings.ToLower(c.Value)), nil
	case OpIn:
		if !known {
			return false, nil
		}
		v = strings.TrimSpace(v)
		for _, opt := range strings.Split(c.Value, ",") {
			if strings.TrimSpace(opt) == v {
				return true, nil
			}
		}
		return false, nil
	default: // OpCompleted
		return s.Completed[c.Value], nil
	}
}
