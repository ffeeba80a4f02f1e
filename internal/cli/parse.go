package cli

import (
	"fmt"
	"strings"

	"github.com/andywolf/agenda/internal/guard"
	"github.com/andywolf/agenda/internal/priority"
)

// ParseAssignment splits "key=value". The value may be empty.
func ParseAssignment(s string) (string, string, error) {
	key, value, ok := strings.Cut(s, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return "", "", fmt.Errorf("invalid assignment %q: want key=value", s)
	}
	return key, strings.TrimSpace(value), nil
}

// ParseAction parses an action flag.
//
// Examples:
//   - "handoff" → {Type: handoff}
//   - "send_email:template=refund,to=ops" → {Type: send_email, Params: {template: refund, to: ops}}
func ParseAction(s string) (priority.Action, error) {
	typ, rest, hasParams := strings.Cut(s, ":")
	typ = strings.TrimSpace(typ)
	if typ == "" {
		return priority.Action{}, fmt.Errorf("invalid action %q: type is required", s)
	}

	a := priority.Action{Type: typ}
	if !hasParams {
		return a, nil
	}
	for _, segment := range strings.Split(rest, ",") {
		if strings.TrimSpace(segment) == "" {
			continue
		}
		k, v, err := ParseAssignment(segment)
		if err != nil {
			return priority.Action{}, fmt.Errorf("invalid action %q: %w", s, err)
		}
		if a.Params == nil {
			a.Params = make(map[string]string)
		}
		a.Params[k] = v
	}
	return a, nil
}

// ParseCondition parses a guard condition written as "field op [value]",
// or "completed priority_id".
func ParseCondition(s string) (priority.Condition, error) {
	parts := strings.Fields(s)
	if len(parts) == 2 && parts[0] == guard.OpCompleted {
		return priority.Condition{Op: guard.OpCompleted, Value: parts[1]}, nil
	}
	if len(parts) < 2 {
		return priority.Condition{}, fmt.Errorf("invalid condition %q: want \"field op [value]\"", s)
	}

	c := priority.Condition{Field: parts[0], Op: parts[1], Value: strings.Join(parts[2:], " ")}
	if err := guard.Check(&priority.Guard{Conditions: []priority.Condition{c}}); err != nil {
		return priority.Condition{}, fmt.Errorf("invalid condition %q: %w", s, err)
	}
	return c, nil
}

// parseGuard builds a guard from condition flags. No conditions means no guard.
func parseGuard(conds []string, matchAny bool) (*priority.Guard, error) {
	if len(conds) == 0 {
		return nil, nil
	}
	g := &priority.Guard{}
	if matchAny {
		g.Match = guard.MatchAny
	}
	for _, s := range conds {
		c, err := ParseCondition(s)
		if err != nil {
			return nil, err
		}
		g.Conditions = append(g.Conditions, c)
	}
	return g, nil
}

func parseActions(in []string) ([]priority.Action, error) {
	var out []priority.Action
	for _, s := range in {
		a, err := ParseAction(s)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}
