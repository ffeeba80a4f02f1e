package engine

import (
	"context"
	"strings"

	"github.com/andywolf/agenda/internal/priority"
)

// contains triggers when any phrase is a case-insensitive substring of text.
var contains = MatcherFunc(func(_ context.Context, text string, phrases []string) (bool, error) {
	lower := strings.ToLower(text)
	for _, ph := range phrases {
		if strings.Contains(lower, strings.ToLower(ph)) {
			return true, nil
		}
	}
	return false, nil
})

// fieldEquals passes when every condition's field equals its value.
var fieldEquals = GuardFunc(func(_ context.Context, g *priority.Guard, s State) (bool, error) {
	for _, c := range g.Conditions {
		if s.Values[c.Field] != c.Value {
			return false, nil
		}
	}
	return true, nil
})

func mk(name string, weight int, triggers ...string) priority.Priority {
	p := priority.New(name)
	p.Weight = weight
	p.Triggers = triggers
	return p
}

func triggeredSet(ids ...string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
