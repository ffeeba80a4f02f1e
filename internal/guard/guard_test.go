package guard

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andywolf/agenda/internal/engine"
	"github.com/andywolf/agenda/internal/priority"
)

func cond(field, op, value string) priority.Condition {
	return priority.Condition{Field: field, Op: op, Value: value}
}

func TestEvaluate_Operators(t *testing.T) {
	state := engine.State{
		Values: map[string]string{
			"tier":  "gold",
			"email": "ana@example.com",
			"note":  "",
			"plan":  " gold ",
		},
		Completed: map[string]bool{"priority_verify": true},
	}

	tests := []struct {
		name string
		c    priority.Condition
		want bool
	}{
		{"exists", cond("email", OpExists, ""), true},
		{"exists empty value", cond("note", OpExists, ""), true},
		{"exists unknown", cond("phone", OpExists, ""), false},
		{"missing", cond("phone", OpMissing, ""), true},
		{"missing known", cond("email", OpMissing, ""), false},
		{"eq", cond("tier", OpEq, "gold"), true},
		{"eq other", cond("tier", OpEq, "silver"), false},
		{"eq unknown", cond("phone", OpEq, ""), false},
		{"neq", cond("tier", OpNeq, "silver"), true},
		{"neq unknown", cond("phone", OpNeq, "x"), true},
		{"contains folded", cond("email", OpContains, "EXAMPLE"), true},
		{"contains no", cond("email", OpContains, "acme"), false},
		{"in", cond("tier", OpIn, "silver, gold"), true},
		{"in no", cond("tier", OpIn, "silver,bronze"), false},
		{"in padded value", cond("plan", OpIn, "gold,silver"), true},
		{"completed", cond("", OpCompleted, "priority_verify"), true},
		{"not completed", cond("", OpCompleted, "priority_other"), false},
	}

	ev := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := &priority.Guard{Conditions: []priority.Condition{tt.c}}
			got, err := ev.Evaluate(context.Background(), g, state)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluate_MatchModes(t *testing.T) {
	state := engine.State{Values: map[string]string{"tier": "gold"}}
	conds := []priority.Condition{cond("tier", OpEq, "gold"), cond("email", OpExists, "")}
	ev := New()

	all, err := ev.Evaluate(context.Background(), &priority.Guard{Conditions: conds}, state)
	require.NoError(t, err)
	assert.False(t, all, "default is all")

	anyOK, err := ev.Evaluate(context.Background(), &priority.Guard{Match: "any", Conditions: conds}, state)
	require.NoError(t, err)
	assert.True(t, anyOK)

	none, err := ev.Evaluate(context.Background(), &priority.Guard{Match: "any", Conditions: conds[1:]}, state)
	require.NoError(t, err)
	assert.False(t, none)

	empty, err := ev.Evaluate(context.Background(), &priority.Guard{}, state)
	require.NoError(t, err)
	assert.True(t, empty)
}

func TestEvaluate_Errors(t *testing.T) {
	ev := New()
	tests := []struct {
		name string
		g    *priority.Guard
	}{
		{"unknown op", &priority.Guard{Conditions: []priority.Condition{cond("x", "regex", "")}}},
		{"unknown match", &priority.Guard{Match: "most", Conditions: []priority.Condition{cond("x", OpExists, "")}}},
		{"missing field", &priority.Guard{Conditions: []priority.Condition{cond("", OpEq, "x")}}},
		{"completed without id", &priority.Guard{Conditions: []priority.Condition{cond("", OpCompleted, "")}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ev.Evaluate(context.Background(), tt.g, engine.State{})
			assert.Error(t, err)
			assert.Error(t, Check(tt.g))
		})
	}
}

func TestEvaluator_DrivesSelection(t *testing.T) {
	p := priority.New("VIP refund")
	p.Guard = &priority.Guard{Conditions: []priority.Condition{cond("tier", OpEq, "gold")}}
	turn := engine.Turn{
		Triggered: map[string]bool{p.ID: true},
		State:     engine.State{Values: map[string]string{"tier": "gold"}},
	}

	got, err := engine.SelectNext(context.Background(), []priority.Priority{p}, turn, New())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, p.ID, got.ID)
}
