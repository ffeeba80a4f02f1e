package engine

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/andywolf/agenda/internal/priority"
)

func TestMissingData(t *testing.T) {
	p := priority.New("E")
	p.RequiredData = []string{"email", "order_id", "name"}

	tests := []struct {
		name  string
		known map[string]bool
		want  []string
	}{
		{"nothing known", nil, []string{"email", "order_id", "name"}},
		{"some known", map[string]bool{"order_id": true}, []string{"email", "name"}},
		{"all known", map[string]bool{"email": true, "order_id": true, "name": true}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, MissingData(p, tt.known)); diff != "" {
				t.Errorf("MissingData() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestResolveEffect(t *testing.T) {
	actions := []priority.Action{{Type: "send_email", Params: map[string]string{"template": "refund"}}}

	withTask := priority.New("Task")
	withTask.TaskID = "task_refund"
	withTask.Actions = actions

	inline := priority.New("Inline")
	inline.CompletionCriteria = "confirm the order number"
	inline.Actions = actions

	actionsOnly := priority.New("Actions")
	actionsOnly.Actions = actions

	tests := []struct {
		name    string
		p       priority.Priority
		missing []string
		want    Effect
	}{
		{
			name:    "missing data wins over task",
			p:       withTask,
			missing: []string{"email"},
			want:    Effect{Kind: EffectRequestData, Fields: []string{"email"}},
		},
		{
			name:    "missing data wins over inline",
			p:       inline,
			missing: []string{"email"},
			want:    Effect{Kind: EffectRequestData, Fields: []string{"email"}},
		},
		{
			name: "task",
			p:    withTask,
			want: Effect{Kind: EffectRunTask, TaskID: "task_refund", Actions: actions},
		},
		{
			name: "inline",
			p:    inline,
			want: Effect{Kind: EffectRunInline, CompletionCriteria: "confirm the order number", Actions: actions},
		},
		{
			name: "actions only",
			p:    actionsOnly,
			want: Effect{Kind: EffectRunInline, Actions: actions},
		},
		{
			name: "nothing to run",
			p:    priority.New("Empty"),
			want: Effect{Kind: EffectNone},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, ResolveEffect(tt.p, tt.missing)); diff != "" {
				t.Errorf("ResolveEffect() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestResolveEffect_CopiesActions(t *testing.T) {
	p := priority.New("Inline")
	p.Actions = []priority.Action{{Type: "notify", Params: map[string]string{"to": "ops"}}}

	eff := ResolveEffect(p, nil)
	eff.Actions[0].Params["to"] = "changed"

	if p.Actions[0].Params["to"] != "ops" {
		t.Error("effect must not share action params with the priority")
	}
}
