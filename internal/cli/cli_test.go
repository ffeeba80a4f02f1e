package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andywolf/agenda/internal/catalog"
	"github.com/andywolf/agenda/internal/conversation"
	"github.com/andywolf/agenda/internal/engine"
	"github.com/andywolf/agenda/internal/guard"
	"github.com/andywolf/agenda/internal/matcher"
	"github.com/andywolf/agenda/internal/priority"
	"github.com/andywolf/agenda/internal/registry"
)

// resetFlags restores every flag to its default so commands can run more
// than once in one test binary.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// writeConfig creates a config file pointing the store at a temp directory.
func writeConfig(t *testing.T, extra string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, ".agenda.yaml")
	content := "agent: support\nstore:\n  path: " + filepath.Join(dir, "store") + "\nlog:\n  level: error\n" + extra
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func execute(t *testing.T, cfgPath string, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--config", cfgPath}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestPriorityCommands(t *testing.T) {
	cfg := writeConfig(t, "")

	out, err := execute(t, cfg, "priority", "add", "Verify identity", "--weight", "90", "--trigger", "refund", "--require", "email,cpf", "--criteria", "confirm identity", "--once")
	require.NoError(t, err)
	assert.Contains(t, out, "Added priority_verify_identity")

	out, err = execute(t, cfg, "priority", "add", "Refund", "--weight", "70", "--trigger", "refund", "--depends-on", "priority_verify_identity", "--task", "task_refund", "--require", "loyalty_id")
	require.NoError(t, err)
	assert.Contains(t, out, "Added priority_refund")
	assert.Contains(t, out, `"loyalty_id" is not a common field`)

	_, err = execute(t, cfg, "priority", "add", "refund")
	assert.ErrorIs(t, err, priority.ErrDuplicateID)

	out, err = execute(t, cfg, "priority", "list", "--by-weight")
	require.NoError(t, err)
	assert.Less(t, strings.Index(out, "priority_verify_identity"), strings.Index(out, "priority_refund"))

	out, err = execute(t, cfg, "priority", "show", "priority_verify_identity")
	require.NoError(t, err)
	assert.Contains(t, out, "Needed by:   priority_refund")
	assert.Contains(t, out, "email (Email address)")

	out, err = execute(t, cfg, "priority", "show", "priority_refund")
	require.NoError(t, err)
	assert.Contains(t, out, "Depends on:  priority_verify_identity")

	out, err = execute(t, cfg, "priority", "update", "priority_verify_identity", "--task", "task_kyc")
	require.NoError(t, err)
	assert.Contains(t, out, `Completion criteria cleared (task task_kyc now supplies them): "confirm identity"`)

	_, err = execute(t, cfg, "priority", "update", "priority_verify_identity", "--depends-on", "priority_refund")
	assert.ErrorIs(t, err, priority.ErrCyclicDependency)

	out, err = execute(t, cfg, "check")
	require.NoError(t, err)
	assert.Contains(t, out, "OK: 2 priorities")
	assert.Contains(t, out, "Dependency order: priority_verify_identity -> priority_refund")

	out, err = execute(t, cfg, "priority", "remove", "priority_verify_identity")
	require.NoError(t, err)
	assert.Contains(t, out, "priority_refund no longer depends on it")

	out, err = execute(t, cfg, "priority", "show", "priority_refund")
	require.NoError(t, err)
	assert.Contains(t, out, "Depends on:  -")
}

func TestAgentsCommand(t *testing.T) {
	cfg := writeConfig(t, "")
	out, err := execute(t, cfg, "agents")
	require.NoError(t, err)
	assert.Contains(t, out, "No agents found")

	_, err = execute(t, cfg, "priority", "add", "Greeting", "--trigger", "hello")
	require.NoError(t, err)
	_, err = execute(t, cfg, "--agent", "billing", "priority", "add", "Invoice", "--trigger", "invoice")
	require.NoError(t, err)

	out, err = execute(t, cfg, "agents")
	require.NoError(t, err)
	assert.Equal(t, "  billing\n* support\n", out)
}

func TestFieldsCommand(t *testing.T) {
	out, err := execute(t, writeConfig(t, ""), "fields")
	require.NoError(t, err)
	assert.Contains(t, out, "email")
	assert.Contains(t, out, "Email address")
}

func newTestEngine(t *testing.T, ps ...priority.Priority) (*registry.Registry, *engine.Engine) {
	t.Helper()
	r, err := registry.NewFrom(ps)
	require.NoError(t, err)
	return r, engine.New(r, matcher.New(matcher.ModeWord), guard.New())
}

func TestChatSession(t *testing.T) {
	verify := priority.New("Verify")
	verify.Weight = 90
	verify.Triggers = []string{"refund"}
	verify.RequiredData = []string{"email"}
	verify.CompletionCriteria = "confirm identity"
	verify.ExecuteOnce = true

	refund := priority.New("Refund")
	refund.Weight = 50
	refund.Triggers = []string{"refund"}
	refund.DependsOn = []string{verify.ID}
	refund.Actions = []priority.Action{{Type: "notify", Params: map[string]string{"to": "ops", "channel": "slack"}}}

	_, eng := newTestEngine(t, verify, refund)
	conv := conversation.NewWithID("c1", "support")

	input := strings.Join([]string{
		"I want a refund",
		"/set email=ana@example.com",
		"refund please",
		"/done",
		"/explain refund",
		"refund again",
		"/state",
		"/bogus",
		"/quit",
		"never reached",
	}, "\n")

	var out bytes.Buffer
	s := &chatSession{eng: eng, conv: conv, out: &out}
	require.NoError(t, s.run(context.Background(), strings.NewReader(input)))

	got := out.String()
	assert.Contains(t, got, "ask for: Email address")
	assert.Contains(t, got, "goal: confirm identity")
	assert.Contains(t, got, "completed priority_verify")
	assert.Contains(t, got, "already_used")
	assert.Contains(t, got, "[priority_refund] Refund (weight 50)")
	assert.Contains(t, got, "action: notify channel=slack to=ops")
	assert.Contains(t, got, `email = "ana@example.com"`)
	assert.Contains(t, got, "error: unknown command /bogus")
	assert.NotContains(t, got, "never reached")
	assert.Equal(t, 3, conv.Turn())
}

func TestChatSession_DoneWithoutActivation(t *testing.T) {
	_, eng := newTestEngine(t, priority.New("A"))
	s := &chatSession{eng: eng, conv: conversation.New("bot"), out: &bytes.Buffer{}}

	_, err := s.handle(context.Background(), "/done")
	assert.Error(t, err)

	_, err = s.handle(context.Background(), "/done priority_ghost")
	assert.ErrorIs(t, err, priority.ErrNotFound)

	_, err = s.handle(context.Background(), "/done priority_a")
	assert.NoError(t, err)
}

func TestReplayAll(t *testing.T) {
	greet := priority.New("Greeting")
	greet.Weight = 90
	greet.Triggers = []string{"hello"}
	greet.ExecuteOnce = true

	hours := priority.New("Hours")
	hours.Triggers = []string{"open", "hello"}

	_, eng := newTestEngine(t, greet, hours)

	dir := t.TempDir()
	good := filepath.Join(dir, "good.yaml")
	require.NoError(t, os.WriteFile(good, []byte(`
conversation: good
turns:
  - say: hello there
    expect: priority_greeting
    complete: true
  - say: hello again
    expect: priority_hours
  - say: nothing relevant
    expect: none
`), 0644))

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte(`
turns:
  - say: are you open
    expect: priority_greeting
`), 0644))

	results, err := replayAll(context.Background(), eng, "support", []string{good, bad}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, 0, results[0].mismatches, results[0].output.String())
	assert.Equal(t, 1, results[1].mismatches)
	assert.Contains(t, results[1].output.String(), "MISMATCH: expected priority_greeting, got priority_hours")
	assert.Contains(t, results[1].output.String(), "(conversation "+filepath.ToSlash(bad)+")")

	_, err = replayAll(context.Background(), eng, "support", []string{filepath.Join(dir, "missing.yaml")}, 1)
	assert.Error(t, err)
}

func TestReplayAll_SameNameInDifferentDirs(t *testing.T) {
	hours := priority.New("Hours")
	hours.Triggers = []string{"open"}
	_, eng := newTestEngine(t, hours)

	dir := t.TempDir()
	var paths []string
	for _, sub := range []string{"a", "b"} {
		path := filepath.Join(dir, sub, "x.yaml")
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte("turns:\n  - say: are you open\n    expect: priority_hours\n"), 0644))
		paths = append(paths, path)
	}

	results, err := replayAll(context.Background(), eng, "support", paths, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Contains(t, results[0].output.String(), filepath.ToSlash(paths[0]))
	assert.Contains(t, results[1].output.String(), filepath.ToSlash(paths[1]))
}

func refundNeedingEmail() priority.Priority {
	refund := priority.New("Refund")
	refund.Weight = 50
	refund.Triggers = []string{"refund"}
	refund.RequiredData = []string{"email"}
	refund.CompletionCriteria = "issue the refund"
	return refund
}

func TestReplayTranscript_CompleteWaitsForData(t *testing.T) {
	_, eng := newTestEngine(t, refundNeedingEmail())
	path := filepath.Join(t.TempDir(), "refund.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
turns:
  - say: I want a refund
    expect: priority_refund
    complete: true
  - set:
      email: ana@example.com
  - say: refund please
    expect: priority_refund
`), 0644))

	results, err := replayAll(context.Background(), eng, "support", []string{path}, 1)
	require.NoError(t, err)
	out := results[0].output.String()
	assert.Equal(t, 0, results[0].mismatches, out)
	assert.Contains(t, out, "not completed: waiting for email")
	assert.Contains(t, out, "goal: issue the refund")
}

func TestChatSession_DoneWhileAwaitingData(t *testing.T) {
	_, eng := newTestEngine(t, refundNeedingEmail())
	conv := conversation.New("support")

	input := strings.Join([]string{
		"refund",
		"/done",
		"/set email=ana@example.com",
		"refund",
		"/done",
	}, "\n")
	var out bytes.Buffer
	s := &chatSession{eng: eng, conv: conv, out: &out}
	require.NoError(t, s.run(context.Background(), strings.NewReader(input)))

	got := out.String()
	assert.Contains(t, got, "error: priority priority_refund cannot complete: still waiting for email")
	assert.Contains(t, got, "goal: issue the refund")
	assert.Contains(t, got, "completed priority_refund")
	assert.Equal(t, 1, strings.Count(got, "completed priority_refund"))
}

func TestChatSession_DoneAfterIdleTurn(t *testing.T) {
	_, eng := newTestEngine(t, refundNeedingEmail())
	conv := conversation.New("support")
	conv.Remember("email", "ana@example.com")
	s := &chatSession{eng: eng, conv: conv, out: &bytes.Buffer{}}
	ctx := context.Background()

	_, err := s.handle(ctx, "refund")
	require.NoError(t, err)
	_, err = s.handle(ctx, "what time is it")
	require.NoError(t, err)

	_, err = s.handle(ctx, "/done")
	assert.ErrorContains(t, err, "nothing activated on the last turn")
	assert.False(t, conv.Tracker().IsUsed("priority_refund"))
}

func TestCheckRegistry(t *testing.T) {
	silent := priority.New("Silent")
	silent.RequiredData = []string{"email", "shoe_size"}

	bound := priority.New("Bound")
	bound.Triggers = []string{"x"}
	bound.TaskID = "task_old"

	r, err := registry.NewFrom([]priority.Priority{silent, bound})
	require.NoError(t, err)
	tasks := catalog.NewMemory(catalog.Task{ID: "task_old", Enabled: false})

	warnings := strings.Join(checkRegistry(context.Background(), r, tasks), "\n")
	assert.Contains(t, warnings, "priority_silent has no triggers")
	assert.Contains(t, warnings, "uncommon fields: shoe_size")
	assert.Contains(t, warnings, "disabled task task_old")
	assert.Contains(t, warnings, "priority_silent has no task, criteria or actions")
	assert.NotContains(t, warnings, "priority_bound has no task")
}

func TestFormatActivation_Idle(t *testing.T) {
	var out bytes.Buffer
	formatActivation(&out, engine.Activation{})
	if out.String() != "(no priority activated)\n" {
		t.Errorf("got %q", out.String())
	}
}

func TestReplayCommand_Metrics(t *testing.T) {
	cfg := writeConfig(t, "")
	_, err := execute(t, cfg, "priority", "add", "Greeting", "--trigger", "hello", "--once", "--criteria", "greet the user")
	require.NoError(t, err)

	dir := t.TempDir()
	transcript := filepath.Join(dir, "t.yaml")
	require.NoError(t, os.WriteFile(transcript, []byte(`
turns:
  - say: hello
    expect: priority_greeting
    complete: true
  - say: hello
    expect: none
`), 0644))
	promFile := filepath.Join(dir, "agenda.prom")

	out, err := execute(t, cfg, "replay", transcript, "--metrics", promFile)
	require.NoError(t, err, out)
	assert.Contains(t, out, "goal: greet the user")

	data, err := os.ReadFile(promFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `agenda_activations_total{agent="support",effect="run_inline",priority="priority_greeting"} 1`)
	assert.Contains(t, string(data), `agenda_completions_total{agent="support",priority="priority_greeting"} 1`)
	assert.Contains(t, string(data), `agenda_turns_total{agent="support",outcome="idle"} 1`)
}

func TestExpandTranscripts(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.yaml", "nested/b.yaml", "nested/deeper/c.yaml", "nested/notes.txt"} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte("turns: []\n"), 0644))
	}

	got, err := expandTranscripts([]string{filepath.Join(dir, "**", "*.yaml"), "plain.yaml"})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.yaml"),
		filepath.Join(dir, "nested", "b.yaml"),
		filepath.Join(dir, "nested", "deeper", "c.yaml"),
		"plain.yaml",
	}, got)

	got, err = expandTranscripts([]string{filepath.Join(dir, "a.yaml"), filepath.Join(dir, "*.yaml"), "./plain.yaml", "plain.yaml"})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.yaml"), "./plain.yaml"}, got)

	_, err = expandTranscripts([]string{filepath.Join(dir, "*.json")})
	assert.Error(t, err)
}

func TestEventsCommand(t *testing.T) {
	eventsDir := filepath.Join(t.TempDir(), "events")
	cfg := writeConfig(t, "events:\n  enabled: true\n  dir: "+eventsDir+"\n")

	_, err := execute(t, cfg, "priority", "add", "Refund", "--trigger", "refund", "--require", "email")
	require.NoError(t, err)

	dir := t.TempDir()
	transcript := filepath.Join(dir, "t.yaml")
	require.NoError(t, os.WriteFile(transcript, []byte(`
conversation: demo
turns:
  - say: refund
  - say: hi
`), 0644))
	_, err = execute(t, cfg, "replay", transcript)
	require.NoError(t, err)

	out, err := execute(t, cfg, "events")
	require.NoError(t, err)
	assert.Contains(t, out, "request_data email")
	assert.Contains(t, out, "idle")

	out, err = execute(t, cfg, "events", "--type", "activated", "--conversation", "demo")
	require.NoError(t, err)
	assert.Contains(t, out, "priority_refund")
	assert.NotContains(t, out, "idle")

	out, err = execute(t, cfg, "events", "--type", "completed")
	require.NoError(t, err)
	assert.Contains(t, out, "No events")

	_, err = execute(t, cfg, "events", "--type", "bogus")
	assert.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	cfg := writeConfig(t, "")

	out, err := execute(t, cfg, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "agenda "), out)
	assert.NotContains(t, out, "OS/Arch")

	out, err = execute(t, cfg, "version", "--verbose")
	require.NoError(t, err)
	assert.Contains(t, out, "OS/Arch")
}
