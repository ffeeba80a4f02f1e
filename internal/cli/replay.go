package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/andywolf/agenda/internal/conversation"
	"github.com/andywolf/agenda/internal/engine"
	"github.com/andywolf/agenda/internal/events"
	"github.com/andywolf/agenda/internal/metrics"
)

var replayCmd = &cobra.Command{
	Use:   "replay FILE|GLOB...",
	Short: "Replay recorded conversations",
	Long: `Replay YAML transcripts against the stored priorities, one conversation per
file, evaluated concurrently. Arguments may be globs such as
"transcripts/**/*.yaml". A turn may state which priority it expects to
activate; any mismatch makes the command fail.

Transcript format:
  conversation: demo-1
  known:
    email: ana@example.com
  turns:
    - say: I want a refund
      expect: priority_refund
      complete: true
    - set: {order_id: "123"}
    - done: priority_verify
    - say: thanks
      expect: none

With --metrics, activation and completion counters for the whole replay are
written in the Prometheus text format.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().Int("parallel", runtime.NumCPU(), "Maximum transcripts replayed at once")
	replayCmd.Flags().String("metrics", "", "Write Prometheus counters for the replay to this file")
}

// Transcript is a recorded conversation.
type Transcript struct {
	Conversation string            `yaml:"conversation"`
	Known        map[string]string `yaml:"known"`
	Turns        []TranscriptTurn  `yaml:"turns"`
}

// TranscriptTurn is one step of a transcript. Exactly one of Say, Set or
// Done is normally given.
type TranscriptTurn struct {
	Say      string            `yaml:"say"`
	Set      map[string]string `yaml:"set"`
	Forget   []string          `yaml:"forget"`
	Done     string            `yaml:"done"`
	Expect   string            `yaml:"expect"`
	Complete bool              `yaml:"complete"`
}

// expectNone marks a turn that must not activate anything.
const expectNone = "none"

// LoadTranscript reads a transcript file.
func LoadTranscript(path string) (*Transcript, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read transcript: %w", err)
	}
	var t Transcript
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("failed to parse transcript %s: %w", path, err)
	}
	return &t, nil
}

// replayResult is the printed outcome of one transcript.
type replayResult struct {
	output     bytes.Buffer
	mismatches int
}

func runReplay(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.close()

	r, err := a.registry(ctx)
	if err != nil {
		return err
	}
	metricsPath, _ := cmd.Flags().GetString("metrics")
	var extra []events.Writer
	collector := metrics.New()
	if metricsPath != "" {
		extra = append(extra, collector)
	}
	eng, closeSink, err := a.engine(r, extra...)
	if err != nil {
		return err
	}
	defer closeSink()

	parallel, _ := cmd.Flags().GetInt("parallel")
	paths, err := expandTranscripts(args)
	if err != nil {
		return err
	}
	results, err := replayAll(ctx, eng, a.cfg.Agent, paths, parallel)
	if err != nil {
		return err
	}
	if metricsPath != "" {
		if err := collector.WriteTextfile(metricsPath); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	mismatches := 0
	for _, res := range results {
		_, _ = io.Copy(out, &res.output)
		mismatches += res.mismatches
	}
	if mismatches > 0 {
		return fmt.Errorf("%d turn(s) did not match expectations", mismatches)
	}
	return nil
}

// expandTranscripts resolves glob arguments (with ** support) to files.
// Plain paths pass through unchanged; a glob that matches nothing is an error.
// A file named more than once is replayed once.
func expandTranscripts(args []string) ([]string, error) {
	var paths []string
	seen := make(map[string]bool)
	add := func(path string) {
		key := filepath.Clean(path)
		if seen[key] {
			return
		}
		seen[key] = true
		paths = append(paths, path)
	}
	for _, arg := range args {
		if !strings.ContainsAny(arg, "*?[{") {
			add(arg)
			continue
		}
		matches, err := doublestar.FilepathGlob(arg, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("invalid transcript pattern %q: %w", arg, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no transcripts match %q", arg)
		}
		sort.Strings(matches)
		for _, m := range matches {
			add(m)
		}
	}
	return paths, nil
}

// replayAll replays every file concurrently and returns results in input order.
func replayAll(ctx context.Context, eng *engine.Engine, agentID string, paths []string, parallel int) ([]*replayResult, error) {
	results := make([]*replayResult, len(paths))
	manager := conversation.NewManager(agentID)

	g, gctx := errgroup.WithContext(ctx)
	if parallel > 0 {
		g.SetLimit(parallel)
	}
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			t, err := LoadTranscript(path)
			if err != nil {
				return err
			}
			convID := t.Conversation
			if convID == "" {
				convID = transcriptID(path)
			}
			conv, err := manager.Start(convID)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			defer manager.End(conv.ID)

			res := &replayResult{}
			fmt.Fprintf(&res.output, "== %s (conversation %s)\n", path, conv.ID)
			if err := replayTranscript(gctx, eng, conv, t, res); err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// transcriptID is the default conversation id of a transcript file: its
// cleaned slash-separated path, so same-named files in different
// directories do not collide.
func transcriptID(path string) string {
	return filepath.ToSlash(filepath.Clean(path))
}

func replayTranscript(ctx context.Context, eng *engine.Engine, conv *conversation.Conversation, t *Transcript, res *replayResult) error {
	keys := make([]string, 0, len(t.Known))
	for k := range t.Known {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		conv.Remember(k, t.Known[k])
	}

	w := &res.output
	for i, turn := range t.Turns {
		for k, v := range turn.Set {
			conv.Remember(k, v)
		}
		for _, k := range turn.Forget {
			conv.Forget(k)
		}
		if turn.Done != "" {
			if err := eng.Complete(ctx, conv, turn.Done); err != nil {
				return fmt.Errorf("turn %d: %w", i+1, err)
			}
			fmt.Fprintf(w, "   done %s\n", turn.Done)
		}
		if turn.Say == "" {
			continue
		}

		act, err := eng.Step(ctx, conv, turn.Say)
		if err != nil {
			fmt.Fprintf(w, "%2d > %s\n   error: %v\n", act.Turn, turn.Say, err)
			res.mismatches++
			continue
		}
		fmt.Fprintf(w, "%2d > %s\n", act.Turn, turn.Say)
		formatActivation(w, act)

		got := expectNone
		if act.Active() {
			got = act.Priority.ID
		}
		if turn.Expect != "" && turn.Expect != got {
			fmt.Fprintf(w, "   MISMATCH: expected %s, got %s\n", turn.Expect, got)
			res.mismatches++
		}
		if turn.Complete && act.Active() {
			if act.Effect.Kind == engine.EffectRequestData {
				fmt.Fprintf(w, "   not completed: waiting for %s\n", strings.Join(act.Missing, ", "))
				continue
			}
			if err := eng.Complete(ctx, conv, act.Priority.ID); err != nil {
				return fmt.Errorf("turn %d: %w", i+1, err)
			}
		}
	}
	return nil
}
