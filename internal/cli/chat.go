package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/andywolf/agenda/internal/conversation"
	"github.com/andywolf/agenda/internal/engine"
	"github.com/andywolf/agenda/internal/fields"
	"github.com/andywolf/agenda/internal/store"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Evaluate priorities interactively",
	Long: `Start a conversation and evaluate each line you type as a user turn.

Commands:
  /set key=value   record a known field
  /forget key      drop a known field
  /done [id]       report a priority completed (default: the last activated)
  /state           show known fields and completed priorities
  /explain text    show why each priority would or would not activate
  /quit            end the conversation

With --watch, edits to the stored priorities are picked up without restarting
(file store only).`,
	Args: cobra.NoArgs,
	RunE: runChatCmd,
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().Bool("watch", false, "Reload priorities when the store file changes")
	chatCmd.Flags().String("conversation", "", "Conversation id (default: generated)")
}

func runChatCmd(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.close()

	r, err := a.registry(ctx)
	if err != nil {
		return err
	}
	eng, closeSink, err := a.engine(r)
	if err != nil {
		return err
	}
	defer closeSink()

	convID, _ := cmd.Flags().GetString("conversation")
	conv, err := conversation.NewManager(a.cfg.Agent).Start(convID)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	if watch, _ := cmd.Flags().GetBool("watch"); watch {
		fs, ok := a.store.(*store.FileStore)
		if !ok {
			return fmt.Errorf("--watch requires the file store backend")
		}
		g.Go(func() error {
			return store.Watch(gctx, fs.Path(a.cfg.Agent), a.logger, func() {
				if err := store.Reload(gctx, a.store, a.cfg.Agent, r); err != nil {
					a.logger.Warn("reload failed, keeping previous priorities", zap.Error(err))
					return
				}
				a.logger.Info("priorities reloaded", zap.Int("count", r.Len()))
			})
		})
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Conversation %s with agent %s (%d priorities). /quit to exit.\n", conv.ID, a.cfg.Agent, r.Len())
	s := &chatSession{eng: eng, conv: conv, out: out}
	chatErr := s.run(ctx, cmd.InOrStdin())

	cancel()
	if err := g.Wait(); err != nil && chatErr == nil {
		chatErr = err
	}
	return chatErr
}

// chatSession drives one conversation from line-oriented input.
type chatSession struct {
	eng  *engine.Engine
	conv *conversation.Conversation
	out  io.Writer
}

func (s *chatSession) run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(s.out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(s.out)
			return scanner.Err()
		}
		quit, err := s.handle(ctx, scanner.Text())
		if err != nil {
			// Failed turns and bad commands end nothing; the user can retry.
			fmt.Fprintf(s.out, "error: %v\n", err)
		}
		if quit {
			return nil
		}
	}
}

// handle processes one input line and reports whether the session should end.
func (s *chatSession) handle(ctx context.Context, line string) (bool, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return false, nil
	}
	if !strings.HasPrefix(line, "/") {
		act, err := s.eng.Step(ctx, s.conv, line)
		if err != nil {
			return false, err
		}
		formatActivation(s.out, act)
		return false, nil
	}

	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch name {
	case "/quit", "/exit":
		return true, nil

	case "/set":
		key, value, err := ParseAssignment(arg)
		if err != nil {
			return false, err
		}
		s.conv.Remember(key, value)
		fmt.Fprintf(s.out, "%s = %q\n", fields.Label(key), value)

	case "/forget":
		if arg == "" {
			return false, fmt.Errorf("usage: /forget key")
		}
		s.conv.Forget(arg)
		fmt.Fprintf(s.out, "forgot %s\n", arg)

	case "/done":
		id := arg
		if id == "" {
			pending, ok := s.conv.Pending()
			if !ok {
				return false, fmt.Errorf("nothing activated on the last turn; usage: /done id")
			}
			id = pending.PriorityID
		}
		if err := s.eng.Complete(ctx, s.conv, id); err != nil {
			return false, err
		}
		fmt.Fprintf(s.out, "completed %s\n", id)

	case "/state":
		formatState(s.out, s.conv)

	case "/explain":
		decisions, err := s.eng.Explain(ctx, s.conv, arg)
		if err != nil {
			return false, err
		}
		formatDecisions(s.out, decisions)

	default:
		return false, fmt.Errorf("unknown command %s", name)
	}
	return false, nil
}

func formatActivation(w io.Writer, act engine.Activation) {
	if !act.Active() {
		fmt.Fprintln(w, "(no priority activated)")
		return
	}
	fmt.Fprintf(w, "[%s] %s (weight %d)\n", act.Priority.ID, act.Priority.Name, act.Priority.Weight)
	formatEffect(w, act.Effect)
}

func formatEffect(w io.Writer, eff engine.Effect) {
	switch eff.Kind {
	case engine.EffectRequestData:
		labels := make([]string, len(eff.Fields))
		for i, k := range eff.Fields {
			labels[i] = fields.Label(k)
		}
		fmt.Fprintf(w, "  ask for: %s\n", strings.Join(labels, ", "))
	case engine.EffectRunTask:
		fmt.Fprintf(w, "  run task: %s\n", eff.TaskID)
	case engine.EffectRunInline:
		if eff.CompletionCriteria != "" {
			fmt.Fprintf(w, "  goal: %s\n", eff.CompletionCriteria)
		}
	case engine.EffectNone:
		fmt.Fprintln(w, "  nothing to run; report /done when the data is gathered")
	}
	for _, a := range eff.Actions {
		fmt.Fprintf(w, "  action: %s", a.Type)
		keys := make([]string, 0, len(a.Params))
		for k := range a.Params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(w, " %s=%s", k, a.Params[k])
		}
		fmt.Fprintln(w)
	}
}

func formatState(w io.Writer, conv *conversation.Conversation) {
	fmt.Fprintf(w, "turn %d\n", conv.Turn())
	values := conv.Values()
	for _, k := range conv.Keys() {
		fmt.Fprintf(w, "  %s = %q\n", k, values[k])
	}
	history := conv.Tracker().History()
	if len(history) == 0 {
		fmt.Fprintln(w, "  completed: -")
		return
	}
	fmt.Fprintf(w, "  completed: %s\n", strings.Join(history, ", "))
}

func formatDecisions(w io.Writer, decisions []engine.Decision) {
	for _, d := range decisions {
		line := fmt.Sprintf("  %-32s %3d  %s", d.PriorityID, d.Weight, d.Reason)
		if len(d.Unmet) > 0 {
			line += " (waiting on " + strings.Join(d.Unmet, ", ") + ")"
		}
		fmt.Fprintln(w, line)
	}
}
