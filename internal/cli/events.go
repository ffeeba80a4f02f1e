package cli

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/andywolf/agenda/internal/events"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Show the engine event log",
	Long: `Show recorded engine decisions from the event log (events.enabled must be set
while conversations run).

Example:
  agenda events --type activated --priority priority_refund
  agenda events --conversation demo-1 --since 1h`,
	Args: cobra.NoArgs,
	RunE: runEvents,
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.Flags().StringSlice("type", nil, "Event types to show (activated, idle, completed, failed)")
	eventsCmd.Flags().String("conversation", "", "Only this conversation")
	eventsCmd.Flags().String("priority", "", "Only events for this priority")
	eventsCmd.Flags().Duration("since", 0, "Only events newer than this (e.g. 30m, 24h)")
	eventsCmd.Flags().Int("last", 0, "Show only the last N matching events")
}

func runEvents(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.close()

	filter, err := eventFilterFromFlags(cmd, time.Now())
	if err != nil {
		return err
	}
	evs, err := events.ReadLog(filepath.Join(a.cfg.Events.Dir, events.LogFilename), filter)
	if err != nil {
		return err
	}
	if last, _ := cmd.Flags().GetInt("last"); last > 0 && len(evs) > last {
		evs = evs[len(evs)-last:]
	}
	printEvents(cmd.OutOrStdout(), evs)
	return nil
}

func eventFilterFromFlags(cmd *cobra.Command, now time.Time) (events.Filter, error) {
	var f events.Filter
	types, _ := cmd.Flags().GetStringSlice("type")
	for _, t := range types {
		if !events.IsValidEventType(t) {
			return f, fmt.Errorf("unknown event type %q", t)
		}
		f.Types = append(f.Types, events.EventType(t))
	}
	f.ConversationID, _ = cmd.Flags().GetString("conversation")
	f.PriorityID, _ = cmd.Flags().GetString("priority")
	if since, _ := cmd.Flags().GetDuration("since"); since > 0 {
		f.Since = now.Add(-since)
	}
	return f, nil
}

func printEvents(w io.Writer, evs []events.Event) {
	if len(evs) == 0 {
		fmt.Fprintln(w, "No events")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tCONVERSATION\tTURN\tTYPE\tPRIORITY\tDETAIL")
	for _, ev := range evs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\n",
			ev.Timestamp.Local().Format(time.DateTime), ev.ConversationID, ev.Turn, ev.Type,
			orDash(ev.PriorityID), orDash(eventDetail(ev)))
	}
	_ = tw.Flush()
}

func eventDetail(ev events.Event) string {
	switch {
	case ev.Error != "":
		return ev.Error
	case len(ev.Missing) > 0:
		return ev.Effect + " " + strings.Join(ev.Missing, ",")
	case ev.TaskID != "":
		return ev.Effect + " " + ev.TaskID
	default:
		return ev.Effect
	}
}
