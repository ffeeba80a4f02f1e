package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/andywolf/agenda/internal/fields"
	"github.com/andywolf/agenda/internal/priority"
	"github.com/andywolf/agenda/internal/registry"
)

var priorityCmd = &cobra.Command{
	Use:     "priority",
	Aliases: []string{"priorities", "p"},
	Short:   "Manage an agent's priorities",
}

var priorityListCmd = &cobra.Command{
	Use:   "list",
	Short: "List priorities",
	Long: `List the agent's priorities in insertion order, or by weight with --by-weight.

Example:
  agenda priority list --by-weight`,
	Args: cobra.NoArgs,
	RunE: listPriorities,
}

var priorityAddCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Add a priority",
	Long: `Add a priority. Its id is derived from the name and never changes.

Example:
  agenda priority add "Refund" --weight 80 --trigger refund --trigger "money back" \
    --require email --task task_refund
  agenda priority add "VIP upgrade" --guard "tier eq gold" --criteria "offer the upgrade"`,
	Args: cobra.ExactArgs(1),
	RunE: addPriority,
}

var priorityUpdateCmd = &cobra.Command{
	Use:   "update ID",
	Short: "Update a priority",
	Long: `Update the given fields of a priority. Only flags that are set change anything.
Setting --task clears existing completion criteria.

Example:
  agenda priority update priority_refund --weight 90 --depends-on priority_verify`,
	Args: cobra.ExactArgs(1),
	RunE: updatePriority,
}

var priorityRemoveCmd = &cobra.Command{
	Use:     "remove ID",
	Aliases: []string{"rm"},
	Short:   "Remove a priority",
	Long:    `Remove a priority. Other priorities that depended on it lose that dependency.`,
	Args:    cobra.ExactArgs(1),
	RunE:    removePriority,
}

var priorityShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Show a priority",
	Args:  cobra.ExactArgs(1),
	RunE:  showPriority,
}

func init() {
	rootCmd.AddCommand(priorityCmd)
	priorityCmd.AddCommand(priorityListCmd, priorityAddCmd, priorityUpdateCmd, priorityRemoveCmd, priorityShowCmd)

	priorityListCmd.Flags().Bool("by-weight", false, "Order by weight, highest first")

	for _, cmd := range []*cobra.Command{priorityAddCmd, priorityUpdateCmd} {
		addPriorityFlags(cmd.Flags())
	}
	priorityUpdateCmd.Flags().String("name", "", "Display name (the id does not change)")
	priorityUpdateCmd.Flags().Bool("enabled", true, "Enable or disable the priority")
	priorityUpdateCmd.Flags().Bool("clear-guard", false, "Remove the guard")
	priorityAddCmd.Flags().Bool("disabled", false, "Create the priority disabled")
}

func addPriorityFlags(fs *pflag.FlagSet) {
	fs.String("description", "", "Free-text description")
	fs.Int("weight", priority.DefaultWeight, fmt.Sprintf("Weight (%d-%d)", priority.MinWeight, priority.MaxWeight))
	fs.StringArray("trigger", nil, "Trigger phrase (repeatable)")
	fs.StringSlice("require", nil, "Required data field (repeatable, comma-separated)")
	fs.StringSlice("depends-on", nil, "Priority id that must complete first (repeatable)")
	fs.StringArray("guard", nil, `Guard condition "field op [value]" (repeatable)`)
	fs.Bool("guard-any", false, "Guard passes when any condition holds")
	fs.String("task", "", "Linked task id")
	fs.String("criteria", "", "Inline completion criteria")
	fs.StringArray("action", nil, `Action "type[:key=value,...]" (repeatable)`)
	fs.Bool("once", false, "Activate at most once per conversation")
}

func listPriorities(cmd *cobra.Command, args []string) error {
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

	byWeight, _ := cmd.Flags().GetBool("by-weight")
	ps := r.List()
	if byWeight {
		ps = r.ByWeight()
	}
	printPriorityTable(cmd.OutOrStdout(), ps)
	return nil
}

func addPriority(cmd *cobra.Command, args []string) error {
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

	p, err := priorityFromFlags(cmd.Flags(), args[0])
	if err != nil {
		return err
	}
	if err := r.Add(p); err != nil {
		return err
	}
	if err := a.save(ctx, r); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Added %s\n", p.ID)
	warnUnknownFields(cmd.ErrOrStderr(), p)
	return nil
}

func updatePriority(cmd *cobra.Command, args []string) error {
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

	patch, err := patchFromFlags(cmd.Flags())
	if err != nil {
		return err
	}
	res, err := r.Update(args[0], patch)
	if err != nil {
		return err
	}
	if err := a.save(ctx, r); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Updated %s\n", res.Priority.ID)
	if res.CriteriaCleared {
		fmt.Fprintf(out, "Completion criteria cleared (task %s now supplies them): %q\n", res.Priority.TaskID, res.ClearedCriteria)
	}
	warnUnknownFields(cmd.ErrOrStderr(), res.Priority)
	return nil
}

func removePriority(cmd *cobra.Command, args []string) error {
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

	res, err := r.Remove(args[0])
	if err != nil {
		return err
	}
	if err := a.save(ctx, r); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Removed %s\n", res.Removed.ID)
	for _, id := range res.Detached {
		fmt.Fprintf(out, "  %s no longer depends on it\n", id)
	}
	return nil
}

func showPriority(cmd *cobra.Command, args []string) error {
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
	p, err := r.Get(args[0])
	if err != nil {
		return err
	}
	g := r.Snapshot().Graph()
	printPriority(cmd.OutOrStdout(), p, g.DependenciesOf(p.ID), g.Dependents(p.ID))
	return nil
}

func priorityFromFlags(fs *pflag.FlagSet, name string) (priority.Priority, error) {
	p := priority.New(name)
	p.Description, _ = fs.GetString("description")
	p.Weight, _ = fs.GetInt("weight")
	p.Triggers, _ = fs.GetStringArray("trigger")
	p.RequiredData, _ = fs.GetStringSlice("require")
	p.DependsOn, _ = fs.GetStringSlice("depends-on")
	p.TaskID, _ = fs.GetString("task")
	p.CompletionCriteria, _ = fs.GetString("criteria")
	p.ExecuteOnce, _ = fs.GetBool("once")
	if disabled, _ := fs.GetBool("disabled"); disabled {
		p.Enabled = false
	}

	conds, _ := fs.GetStringArray("guard")
	matchAny, _ := fs.GetBool("guard-any")
	g, err := parseGuard(conds, matchAny)
	if err != nil {
		return p, err
	}
	p.Guard = g

	rawActions, _ := fs.GetStringArray("action")
	if p.Actions, err = parseActions(rawActions); err != nil {
		return p, err
	}
	return p, nil
}

// patchFromFlags builds a patch from the flags the user actually set.
func patchFromFlags(fs *pflag.FlagSet) (registry.Patch, error) {
	var patch registry.Patch

	if fs.Changed("name") {
		v, _ := fs.GetString("name")
		patch.Name = &v
	}
	if fs.Changed("description") {
		v, _ := fs.GetString("description")
		patch.Description = &v
	}
	if fs.Changed("weight") {
		v, _ := fs.GetInt("weight")
		patch.Weight = &v
	}
	if fs.Changed("trigger") {
		v, _ := fs.GetStringArray("trigger")
		patch.Triggers = &v
	}
	if fs.Changed("require") {
		v, _ := fs.GetStringSlice("require")
		patch.RequiredData = &v
	}
	if fs.Changed("depends-on") {
		v, _ := fs.GetStringSlice("depends-on")
		patch.DependsOn = &v
	}
	if fs.Changed("task") {
		v, _ := fs.GetString("task")
		patch.TaskID = &v
	}
	if fs.Changed("criteria") {
		v, _ := fs.GetString("criteria")
		patch.CompletionCriteria = &v
	}
	if fs.Changed("enabled") {
		v, _ := fs.GetBool("enabled")
		patch.Enabled = &v
	}
	if fs.Changed("once") {
		v, _ := fs.GetBool("once")
		patch.ExecuteOnce = &v
	}
	if fs.Changed("action") {
		raw, _ := fs.GetStringArray("action")
		actions, err := parseActions(raw)
		if err != nil {
			return patch, err
		}
		patch.Actions = &actions
	}
	if fs.Changed("guard") {
		conds, _ := fs.GetStringArray("guard")
		matchAny, _ := fs.GetBool("guard-any")
		g, err := parseGuard(conds, matchAny)
		if err != nil {
			return patch, err
		}
		patch.Guard = g
	}
	if clearGuard, _ := fs.GetBool("clear-guard"); clearGuard {
		patch.ClearGuard = true
	}
	return patch, nil
}

func printPriorityTable(w io.Writer, ps []priority.Priority) {
	if len(ps) == 0 {
		fmt.Fprintln(w, "No priorities")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tWEIGHT\tENABLED\tONCE\tTRIGGERS\tDEPENDS ON")
	for _, p := range ps {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%t\t%t\t%s\t%s\n",
			p.ID, p.Name, p.Weight, p.Enabled, p.ExecuteOnce,
			orDash(strings.Join(p.Triggers, ", ")), orDash(strings.Join(p.DependsOn, ", ")))
	}
	_ = tw.Flush()
}

func printPriority(w io.Writer, p priority.Priority, deps, dependents []string) {
	fmt.Fprintf(w, "ID:          %s\n", p.ID)
	fmt.Fprintf(w, "Name:        %s\n", p.Name)
	if p.Description != "" {
		fmt.Fprintf(w, "Description: %s\n", p.Description)
	}
	fmt.Fprintf(w, "Weight:      %d\n", p.Weight)
	fmt.Fprintf(w, "Enabled:     %t\n", p.Enabled)
	fmt.Fprintf(w, "Once:        %t\n", p.ExecuteOnce)
	fmt.Fprintf(w, "Triggers:    %s\n", orDash(strings.Join(p.Triggers, ", ")))

	labels := make([]string, 0, len(p.RequiredData))
	for _, key := range p.RequiredData {
		labels = append(labels, fmt.Sprintf("%s (%s)", key, fields.Label(key)))
	}
	fmt.Fprintf(w, "Requires:    %s\n", orDash(strings.Join(labels, ", ")))
	fmt.Fprintf(w, "Depends on:  %s\n", orDash(strings.Join(deps, ", ")))
	fmt.Fprintf(w, "Needed by:   %s\n", orDash(strings.Join(dependents, ", ")))

	switch d := p.Directive().(type) {
	case priority.TaskDirective:
		fmt.Fprintf(w, "Task:        %s\n", d.TaskID)
	case priority.InlineDirective:
		fmt.Fprintf(w, "Criteria:    %s\n", orDash(d.CompletionCriteria))
	}
	if p.HasGuard() {
		match := p.Guard.Match
		if match == "" {
			match = "all"
		}
		fmt.Fprintf(w, "Guard (%s):\n", match)
		for _, c := range p.Guard.Conditions {
			fmt.Fprintf(w, "  - %s\n", strings.TrimSpace(strings.Join([]string{c.Field, c.Op, c.Value}, " ")))
		}
	}
	for i, act := range p.Actions {
		if i == 0 {
			fmt.Fprintln(w, "Actions:")
		}
		fmt.Fprintf(w, "  - %s %v\n", act.Type, act.Params)
	}
}

func warnUnknownFields(w io.Writer, p priority.Priority) {
	for _, key := range fields.Unknown(p.RequiredData) {
		fmt.Fprintf(w, "Note: %q is not a common field; make sure the agent can collect it\n", key)
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
