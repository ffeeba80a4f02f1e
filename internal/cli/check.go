package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/andywolf/agenda/internal/catalog"
	"github.com/andywolf/agenda/internal/fields"
	"github.com/andywolf/agenda/internal/guard"
	"github.com/andywolf/agenda/internal/registry"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the stored priorities",
	Long: `Validate the agent's stored priorities and report anything that would keep a
priority from ever activating: no triggers, invalid guards, unknown tasks.

Exits non-zero when the stored set is invalid.`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
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

	warnings := checkRegistry(ctx, r, a.tasks)
	reportCheck(cmd.OutOrStdout(), r, warnings)
	return nil
}

// checkRegistry returns advisory warnings for a valid registry.
func checkRegistry(ctx context.Context, r *registry.Registry, tasks *catalog.Memory) []string {
	var warnings []string
	for _, p := range r.List() {
		if len(p.Triggers) == 0 {
			warnings = append(warnings, fmt.Sprintf("%s has no triggers and will never activate", p.ID))
		}
		if !p.Enabled {
			warnings = append(warnings, fmt.Sprintf("%s is disabled", p.ID))
		}
		if err := guard.Check(p.Guard); err != nil {
			warnings = append(warnings, fmt.Sprintf("%s has an invalid guard: %v", p.ID, err))
		}
		if unknown := fields.Unknown(p.RequiredData); len(unknown) > 0 {
			warnings = append(warnings, fmt.Sprintf("%s requires uncommon fields: %s", p.ID, strings.Join(unknown, ", ")))
		}
		if tasks != nil && p.TaskID != "" {
			if t, ok, _ := tasks.Lookup(ctx, p.TaskID); ok && !t.Enabled {
				warnings = append(warnings, fmt.Sprintf("%s is bound to disabled task %s", p.ID, p.TaskID))
			}
		}
		if p.TaskID == "" && p.CompletionCriteria == "" && len(p.Actions) == 0 {
			warnings = append(warnings, fmt.Sprintf("%s has no task, criteria or actions (data gathering only)", p.ID))
		}
	}
	return warnings
}

func reportCheck(w io.Writer, r *registry.Registry, warnings []string) {
	fmt.Fprintf(w, "OK: %d priorities, no cycles, no dangling dependencies\n", r.Len())

	order, ok := r.Snapshot().Graph().TopologicalOrder()
	if ok && len(order) > 0 {
		fmt.Fprintf(w, "Dependency order: %s\n", strings.Join(order, " -> "))
	}

	for _, msg := range warnings {
		fmt.Fprintf(w, "warning: %s\n", msg)
	}
}
