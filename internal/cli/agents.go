package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "List agents with stored priorities",
	Long: `List every agent the configured store holds priorities for. The agent
selected by the config or --agent is marked with *.`,
	Args: cobra.NoArgs,
	RunE: runAgents,
}

func init() {
	rootCmd.AddCommand(agentsCmd)
}

func runAgents(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.close()

	agents, err := a.store.Agents(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(agents) == 0 {
		fmt.Fprintln(out, "No agents found")
		return nil
	}
	for _, id := range agents {
		marker := " "
		if id == a.cfg.Agent {
			marker = "*"
		}
		fmt.Fprintf(out, "%s %s\n", marker, id)
	}
	return nil
}
