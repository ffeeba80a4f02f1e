package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/andywolf/agenda/internal/fields"
)

var fieldsCmd = &cobra.Command{
	Use:   "fields",
	Short: "List common data fields",
	Long:  `List the well-known field keys that priorities can require.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		all, err := fields.All()
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "KEY\tLABEL\tKIND")
		for _, f := range all {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", f.Key, f.Label, f.Kind)
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(fieldsCmd)
}
