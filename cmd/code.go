package cmd

import (
	"fmt"

	"github.com/carusyte/stockchart/getd"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(codeCmd)
}

var codeCmd = &cobra.Command{
	Use:   "code <name|code>...",
	Short: "Resolve stock names to codes",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, e := getd.NewDefaultProvider()
		if e != nil {
			return e
		}
		for _, id := range args {
			b, e := p.Resolve(cmd.Context(), id)
			if e != nil {
				return e
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", id, b.TsCode, b.Name)
		}
		return nil
	},
}
