package cmd

import (
	"fmt"

	"github.com/carusyte/stockchart/getd"
	"github.com/spf13/cobra"
)

var getFlags struct {
	start, end, out string
	preview         int
}

func init() {
	getCmd.Flags().StringVar(&getFlags.start, "start", "", "start date, e.g. 20230101 (default 20100101)")
	getCmd.Flags().StringVar(&getFlags.end, "end", "", "end date (default today)")
	getCmd.Flags().StringVarP(&getFlags.out, "out", "o", "", "csv file path (default <data_dir>/<name>_<start>_<end>.csv)")
	getCmd.Flags().IntVar(&getFlags.preview, "preview", 5, "print the latest n records, 0 to disable")
	rootCmd.AddCommand(getCmd)
}

var getCmd = &cobra.Command{
	Use:     "get <name|code>",
	Aliases: []string{"fetch"},
	Short:   "Fetch daily quotes of a stock and export them to CSV",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		from, to, e := dateRange(getFlags.start, getFlags.end)
		if e != nil {
			return e
		}
		p, e := getd.NewDefaultProvider()
		if e != nil {
			return e
		}
		ctx := cmd.Context()
		basic, rs, e := fetchStock(ctx, p, args[0], from, to)
		if e != nil {
			return e
		}
		if len(rs) == 0 {
			log.Warnf("no data for %s between %s and %s", args[0], from.Format("2006-01-02"), to.Format("2006-01-02"))
			return nil
		}
		if getFlags.preview > 0 {
			fmt.Fprint(cmd.OutOrStdout(), rs.Table(getFlags.preview))
		}
		path, e := exportStock(basic, rs, getFlags.out)
		if e != nil {
			return e
		}
		upload(ctx, path)
		return nil
	},
}
