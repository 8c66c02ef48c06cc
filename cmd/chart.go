package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/carusyte/stockchart/chart"
	"github.com/carusyte/stockchart/conf"
	"github.com/carusyte/stockchart/getd"
	"github.com/carusyte/stockchart/model"
	"github.com/carusyte/stockchart/util"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var chartFlags struct {
	start, end, out string
	chartType       string
	volume          bool
	csv, encoding   string
	name            string
}

func init() {
	f := chartCmd.Flags()
	f.StringVar(&chartFlags.start, "start", "", "start date, e.g. 20230101 (default 20100101)")
	f.StringVar(&chartFlags.end, "end", "", "end date (default today)")
	f.StringVarP(&chartFlags.out, "out", "o", "", "chart file path, the extension follows the backend used")
	f.StringVarP(&chartFlags.chartType, "type", "t", "", "chart type: candlestick, ohlc or line (default from config)")
	f.BoolVar(&chartFlags.volume, "volume", true, "draw the volume panel")
	f.StringVar(&chartFlags.csv, "csv", "", "render from a CSV data file instead of fetching")
	f.StringVar(&chartFlags.encoding, "encoding", "utf-8", "CSV file encoding: utf-8, gbk or gb18030")
	f.StringVar(&chartFlags.name, "name", "", "stock name used in the title when rendering from CSV (default: the stock_name column)")
	rootCmd.AddCommand(chartCmd)
}

var chartCmd = &cobra.Command{
	Use:   "chart [name|code]",
	Short: "Render the chart of a stock, or of a CSV data file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ct := chartFlags.chartType
		if ct == "" {
			ct = conf.Args.Chart.Type
		}
		t, e := model.ParseChartType(ct)
		if e != nil {
			return e
		}
		var res chart.Result
		switch {
		case chartFlags.csv != "":
			res, e = chartFromCSV(t)
		case len(args) == 1:
			res, e = chartFromStock(cmd, args[0], t)
		default:
			return errors.New("either a stock name/code or --csv is required")
		}
		if e != nil {
			return e
		}
		if res.Fallback {
			fmt.Fprintf(cmd.OutOrStdout(), "chart saved to %s (fallback renderer, primary failed: %v)\n",
				res.Path, res.PrimaryErr)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "chart saved to %s\n", res.Path)
		}
		upload(cmd.Context(), res.Path, res.Snapshot)
		return nil
	},
}

func chartFromStock(cmd *cobra.Command, id string, t model.ChartType) (chart.Result, error) {
	from, to, e := dateRange(chartFlags.start, chartFlags.end)
	if e != nil {
		return chart.Result{}, e
	}
	if from.After(to) {
		return chart.Result{}, &getd.InvalidRangeError{Start: from, End: to}
	}
	p, e := getd.NewDefaultProvider()
	if e != nil {
		return chart.Result{}, e
	}
	return newGenerator(p).FromStock(cmd.Context(), chart.Request{
		Identifier: id,
		Start:      from,
		End:        to,
		Type:       t,
		Volume:     chartFlags.volume,
		Width:      conf.Args.Chart.Width,
		Height:     conf.Args.Chart.Height,
		Path:       chartFlags.out,
	})
}

func chartFromCSV(t model.ChartType) (chart.Result, error) {
	name := chartFlags.name
	var csvName string
	rs, e := getd.ImportCSV(chartFlags.csv, getd.WithEncoding(chartFlags.encoding), getd.WithStockName(&csvName))
	if e != nil {
		return chart.Result{}, e
	}
	if len(rs) == 0 {
		return chart.Result{}, chart.ErrNoData
	}
	if name == "" {
		name = csvName
	}
	out := chartFlags.out
	if out == "" {
		base := strings.TrimSuffix(filepath.Base(chartFlags.csv), filepath.Ext(chartFlags.csv))
		out = filepath.Join(conf.Args.Output.ChartDir, util.FileName(".html", base, string(t)))
	}
	return chart.NewRenderer().Render(rs, model.ChartSpec{
		Type:   t,
		Fonts:  conf.Args.Chart.Fonts,
		Title:  chart.DefaultTitle(name, rs),
		Volume: chartFlags.volume,
		Width:  conf.Args.Chart.Width,
		Height: conf.Args.Chart.Height,
	}, out)
}
