package cmd

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/carusyte/stockchart/chart"
	"github.com/carusyte/stockchart/conf"
	"github.com/carusyte/stockchart/getd"
	"github.com/carusyte/stockchart/global"
	"github.com/carusyte/stockchart/model"
	"github.com/carusyte/stockchart/util"
	"github.com/pkg/errors"
	"github.com/pkg/profile"
	"github.com/spf13/cobra"
)

var log = global.Log

var (
	cfgFile     string
	logLevel    string
	profileMode string
	profiler    interface{ Stop() }
)

var rootCmd = &cobra.Command{
	Use:   "stockchart",
	Short: "Stockchart fetches China A-share daily quotes and draws candlestick charts.",
	Long: `Without subcommand, stockchart runs the demo: it fetches the configured demo stock,
exports the data to CSV and renders a candlestick chart.`,
	Args:               cobra.NoArgs,
	SilenceUsage:       true,
	SilenceErrors:      true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
	RunE: func(cmd *cobra.Command, args []string) error {
		return demo(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./stockchart.yaml or $HOME/stockchart.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warning, error")
	rootCmd.PersistentFlags().StringVar(&profileMode, "profile", "", "enable profiling: cpu or mem")
}

//Execute is the entrance of this command-line framework
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		log.Errorf("%+v", err)
		os.Exit(1)
	}
}

func setup(cmd *cobra.Command, args []string) error {
	if cfgFile != "" {
		if e := conf.Load(cfgFile); e != nil {
			return e
		}
	}
	if logLevel != "" {
		conf.Args.LogLevel = logLevel
	}
	if profileMode != "" {
		conf.Args.Profiling = profileMode
	}
	if e := global.Setup(); e != nil {
		return e
	}
	log.WithField("run", global.RunID).Debugf("%s started with configuration: %+v", cmd.CommandPath(), conf.Args)
	switch conf.Args.Profiling {
	case "":
	case "cpu":
		profiler = profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook)
	case "mem":
		profiler = profile.Start(profile.MemProfile, profile.ProfilePath("."), profile.NoShutdownHook)
	default:
		return errors.Errorf("unsupported profiling mode: %s", conf.Args.Profiling)
	}
	return nil
}

func teardown(cmd *cobra.Command, args []string) error {
	if profiler != nil {
		profiler.Stop()
	}
	return nil
}

func demo(ctx context.Context) error {
	start := time.Now()
	defer func() {
		log.WithField("run", global.RunID).Infof("demo finished in %.2fs", time.Since(start).Seconds())
	}()
	from, to, e := dateRange(conf.Args.Demo.Start, conf.Args.Demo.End)
	if e != nil {
		return e
	}
	p, e := getd.NewDefaultProvider()
	if e != nil {
		return e
	}
	basic, rs, e := fetchStock(ctx, p, conf.Args.Demo.Identifier, from, to)
	if e != nil {
		return e
	}
	if len(rs) == 0 {
		log.Warnf("no data for %s, chart skipped", conf.Args.Demo.Identifier)
		return nil
	}
	csvPath, e := exportStock(basic, rs, "")
	if e != nil {
		return e
	}
	res, e := newGenerator(p).RenderRecords(ctx, basic, rs, chart.Request{
		Identifier: basic.Name,
		Start:      from,
		End:        to,
		Type:       model.ChartType(conf.Args.Chart.Type),
		Volume:     conf.Args.Chart.Volume,
		Width:      conf.Args.Chart.Width,
		Height:     conf.Args.Chart.Height,
	})
	if e != nil {
		return e
	}
	upload(ctx, csvPath, res.Path, res.Snapshot)
	return nil
}

// fetchStock resolves and fetches a stock, printing a summary of the records.
func fetchStock(ctx context.Context, p *getd.Provider, id string, from, to time.Time) (*model.StockBasic, model.Records, error) {
	if from.After(to) {
		return nil, nil, &getd.InvalidRangeError{Start: from, End: to}
	}
	basic, e := p.Resolve(ctx, id)
	if e != nil {
		return nil, nil, e
	}
	rs, e := p.Daily(ctx, basic.TsCode, from, to)
	if e != nil {
		return nil, nil, e
	}
	if len(rs) == 0 {
		return basic, rs, nil
	}
	if s, e := rs.Summarize(basic.TsCode, basic.Name); e == nil {
		log.Infof("%s %s summary:\n%v", basic.TsCode, basic.Name, s)
	}
	return basic, rs, nil
}

// exportStock writes rs to out, or to a file named after the stock and the first
// and last trade dates under the data dir.
func exportStock(basic *model.StockBasic, rs model.Records, out string) (string, error) {
	if out == "" {
		first, last := rs.Span()
		out = filepath.Join(conf.Args.Output.DataDir, util.FileName(".csv", basic.Name,
			first.Format(model.DateFormat), last.Format(model.DateFormat)))
	}
	if e := getd.ExportCSV(rs, out, getd.WithBOM(conf.Args.Output.CSVBOM)); e != nil {
		return "", e
	}
	return out, nil
}

func dateRange(start, end string) (from, to time.Time, e error) {
	from, to = getd.DefaultStart, util.Today()
	if start != "" {
		if from, e = util.ParseDate(start); e != nil {
			return
		}
	}
	if end != "" {
		if to, e = util.ParseDate(end); e != nil {
			return
		}
	}
	return
}

func newGenerator(src chart.Source) *chart.Generator {
	g := &chart.Generator{
		Source:   src,
		Renderer: chart.NewRenderer(),
		ChartDir: conf.Args.Output.ChartDir,
		Fonts:    conf.Args.Chart.Fonts,
	}
	if conf.Args.Chart.Snapshot {
		timeout := time.Duration(conf.Args.Chart.SnapshotTimeout) * time.Second
		g.Snapshot = func(ctx context.Context, html, png string) error {
			return chart.Snapshot(ctx, html, png, timeout)
		}
	}
	return g
}

// upload copies the produced files to cloud storage when a bucket is configured.
func upload(ctx context.Context, files ...string) {
	if conf.Args.GCS.Bucket == "" {
		return
	}
	var proxy string
	if conf.Args.GCS.UseProxy {
		proxy = conf.Args.Network.Proxy
	}
	gcs := util.NewGCSClient(conf.Args.GCS.Bucket, conf.Args.GCS.Prefix, proxy,
		time.Duration(conf.Args.GCS.Timeout)*time.Second)
	defer gcs.Close()
	for _, f := range files {
		if f == "" {
			continue
		}
		_, e := gcs.Upload(ctx, f, conf.Args.Retry.MaxTries)
		util.CheckErrNop(e, "upload skipped for "+f)
	}
}
