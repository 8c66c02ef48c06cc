package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/carusyte/stockchart/chart"
	"github.com/carusyte/stockchart/conf"
	"github.com/carusyte/stockchart/getd"
	"github.com/carusyte/stockchart/model"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var batchFlags struct {
	start, end string
	types      []string
	file       string
	volume     bool
}

func init() {
	f := batchCmd.Flags()
	f.StringVar(&batchFlags.start, "start", "", "start date, e.g. 20230101 (default 20100101)")
	f.StringVar(&batchFlags.end, "end", "", "end date (default today)")
	f.StringSliceVarP(&batchFlags.types, "types", "t", []string{"candlestick"}, "chart types to generate")
	f.StringVarP(&batchFlags.file, "file", "f", "", "YAML file listing the stocks")
	f.BoolVar(&batchFlags.volume, "volume", true, "draw the volume panel")
	rootCmd.AddCommand(batchCmd)
}

//batchFile is the stock list of the batch command, for example:
//
//	start: "20230101"
//	types: [candlestick, line]
//	stocks:
//	  - 贵州茅台
//	  - name: 000001.SZ
//	    start: "20220101"
//	    types: [ohlc]
type batchFile struct {
	Start  string       `yaml:"start"`
	End    string       `yaml:"end"`
	Types  []string     `yaml:"types"`
	Volume *bool        `yaml:"volume"`
	Stocks []batchStock `yaml:"stocks"`
}

//batchStock is either a plain name/code or a mapping overriding the file defaults.
type batchStock struct {
	Name  string   `yaml:"name"`
	Start string   `yaml:"start"`
	End   string   `yaml:"end"`
	Types []string `yaml:"types"`
}

func (s *batchStock) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		s.Name = n.Value
		return nil
	}
	type plain batchStock
	return n.Decode((*plain)(s))
}

type batchJob struct {
	ids   []string
	types []model.ChartType
	req   chart.Request
}

var batchCmd = &cobra.Command{
	Use:   "batch [name|code]...",
	Short: "Generate charts of several stocks and chart types",
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			jobs []batchJob
			e    error
		)
		if batchFlags.file != "" {
			jobs, e = loadBatchFile(batchFlags.file)
		} else {
			jobs, e = argJobs(args)
		}
		if e != nil {
			return e
		}
		p, e := getd.NewDefaultProvider()
		if e != nil {
			return e
		}
		g := newGenerator(p)
		var results chart.BatchResults
		for _, j := range jobs {
			results = append(results, g.Batch(cmd.Context(), j.ids, j.types, j.req)...)
		}
		fmt.Fprint(cmd.OutOrStdout(), results.String())
		for _, r := range results {
			if r.Err == nil {
				upload(cmd.Context(), r.Result.Path, r.Result.Snapshot)
			}
		}
		if n := results.Failed(); n > 0 {
			return errors.Errorf("%d of %d charts failed", n, len(results))
		}
		return nil
	},
}

func argJobs(args []string) ([]batchJob, error) {
	if len(args) == 0 {
		return nil, errors.New("no stock given, pass names/codes or --file")
	}
	j, e := newJob(args, batchFlags.start, batchFlags.end, batchFlags.types, batchFlags.volume)
	if e != nil {
		return nil, e
	}
	return []batchJob{j}, nil
}

func loadBatchFile(path string) ([]batchJob, error) {
	b, e := os.ReadFile(path)
	if e != nil {
		return nil, errors.Wrapf(e, "failed to read batch file %s", path)
	}
	return parseBatch(b)
}

func parseBatch(b []byte) ([]batchJob, error) {
	var bf batchFile
	if e := yaml.Unmarshal(b, &bf); e != nil {
		return nil, errors.Wrap(e, "invalid batch file")
	}
	if len(bf.Stocks) == 0 {
		return nil, errors.New("batch file lists no stock")
	}
	volume := conf.Args.Chart.Volume
	if bf.Volume != nil {
		volume = *bf.Volume
	}
	jobs := make([]batchJob, 0, len(bf.Stocks))
	for i, s := range bf.Stocks {
		if strings.TrimSpace(s.Name) == "" {
			return nil, errors.Errorf("stock #%d has no name", i+1)
		}
		start, end, types := firstNonEmpty(s.Start, bf.Start), firstNonEmpty(s.End, bf.End), s.Types
		if len(types) == 0 {
			types = bf.Types
		}
		j, e := newJob([]string{s.Name}, start, end, types, volume)
		if e != nil {
			return nil, errors.WithMessagef(e, "stock %s", s.Name)
		}
		jobs = append(jobs, j)
	}
	return jobs, nil
}

func newJob(ids []string, start, end string, types []string, volume bool) (j batchJob, e error) {
	from, to, e := dateRange(start, end)
	if e != nil {
		return
	}
	if from.After(to) {
		return j, &getd.InvalidRangeError{Start: from, End: to}
	}
	if len(types) == 0 {
		types = []string{conf.Args.Chart.Type}
	}
	for _, t := range types {
		ct, e := model.ParseChartType(strings.TrimSpace(t))
		if e != nil {
			return j, e
		}
		j.types = append(j.types, ct)
	}
	j.ids = ids
	j.req = chart.Request{
		Start:  from,
		End:    to,
		Volume: volume,
		Width:  conf.Args.Chart.Width,
		Height: conf.Args.Chart.Height,
	}
	return j, nil
}

func firstNonEmpty(ss ...string) string {
	for _, s := range ss {
		if s != "" {
			return s
		}
	}
	return ""
}
