package cmd

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/carusyte/stockchart/conf"
	"github.com/carusyte/stockchart/getd"
	"github.com/carusyte/stockchart/model"
	"github.com/carusyte/stockchart/util"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateRange(t *testing.T) {
	from, to, e := dateRange("", "")
	require.NoError(t, e)
	assert.Equal(t, getd.DefaultStart, from)
	assert.Equal(t, util.Today(), to)

	from, to, e = dateRange("2023-01-01", "20230110")
	require.NoError(t, e)
	assert.Equal(t, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2023, 1, 10, 0, 0, 0, 0, time.UTC), to)

	_, _, e = dateRange("yesterday", "")
	assert.Error(t, e)
}

func TestParseBatch(t *testing.T) {
	jobs, e := parseBatch([]byte(`
start: "20230101"
end: "20230110"
types: [candlestick, line]
volume: false
stocks:
  - 贵州茅台
  - name: 000001.SZ
    start: "20220101"
    types: [ohlc]
`))
	require.NoError(t, e)
	require.Len(t, jobs, 2)

	assert.Equal(t, []string{"贵州茅台"}, jobs[0].ids)
	assert.Equal(t, []model.ChartType{model.CANDLESTICK, model.LINE}, jobs[0].types)
	assert.False(t, jobs[0].req.Volume)
	assert.Equal(t, "20230101", jobs[0].req.Start.Format(model.DateFormat))

	assert.Equal(t, []string{"000001.SZ"}, jobs[1].ids)
	assert.Equal(t, []model.ChartType{model.OHLC}, jobs[1].types)
	assert.Equal(t, "20220101", jobs[1].req.Start.Format(model.DateFormat))
	assert.Equal(t, "20230110", jobs[1].req.End.Format(model.DateFormat))
}

func TestParseBatchInvalid(t *testing.T) {
	_, e := parseBatch([]byte("stocks: []"))
	assert.Error(t, e)

	_, e = parseBatch([]byte("stocks: [贵州茅台]\ntypes: [pie]"))
	assert.Error(t, e)

	_, e = parseBatch([]byte("stocks: [贵州茅台]\nstart: \"20230110\"\nend: \"20230101\""))
	var ir *getd.InvalidRangeError
	assert.True(t, errors.As(e, &ir))

	_, e = parseBatch([]byte("stocks:\n  - name: \"\""))
	assert.Error(t, e)
}

// tushare answers stock_basic and daily like the market data API does.
func tushare(t *testing.T) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			APIName string            `json:"api_name"`
			Token   string            `json:"token"`
			Params  map[string]string `json:"params"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		var data map[string]interface{}
		switch req.APIName {
		case "stock_basic":
			data = map[string]interface{}{
				"fields": []string{"ts_code", "symbol", "name"},
				"items":  [][]interface{}{{"600519.SH", "600519", "贵州茅台"}, {"000001.SZ", "000001", "平安银行"}},
			}
		case "daily":
			data = map[string]interface{}{
				"fields": []string{"ts_code", "trade_date", "open", "high", "low", "close", "vol"},
				"items": [][]interface{}{
					{"600519.SH", "20230110", 1822.0, 1831.0, 1800.17, 1811.0, 20324.63},
					{"600519.SH", "20230104", 1730.0, 1738.7, 1716.0, 1725.01, 20415.0},
					{"600519.SH", "20230103", 1731.2, 1738.43, 1706.01, 1727.0, 26034.0},
				},
				"has_more": false,
			}
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"code": 0, "data": data})
	}))
}

// useFakeAPI points the configuration at srv and at temporary output dirs.
func useFakeAPI(t *testing.T, srv *httptest.Server) (dataDir, chartDir string) {
	saved := conf.Args
	t.Cleanup(func() { conf.Args = saved })
	dataDir, chartDir = filepath.Join(t.TempDir(), "data"), filepath.Join(t.TempDir(), "charts")
	conf.Args.Tushare.Token = "test-token"
	conf.Args.Tushare.URLs = []string{srv.URL}
	conf.Args.Tushare.Timeout = 5
	conf.Args.Network.Proxy = ""
	conf.Args.Retry.MaxTries = 1
	conf.Args.Retry.BaseDelay = time.Millisecond
	conf.Args.Retry.MaxDelay = time.Millisecond
	conf.Args.Output.DataDir = dataDir
	conf.Args.Output.ChartDir = chartDir
	conf.Args.Chart.Type = "candlestick"
	conf.Args.Chart.Snapshot = false
	conf.Args.GCS.Bucket = ""
	conf.Args.Demo.Identifier = "贵州茅台"
	conf.Args.Demo.Start = "20230101"
	conf.Args.Demo.End = "20230110"
	return
}

func TestDemo(t *testing.T) {
	srv := tushare(t)
	defer srv.Close()
	dataDir, chartDir := useFakeAPI(t, srv)

	require.NoError(t, demo(context.Background()))

	csv := filepath.Join(dataDir, "贵州茅台_20230103_20230110.csv")
	assert.FileExists(t, csv)
	rs, e := getd.ImportCSV(csv)
	require.NoError(t, e)
	assert.Len(t, rs, 3)
	assert.Equal(t, int64(2603400), rs[0].Volume)

	charts, e := filepath.Glob(filepath.Join(chartDir, "贵州茅台_candlestick_20230101_20230110.*"))
	require.NoError(t, e)
	assert.Len(t, charts, 1)
}

func TestDemoUnknownStock(t *testing.T) {
	srv := tushare(t)
	defer srv.Close()
	dataDir, _ := useFakeAPI(t, srv)
	conf.Args.Demo.Identifier = "不存在的股票"

	e := demo(context.Background())
	var nf *getd.NotFoundError
	require.True(t, errors.As(e, &nf), "got %v", e)
	assert.Equal(t, "不存在的股票", nf.Identifier)
	_, se := os.Stat(dataDir)
	assert.True(t, os.IsNotExist(se))
}

func TestChartFromCSV(t *testing.T) {
	srv := tushare(t)
	defer srv.Close()
	_, chartDir := useFakeAPI(t, srv)
	conf.Args.Chart.Fonts = []string{"Source Han Sans SC"}

	path := filepath.Join(t.TempDir(), "600519.csv")
	require.NoError(t, os.WriteFile(path, []byte("trade_date,open,high,low,close,volume,stock_name\n"+
		"20230103,1731.2,1738.43,1706.01,1727,2603400,贵州茅台\n"+
		"20230104,1730,1738.7,1716,1725.01,2041500,贵州茅台\n"), 0644))
	saved := chartFlags
	defer func() { chartFlags = saved }()
	chartFlags.csv, chartFlags.encoding, chartFlags.name, chartFlags.out = path, "utf-8", "", ""

	res, e := chartFromCSV(model.LINE)
	require.NoError(t, e)
	assert.False(t, res.Fallback)
	assert.Equal(t, filepath.Join(chartDir, "600519_line.html"), res.Path)
	f, e := os.Open(res.Path)
	require.NoError(t, e)
	defer f.Close()
	doc, e := goquery.NewDocumentFromReader(f)
	require.NoError(t, e)
	assert.Contains(t, doc.Find("title").Text(), "贵州茅台 K线图 (2023-01-03 至 2023-01-04)")
	assert.Contains(t, doc.Find("head style").Text(), "'Source Han Sans SC'")
}
