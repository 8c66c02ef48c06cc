package chart

import (
	"bytes"
	"context"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/carusyte/stockchart/model"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, _ := time.Parse(model.DateFormat, s)
	return t
}

func records() model.Records {
	return model.Records{
		{TradeDate: day("20230103"), Open: 1731.2, High: 1738.43, Low: 1706.01, Close: 1727, Volume: 2603400},
		{TradeDate: day("20230104"), Open: 1730, High: 1738.7, Low: 1716, Close: 1725.01, Volume: 2041500},
		{TradeDate: day("20230105"), Open: 1737, High: 1801, Low: 1733, Close: 1801, Volume: 4794300},
		{TradeDate: day("20230106"), Open: 1806, High: 1823, Low: 1796, Close: 1803.77, Volume: 2121212},
		{TradeDate: day("20230109"), Open: 1835, High: 1849, Low: 1813.01, Close: 1841.2, Volume: 2341200},
		{TradeDate: day("20230110"), Open: 1822, High: 1831, Low: 1800.17, Close: 1811, Volume: 2032463},
	}
}

type brokenBackend struct{ calls int }

func (b *brokenBackend) Name() string { return "broken" }
func (b *brokenBackend) Ext() string  { return ".html" }
func (b *brokenBackend) Render(io.Writer, model.Records, model.ChartSpec) error {
	b.calls++
	return errors.New("library internal error")
}

type panickyBackend struct{}

func (panickyBackend) Name() string { return "panicky" }
func (panickyBackend) Ext() string  { return ".svg" }
func (panickyBackend) Render(io.Writer, model.Records, model.ChartSpec) error {
	panic("index out of range")
}

func pngSize(t *testing.T, path string) (int, int) {
	f, e := os.Open(path)
	require.NoError(t, e)
	defer f.Close()
	cfg, e := png.DecodeConfig(f)
	require.NoError(t, e)
	return cfg.Width, cfg.Height
}

func TestRenderPrimary(t *testing.T) {
	r := &Renderer{Primary: NewECharts(), Fallback: NewPlot(nil), Fonts: platformFonts["linux"]}
	path := filepath.Join(t.TempDir(), "charts", "贵州茅台_candlestick.png")
	res, e := r.Render(records(), model.ChartSpec{Type: model.CANDLESTICK, Volume: true, Title: "贵州茅台 K线图"}, path)
	require.NoError(t, e)
	assert.False(t, res.Fallback)
	assert.Nil(t, res.PrimaryErr)
	assert.Equal(t, "go-echarts", res.Backend)
	assert.Equal(t, ".html", filepath.Ext(res.Path))

	f, e := os.Open(res.Path)
	require.NoError(t, e)
	defer f.Close()
	doc, e := goquery.NewDocumentFromReader(f)
	require.NoError(t, e)
	assert.Equal(t, 2, doc.Find("div.item").Length())
	assert.Contains(t, doc.Find("head style").Text(), "'Noto Sans CJK SC'")
	assert.Contains(t, doc.Find("title").Text(), "贵州茅台")
}

func TestRenderLine(t *testing.T) {
	r := &Renderer{Primary: NewECharts(), Fallback: NewPlot(nil)}
	res, e := r.Render(records(), model.ChartSpec{Type: model.LINE}, filepath.Join(t.TempDir(), "line"))
	require.NoError(t, e)
	assert.False(t, res.Fallback)
	raw, e := os.ReadFile(res.Path)
	require.NoError(t, e)
	assert.Contains(t, string(raw), "收盘价")
	assert.Contains(t, string(raw), "K线图")
}

func TestRenderFallback(t *testing.T) {
	hook := test.NewLocal(log)
	defer hook.Reset()
	primary := &brokenBackend{}
	r := &Renderer{Primary: primary, Fallback: NewPlot(nil)}
	path := filepath.Join(t.TempDir(), "out.html")
	res, e := r.Render(records(), model.ChartSpec{Type: model.CANDLESTICK, Volume: true, Width: 800, Height: 600}, path)
	require.NoError(t, e)
	assert.Equal(t, 1, primary.calls)
	assert.True(t, res.Fallback)
	assert.Error(t, res.PrimaryErr)
	assert.Equal(t, "gonum-plot", res.Backend)
	assert.Equal(t, ".png", filepath.Ext(res.Path))
	_, e = os.Stat(path)
	assert.True(t, os.IsNotExist(e), "failed primary must not leave output")

	w, h := pngSize(t, res.Path)
	assert.InDelta(t, 800, w, 1)
	assert.InDelta(t, 600, h, 1)

	warned := false
	for _, en := range hook.AllEntries() {
		if en.Level == logrus.WarnLevel && strings.Contains(en.Message, "falling back") {
			warned = true
		}
	}
	assert.True(t, warned, "fallback should be logged")
}

func TestRenderMalformedFallsBack(t *testing.T) {
	rs := records()
	rs[2].High, rs[2].Low = rs[2].Low, rs[2].High
	r := &Renderer{Primary: NewECharts(), Fallback: NewPlot(nil)}
	res, e := r.Render(rs, model.ChartSpec{Type: model.OHLC}, filepath.Join(t.TempDir(), "bad.html"))
	require.NoError(t, e)
	assert.True(t, res.Fallback)
	assert.Contains(t, res.PrimaryErr.Error(), "malformed")
}

func TestRenderPanicRecovered(t *testing.T) {
	r := &Renderer{Primary: panickyBackend{}, Fallback: NewPlot(nil)}
	res, e := r.Render(records(), model.ChartSpec{Type: model.LINE, Volume: true}, filepath.Join(t.TempDir(), "p"))
	require.NoError(t, e)
	assert.True(t, res.Fallback)
	assert.Contains(t, res.PrimaryErr.Error(), "panicked")
}

func TestRenderBothFail(t *testing.T) {
	r := &Renderer{Primary: &brokenBackend{}, Fallback: &brokenBackend{}}
	_, e := r.Render(records(), model.ChartSpec{}, filepath.Join(t.TempDir(), "x.html"))
	var re *RenderError
	require.True(t, errors.As(e, &re))
	assert.Error(t, re.Primary)
	assert.Error(t, re.Fallback)
}

func TestRenderEmpty(t *testing.T) {
	r := &Renderer{Primary: NewECharts(), Fallback: NewPlot(nil)}
	_, e := r.Render(nil, model.ChartSpec{}, filepath.Join(t.TempDir(), "x.html"))
	var re *RenderError
	assert.True(t, errors.As(e, &re))
}

func TestPlotBackend(t *testing.T) {
	for _, ct := range []model.ChartType{model.CANDLESTICK, model.OHLC, model.LINE} {
		var buf bytes.Buffer
		e := NewPlot(nil).Render(&buf, records(), model.ChartSpec{Type: ct, Title: "K线图", Volume: ct != model.LINE})
		require.NoError(t, e, ct)
		cfg, e := png.DecodeConfig(&buf)
		require.NoError(t, e, ct)
		assert.InDelta(t, 1200, cfg.Width, 1)
	}
}

func TestFontLookup(t *testing.T) {
	fs, ok := LookupFonts("darwin")
	require.True(t, ok)
	assert.Equal(t, "PingFang SC", fs.Families[0])
	fs, ok = LookupFonts("Windows")
	require.True(t, ok)
	assert.Equal(t, "SimHei", fs.Families[0])
	fs, ok = LookupFonts("linux")
	require.True(t, ok)
	assert.Equal(t, "Noto Sans CJK SC", fs.Families[0])
	_, ok = LookupFonts("plan9")
	assert.False(t, ok)
}

func TestPlatformFonts(t *testing.T) {
	fs := PlatformFonts()
	assert.NotEmpty(t, fs.Families)
	if _, ok := platformFonts[runtime.GOOS]; ok {
		assert.Equal(t, platformFonts[runtime.GOOS].Families, fs.Families)
	}
}

func TestLoadCJKFontMissing(t *testing.T) {
	_, e := loadCJKFont([]string{filepath.Join(t.TempDir(), "none.ttc")})
	assert.Error(t, e)
}

func TestFontFamily(t *testing.T) {
	assert.Equal(t, "'PingFang SC', SimHei, sans-serif", fontFamily([]string{"PingFang SC", "SimHei"}))
	assert.Equal(t, "sans-serif", fontFamily([]string{"sans-serif"}))
}

func TestDefaultTitle(t *testing.T) {
	assert.Equal(t, "K线图", DefaultTitle("", records()))
	assert.Equal(t, "贵州茅台 K线图 (2023-01-03 至 2023-01-10)", DefaultTitle("贵州茅台", records()))
}

type fakeSource struct {
	basics map[string]*model.StockBasic
	data   map[string]model.Records
}

func (f *fakeSource) Resolve(_ context.Context, id string) (*model.StockBasic, error) {
	if b, ok := f.basics[id]; ok {
		return b, nil
	}
	return nil, errors.Errorf("no stock matches identifier %q", id)
}

func (f *fakeSource) Daily(_ context.Context, code string, _, _ time.Time) (model.Records, error) {
	return f.data[code], nil
}

func TestGenerator(t *testing.T) {
	src := &fakeSource{
		basics: map[string]*model.StockBasic{
			"贵州茅台": {TsCode: "600519.SH", Name: "贵州茅台"},
			"平安银行": {TsCode: "000001.SZ", Name: "平安银行"},
		},
		data: map[string]model.Records{"600519.SH": records()},
	}
	dir := t.TempDir()
	snaps := 0
	g := &Generator{
		Source:   src,
		Renderer: &Renderer{Primary: NewECharts(), Fallback: NewPlot(nil)},
		ChartDir: dir,
		Snapshot: func(_ context.Context, html, png string) error {
			snaps++
			return errors.New("chrome not installed")
		},
	}
	res, e := g.FromStock(context.Background(), Request{
		Identifier: "贵州茅台",
		Start:      day("20230101"),
		End:        day("20230110"),
		Type:       model.CANDLESTICK,
		Volume:     true,
	})
	require.NoError(t, e)
	assert.Equal(t, filepath.Join(dir, "贵州茅台_candlestick_20230101_20230110.html"), res.Path)
	assert.Equal(t, 1, snaps)
	assert.Empty(t, res.Snapshot)

	_, e = g.FromStock(context.Background(), Request{Identifier: "平安银行"})
	assert.Equal(t, ErrNoData, e)

	br := g.Batch(context.Background(), []string{"贵州茅台", "不存在"},
		[]model.ChartType{model.CANDLESTICK, model.LINE}, Request{Start: day("20230101"), End: day("20230110")})
	require.Len(t, br, 4)
	assert.Equal(t, 2, br.Failed())
	assert.NoError(t, br[1].Err)
	assert.Equal(t, model.LINE, br[1].Type)
	out := br.String()
	assert.Contains(t, out, "✅")
	assert.Contains(t, out, "❌")
}

func TestGeneratorFonts(t *testing.T) {
	src := &fakeSource{
		basics: map[string]*model.StockBasic{"贵州茅台": {TsCode: "600519.SH", Name: "贵州茅台"}},
		data:   map[string]model.Records{"600519.SH": records()},
	}
	g := &Generator{
		Source:   src,
		Renderer: &Renderer{Primary: NewECharts(), Fallback: NewPlot(nil), Fonts: platformFonts["linux"]},
		ChartDir: t.TempDir(),
		Fonts:    []string{"Source Han Sans SC", "KaiTi"},
	}
	res, e := g.FromStock(context.Background(), Request{Identifier: "贵州茅台", Type: model.LINE})
	require.NoError(t, e)
	f, e := os.Open(res.Path)
	require.NoError(t, e)
	defer f.Close()
	doc, e := goquery.NewDocumentFromReader(f)
	require.NoError(t, e)
	style := doc.Find("head style").Text()
	assert.Contains(t, style, "'Source Han Sans SC', KaiTi, sans-serif")
	assert.NotContains(t, style, "Noto Sans CJK SC")
}
