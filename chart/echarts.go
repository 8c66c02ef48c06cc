package chart

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/carusyte/stockchart/model"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/pkg/errors"
)

//Chinese market convention, red for rising and green for falling.
const (
	upColor         = "#ec0000"
	upBorderColor   = "#8a0000"
	downColor       = "#00da3c"
	downBorderColor = "#008f28"
)

//ECharts renders interactive HTML charts with go-echarts.
type ECharts struct{}

//NewECharts creates the go-echarts backend.
func NewECharts() *ECharts {
	return &ECharts{}
}

func (*ECharts) Name() string { return "go-echarts" }

func (*ECharts) Ext() string { return ".html" }

//Render writes an HTML page with the price chart and an optional volume chart.
func (b *ECharts) Render(w io.Writer, records model.Records, spec model.ChartSpec) error {
	if e := validate(records); e != nil {
		return e
	}
	width, height := size(spec)
	priceHeight := height
	if spec.Volume {
		priceHeight = height * 3 / 4
	}
	dates := records.Dates("2006-01-02")

	page := components.NewPage()
	page.PageTitle = spec.Title
	switch spec.Type {
	case model.CANDLESTICK, model.OHLC:
		page.AddCharts(b.kline(records, dates, spec, width, priceHeight))
	case model.LINE:
		page.AddCharts(b.line(records, dates, spec, width, priceHeight))
	default:
		return errors.Errorf("unsupported chart type: %s", spec.Type)
	}
	if spec.Volume {
		page.AddCharts(b.volume(records, dates, width, height-priceHeight))
	}

	var buf bytes.Buffer
	if e := page.Render(&buf); e != nil {
		return errors.Wrap(e, "failed to render echarts page")
	}
	return applyFonts(&buf, w, spec.Fonts)
}

func (b *ECharts) globals(title string, width, height int, zoom bool) []charts.GlobalOpts {
	gopts := []charts.GlobalOpts{
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: title,
			Width:     strconv.Itoa(width) + "px",
			Height:    strconv.Itoa(height) + "px",
		}),
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: true, Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{SplitNumber: 20}),
		charts.WithYAxisOpts(opts.YAxis{Scale: true}),
	}
	if zoom {
		gopts = append(gopts, charts.WithDataZoomOpts(opts.DataZoom{
			Type:  "slider",
			Start: 0,
			End:   100,
		}))
	}
	return gopts
}

func (b *ECharts) kline(records model.Records, dates []string, spec model.ChartSpec, width, height int) *charts.Kline {
	k := charts.NewKLine()
	k.SetGlobalOptions(b.globals(spec.Title, width, height, true)...)
	items := make([]opts.KlineData, len(records))
	for i, r := range records {
		items[i] = opts.KlineData{Value: [4]float64{r.Open, r.Close, r.Low, r.High}}
	}
	style := opts.ItemStyle{
		Color:        upColor,
		Color0:       downColor,
		BorderColor:  upBorderColor,
		BorderColor0: downBorderColor,
	}
	if spec.Type == model.OHLC {
		// hollow bodies, only the outline carries the direction
		style.Color = "transparent"
		style.Color0 = "transparent"
		style.BorderColor = upColor
		style.BorderColor0 = downColor
	}
	k.SetXAxis(dates).AddSeries("日K", items, charts.WithItemStyleOpts(style))
	return k
}

func (b *ECharts) line(records model.Records, dates []string, spec model.ChartSpec, width, height int) *charts.Line {
	l := charts.NewLine()
	l.SetGlobalOptions(b.globals(spec.Title, width, height, true)...)
	items := make([]opts.LineData, len(records))
	for i, r := range records {
		items[i] = opts.LineData{Value: r.Close}
	}
	l.SetXAxis(dates).AddSeries("收盘价", items)
	return l
}

func (b *ECharts) volume(records model.Records, dates []string, width, height int) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(b.globals("成交量", width, height, false)...)
	items := make([]opts.BarData, len(records))
	for i, r := range records {
		c := upColor
		if r.Close < r.Open {
			c = downColor
		}
		items[i] = opts.BarData{Value: r.Volume, ItemStyle: &opts.ItemStyle{Color: c}}
	}
	bar.SetXAxis(dates).AddSeries("成交量", items)
	return bar
}

// applyFonts sets the font family stack on the page and on every chart
// instance, since echarts draws text on canvas and ignores CSS.
func applyFonts(src io.Reader, w io.Writer, fonts []string) error {
	doc, e := goquery.NewDocumentFromReader(src)
	if e != nil {
		return errors.Wrap(e, "failed to parse rendered page")
	}
	family := fontFamily(fonts)
	doc.Find("head").AppendHtml(fmt.Sprintf("<style>body{font-family:%s;}</style>", family))
	doc.Find("body").AppendHtml(fmt.Sprintf(`<script type="text/javascript">
document.querySelectorAll("div.item").forEach(function (el) {
  var c = echarts.getInstanceByDom(el);
  if (c) { c.setOption({textStyle: {fontFamily: %s}}); }
});
</script>`, strconv.Quote(family)))
	html, e := doc.Html()
	if e != nil {
		return errors.Wrap(e, "failed to serialize page")
	}
	_, e = io.WriteString(w, html)
	return errors.WithStack(e)
}

func fontFamily(fonts []string) string {
	quoted := make([]string, 0, len(fonts)+1)
	for _, f := range fonts {
		if strings.ContainsAny(f, " ") {
			f = "'" + f + "'"
		}
		quoted = append(quoted, f)
	}
	if len(fonts) == 0 || fonts[len(fonts)-1] != "sans-serif" {
		quoted = append(quoted, "sans-serif")
	}
	return strings.Join(quoted, ", ")
}

// validate rejects data that would silently produce a misleading chart.
func validate(records model.Records) error {
	if len(records) == 0 {
		return errors.New("no record to render")
	}
	for i, r := range records {
		if !r.Consistent() {
			return errors.Errorf("malformed record at %d: %s", i, r)
		}
		if i > 0 && !records[i-1].TradeDate.Before(r.TradeDate) {
			return errors.Errorf("records out of order at %d: %s", i, r.TradeDate.Format(model.DateFormat))
		}
	}
	return nil
}

func size(spec model.ChartSpec) (width, height int) {
	width, height = spec.Width, spec.Height
	if width <= 0 {
		width = 1200
	}
	if height <= 0 {
		height = 800
	}
	return
}
