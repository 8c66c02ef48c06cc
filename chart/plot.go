package chart

import (
	"image/color"
	"io"
	"math"

	"github.com/carusyte/stockchart/model"
	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/font"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

var (
	riseColor = color.RGBA{R: 0xd6, G: 0x28, B: 0x28, A: 0xff}
	fallColor = color.RGBA{R: 0x1a, G: 0x9e, B: 0x3f, A: 0xff}
	wickColor = color.Black
)

//Plot draws static PNG charts with gonum/plot primitives. Bodies and wicks are
//stroked one trading day at a time, so it only depends on basic canvas drawing.
type Plot struct {
	//FontFiles are tried in order for a font able to render Chinese labels.
	FontFiles []string
}

//NewPlot creates the gonum/plot backend.
func NewPlot(fontFiles []string) *Plot {
	return &Plot{FontFiles: fontFiles}
}

func (*Plot) Name() string { return "gonum-plot" }

func (*Plot) Ext() string { return ".png" }

//Render writes a PNG image with the price panel and an optional volume panel.
func (b *Plot) Render(w io.Writer, records model.Records, spec model.ChartSpec) error {
	if len(records) == 0 {
		return errors.New("no record to render")
	}
	width, height := size(spec)
	dates := records.Dates("2006-01-02")
	n := float64(len(records))

	price := plot.New()
	price.Title.Text = spec.Title
	price.Y.Label.Text = "价格"
	price.X.Tick.Marker = dateTicks(dates)
	price.Add(plotter.NewGrid())
	switch spec.Type {
	case model.LINE:
		xys := make(plotter.XYs, len(records))
		for i, r := range records {
			xys[i].X = float64(i)
			xys[i].Y = r.Close
		}
		l, e := plotter.NewLine(xys)
		if e != nil {
			return errors.Wrap(e, "failed to create close line")
		}
		l.LineStyle.Color = riseColor
		l.LineStyle.Width = vg.Points(1.2)
		price.Add(l)
	default:
		price.Add(&candles{records: records, ohlc: spec.Type == model.OHLC})
	}
	price.X.Min, price.X.Max = -0.5, n-0.5

	// width and height are in pixels, vgimg renders at 96 dpi
	img := vgimg.New(vg.Points(float64(width)*0.75), vg.Points(float64(height)*0.75))
	dc := draw.New(img)

	plots := []*plot.Plot{price}
	if spec.Volume {
		vol, e := volumePlot(records, dates, float64(width))
		if e != nil {
			return e
		}
		price.X.Tick.Label.Color = color.Transparent
		plots = append(plots, vol)
	}
	if fnt, e := loadCJKFont(b.FontFiles); e == nil {
		for _, p := range plots {
			useFont(p, fnt)
		}
	} else {
		log.Warnf("using default plot font, Chinese labels may not display: %v", e)
	}

	if len(plots) == 1 {
		price.Draw(dc)
	} else {
		grid := [][]*plot.Plot{{plots[0]}, {plots[1]}}
		canvases := plot.Align(grid, draw.Tiles{Rows: 2, Cols: 1, PadY: vg.Points(4)}, dc)
		plots[0].Draw(canvases[0][0])
		plots[1].Draw(canvases[1][0])
	}
	if _, e := (vgimg.PngCanvas{Canvas: img}).WriteTo(w); e != nil {
		return errors.Wrap(e, "failed to encode png")
	}
	return nil
}

func volumePlot(records model.Records, dates []string, width float64) (*plot.Plot, error) {
	p := plot.New()
	p.Y.Label.Text = "成交量"
	p.X.Tick.Marker = dateTicks(dates)
	rise := make(plotter.Values, len(records))
	fall := make(plotter.Values, len(records))
	for i, r := range records {
		if r.Close >= r.Open {
			rise[i] = float64(r.Volume)
		} else {
			fall[i] = float64(r.Volume)
		}
	}
	bw := vg.Points(math.Max(0.5, width*0.75*0.8/float64(len(records))*0.6))
	for _, s := range []struct {
		vals plotter.Values
		clr  color.Color
	}{{rise, riseColor}, {fall, fallColor}} {
		bars, e := plotter.NewBarChart(s.vals, bw)
		if e != nil {
			return nil, errors.Wrap(e, "failed to create volume bars")
		}
		bars.Color = s.clr
		bars.LineStyle.Width = 0
		p.Add(bars)
	}
	p.X.Min, p.X.Max = -0.5, float64(len(records))-0.5
	p.Y.Min = 0
	return p, nil
}

func useFont(p *plot.Plot, fnt font.Font) {
	set := func(s *text.Style) {
		size := s.Font.Size
		s.Font = fnt
		s.Font.Size = size
	}
	set(&p.Title.TextStyle)
	set(&p.Legend.TextStyle)
	for _, ax := range []*plot.Axis{&p.X, &p.Y} {
		set(&ax.Label.TextStyle)
		set(&ax.Tick.Label)
	}
}

// dateTicks labels about ten evenly spaced trading days.
type dateTicks []string

func (d dateTicks) Ticks(min, max float64) []plot.Tick {
	step := len(d) / 10
	if step < 1 {
		step = 1
	}
	ticks := make([]plot.Tick, 0, len(d)/step+1)
	for i := range d {
		t := plot.Tick{Value: float64(i)}
		if i%step == 0 {
			t.Label = d[i]
		}
		ticks = append(ticks, t)
	}
	return ticks
}

// candles draws a wick from low to high and a body from open to close per day,
// or left/right ticks at open/close when ohlc is set.
type candles struct {
	records model.Records
	ohlc    bool
}

func (c *candles) Plot(cv draw.Canvas, plt *plot.Plot) {
	trX, trY := plt.Transforms(&cv)
	half := (trX(1) - trX(0)) * 0.3
	if half < vg.Points(0.5) {
		half = vg.Points(0.5)
	}
	for i, r := range c.records {
		x := trX(float64(i))
		clr := riseColor
		if r.Close < r.Open {
			clr = fallColor
		}
		line := draw.LineStyle{Color: clr, Width: vg.Points(1)}
		if c.ohlc {
			cv.StrokeLine2(line, x, trY(r.Low), x, trY(r.High))
			cv.StrokeLine2(line, x-half, trY(r.Open), x, trY(r.Open))
			cv.StrokeLine2(line, x, trY(r.Close), x+half, trY(r.Close))
			continue
		}
		cv.StrokeLine2(draw.LineStyle{Color: wickColor, Width: vg.Points(0.5)}, x, trY(r.Low), x, trY(r.High))
		top, bottom := trY(math.Max(r.Open, r.Close)), trY(math.Min(r.Open, r.Close))
		if top-bottom < vg.Points(0.5) {
			cv.StrokeLine2(line, x-half, top, x+half, top)
			continue
		}
		cv.FillPolygon(clr, []vg.Point{
			{X: x - half, Y: bottom},
			{X: x + half, Y: bottom},
			{X: x + half, Y: top},
			{X: x - half, Y: top},
		})
	}
}

func (c *candles) DataRange() (xmin, xmax, ymin, ymax float64) {
	xmin, xmax = -0.5, float64(len(c.records))-0.5
	ymin, ymax = math.Inf(1), math.Inf(-1)
	for _, r := range c.records {
		ymin = math.Min(ymin, r.Low)
		ymax = math.Max(ymax, r.High)
	}
	return
}
