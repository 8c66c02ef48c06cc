package chart

import (
	"bytes"
	"context"
	"path/filepath"
	"time"

	"github.com/carusyte/stockchart/model"
	"github.com/carusyte/stockchart/util"
	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
)

//ErrNoData is returned when a stock has no trading record in the requested range.
var ErrNoData = errors.New("no data in the requested range")

//Source provides stock listing and daily quotes.
type Source interface {
	Resolve(ctx context.Context, nameOrCode string) (*model.StockBasic, error)
	Daily(ctx context.Context, code string, start, end time.Time) (model.Records, error)
}

//Request describes one chart to generate from fetched data.
type Request struct {
	Identifier string
	Start, End time.Time
	Type       model.ChartType
	Volume     bool
	Width      int
	Height     int
	//Path of the output file, generated under Generator.ChartDir when empty.
	Path string
}

//Generator fetches stock data and renders it.
type Generator struct {
	Source   Source
	Renderer *Renderer
	ChartDir string
	//Fonts overrides the renderer's font families when set.
	Fonts []string
	//Snapshot, when set, is called with the produced HTML chart to capture a PNG copy.
	Snapshot func(ctx context.Context, htmlPath, pngPath string) error
}

//FromStock fetches the requested stock and renders its chart.
func (g *Generator) FromStock(ctx context.Context, req Request) (Result, error) {
	basic, rs, e := g.fetch(ctx, req.Identifier, req.Start, req.End)
	if e != nil {
		return Result{}, e
	}
	return g.RenderRecords(ctx, basic, rs, req)
}

func (g *Generator) fetch(ctx context.Context, id string, start, end time.Time) (*model.StockBasic, model.Records, error) {
	basic, e := g.Source.Resolve(ctx, id)
	if e != nil {
		return nil, nil, e
	}
	rs, e := g.Source.Daily(ctx, basic.TsCode, start, end)
	if e != nil {
		return nil, nil, e
	}
	if len(rs) == 0 {
		log.Warnf("%s %s has no data between %s and %s", basic.TsCode, basic.Name,
			start.Format(model.DateFormat), end.Format(model.DateFormat))
		return nil, nil, ErrNoData
	}
	return basic, rs, nil
}

//RenderRecords renders already fetched records of a resolved stock.
func (g *Generator) RenderRecords(ctx context.Context, basic *model.StockBasic, rs model.Records, req Request) (Result, error) {
	if req.Type == "" {
		req.Type = model.CANDLESTICK
	}
	path := req.Path
	if path == "" {
		path = filepath.Join(g.ChartDir, util.FileName(".html", basic.Name, string(req.Type),
			req.Start.Format(model.DateFormat), req.End.Format(model.DateFormat)))
	}
	res, e := g.Renderer.Render(rs, model.ChartSpec{
		Type:   req.Type,
		Fonts:  g.Fonts,
		Title:  DefaultTitle(basic.Name, rs),
		Volume: req.Volume,
		Width:  req.Width,
		Height: req.Height,
	}, path)
	if e != nil {
		return res, e
	}
	if g.Snapshot != nil && !res.Fallback {
		png := util.ReplaceExt(res.Path, ".png")
		if se := g.Snapshot(ctx, res.Path, png); se != nil {
			log.Warnf("snapshot of %s skipped: %+v", res.Path, se)
		} else {
			res.Snapshot = png
		}
	}
	return res, nil
}

//BatchEntry is the outcome of one stock and chart type in a batch.
type BatchEntry struct {
	Identifier string
	Type       model.ChartType
	Result     Result
	Err        error
}

//BatchResults collects batch outcomes in request order.
type BatchResults []*BatchEntry

//Failed counts the entries with an error.
func (br BatchResults) Failed() (n int) {
	for _, b := range br {
		if b.Err != nil {
			n++
		}
	}
	return
}

func (br BatchResults) String() string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetRowLine(true)
	table.SetHeader([]string{"Stock", "Type", "Status", "Output"})
	data := make([][]string, len(br))
	for i, b := range br {
		status, out := "✅", b.Result.Path
		if b.Err != nil {
			status, out = "❌", b.Err.Error()
		} else if b.Result.Fallback {
			status = "✅ (fallback)"
		}
		data[i] = []string{b.Identifier, string(b.Type), status, out}
	}
	table.AppendBulk(data)
	table.Render()
	return buf.String()
}

//Batch generates every chart type for every stock, each stock is fetched once.
//Failures are recorded per entry and do not stop the batch.
func (g *Generator) Batch(ctx context.Context, ids []string, types []model.ChartType, tmpl Request) BatchResults {
	if len(types) == 0 {
		types = []model.ChartType{model.CANDLESTICK}
	}
	results := make(BatchResults, 0, len(ids)*len(types))
	for _, id := range ids {
		basic, rs, e := g.fetch(ctx, id, tmpl.Start, tmpl.End)
		for _, t := range types {
			entry := &BatchEntry{Identifier: id, Type: t, Err: e}
			if e == nil {
				req := tmpl
				req.Identifier, req.Type, req.Path = id, t, ""
				entry.Result, entry.Err = g.RenderRecords(ctx, basic, rs, req)
			}
			if entry.Err != nil {
				log.Errorf("failed to generate %s chart for %s: %+v", t, id, entry.Err)
			}
			results = append(results, entry)
		}
	}
	return results
}
