package chart

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/carusyte/stockchart/global"
	"github.com/carusyte/stockchart/model"
	"github.com/carusyte/stockchart/util"
	"github.com/pkg/errors"
)

var log = global.Log

//Backend draws a chart of records into w.
type Backend interface {
	Name() string
	//Ext is the file extension of the produced output, including the dot.
	Ext() string
	Render(w io.Writer, records model.Records, spec model.ChartSpec) error
}

//Result describes the chart file produced by Renderer.Render.
type Result struct {
	Path    string
	Backend string
	//Fallback reports whether the primary backend failed and the fallback produced the output.
	Fallback   bool
	PrimaryErr error
	//Snapshot is the path of the optional PNG snapshot of an HTML chart.
	Snapshot string
}

//RenderError is returned when both the primary and the fallback backend fail.
type RenderError struct {
	Primary  error
	Fallback error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("chart rendering failed, primary: %v; fallback: %v", e.Primary, e.Fallback)
}

func (e *RenderError) Unwrap() error {
	return e.Fallback
}

//Renderer renders with Primary and resorts to Fallback when Primary fails.
type Renderer struct {
	Primary  Backend
	Fallback Backend
	Fonts    FontSet
}

//NewRenderer creates a Renderer drawing interactive HTML charts with go-echarts
//and PNG charts with gonum/plot as fallback, using the platform fonts.
func NewRenderer() *Renderer {
	fs := PlatformFonts()
	return &Renderer{
		Primary:  NewECharts(),
		Fallback: NewPlot(fs.Files),
		Fonts:    fs,
	}
}

//DefaultTitle builds the chart title from stock name and the records' span.
func DefaultTitle(name string, records model.Records) string {
	if name == "" || len(records) == 0 {
		return "K线图"
	}
	first, last := records.Span()
	return fmt.Sprintf("%s K线图 (%s 至 %s)", name, first.Format("2006-01-02"), last.Format("2006-01-02"))
}

//Render draws records into path, whose extension is replaced with the one of the
//backend producing the output. A failing primary backend is logged and the
//fallback backend is tried; RenderError is returned only if both fail.
func (r *Renderer) Render(records model.Records, spec model.ChartSpec, path string) (res Result, e error) {
	if spec.Type == "" {
		spec.Type = model.CANDLESTICK
	}
	if spec.Title == "" {
		spec.Title = DefaultTitle("", records)
	}
	if len(spec.Fonts) == 0 {
		spec.Fonts = r.Fonts.Families
	}
	if len(spec.Fonts) == 0 {
		spec.Fonts = DefaultFonts.Families
	}

	if r.Primary != nil {
		res.Backend = r.Primary.Name()
		res.Path, e = attempt(r.Primary, records, spec, path)
		if e == nil {
			log.Infof("chart saved to %s", res.Path)
			return res, nil
		}
		log.WithField("backend", r.Primary.Name()).
			Warnf("primary chart rendering failed, falling back: %+v", e)
		res.PrimaryErr = e
	} else {
		res.PrimaryErr = errors.New("no primary backend")
	}
	if r.Fallback == nil {
		return res, &RenderError{Primary: res.PrimaryErr, Fallback: errors.New("no fallback backend")}
	}
	res.Backend = r.Fallback.Name()
	res.Fallback = true
	var fe error
	if res.Path, fe = attempt(r.Fallback, records, spec, path); fe != nil {
		log.WithField("backend", r.Fallback.Name()).Errorf("fallback chart rendering failed: %+v", fe)
		return res, &RenderError{Primary: res.PrimaryErr, Fallback: fe}
	}
	log.Infof("chart saved to %s using fallback %s", res.Path, r.Fallback.Name())
	return res, nil
}

// attempt renders into memory first so a failing backend leaves no file behind.
func attempt(b Backend, records model.Records, spec model.ChartSpec, path string) (out string, e error) {
	defer func() {
		if p := recover(); p != nil {
			e = errors.Errorf("%s panicked: %v", b.Name(), p)
		}
	}()
	if len(records) == 0 {
		return "", errors.New("no record to render")
	}
	var buf bytes.Buffer
	if e = b.Render(&buf, records, spec); e != nil {
		return "", errors.WithMessagef(e, "%s failed", b.Name())
	}
	out = util.ReplaceExt(path, b.Ext())
	if e = util.MkDirAll(filepath.Dir(out), 0755, 2); e != nil {
		return "", e
	}
	if e = os.WriteFile(out, buf.Bytes(), 0644); e != nil {
		return "", errors.Wrapf(e, "failed to write chart file %s", out)
	}
	return out, nil
}
