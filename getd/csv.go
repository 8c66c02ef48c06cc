package getd

import (
	"bufio"
	"encoding/csv"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/carusyte/stockchart/model"
	"github.com/carusyte/stockchart/util"
	"github.com/pkg/errors"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

//CSVHeader is the header row of exported data files.
var CSVHeader = []string{"trade_date", "open", "high", "low", "close", "volume"}

type csvOptions struct {
	bom       bool
	encoding  string
	stockName *string
}

//CSVOption customizes CSV export and import.
type CSVOption func(*csvOptions)

//WithBOM prefixes exported files with a UTF-8 byte order mark, which some
//spreadsheet applications need to detect the encoding.
func WithBOM(bom bool) CSVOption {
	return func(o *csvOptions) {
		o.bom = bom
	}
}

//WithEncoding sets the source encoding for import, "utf-8" (default) or "gbk".
func WithEncoding(enc string) CSVOption {
	return func(o *csvOptions) {
		o.encoding = strings.ToLower(enc)
	}
}

//WithStockName makes import store the stock_name column of the first row into
//dst. dst is left untouched when the file has no such column.
func WithStockName(dst *string) CSVOption {
	return func(o *csvOptions) {
		o.stockName = dst
	}
}

//ExportCSV writes records to path in chronological order. Missing parent
//directories are created. A partially written file is removed on failure.
func ExportCSV(records model.Records, path string, opts ...CSVOption) (e error) {
	o := new(csvOptions)
	for _, opt := range opts {
		opt(o)
	}
	if e = util.MkDirAll(filepath.Dir(path), 0755, 2); e != nil {
		return &IOError{Op: "create directory for", Path: path, Err: e}
	}
	f, e := os.Create(path)
	if e != nil {
		return &IOError{Op: "create", Path: path, Err: e}
	}
	defer func() {
		if ce := f.Close(); ce != nil && e == nil {
			e = &IOError{Op: "close", Path: path, Err: ce}
		}
		if e != nil {
			os.Remove(path)
		}
	}()

	bw := bufio.NewWriter(f)
	var w io.Writer = bw
	var tw *transform.Writer
	if o.bom {
		tw = transform.NewWriter(bw, unicode.UTF8BOM.NewEncoder())
		w = tw
	}
	if e = writeRecords(w, records); e != nil {
		return &IOError{Op: "write", Path: path, Err: e}
	}
	if tw != nil {
		if e = tw.Close(); e != nil {
			return &IOError{Op: "write", Path: path, Err: e}
		}
	}
	if e = bw.Flush(); e != nil {
		return &IOError{Op: "flush", Path: path, Err: e}
	}
	log.Infof("%d records exported to %s", len(records), path)
	return nil
}

func writeRecords(w io.Writer, records model.Records) error {
	sorted := make(model.Records, len(records))
	copy(sorted, records)
	sorted.Sort()

	cw := csv.NewWriter(w)
	if e := cw.Write(CSVHeader); e != nil {
		return e
	}
	for _, r := range sorted {
		e := cw.Write([]string{
			r.TradeDate.Format(model.DateFormat),
			strconv.FormatFloat(r.Open, 'f', -1, 64),
			strconv.FormatFloat(r.High, 'f', -1, 64),
			strconv.FormatFloat(r.Low, 'f', -1, 64),
			strconv.FormatFloat(r.Close, 'f', -1, 64),
			strconv.FormatInt(r.Volume, 10),
		})
		if e != nil {
			return e
		}
	}
	cw.Flush()
	return cw.Error()
}

//ImportCSV reads records from a data file. Columns are matched by header name,
//case insensitively; "date" is accepted for trade_date and "vol" for volume.
//The volume column is optional. Rows are returned in chronological order.
func ImportCSV(path string, opts ...CSVOption) (model.Records, error) {
	o := new(csvOptions)
	for _, opt := range opts {
		opt(o)
	}
	f, e := os.Open(path)
	if e != nil {
		return nil, &IOError{Op: "open", Path: path, Err: e}
	}
	defer f.Close()

	var r io.Reader
	switch o.encoding {
	case "", "utf-8", "utf8":
		r = transform.NewReader(f, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	case "gbk":
		r = transform.NewReader(f, simplifiedchinese.GBK.NewDecoder())
	case "gb18030":
		r = transform.NewReader(f, simplifiedchinese.GB18030.NewDecoder())
	default:
		return nil, errors.Errorf("unsupported encoding: %s", o.encoding)
	}
	rs, e := readRecords(r, o)
	if e != nil {
		return nil, errors.WithMessagef(e, "failed to import %s", path)
	}
	return rs, nil
}

func readRecords(r io.Reader, o *csvOptions) (model.Records, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, e := cr.Read()
	if e != nil {
		return nil, errors.Wrap(e, "missing header row")
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	alias(idx, "trade_date", "date")
	alias(idx, "volume", "vol")
	var missing []string
	for _, c := range CSVHeader[:5] {
		if _, ok := idx[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, errors.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}

	var rs model.Records
	for line := 2; ; line++ {
		row, e := cr.Read()
		if e == io.EOF {
			break
		}
		if e != nil {
			return nil, errors.WithStack(e)
		}
		rec, e := parseRow(row, idx)
		if e != nil {
			return nil, errors.WithMessagef(e, "line %d", line)
		}
		if i, ok := idx["stock_name"]; ok && line == 2 && o.stockName != nil && i < len(row) {
			if n := strings.TrimSpace(row[i]); n != "" {
				*o.stockName = n
			}
		}
		rs = append(rs, rec)
	}
	return rs.Sort(), nil
}

func alias(idx map[string]int, name, alt string) {
	if _, ok := idx[name]; ok {
		return
	}
	if i, ok := idx[alt]; ok {
		idx[name] = i
	}
}

func parseRow(row []string, idx map[string]int) (r *model.StockRecord, e error) {
	r = new(model.StockRecord)
	if r.TradeDate, e = util.ParseDate(row[idx["trade_date"]]); e != nil {
		return nil, e
	}
	for _, f := range []struct {
		name string
		dst  *float64
	}{
		{"open", &r.Open},
		{"high", &r.High},
		{"low", &r.Low},
		{"close", &r.Close},
	} {
		if *f.dst, e = strconv.ParseFloat(strings.TrimSpace(row[idx[f.name]]), 64); e != nil {
			return nil, errors.Wrapf(e, "invalid %s", f.name)
		}
	}
	if i, ok := idx["volume"]; ok && i < len(row) {
		s := strings.TrimSpace(row[i])
		if s == "" {
			return r, nil
		}
		if r.Volume, e = strconv.ParseInt(s, 10, 64); e != nil {
			v, fe := strconv.ParseFloat(s, 64)
			if fe != nil {
				return nil, errors.Wrapf(fe, "invalid volume")
			}
			r.Volume, e = int64(math.Round(v)), nil
		}
	}
	return r, nil
}
