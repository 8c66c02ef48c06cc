package model

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

//DateFormat is the compact date layout used by the market data API and file names.
const DateFormat = "20060102"

//ChartType represents the style of price chart.
type ChartType string

const (
	CANDLESTICK ChartType = "candlestick"
	OHLC        ChartType = "ohlc"
	LINE        ChartType = "line"
)

//ParseChartType converts a name into ChartType, ignoring case and surrounding spaces.
func ParseChartType(s string) (ChartType, error) {
	switch t := ChartType(strings.ToLower(strings.TrimSpace(s))); t {
	case CANDLESTICK, OHLC, LINE:
		return t, nil
	}
	return "", fmt.Errorf("unsupported chart type: %s", s)
}

//StockQuery is the input of a fetch. Identifier is either a stock name or a code.
type StockQuery struct {
	Identifier string
	Start      time.Time
	End        time.Time
}

func (q StockQuery) String() string {
	return fmt.Sprintf("%s [%s, %s]", q.Identifier, q.Start.Format(DateFormat), q.End.Format(DateFormat))
}

//StockBasic is a row of the exchange listing.
type StockBasic struct {
	TsCode   string `json:"ts_code"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Area     string `json:"area"`
	Industry string `json:"industry"`
	ListDate string `json:"list_date"`
}

func (s *StockBasic) String() string {
	return toJSONString(s)
}

//StockRecord is the daily quote of a stock. Volume is in shares.
type StockRecord struct {
	TradeDate time.Time `json:"trade_date"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    int64     `json:"volume"`
}

func (r *StockRecord) String() string {
	return toJSONString(r)
}

//Consistent checks the price relations high >= max(open, close) and min(open, close) >= low.
func (r *StockRecord) Consistent() bool {
	for _, v := range []float64{r.Open, r.High, r.Low, r.Close} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return r.High >= math.Max(r.Open, r.Close) && math.Min(r.Open, r.Close) >= r.Low
}

//Records is a chronologically ordered sequence of StockRecord.
type Records []*StockRecord

//Sort orders the records by trade date ascending.
func (rs Records) Sort() Records {
	sort.SliceStable(rs, func(i, j int) bool {
		return rs[i].TradeDate.Before(rs[j].TradeDate)
	})
	return rs
}

//Span returns the first and last trade date. Both are zero for empty records.
func (rs Records) Span() (first, last time.Time) {
	if len(rs) == 0 {
		return
	}
	return rs[0].TradeDate, rs[len(rs)-1].TradeDate
}

//Dates formats trade dates with the given layout.
func (rs Records) Dates(layout string) []string {
	ds := make([]string, len(rs))
	for i, r := range rs {
		ds[i] = r.TradeDate.Format(layout)
	}
	return ds
}

//Closes returns close prices.
func (rs Records) Closes() []float64 {
	cs := make([]float64, len(rs))
	for i, r := range rs {
		cs[i] = r.Close
	}
	return cs
}

//ChartSpec configures chart rendering.
type ChartSpec struct {
	Type ChartType
	//Fonts is the preferred font family list, most preferred first.
	//Platform defaults apply when empty.
	Fonts  []string
	Title  string
	Volume bool
	Width  int
	Height int
}

func toJSONString(i interface{}) string {
	j, e := json.Marshal(i)
	if e != nil {
		return fmt.Sprintf("%+v", i)
	}
	return string(j)
}
