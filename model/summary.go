package model

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"github.com/montanaflynn/stats"
	"github.com/olekukonko/tablewriter"
)

//Summary holds descriptive statistics of a record sequence.
type Summary struct {
	Code        string
	Name        string
	Days        int
	First       time.Time
	Last        time.Time
	MinLow      float64
	MaxHigh     float64
	MeanClose   float64
	MedianClose float64
	StdClose    float64
	TotalVolume int64
	//Change is the percentage change from the first close to the last close.
	Change float64
}

//Summarize computes statistics over the records. Records must not be empty.
func (rs Records) Summarize(code, name string) (s *Summary, e error) {
	if len(rs) == 0 {
		return nil, fmt.Errorf("no record to summarize for %s", code)
	}
	s = &Summary{Code: code, Name: name, Days: len(rs)}
	s.First, s.Last = rs.Span()
	lows := make([]float64, len(rs))
	highs := make([]float64, len(rs))
	for i, r := range rs {
		lows[i] = r.Low
		highs[i] = r.High
		s.TotalVolume += r.Volume
	}
	closes := rs.Closes()
	if s.MinLow, e = stats.Min(lows); e != nil {
		return nil, e
	}
	if s.MaxHigh, e = stats.Max(highs); e != nil {
		return nil, e
	}
	if s.MeanClose, e = stats.Mean(closes); e != nil {
		return nil, e
	}
	if s.MedianClose, e = stats.Median(closes); e != nil {
		return nil, e
	}
	if s.StdClose, e = stats.StandardDeviation(closes); e != nil {
		return nil, e
	}
	if c0 := closes[0]; c0 != 0 {
		s.Change, e = stats.Round((closes[len(closes)-1]-c0)/c0*100, 2)
		if e != nil {
			return nil, e
		}
	}
	return s, nil
}

func (s *Summary) String() string {
	var bytes bytes.Buffer
	table := tablewriter.NewWriter(&bytes)
	table.SetRowLine(true)
	table.SetHeader([]string{"Code", "Name", "Days", "From", "To", "Low", "High",
		"Mean Close", "Median Close", "Std Close", "Volume", "Change %"})
	table.Append([]string{
		s.Code,
		s.Name,
		strconv.Itoa(s.Days),
		s.First.Format(DateFormat),
		s.Last.Format(DateFormat),
		fmtFloat(s.MinLow),
		fmtFloat(s.MaxHigh),
		fmt.Sprintf("%.2f", s.MeanClose),
		fmt.Sprintf("%.2f", s.MedianClose),
		fmt.Sprintf("%.2f", s.StdClose),
		strconv.FormatInt(s.TotalVolume, 10),
		fmt.Sprintf("%.2f", s.Change),
	})
	table.Render()
	return bytes.String()
}

//Table renders the last n records (all records when n <= 0) as a text table.
func (rs Records) Table(n int) string {
	sub := rs
	if n > 0 && n < len(rs) {
		sub = rs[len(rs)-n:]
	}
	var bytes bytes.Buffer
	table := tablewriter.NewWriter(&bytes)
	table.SetHeader([]string{"Date", "Open", "High", "Low", "Close", "Volume"})
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	data := make([][]string, len(sub))
	for i, r := range sub {
		data[i] = []string{
			r.TradeDate.Format("2006-01-02"),
			fmtFloat(r.Open),
			fmtFloat(r.High),
			fmtFloat(r.Low),
			fmtFloat(r.Close),
			strconv.FormatInt(r.Volume, 10),
		}
	}
	table.AppendBulk(data)
	table.Render()
	return bytes.String()
}

func fmtFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
