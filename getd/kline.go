package getd

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/carusyte/stockchart/model"
	"github.com/pkg/errors"
)

const dailyFields = "ts_code,trade_date,open,high,low,close,vol"

//DailyPageSize is the number of rows requested per daily call, the API caps a
//single response at 6000 rows.
var DailyPageSize = 6000

// bounds paging against a server that keeps reporting has_more
const maxDailyPages = 200

//DefaultStart is the start date used when a query leaves it unset.
var DefaultStart = time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC)

//Fetch returns the daily records of the queried stock in chronological order.
//The whole range is returned or an error, never a partial result.
func (p *Provider) Fetch(ctx context.Context, q model.StockQuery) (model.Records, error) {
	if q.Start.After(q.End) {
		return nil, &InvalidRangeError{Start: q.Start, End: q.End}
	}
	code, e := p.ResolveCode(ctx, q.Identifier)
	if e != nil {
		return nil, e
	}
	return p.Daily(ctx, code, q.Start, q.End)
}

//Daily fetches the daily records of a resolved code.
func (p *Provider) Daily(ctx context.Context, code string, start, end time.Time) (model.Records, error) {
	if start.After(end) {
		return nil, &InvalidRangeError{Start: start, End: end}
	}
	log.Debugf("fetching daily kline for %s from %s to %s", code,
		start.Format(model.DateFormat), end.Format(model.DateFormat))
	var rs model.Records
	for page := 0; ; page++ {
		if page == maxDailyPages {
			return nil, &APIError{API: "daily", Msg: fmt.Sprintf("truncated result: more than %d pages", maxDailyPages)}
		}
		t, e := p.call(ctx, "daily", map[string]string{
			"ts_code":    code,
			"start_date": start.Format(model.DateFormat),
			"end_date":   end.Format(model.DateFormat),
			"limit":      strconv.Itoa(DailyPageSize),
			"offset":     strconv.Itoa(len(rs)),
		}, dailyFields)
		if e != nil {
			return nil, e
		}
		prs, e := parseDaily(t)
		if e != nil {
			return nil, errors.WithMessagef(e, "failed to parse daily kline of %s", code)
		}
		rs = append(rs, prs...)
		if !t.HasMore {
			break
		}
		if len(prs) == 0 {
			return nil, &APIError{API: "daily", Msg: fmt.Sprintf("truncated result: has_more set on an empty page at offset %d", len(rs))}
		}
		log.Debugf("%s: %d daily records so far, fetching next page", code, len(rs))
	}
	rs.Sort()
	log.Infof("%s: %d daily records fetched", code, len(rs))
	return rs, nil
}

func parseDaily(t *Table) (model.Records, error) {
	rs := make(model.Records, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		d, e := time.Parse(model.DateFormat, t.String(i, "trade_date"))
		if e != nil {
			return nil, errors.Wrapf(e, "invalid trade_date at row %d", i)
		}
		r := &model.StockRecord{TradeDate: d}
		for _, f := range []struct {
			name string
			dst  *float64
		}{
			{"open", &r.Open},
			{"high", &r.High},
			{"low", &r.Low},
			{"close", &r.Close},
		} {
			if *f.dst, e = t.Float(i, f.name); e != nil {
				return nil, e
			}
		}
		// vol is reported in lots of 100 shares
		vol, e := t.Float(i, "vol")
		if e != nil {
			return nil, e
		}
		r.Volume = int64(math.Round(vol * 100))
		rs = append(rs, r)
	}
	return rs.Sort(), nil
}
