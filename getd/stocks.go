package getd

import (
	"context"
	"regexp"
	"strings"

	"github.com/carusyte/stockchart/model"
	"github.com/pkg/errors"
)

const basicFields = "ts_code,symbol,name,area,industry,list_date"

var (
	tsCodePattern  = regexp.MustCompile(`^(\d{6})\.(SH|SZ|BJ)$`)
	prefixPattern  = regexp.MustCompile(`^(SH|SZ|BJ)(\d{6})$`)
	symbolPattern  = regexp.MustCompile(`^\d{6}$`)
	exchangeByHead = map[byte]string{
		'6': "SH", '9': "SH", '5': "SH",
		'0': "SZ", '2': "SZ", '3': "SZ", '1': "SZ",
		'4': "BJ", '8': "BJ",
	}
)

//NormalizeCode converts the accepted code forms (600519.SH, sh600519, 600519)
//into the API form 600519.SH. ok is false if s is not a code.
func NormalizeCode(s string) (code string, ok bool) {
	u := strings.ToUpper(strings.TrimSpace(s))
	if tsCodePattern.MatchString(u) {
		return u, true
	}
	if m := prefixPattern.FindStringSubmatch(u); m != nil {
		return m[2] + "." + m[1], true
	}
	if symbolPattern.MatchString(u) {
		if ex, found := exchangeByHead[u[0]]; found {
			return u + "." + ex, true
		}
	}
	return "", false
}

//ResolveCode maps a stock name or code to the API code. Codes pass through in
//normalized form without network access. Names are matched against the listing,
//exact match first then substring match, the first hit wins.
func (p *Provider) ResolveCode(ctx context.Context, nameOrCode string) (string, error) {
	if code, ok := NormalizeCode(nameOrCode); ok {
		return code, nil
	}
	b, e := p.lookupName(ctx, nameOrCode)
	if e != nil {
		return "", e
	}
	return b.TsCode, nil
}

//Resolve is like ResolveCode but returns the whole listing row, so the stock
//name is known. A code absent from the listing yields a row named after the code.
func (p *Provider) Resolve(ctx context.Context, nameOrCode string) (*model.StockBasic, error) {
	code, ok := NormalizeCode(nameOrCode)
	if !ok {
		return p.lookupName(ctx, nameOrCode)
	}
	t, e := p.call(ctx, "stock_basic", map[string]string{"ts_code": code}, basicFields)
	if e != nil {
		return nil, e
	}
	basics := toBasics(t)
	if len(basics) == 0 {
		log.Warnf("%s is not in the stock listing, using code as name", code)
		return &model.StockBasic{TsCode: code, Symbol: code[:6], Name: code}, nil
	}
	return basics[0], nil
}

//Stocks returns the listed stocks.
func (p *Provider) Stocks(ctx context.Context) ([]*model.StockBasic, error) {
	t, e := p.call(ctx, "stock_basic", map[string]string{
		"exchange":    "",
		"list_status": "L",
	}, basicFields)
	if e != nil {
		return nil, errors.WithMessage(e, "failed to get stock listing")
	}
	return toBasics(t), nil
}

func (p *Provider) lookupName(ctx context.Context, name string) (*model.StockBasic, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &NotFoundError{Identifier: name}
	}
	basics, e := p.Stocks(ctx)
	if e != nil {
		return nil, e
	}
	if b := MatchName(basics, name); b != nil {
		log.Debugf("%s resolved to %s %s", name, b.TsCode, b.Name)
		return b, nil
	}
	return nil, &NotFoundError{Identifier: name}
}

//MatchName picks the stock whose name equals name, or else the first whose
//name contains it. Returns nil if none matches.
func MatchName(basics []*model.StockBasic, name string) *model.StockBasic {
	for _, b := range basics {
		if b.Name == name {
			return b
		}
	}
	for _, b := range basics {
		if strings.Contains(b.Name, name) {
			return b
		}
	}
	return nil
}

func toBasics(t *Table) []*model.StockBasic {
	basics := make([]*model.StockBasic, t.Len())
	for i := range basics {
		basics[i] = &model.StockBasic{
			TsCode:   t.String(i, "ts_code"),
			Symbol:   t.String(i, "symbol"),
			Name:     t.String(i, "name"),
			Area:     t.String(i, "area"),
			Industry: t.String(i, "industry"),
			ListDate: t.String(i, "list_date"),
		}
	}
	return basics
}
