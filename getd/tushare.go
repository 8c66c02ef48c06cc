package getd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	hostpool "github.com/bitly/go-hostpool"
	"github.com/carusyte/stockchart/util"
	"github.com/pkg/errors"
)

//Tushare error codes
const (
	codeOK          = 0
	codeRateLimited = 40203
)

var rateLimitHints = []string{"每分钟最多访问", "每小时最多访问", "每天最多访问"}

//Client talks to the Tushare Pro HTTP API.
type Client struct {
	token     string
	userAgent string
	hp        hostpool.HostPool
	hc        *http.Client
}

//NewClient creates a client balancing across the given API endpoints.
func NewClient(token string, urls []string, hc *http.Client, userAgent string) *Client {
	return &Client{
		token:     token,
		userAgent: userAgent,
		hp:        hostpool.New(urls),
		hc:        hc,
	}
}

type apiRequest struct {
	APIName string            `json:"api_name"`
	Token   string            `json:"token"`
	Params  map[string]string `json:"params"`
	Fields  string            `json:"fields"`
}

type apiResponse struct {
	RequestID string `json:"request_id"`
	Code      int    `json:"code"`
	Msg       string `json:"msg"`
	Data      *Table `json:"data"`
}

//Table is the tabular payload of an API response.
type Table struct {
	Fields  []string        `json:"fields"`
	Items   [][]interface{} `json:"items"`
	HasMore bool            `json:"has_more"`
}

//Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Items)
}

//Index returns the column position of field, or -1.
func (t *Table) Index(field string) int {
	for i, f := range t.Fields {
		if f == field {
			return i
		}
	}
	return -1
}

//String returns the cell of row i in column field as a string.
func (t *Table) String(i int, field string) string {
	v := t.cell(i, field)
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

//Float returns the cell of row i in column field as a float.
func (t *Table) Float(i int, field string) (float64, error) {
	switch x := t.cell(i, field).(type) {
	case json.Number:
		return x.Float64()
	case float64:
		return x, nil
	case string:
		return strconv.ParseFloat(x, 64)
	case nil:
		return 0, errors.Errorf("%s is null at row %d", field, i)
	default:
		return 0, errors.Errorf("unexpected %T value for %s at row %d", x, field, i)
	}
}

func (t *Table) cell(i int, field string) interface{} {
	j := t.Index(field)
	if j < 0 || i >= len(t.Items) || j >= len(t.Items[i]) {
		return nil
	}
	return t.Items[i][j]
}

//Query calls api with params and returns the resulting table. Rate limited calls
//yield *rateLimitError, other API failures *APIError.
func (c *Client) Query(ctx context.Context, api string, params map[string]string, fields string) (*Table, error) {
	body, e := json.Marshal(apiRequest{
		APIName: api,
		Token:   c.token,
		Params:  params,
		Fields:  fields,
	})
	if e != nil {
		return nil, errors.WithStack(e)
	}
	hpr := c.hp.Get()
	host := hpr.Host()
	req, e := http.NewRequestWithContext(ctx, http.MethodPost, host, bytes.NewReader(body))
	if e != nil {
		hpr.Mark(nil)
		return nil, errors.Wrapf(e, "unable to create http request to %s", host)
	}
	util.SetDefaultHeaders(req, c.userAgent)
	req.Header.Set("Content-Type", "application/json")

	res, e := c.hc.Do(req)
	if e != nil {
		hpr.Mark(e)
		return nil, errors.Wrapf(e, "http communication error calling %s at %s", api, host)
	}
	defer res.Body.Close()
	payload, e := io.ReadAll(res.Body)
	if e != nil {
		hpr.Mark(e)
		return nil, errors.Wrapf(e, "failed to read %s response from %s", api, host)
	}

	switch {
	case res.StatusCode == http.StatusTooManyRequests:
		hpr.Mark(nil)
		return nil, &rateLimitError{api: api, status: res.StatusCode, msg: strings.TrimSpace(string(payload))}
	case res.StatusCode >= http.StatusInternalServerError:
		e = errors.Errorf("%s responded http %d", host, res.StatusCode)
		hpr.Mark(e)
		return nil, e
	case res.StatusCode != http.StatusOK:
		hpr.Mark(nil)
		return nil, &APIError{API: api, Status: res.StatusCode, Msg: strings.TrimSpace(string(payload))}
	}
	hpr.Mark(nil)

	r := new(apiResponse)
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	if e = dec.Decode(r); e != nil {
		return nil, &APIError{API: api, Status: res.StatusCode, Msg: fmt.Sprintf("malformed response: %v", e)}
	}
	if r.Code != codeOK {
		if isRateLimited(r.Code, r.Msg) {
			return nil, &rateLimitError{api: api, status: res.StatusCode, msg: r.Msg}
		}
		return nil, &APIError{API: api, Code: r.Code, Status: res.StatusCode, Msg: r.Msg}
	}
	if r.Data == nil {
		return &Table{}, nil
	}
	return r.Data, nil
}

func isRateLimited(code int, msg string) bool {
	if code == codeRateLimited {
		return true
	}
	for _, h := range rateLimitHints {
		if strings.Contains(msg, h) {
			return true
		}
	}
	return false
}
