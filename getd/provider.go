package getd

import (
	"context"
	"time"

	"github.com/carusyte/stockchart/conf"
	"github.com/carusyte/stockchart/global"
	"github.com/carusyte/stockchart/util"
	"github.com/pkg/errors"
	"github.com/ssgreg/repeat"
)

var log = global.Log

//RetryPolicy bounds the retry attempts on rate limited or transient failures.
type RetryPolicy struct {
	MaxTries  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

//Provider fetches daily quotes and resolves stock identifiers through the API.
type Provider struct {
	client *Client
	retry  RetryPolicy
	// invoked before each retry, after the backoff delay has elapsed
	onRetry func(attempt int, cause error)
}

//NewProvider creates a Provider on top of client.
func NewProvider(client *Client, retry RetryPolicy) *Provider {
	if retry.MaxTries < 1 {
		retry.MaxTries = 1
	}
	if retry.BaseDelay < time.Millisecond {
		retry.BaseDelay = time.Millisecond
	}
	if retry.MaxDelay < retry.BaseDelay {
		retry.MaxDelay = retry.BaseDelay
	}
	return &Provider{client: client, retry: retry}
}

//NewDefaultProvider creates a Provider from conf.Args.
func NewDefaultProvider() (*Provider, error) {
	if conf.Args.Tushare.Token == "" {
		return nil, errors.New("tushare token is not set, configure tushare.token or TUSHARE_TOKEN")
	}
	hc, e := util.NewHTTPClient(conf.Args.Network.Proxy,
		time.Duration(conf.Args.Tushare.Timeout)*time.Second)
	if e != nil {
		return nil, e
	}
	c := NewClient(conf.Args.Tushare.Token, conf.Args.Tushare.URLs, hc, conf.Args.Network.DefaultUserAgent)
	return NewProvider(c, RetryPolicy{
		MaxTries:  conf.Args.Retry.MaxTries,
		BaseDelay: conf.Args.Retry.BaseDelay,
		MaxDelay:  conf.Args.Retry.MaxDelay,
	}), nil
}

// call queries the API, backing off and retrying while the call is rate
// limited or the transport fails. API errors stop immediately.
func (p *Provider) call(ctx context.Context, api string, params map[string]string, fields string) (t *Table, e error) {
	var (
		last    error
		limited bool
		tries   int
	)
	op := func(c int) error {
		tries = c + 1
		if c > 0 && p.onRetry != nil {
			p.onRetry(c, last)
		}
		var err error
		t, err = p.client.Query(ctx, api, params, fields)
		if err == nil {
			return nil
		}
		last = err
		var rl *rateLimitError
		var ae *APIError
		switch {
		case errors.As(err, &rl):
			limited = true
			log.Warnf("#%d %s rate limited, backing off: %s", c, api, rl.msg)
			return repeat.HintTemporary(err)
		case errors.As(err, &ae):
			limited = false
			return repeat.HintStop(err)
		case ctx.Err() != nil:
			limited = false
			return repeat.HintStop(err)
		default:
			limited = false
			log.Warnf("#%d %s failed, retrying: %+v", c, api, err)
			return repeat.HintTemporary(err)
		}
	}
	e = repeat.Repeat(
		repeat.FnWithCounter(op),
		repeat.StopOnSuccess(),
		repeat.LimitMaxTries(p.retry.MaxTries),
		repeat.WithDelay(
			repeat.FullJitterBackoff(p.retry.BaseDelay).WithMaxDelay(p.retry.MaxDelay).Set(),
		),
	)
	if e == nil {
		return t, nil
	}
	if last == nil {
		return nil, errors.WithStack(e)
	}
	if limited {
		return nil, &RateLimitExceededError{API: api, Attempts: tries, Err: last}
	}
	return nil, last
}
