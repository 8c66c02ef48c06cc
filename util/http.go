package util

import (
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/net/proxy"
)

//NewHTTPClient creates an http client with the given timeout.
//proxyAddr is optional and takes the form of socks5://host:port or http(s)://host:port.
func NewHTTPClient(proxyAddr string, timeout time.Duration) (*http.Client, error) {
	if proxyAddr == "" {
		return &http.Client{Timeout: timeout}, nil
	}
	pu, e := url.Parse(proxyAddr)
	if e != nil {
		return nil, errors.Wrapf(e, "invalid proxy: %s", proxyAddr)
	}
	switch pu.Scheme {
	case "socks5", "socks5h":
		var auth *proxy.Auth
		if pu.User != nil {
			pwd, _ := pu.User.Password()
			auth = &proxy.Auth{User: pu.User.Username(), Password: pwd}
		}
		forward := &net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}
		dialer, e := proxy.SOCKS5("tcp", pu.Host, auth, forward)
		if e != nil {
			log.Warnf("can't create socks5 proxy dialer: %+v", e)
			return nil, errors.WithStack(e)
		}
		return &http.Client{
			Timeout:   timeout,
			Transport: &http.Transport{Dial: dialer.Dial},
		}, nil
	case "http", "https":
		return &http.Client{
			Timeout:   timeout,
			Transport: &http.Transport{Proxy: http.ProxyURL(pu)},
		}, nil
	default:
		return nil, errors.Errorf("unsupported proxy: %s", proxyAddr)
	}
}

//SetDefaultHeaders sets headers common to all outgoing API requests.
func SetDefaultHeaders(req *http.Request, userAgent string) {
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Accept-Language", "zh-CN,zh;q=0.9,en-US;q=0.8,en;q=0.7")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")
	if len(req.Header.Get("User-Agent")) == 0 && userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
}
