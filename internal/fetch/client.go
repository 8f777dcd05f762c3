package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
	DefaultTimeout   = 20 * time.Second

	maxBodyBytes = 16 << 20
)

type Options struct {
	Timeout   time.Duration // per attempt
	Retry     RetryPolicy
	Proxies   *ProxyPool
	Limiter   *HostLimiter
	UserAgent string
	Logger    *slog.Logger
}

type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	URL        string
}

// Client executes one logical request with proxy rotation, per-attempt
// timeout and the retry policy. Each source task owns one Client so cookies
// stay isolated; the proxy pool and host limiter are shared.
type Client struct {
	opts Options
	jar  http.CookieJar
	log  *slog.Logger

	mu      sync.Mutex
	clients map[string]*http.Client // keyed by proxy URL, "" = direct
}

func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = DefaultRetryPolicy()
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	jar, _ := cookiejar.New(nil)
	return &Client{
		opts:    opts,
		jar:     jar,
		log:     log,
		clients: map[string]*http.Client{},
	}
}

// Jar exposes the cookie jar so bootstrap steps can read session tokens.
func (c *Client) Jar() http.CookieJar { return c.jar }

func (c *Client) Get(ctx context.Context, rawURL string, header http.Header) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodGet, URL: rawURL, Header: header})
}

func (c *Client) Post(ctx context.Context, rawURL string, header http.Header, body []byte) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodPost, URL: rawURL, Header: header, Body: body})
}

// Do runs r under the retry policy. Only GET and HEAD are retried, and only
// for network errors or 500/502/503/504. A 429 returns ErrRateLimited at once.
func (c *Client) Do(ctx context.Context, r Request) (*Response, error) {
	method := r.Method
	if method == "" {
		method = http.MethodGet
	}
	idempotent := method == http.MethodGet || method == http.MethodHead

	var (
		resp      *Response
		attempt   int
		permanent bool
	)
	stop := func(err error) error {
		permanent = true
		return backoff.Permanent(err)
	}
	transient := func(err error) error {
		if !idempotent {
			return stop(err)
		}
		return err
	}

	op := func() error {
		attempt++
		res, err := c.once(ctx, method, r)
		if err != nil {
			var perr *backoff.PermanentError
			switch {
			case ctx.Err() != nil:
				return stop(ctx.Err())
			case errors.As(err, &perr):
				return stop(perr.Err)
			}
			return transient(err)
		}

		switch {
		case res.StatusCode == http.StatusTooManyRequests:
			c.opts.Limiter.Penalize(r.URL)
			return stop(&StatusError{StatusCode: res.StatusCode, URL: r.URL, err: ErrRateLimited})
		case looksLikeChallenge(res):
			return stop(&StatusError{StatusCode: res.StatusCode, URL: r.URL, err: ErrBlocked})
		case c.opts.Retry.Retryable(res.StatusCode):
			return transient(&StatusError{StatusCode: res.StatusCode, URL: r.URL, Body: preview(res.Body)})
		case res.StatusCode >= 400:
			return stop(&StatusError{StatusCode: res.StatusCode, URL: r.URL, Body: preview(res.Body)})
		}
		resp = res
		return nil
	}

	notify := func(err error, wait time.Duration) {
		c.log.Debug("retrying request",
			slog.String("url", r.URL),
			slog.Int("attempt", attempt),
			slog.Duration("wait", wait),
			slog.Any("err", err))
	}

	err := backoff.RetryNotify(op, backoff.WithContext(c.opts.Retry.backOff(), ctx), notify)
	switch {
	case err == nil:
		return resp, nil
	case permanent:
		return nil, err
	case ctx.Err() != nil:
		return nil, fmt.Errorf("%s %s: %w", method, r.URL, ctx.Err())
	default:
		return nil, fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, attempt, err)
	}
}

func (c *Client) once(ctx context.Context, method string, r Request) (*Response, error) {
	if err := c.opts.Limiter.WaitURL(ctx, r.URL); err != nil {
		return nil, err
	}

	actx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	var body io.Reader
	if r.Body != nil {
		body = bytes.NewReader(r.Body)
	}
	req, err := http.NewRequestWithContext(actx, method, r.URL, body)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	for k, vs := range r.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.opts.UserAgent)
	}

	proxy := c.opts.Proxies.Next()
	res, err := c.httpClient(proxy).Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	data, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return &Response{
		StatusCode: res.StatusCode,
		Header:     res.Header,
		Body:       data,
		URL:        res.Request.URL.String(),
	}, nil
}

func (c *Client) httpClient(proxy *url.URL) *http.Client {
	key := ""
	if proxy != nil {
		key = proxy.String()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if hc, ok := c.clients[key]; ok {
		return hc
	}

	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.Proxy = nil
	if proxy != nil {
		tr.Proxy = http.ProxyURL(proxy)
	}
	hc := &http.Client{Transport: tr, Jar: c.jar}
	c.clients[key] = hc
	return hc
}

// looksLikeChallenge spots Cloudflare style interstitials served as 403/503.
func looksLikeChallenge(res *Response) bool {
	if res.StatusCode != http.StatusForbidden && res.StatusCode != http.StatusServiceUnavailable {
		return false
	}
	server := strings.ToLower(res.Header.Get("Server"))
	low := strings.ToLower(string(res.Body[:min(len(res.Body), 4096)]))

	if strings.Contains(server, "cloudflare") && res.Header.Get("CF-RAY") != "" {
		return true
	}
	return strings.Contains(low, "/cdn-cgi/challenge") ||
		(strings.Contains(low, "cloudflare") && strings.Contains(low, "checking your browser")) ||
		(strings.Contains(low, "attention required") && strings.Contains(low, "cloudflare"))
}

func preview(b []byte) string {
	s := strings.ReplaceAll(string(b), "\n", " ")
	return truncate(strings.TrimSpace(s), 240)
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}
