package fetch

import (
	"fmt"
	"net/url"
	"strings"
	"sync/atomic"
)

// ProxyPool hands out proxies round-robin. It is shared by every source
// task of a run, so the cursor is advanced atomically.
type ProxyPool struct {
	proxies []*url.URL // nil entry = direct connection
	next    atomic.Uint64
}

// NewProxyPool parses raw proxy specs. An empty list yields an empty pool
// whose Next always returns nil.
func NewProxyPool(raw []string) (*ProxyPool, error) {
	p := &ProxyPool{}
	for i, r := range raw {
		if strings.TrimSpace(r) == "" {
			continue
		}
		u, err := ParseProxy(r)
		if err != nil {
			return nil, fmt.Errorf("proxies[%d]: %w", i, err)
		}
		p.proxies = append(p.proxies, u)
	}
	return p, nil
}

// ParseProxy accepts "host:port", "user:pass@host:port" and full URLs with an
// http, https, socks5 or socks5h scheme. "localhost" means no proxy and
// returns (nil, nil).
func ParseProxy(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if strings.EqualFold(raw, "localhost") {
		return nil, nil
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse proxy %q: %w", raw, err)
	}
	switch u.Scheme {
	case "http", "https", "socks5", "socks5h":
	default:
		return nil, fmt.Errorf("unsupported proxy scheme %q", u.Scheme)
	}
	if u.Hostname() == "" || u.Port() == "" {
		return nil, fmt.Errorf("proxy %q needs host:port", raw)
	}
	return u, nil
}

// Next returns the proxy for the next request, or nil for a direct connection.
func (p *ProxyPool) Next() *url.URL {
	if p == nil || len(p.proxies) == 0 {
		return nil
	}
	i := p.next.Add(1) - 1
	return p.proxies[i%uint64(len(p.proxies))]
}

func (p *ProxyPool) Len() int {
	if p == nil {
		return 0
	}
	return len(p.proxies)
}
