package fetch

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultCooldown is how long a host is left alone after it answered 429.
const DefaultCooldown = 30 * time.Second

// HostLimiter paces requests per host (www.linkedin.com, apis.indeed.com, ...)
// and holds back a host that has started refusing us. One instance is shared
// by all source tasks of a process, so a 429 seen by one task slows the rest.
type HostLimiter struct {
	mu       sync.Mutex
	hosts    map[string]*hostState
	r        rate.Limit
	b        int
	cooldown time.Duration
	now      func() time.Time
}

type hostState struct {
	lim   *rate.Limiter
	until time.Time
}

// NewHostLimiter returns nil when reqPerSec <= 0, which disables limiting.
func NewHostLimiter(reqPerSec float64, burst int) *HostLimiter {
	if reqPerSec <= 0 {
		return nil
	}
	return &HostLimiter{
		hosts:    make(map[string]*hostState),
		r:        rate.Limit(reqPerSec),
		b:        max(burst, 1),
		cooldown: DefaultCooldown,
		now:      time.Now,
	}
}

// hostKey folds case and drops the port; "_" stands for unparseable URLs.
func hostKey(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return "_"
	}
	return strings.ToLower(u.Hostname())
}

func (hl *HostLimiter) state(host string) *hostState {
	hl.mu.Lock()
	defer hl.mu.Unlock()
	st, ok := hl.hosts[host]
	if !ok {
		st = &hostState{lim: rate.NewLimiter(hl.r, hl.b)}
		hl.hosts[host] = st
	}
	return st
}

// WaitURL blocks until a request to raw's host may go out: first any
// cooldown, then a token.
func (hl *HostLimiter) WaitURL(ctx context.Context, raw string) error {
	if hl == nil {
		return nil
	}
	st := hl.state(hostKey(raw))

	hl.mu.Lock()
	wait := st.until.Sub(hl.now())
	hl.mu.Unlock()
	if wait > 0 {
		t := time.NewTimer(wait)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	return st.lim.Wait(ctx)
}

// Penalize starts a cooldown for raw's host. Overlapping penalties extend
// it rather than stack.
func (hl *HostLimiter) Penalize(raw string) {
	if hl == nil {
		return
	}
	st := hl.state(hostKey(raw))
	hl.mu.Lock()
	defer hl.mu.Unlock()
	if until := hl.now().Add(hl.cooldown); until.After(st.until) {
		st.until = until
	}
}
