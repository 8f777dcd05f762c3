package scrape

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobagg/internal/domain"
	"jobagg/internal/fetch"
	"jobagg/internal/scrape/types"
)

// fakeAdapter serves scripted pages of entry keys. Page i is returned for
// continuation i; errs[i], when set, replaces that page.
type fakeAdapter struct {
	site  domain.Site
	style types.Style
	pages [][]string
	errs  map[int]error
	bad   map[string]bool // keys whose ParseEntry fails
	panic bool

	fetches atomic.Int32
	starts  []int
}

func (f *fakeAdapter) Site() domain.Site   { return f.site }
func (f *fakeAdapter) Style() types.Style { return f.style }

func (f *fakeAdapter) Start(req domain.ScrapeRequest) types.Continuation {
	if f.style == types.StyleOffset {
		return types.Continuation{Style: f.style, Offset: req.Offset}
	}
	return types.Continuation{Style: f.style}
}

func (f *fakeAdapter) FetchPage(ctx context.Context, _ domain.ScrapeRequest, cont types.Continuation) (types.Page, error) {
	if f.panic {
		panic("boom")
	}
	f.fetches.Add(1)
	i := cont.Page
	if f.style == types.StyleOffset {
		i = cont.Offset
	}
	f.starts = append(f.starts, i)
	if err := f.errs[i]; err != nil {
		return types.Page{}, err
	}
	if err := ctx.Err(); err != nil {
		return types.Page{}, err
	}
	if i >= len(f.pages) {
		return types.Page{}, nil
	}
	var p types.Page
	for _, k := range f.pages[i] {
		p.Entries = append(p.Entries, types.RawEntry{Key: k, Data: k})
	}
	if len(p.Entries) > 0 {
		next := types.Continuation{Style: f.style, Page: i + 1, Offset: i + 1}
		p.Next = &next
	}
	return p, nil
}

func (f *fakeAdapter) ParseEntry(_ context.Context, _ domain.ScrapeRequest, raw types.RawEntry) (*domain.NormalizedJob, error) {
	k := raw.Data.(string)
	if f.bad[k] {
		return nil, fmt.Errorf("bad entry %s", k)
	}
	return &domain.NormalizedJob{
		ID:     k,
		Title:  "Engineer " + k,
		JobURL: "https://" + string(f.site) + ".example/jobs/" + k,
	}, nil
}

func keys(jobs []domain.NormalizedJob) []string {
	out := make([]string, len(jobs))
	for i, j := range jobs {
		out[i] = j.ID
	}
	return out
}

func request(n int) domain.ScrapeRequest {
	return domain.ScrapeRequest{SearchTerm: "go", ResultsWanted: n}.WithDefaults()
}

func TestControllerStopsAtTarget(t *testing.T) {
	a := &fakeAdapter{site: domain.SiteIndeed, style: types.StylePageNumber,
		pages: [][]string{{"a", "b", "c"}, {"d", "e", "f"}, {"g"}}}
	res := NewController(ControllerOptions{}).Run(context.Background(), a, request(4))

	assert.Equal(t, StateDone, res.Stop)
	assert.Equal(t, []string{"a", "b", "c", "d"}, keys(res.Jobs))
	assert.Equal(t, 2, res.Pages)
	assert.NoError(t, res.Err)
	for _, j := range res.Jobs {
		assert.Equal(t, domain.SiteIndeed, j.Site)
		assert.NotEmpty(t, j.WorkMode)
	}
}

func TestControllerExhaustion(t *testing.T) {
	t.Run("last page", func(t *testing.T) {
		a := &fakeAdapter{site: domain.SiteBayt, style: types.StylePageNumber,
			pages: [][]string{{"a", "b"}}}
		res := NewController(ControllerOptions{}).Run(context.Background(), a, request(10))
		assert.Equal(t, StateExhausted, res.Stop)
		assert.Equal(t, []string{"a", "b"}, keys(res.Jobs))
	})

	t.Run("page of repeats", func(t *testing.T) {
		a := &fakeAdapter{site: domain.SiteBayt, style: types.StylePageNumber,
			pages: [][]string{{"a", "b"}, {"b", "a"}, {"c"}}}
		res := NewController(ControllerOptions{}).Run(context.Background(), a, request(10))
		assert.Equal(t, StateExhausted, res.Stop)
		assert.Equal(t, []string{"a", "b"}, keys(res.Jobs))
		assert.EqualValues(t, 2, a.fetches.Load())
	})

	t.Run("deadline keeps partial results", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		a := &fakeAdapter{site: domain.SiteBayt, style: types.StylePageNumber,
			pages: [][]string{{"a"}, {"b"}, {"c"}}}
		c := NewController(ControllerOptions{MinDelay: time.Second, MaxDelay: time.Second})
		go func() {
			time.Sleep(20 * time.Millisecond)
			cancel()
		}()
		res := c.Run(ctx, a, request(10))
		assert.Equal(t, StateExhausted, res.Stop)
		assert.Equal(t, []string{"a"}, keys(res.Jobs))
		assert.NoError(t, res.Err)
	})
}

func TestControllerErrorStates(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want State
	}{
		{"rate limited", fmt.Errorf("indeed search: %w", fetch.ErrRateLimited), StateRateLimited},
		{"blocked", fmt.Errorf("bayt search: %w", fetch.ErrBlocked), StateRateLimited},
		{"transport", errors.New("connection reset"), StateFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := &fakeAdapter{site: domain.SiteIndeed, style: types.StylePageNumber,
				pages: [][]string{{"a", "b"}, {"c"}}, errs: map[int]error{1: tc.err}}
			res := NewController(ControllerOptions{}).Run(context.Background(), a, request(10))
			assert.Equal(t, tc.want, res.Stop)
			assert.ErrorIs(t, res.Err, tc.err)
			assert.Equal(t, []string{"a", "b"}, keys(res.Jobs), "partial results survive")
		})
	}
}

func TestControllerParseErrorsAreSkipped(t *testing.T) {
	a := &fakeAdapter{site: domain.SiteNaukri, style: types.StylePageNumber,
		pages: [][]string{{"a", "x", "b"}, {"x", "c"}}, bad: map[string]bool{"x": true}}
	res := NewController(ControllerOptions{}).Run(context.Background(), a, request(10))

	assert.Equal(t, []string{"a", "b", "c"}, keys(res.Jobs))
	assert.Equal(t, 1, res.ParseErrors, "failed keys are not retried on later pages")
	assert.Equal(t, StateExhausted, res.Stop)
}

func TestControllerOffset(t *testing.T) {
	t.Run("skipped for page sources", func(t *testing.T) {
		a := &fakeAdapter{site: domain.SiteGoogle, style: types.StylePageNumber,
			pages: [][]string{{"a", "b", "c"}, {"d", "e"}}}
		req := request(2)
		req.Offset = 3
		res := NewController(ControllerOptions{}).Run(context.Background(), a, req)
		assert.Equal(t, []string{"d", "e"}, keys(res.Jobs))
		assert.Equal(t, StateDone, res.Stop)
	})

	t.Run("native for offset sources", func(t *testing.T) {
		a := &fakeAdapter{site: domain.SiteLinkedIn, style: types.StyleOffset,
			pages: [][]string{{"a"}, {"b"}, {"c"}}}
		req := request(1)
		req.Offset = 2
		res := NewController(ControllerOptions{}).Run(context.Background(), a, req)
		assert.Equal(t, []string{"c"}, keys(res.Jobs))
		assert.Equal(t, []int{2}, a.starts)
	})
}

func TestPauseHonoursContext(t *testing.T) {
	c := NewController(ControllerOptions{MinDelay: time.Hour, MaxDelay: 2 * time.Hour})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, c.pause(ctx), context.Canceled)

	quick := NewController(ControllerOptions{})
	require.NoError(t, quick.pause(context.Background()))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "rate_limited", StateRateLimited.String())
	assert.Equal(t, "done", StateDone.String())
	assert.Equal(t, "state(42)", State(42).String())
}
