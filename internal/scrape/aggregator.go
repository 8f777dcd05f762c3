package scrape

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"jobagg/internal/domain"
	"jobagg/internal/events"
	"jobagg/internal/fetch"
	"jobagg/internal/scrape/types"
	"jobagg/internal/scrape/util"
	"jobagg/internal/scrape/wire"
)

// Publisher receives rendered progress events. *events.Hub satisfies it.
type Publisher interface {
	Publish(evt string)
}

const DefaultSourceTimeout = 3 * time.Minute

type Options struct {
	Registry Registry
	Wire     wire.Set

	// Fetch is the template for every source's client. Proxies come from
	// the request when it names any.
	Fetch fetch.Options

	Controller    ControllerOptions
	SourceTimeout time.Duration
	Publisher     Publisher
	Logger        *slog.Logger
	Now           func() time.Time
}

// Aggregator runs every requested source concurrently and merges the results
// into one batch.
type Aggregator struct {
	opts Options
	ctrl *Controller
	log  *slog.Logger

	mu     sync.Mutex
	status map[domain.Site]types.SourceStatus
}

func NewAggregator(opts Options) *Aggregator {
	if opts.Registry == nil {
		opts.Registry = DefaultRegistry()
	}
	if opts.Wire == nil {
		opts.Wire = wire.MustDefault()
	}
	if opts.SourceTimeout <= 0 {
		opts.SourceTimeout = DefaultSourceTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Controller.Logger == nil {
		opts.Controller.Logger = opts.Logger
	}
	return &Aggregator{
		opts:   opts,
		ctrl:   NewController(opts.Controller),
		log:    opts.Logger,
		status: map[domain.Site]types.SourceStatus{},
	}
}

// SourceReport summarises one source's part in a batch.
type SourceReport struct {
	Site        domain.Site   `json:"site"`
	State       string        `json:"state"`
	Jobs        int           `json:"jobs"`
	Pages       int           `json:"pages"`
	ParseErrors int           `json:"parse_errors"`
	Error       string        `json:"error,omitempty"`
	Elapsed     time.Duration `json:"elapsed"`
}

type Batch struct {
	ID         string                 `json:"id"`
	Request    domain.ScrapeRequest   `json:"request"`
	Jobs       []domain.NormalizedJob `json:"jobs"`
	Sources    []SourceReport         `json:"sources"`
	StartedAt  time.Time              `json:"started_at"`
	FinishedAt time.Time              `json:"finished_at"`
}

// Scrape runs one aggregation and returns the merged jobs. The only error is
// an invalid request; source failures show up as missing results.
func (a *Aggregator) Scrape(ctx context.Context, req domain.ScrapeRequest) ([]domain.NormalizedJob, error) {
	b, err := a.Run(ctx, req)
	if err != nil {
		return nil, err
	}
	return b.Jobs, nil
}

// Run is Scrape with the batch metadata.
func (a *Aggregator) Run(ctx context.Context, req domain.ScrapeRequest) (*Batch, error) {
	req = req.WithDefaults()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	pool := a.opts.Fetch.Proxies
	if len(req.Proxies) > 0 {
		p, err := fetch.NewProxyPool(req.Proxies)
		if err != nil {
			return nil, &domain.ValidationError{Field: "proxies", Reason: err.Error()}
		}
		pool = p
	}

	b := &Batch{ID: uuid.NewString(), Request: req, StartedAt: a.opts.Now().UTC()}
	log := a.log.With(slog.String("run", b.ID))
	sites := make([]string, len(req.Sites))
	for i, s := range req.Sites {
		sites[i] = string(s)
	}
	a.publish(b.ID, events.TypeRunStarted, events.RunProgress{Sites: sites})
	log.Info("run started", slog.Any("sites", sites), slog.String("term", req.SearchTerm))

	results := make([]Result, len(req.Sites))
	elapsed := make([]time.Duration, len(req.Sites))
	var g errgroup.Group
	for i, site := range req.Sites {
		g.Go(func() error {
			start := time.Now()
			results[i] = a.runSource(ctx, b.ID, site, req, pool)
			elapsed[i] = time.Since(start)
			return nil // a failing source never cancels its siblings
		})
	}
	_ = g.Wait()

	for i, r := range results {
		rep := SourceReport{
			Site:        r.Site,
			State:       r.Stop.String(),
			Jobs:        len(r.Jobs),
			Pages:       r.Pages,
			ParseErrors: r.ParseErrors,
			Elapsed:     elapsed[i],
		}
		if r.Err != nil {
			rep.Error = r.Err.Error()
		}
		b.Sources = append(b.Sources, rep)
	}

	b.Jobs = Merge(results, req)
	b.FinishedAt = a.opts.Now().UTC()
	a.publish(b.ID, events.TypeRunFinished, events.RunProgress{Sites: sites, Jobs: len(b.Jobs)})
	log.Info("run finished", slog.Int("jobs", len(b.Jobs)), slog.Duration("took", b.FinishedAt.Sub(b.StartedAt)))
	return b, nil
}

// runSource runs one source under its own deadline. Panics are contained
// and reported as a failed source.
func (a *Aggregator) runSource(ctx context.Context, runID string, site domain.Site, req domain.ScrapeRequest, pool *fetch.ProxyPool) (res Result) {
	log := a.log.With(slog.String("run", runID), slog.String("site", string(site)))
	started := a.opts.Now().UTC()
	a.markRunning(site, started)
	a.publish(runID, events.TypeSourceStarted, events.SourceProgress{Site: string(site)})

	defer func() {
		if p := recover(); p != nil {
			log.Error("source panicked", slog.Any("panic", p), slog.String("stack", string(debug.Stack())))
			res = Result{Site: site, Stop: StateFailed, Err: fmt.Errorf("panic: %v", p)}
		}
		a.markFinished(site, res)
		prog := events.SourceProgress{
			Site:      string(site),
			State:     res.Stop.String(),
			Jobs:      len(res.Jobs),
			Pages:     res.Pages,
			ElapsedMS: a.opts.Now().Sub(started).Milliseconds(),
		}
		if res.Err != nil {
			prog.Error = res.Err.Error()
		}
		a.publish(runID, events.TypeSourceFinished, prog)
	}()

	sctx, cancel := context.WithTimeout(ctx, a.opts.SourceTimeout)
	defer cancel()

	fo := a.opts.Fetch
	fo.Proxies = pool
	fo.Logger = log
	if req.UserAgent != "" {
		fo.UserAgent = req.UserAgent
	}
	adapter, err := a.opts.Registry.Build(site, types.Deps{
		Client: fetch.New(fo),
		Wire:   a.opts.Wire[site],
		Logger: log,
		Now:    a.opts.Now,
	})
	if err != nil {
		return Result{Site: site, Stop: StateFailed, Err: err}
	}
	return a.ctrl.Run(sctx, adapter, req)
}

// Merge concatenates per-source jobs, optionally drops cross-source
// duplicates by canonical job URL, sorts by site then newest first with
// undated jobs last, and truncates to ResultsWanted.
func Merge(results []Result, req domain.ScrapeRequest) []domain.NormalizedJob {
	var out []domain.NormalizedJob
	seen := map[string]struct{}{}
	for _, r := range results {
		for _, j := range r.Jobs {
			if req.DedupAcrossSources {
				key := util.CanonicalURL(j.JobURL)
				if key == "" {
					key = j.ID
				}
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}
			}
			out = append(out, j)
		}
	}

	slices.SortStableFunc(out, func(x, y domain.NormalizedJob) int {
		if c := cmp.Compare(x.Site, y.Site); c != 0 {
			return c
		}
		switch {
		case x.DatePosted == nil && y.DatePosted == nil:
			return 0
		case x.DatePosted == nil:
			return 1
		case y.DatePosted == nil:
			return -1
		}
		return y.DatePosted.Compare(*x.DatePosted)
	})

	if req.ResultsWanted >= 0 && len(out) > req.ResultsWanted {
		out = out[:req.ResultsWanted]
	}
	return out
}

func (a *Aggregator) publish(runID, typ string, data any) {
	if a.opts.Publisher == nil {
		return
	}
	a.opts.Publisher.Publish(events.MakeEvent(runID, typ, events.Version, data))
}

func (a *Aggregator) markRunning(site domain.Site, at time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	st := a.status[site]
	st.Site = site
	st.Running = true
	st.LastRunAt = at.Format(time.RFC3339)
	a.status[site] = st
}

func (a *Aggregator) markFinished(site domain.Site, res Result) {
	a.mu.Lock()
	defer a.mu.Unlock()
	st := a.status[site]
	st.Site = site
	st.Running = false
	st.LastAdded = len(res.Jobs)
	if res.Err != nil {
		st.LastError = res.Err.Error()
	} else {
		st.LastError = ""
		st.LastOkAt = a.opts.Now().UTC().Format(time.RFC3339)
	}
	a.status[site] = st
}

// Status returns the last known state of every source that has run.
func (a *Aggregator) Status() []types.SourceStatus {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]types.SourceStatus, 0, len(a.status))
	for _, st := range a.status {
		out = append(out, st)
	}
	slices.SortFunc(out, func(x, y types.SourceStatus) int { return cmp.Compare(x.Site, y.Site) })
	return out
}
