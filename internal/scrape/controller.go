package scrape

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"jobagg/internal/domain"
	"jobagg/internal/fetch"
	"jobagg/internal/normalize"
	"jobagg/internal/scrape/types"
	"jobagg/internal/scrape/util"
)

// State is a step of one source's pagination loop.
type State int

const (
	StateStart State = iota
	StateFetching
	StateAccepting
	StateExhausted
	StateRateLimited
	StateFailed
	StateDone
)

func (s State) String() string {
	switch s {
	case StateStart:
		return "start"
	case StateFetching:
		return "fetching"
	case StateAccepting:
		return "accepting"
	case StateExhausted:
		return "exhausted"
	case StateRateLimited:
		return "rate_limited"
	case StateFailed:
		return "failed"
	case StateDone:
		return "done"
	}
	return fmt.Sprintf("state(%d)", s)
}

type ControllerOptions struct {
	// Courtesy delay between pages, drawn uniformly from [MinDelay, MaxDelay].
	MinDelay time.Duration
	MaxDelay time.Duration

	Salary normalize.SalaryHeuristics
	Logger *slog.Logger
}

// Controller drives one adapter until the target is met or the source stops
// producing. It holds no per-run state and can be shared across tasks.
type Controller struct {
	opts ControllerOptions
	log  *slog.Logger
}

func NewController(opts ControllerOptions) *Controller {
	if opts.MaxDelay < opts.MinDelay {
		opts.MaxDelay = opts.MinDelay
	}
	if opts.Salary == (normalize.SalaryHeuristics{}) {
		opts.Salary = normalize.DefaultSalaryHeuristics()
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Controller{opts: opts, log: log}
}

// Result is what one source produced. Stop is the terminal reason:
// done, exhausted, rate_limited or failed. Jobs are kept in every case.
type Result struct {
	Site        domain.Site
	Jobs        []domain.NormalizedJob
	Stop        State
	Err         error
	Pages       int
	ParseErrors int
}

// paginationState is local to one Run.
type paginationState struct {
	seen map[string]struct{}
	cont types.Continuation
	skip int
}

func (p *paginationState) isSeen(key string) bool {
	if key == "" {
		return false
	}
	_, ok := p.seen[key]
	return ok
}

func (p *paginationState) markSeen(keys ...string) {
	for _, k := range keys {
		if k != "" {
			p.seen[k] = struct{}{}
		}
	}
}

// Run pages through a until ResultsWanted jobs are accepted or the source
// ends. Offset-style adapters start at req.Offset themselves; for the other
// styles the first req.Offset unique entries are skipped here.
func (c *Controller) Run(ctx context.Context, a types.Adapter, req domain.ScrapeRequest) Result {
	site := a.Site()
	log := c.log.With(slog.String("site", string(site)))
	res := Result{Site: site, Stop: StateStart}

	ps := &paginationState{
		seen: map[string]struct{}{},
		cont: a.Start(req),
	}
	if a.Style() != types.StyleOffset {
		ps.skip = req.Offset
	}
	target := req.ResultsWanted

	state := StateFetching
	for state == StateFetching {
		if len(res.Jobs) >= target {
			state = StateDone
			break
		}
		if ctx.Err() != nil {
			state = StateExhausted
			break
		}

		page, err := a.FetchPage(ctx, req, ps.cont)
		if err != nil {
			state = classifyFetchError(ctx, err)
			if state != StateExhausted {
				res.Err = err
			}
			log.Warn("fetch stopped", slog.String("state", state.String()),
				slog.String("at", ps.cont.String()), slog.Any("err", err))
			break
		}
		res.Pages++

		state = StateAccepting
		fresh := 0
		for _, entry := range page.Entries {
			if len(res.Jobs) >= target {
				break
			}
			if ps.isSeen(entry.Key) {
				continue
			}
			job, err := a.ParseEntry(ctx, req, entry)
			if err != nil {
				res.ParseErrors++
				ps.markSeen(entry.Key)
				log.Debug("entry skipped", slog.String("key", entry.Key), slog.Any("err", err))
				continue
			}
			if job == nil {
				ps.markSeen(entry.Key)
				continue
			}

			key := util.FirstNonEmpty(job.ID, entry.Key)
			if key == "" {
				key = util.DedupKey(string(site), "", job.JobURL)
			}
			if ps.isSeen(key) {
				ps.markSeen(entry.Key)
				continue
			}
			ps.markSeen(key, entry.Key)
			fresh++

			if ps.skip > 0 {
				ps.skip--
				continue
			}
			job.ID = key
			if job.Site == "" {
				job.Site = site
			}
			normalize.Enrich(job, req, c.opts.Salary)
			res.Jobs = append(res.Jobs, *job)
		}
		log.Debug("page accepted",
			slog.String("at", ps.cont.String()),
			slog.Int("entries", len(page.Entries)),
			slog.Int("fresh", fresh),
			slog.Int("total", len(res.Jobs)))

		switch {
		case len(res.Jobs) >= target:
			state = StateDone
		case fresh == 0, page.Next == nil:
			state = StateExhausted
		default:
			ps.cont = *page.Next
			if err := c.pause(ctx); err != nil {
				state = StateExhausted
			} else {
				state = StateFetching
			}
		}
	}

	res.Stop = state
	log.Info("source finished",
		slog.String("state", state.String()),
		slog.Int("jobs", len(res.Jobs)),
		slog.Int("pages", res.Pages),
		slog.Int("parse_errors", res.ParseErrors))
	return res
}

// classifyFetchError maps a page failure onto the terminal state. Running
// out of time keeps whatever was collected, like a natural end.
func classifyFetchError(ctx context.Context, err error) State {
	switch {
	case ctx.Err() != nil, errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return StateExhausted
	case fetch.IsRateLimited(err):
		return StateRateLimited
	default:
		return StateFailed
	}
}

// pause sleeps a random courtesy delay, returning early if ctx ends.
func (c *Controller) pause(ctx context.Context) error {
	d := c.opts.MinDelay
	if span := c.opts.MaxDelay - c.opts.MinDelay; span > 0 {
		d += time.Duration(rand.Int64N(int64(span) + 1))
	}
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
