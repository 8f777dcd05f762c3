package google

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"jobagg/internal/domain"
	"jobagg/internal/fetch"
	"jobagg/internal/normalize"
	"jobagg/internal/scrape/types"
	"jobagg/internal/scrape/util"
	"jobagg/internal/scrape/wire"
)

type Adapter struct {
	client *fetch.Client
	wire   wire.Descriptor
	log    *slog.Logger
	now    func() time.Time
}

func New(d types.Deps) *Adapter {
	d = d.WithDefaults()
	return &Adapter{
		client: d.Client,
		wire:   d.Wire,
		log:    d.Logger.With(slog.String("site", string(domain.SiteGoogle))),
		now:    d.Now,
	}
}

func (a *Adapter) Site() domain.Site { return domain.SiteGoogle }

func (a *Adapter) Style() types.Style { return types.StyleOpaqueCursor }

func (a *Adapter) Start(domain.ScrapeRequest) types.Continuation {
	return types.Continuation{Style: types.StyleOpaqueCursor}
}

var jobTypePhrases = map[domain.JobType]string{
	domain.JobTypeFullTime:   "Full time",
	domain.JobTypePartTime:   "Part time",
	domain.JobTypeInternship: "Internship",
	domain.JobTypeContract:   "Contract",
}

// Query builds the free-text search. An explicit Google search term wins
// over everything else.
func Query(req domain.ScrapeRequest) string {
	if t := strings.TrimSpace(req.GoogleSearchTerm); t != "" {
		return t
	}
	var b strings.Builder
	b.WriteString(strings.TrimSpace(req.SearchTerm) + " jobs")
	if p, ok := jobTypePhrases[req.JobType]; ok {
		b.WriteString(" " + p)
	}
	if loc := strings.TrimSpace(req.Location); loc != "" {
		b.WriteString(" near " + loc)
	}
	if req.HoursOld > 0 {
		b.WriteString(" " + timePhrase(req.HoursOld))
	}
	if req.IsRemote {
		b.WriteString(" remote")
	}
	return b.String()
}

func timePhrase(hours int) string {
	switch {
	case hours <= 24:
		return "since yesterday"
	case hours <= 72:
		return "in the last 3 days"
	case hours <= 168:
		return "in the last week"
	default:
		return "in the last month"
	}
}

var asyncCursorRe = regexp.MustCompile(`data-async-fc="([^"]+)"`)

func (a *Adapter) FetchPage(ctx context.Context, req domain.ScrapeRequest, cont types.Continuation) (types.Page, error) {
	var (
		infos  []any
		cursor string
		err    error
	)
	if cont.Cursor == "" {
		infos, cursor, err = a.firstPage(ctx, req)
	} else {
		infos, cursor, err = a.nextPage(ctx, cont.Cursor)
	}
	if err != nil {
		return types.Page{}, err
	}

	page := types.Page{}
	for _, info := range infos {
		id := util.IndexString(info, 28)
		link := util.IndexString(info, 3, 0, 0)
		page.Entries = append(page.Entries, types.RawEntry{
			Key:  util.DedupKey(string(domain.SiteGoogle), id, link),
			Data: info,
		})
	}
	if cursor != "" && len(page.Entries) > 0 {
		page.Next = &types.Continuation{Style: types.StyleOpaqueCursor, Cursor: cursor, Page: cont.Page + 1}
	}
	return page, nil
}

func (a *Adapter) firstPage(ctx context.Context, req domain.ScrapeRequest) ([]any, string, error) {
	q := url.Values{}
	q.Set("q", Query(req))
	q.Set("udm", a.wire.Param("udm"))
	res, err := a.client.Get(ctx, a.wire.Endpoint("search")+"?"+q.Encode(), a.wire.Header())
	if err != nil {
		return nil, "", fmt.Errorf("google search: %w", err)
	}

	var cursor string
	if doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body)); err == nil {
		cursor, _ = doc.Find(a.wire.Selector("cursor")).First().Attr("data-async-fc")
	}
	var infos []any
	for _, v := range util.DecodeAfterMarker(string(res.Body), a.wire.Param("marker")) {
		if util.IsArray(v) {
			infos = append(infos, v)
		}
	}
	if len(infos) == 0 {
		a.log.Warn("no job data on first page")
	}
	return infos, cursor, nil
}

// nextPage reads the async callback payload: an array of [_, jobJSON] pairs
// wrapped in noise, with the following cursor embedded as markup.
func (a *Adapter) nextPage(ctx context.Context, cursor string) ([]any, string, error) {
	q := url.Values{}
	q.Set("fc", cursor)
	q.Set("fcv", "3")
	q.Set("async", a.wire.Param("async"))
	res, err := a.client.Get(ctx, a.wire.Endpoint("next")+"?"+q.Encode(), a.wire.Header())
	if err != nil {
		return nil, "", fmt.Errorf("google next page: %w", err)
	}
	body := string(res.Body)

	var next string
	if m := asyncCursorRe.FindStringSubmatch(body); m != nil {
		next = m[1]
	}

	start, end := strings.Index(body, "[[["), strings.LastIndex(body, "]]]")
	if start < 0 || end < start {
		a.log.Warn("unexpected async payload")
		return nil, "", nil
	}
	var outer []any
	if err := json.Unmarshal([]byte(body[start:end+3]), &outer); err != nil || len(outer) == 0 {
		a.log.Warn("unexpected async payload", slog.Any("err", err))
		return nil, "", nil
	}
	pairs, _ := outer[0].([]any)

	var infos []any
	for _, p := range pairs {
		raw := util.IndexString(p, 1)
		if !strings.HasPrefix(raw, "[[[") {
			continue
		}
		var decoded any
		if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
			continue
		}
		if info, ok := util.FindKey(decoded, a.wire.Param("marker"), util.IsArray); ok {
			infos = append(infos, info)
		}
	}
	return infos, next, nil
}

// ParseEntry maps one job-info array. Descriptions arrive as plain text, so
// the requested format does not apply.
func (a *Adapter) ParseEntry(_ context.Context, _ domain.ScrapeRequest, raw types.RawEntry) (*domain.NormalizedJob, error) {
	info, ok := raw.Data.([]any)
	if !ok {
		return nil, fmt.Errorf("google: unexpected entry %T", raw.Data)
	}
	title := util.CleanText(util.IndexString(info, 0))
	link := util.IndexString(info, 3, 0, 0)
	if title == "" || link == "" {
		return nil, errors.New("google: job without title or link")
	}

	id := raw.Key
	if id == "" {
		id = util.DedupKey(string(domain.SiteGoogle), util.IndexString(info, 28), link)
	}
	locText := util.IndexString(info, 2)
	desc := util.IndexString(info, 19)
	job := &domain.NormalizedJob{
		ID:          id,
		Site:        domain.SiteGoogle,
		Title:       title,
		Company:     util.CleanText(util.IndexString(info, 1)),
		JobURL:      link,
		Location:    normalize.ParseLocation(locText, ""),
		DatePosted:  normalize.ParseRelativeDate(util.IndexString(info, 12), a.now()),
		Description: desc,
	}
	job.IsRemote = normalize.IsRemote(title, desc, locText)
	return job, nil
}
