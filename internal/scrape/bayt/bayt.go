package bayt

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

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
}

func New(d types.Deps) *Adapter {
	d = d.WithDefaults()
	return &Adapter{
		client: d.Client,
		wire:   d.Wire,
		log:    d.Logger.With(slog.String("site", string(domain.SiteBayt))),
	}
}

func (a *Adapter) Site() domain.Site { return domain.SiteBayt }

func (a *Adapter) Style() types.Style { return types.StylePageNumber }

func (a *Adapter) Start(domain.ScrapeRequest) types.Continuation {
	return types.Continuation{Style: types.StylePageNumber, Page: 1}
}

// SearchURL is the international listing for the term, e.g.
// /en/international/jobs/go-developer-jobs/?page=2.
func (a *Adapter) SearchURL(req domain.ScrapeRequest, page int) string {
	slug := strings.ToLower(strings.Join(strings.Fields(req.SearchTerm), "-"))
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	return a.wire.Endpoint("search") + url.PathEscape(slug) + "-jobs/?" + q.Encode()
}

// card is the raw entry: the listing card and its absolute job URL.
type card struct {
	url string
	sel *goquery.Selection
}

func (a *Adapter) FetchPage(ctx context.Context, req domain.ScrapeRequest, cont types.Continuation) (types.Page, error) {
	page := max(cont.Page, 1)
	res, err := a.client.Get(ctx, a.SearchURL(req, page), a.wire.Header())
	if err != nil {
		return types.Page{}, fmt.Errorf("bayt search: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body))
	if err != nil {
		a.log.Warn("unreadable search page", slog.Any("err", err))
		return types.Page{}, nil
	}

	out := types.Page{}
	doc.Find(a.wire.Selector("card")).Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Find(a.wire.Selector("link")).First().Attr("href")
		abs := util.ResolveURL(a.wire.BaseURL, href)
		out.Entries = append(out.Entries, types.RawEntry{
			Key:  util.DedupKey(string(domain.SiteBayt), "", abs),
			Data: card{url: abs, sel: s},
		})
	})
	if len(out.Entries) > 0 {
		out.Next = &types.Continuation{Style: types.StylePageNumber, Page: page + 1}
	}
	return out, nil
}

func (a *Adapter) ParseEntry(ctx context.Context, req domain.ScrapeRequest, raw types.RawEntry) (*domain.NormalizedJob, error) {
	c, ok := raw.Data.(card)
	if !ok {
		return nil, fmt.Errorf("bayt: unexpected entry %T", raw.Data)
	}
	title := util.CleanText(c.sel.Find(a.wire.Selector("title")).First().Text())
	if title == "" || c.url == "" {
		return nil, errors.New("bayt: card without title or link")
	}

	job := &domain.NormalizedJob{
		ID:       raw.Key,
		Site:     domain.SiteBayt,
		Title:    title,
		Company:  util.CleanText(c.sel.Find(a.wire.Selector("company")).First().Text()),
		JobURL:   c.url,
		Location: normalize.ParseLocation(c.sel.Find(a.wire.Selector("location")).First().Text(), ""),
	}
	if job.ID == "" {
		job.ID = util.DedupKey(string(domain.SiteBayt), "", c.url)
	}

	desc, loc, err := a.detail(ctx, c.url)
	if err != nil {
		a.log.Debug("detail skipped", slog.String("url", c.url), slog.Any("err", err))
	}
	job.Description = normalize.FormatDescription(desc, req.Format)
	if job.Location.IsZero() && loc != "" {
		job.Location = normalize.ParseLocation(loc, "")
	}
	return job, nil
}

// detail fetches the posting page for its description and, as a fallback
// for cards without one, its location.
func (a *Adapter) detail(ctx context.Context, jobURL string) (desc, loc string, err error) {
	sel := a.wire.Selector("description")
	if sel == "" {
		return "", "", nil
	}
	res, err := a.client.Get(ctx, jobURL, a.wire.Header())
	if err != nil {
		return "", "", err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body))
	if err != nil {
		return "", "", err
	}
	desc, err = doc.Find(sel).First().Html()
	return desc, util.FindLocation(doc, a.wire.Selector("detail_location")), err
}
