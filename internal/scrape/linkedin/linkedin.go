package linkedin

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strconv"
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
}

func New(d types.Deps) *Adapter {
	d = d.WithDefaults()
	return &Adapter{
		client: d.Client,
		wire:   d.Wire,
		log:    d.Logger.With(slog.String("site", string(domain.SiteLinkedIn))),
	}
}

func (a *Adapter) Site() domain.Site { return domain.SiteLinkedIn }

func (a *Adapter) Style() types.Style { return types.StyleOffset }

// Start begins at the requested offset; the guest API pages by offset natively.
func (a *Adapter) Start(req domain.ScrapeRequest) types.Continuation {
	return types.Continuation{Style: types.StyleOffset, Offset: req.Offset}
}

var jobTypeCodes = map[domain.JobType]string{
	domain.JobTypeFullTime:   "F",
	domain.JobTypePartTime:   "P",
	domain.JobTypeInternship: "I",
	domain.JobTypeContract:   "C",
	domain.JobTypeTemporary:  "T",
}

// SearchParams maps a request onto the guest search filters.
func SearchParams(req domain.ScrapeRequest, offset int) url.Values {
	q := url.Values{}
	q.Set("keywords", req.SearchTerm)
	q.Set("location", req.Location)
	q.Set("distance", strconv.Itoa(req.Distance))
	q.Set("pageNum", "0")
	q.Set("start", strconv.Itoa(offset))
	if req.IsRemote {
		q.Set("f_WT", "2")
	}
	if code := jobTypeCodes[req.JobType]; code != "" {
		q.Set("f_JT", code)
	}
	if req.EasyApply {
		q.Set("f_AL", "true")
	}
	if len(req.LinkedInCompanyIDs) > 0 {
		ids := make([]string, len(req.LinkedInCompanyIDs))
		for i, id := range req.LinkedInCompanyIDs {
			ids[i] = strconv.Itoa(id)
		}
		q.Set("f_C", strings.Join(ids, ","))
	}
	if req.HoursOld > 0 {
		q.Set("f_TPR", fmt.Sprintf("r%d", req.HoursOld*3600))
	}
	return q
}

// card is the raw entry: the listing card plus its native id.
type card struct {
	id  string
	sel *goquery.Selection
}

func (a *Adapter) FetchPage(ctx context.Context, req domain.ScrapeRequest, cont types.Continuation) (types.Page, error) {
	limit := a.wire.MaxOffset
	if limit > 0 && cont.Offset >= limit {
		return types.Page{}, nil
	}

	u := a.wire.Endpoint("search") + "?" + SearchParams(req, cont.Offset).Encode()
	res, err := a.client.Get(ctx, u, a.wire.Header())
	if err != nil {
		return types.Page{}, fmt.Errorf("linkedin search: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body))
	if err != nil {
		a.log.Warn("unreadable search page", slog.Any("err", err))
		return types.Page{}, nil
	}

	var entries []types.RawEntry
	doc.Find(a.wire.Selector("card")).Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Find(a.wire.Selector("link")).First().Attr("href")
		if !ok {
			return
		}
		id := jobIDFromHref(href)
		if id == "" {
			return
		}
		entries = append(entries, types.RawEntry{
			Key:  util.DedupKey(string(domain.SiteLinkedIn), id, ""),
			Data: card{id: id, sel: s},
		})
	})
	if len(entries) == 0 {
		return types.Page{}, nil
	}

	page := types.Page{Entries: entries}
	next := cont.Offset + len(entries)
	if limit <= 0 || next < limit {
		page.Next = &types.Continuation{Style: types.StyleOffset, Offset: next}
	}
	return page, nil
}

// jobIDFromHref takes the trailing number of ".../jobs/view/some-title-3912345678?...".
func jobIDFromHref(href string) string {
	href, _, _ = strings.Cut(href, "?")
	href = strings.TrimRight(href, "/")
	id := href[strings.LastIndexAny(href, "-/")+1:]
	if _, err := strconv.ParseUint(id, 10, 64); err != nil {
		return ""
	}
	return id
}

func (a *Adapter) ParseEntry(ctx context.Context, req domain.ScrapeRequest, raw types.RawEntry) (*domain.NormalizedJob, error) {
	c, ok := raw.Data.(card)
	if !ok {
		return nil, fmt.Errorf("linkedin: unexpected entry %T", raw.Data)
	}
	s := c.sel

	title := util.CleanText(s.Find(a.wire.Selector("title")).First().Text())
	if title == "" {
		return nil, fmt.Errorf("linkedin %s: missing title", c.id)
	}

	company := s.Find(a.wire.Selector("company")).First()
	job := &domain.NormalizedJob{
		ID:       raw.Key,
		Site:     domain.SiteLinkedIn,
		Title:    title,
		Company:  util.CleanText(company.Text()),
		JobURL:   a.wire.Endpoint("view") + c.id,
		Location: normalize.ParseLocation(s.Find(a.wire.Selector("location")).First().Text(), ""),
	}
	if href, ok := company.Attr("href"); ok {
		job.CompanyURL = stripQuery(href)
	}
	if v, ok := s.Find(a.wire.Selector("date")).First().Attr("datetime"); ok {
		if t, err := time.Parse("2006-01-02", strings.TrimSpace(v)); err == nil {
			job.DatePosted = &t
		}
	}
	job.Compensation = parseSalary(s.Find(a.wire.Selector("salary")).First().Text())

	if req.LinkedInFetchDescription {
		if err := a.hydrateJob(ctx, req, job); err != nil {
			a.log.Debug("detail page skipped", slog.String("job", c.id), slog.Any("err", err))
		}
	}
	return job, nil
}

var (
	salaryAmountRe = regexp.MustCompile(`[\d,]+(?:\.\d+)?`)
	applyURLRe     = regexp.MustCompile(`\?url=([^"&]+)`)
)

// parseSalary reads card salaries like "$120,000.00/yr - $150,000.00/yr".
func parseSalary(text string) *domain.Compensation {
	text = util.CleanText(text)
	if text == "" {
		return nil
	}
	lo, hi, ok := strings.Cut(text, "-")
	if !ok {
		hi = lo
	}
	minAmt, maxAmt := amount(lo), amount(hi)
	if minAmt == nil && maxAmt == nil {
		return nil
	}

	currency := "USD"
	switch {
	case strings.HasPrefix(text, "£"):
		currency = "GBP"
	case strings.HasPrefix(text, "€"):
		currency = "EUR"
	case strings.HasPrefix(text, "₹"):
		currency = "INR"
	}

	if _, unit, ok := strings.Cut(lo, "/"); ok {
		if c := normalize.CompensationFromRange(minAmt, maxAmt, unit, currency); c != nil {
			return c
		}
	}
	// no unit on the card: fall back to the magnitude heuristics
	c := normalize.ParseCompensation(strings.ReplaceAll(text, ".00", ""))
	if c != nil {
		c.Currency = currency
	}
	return c
}

func amount(s string) *float64 {
	m := salaryAmountRe.FindString(s)
	if m == "" {
		return nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m, ",", ""), 64)
	if err != nil || v <= 0 {
		return nil
	}
	return domain.Amount(v)
}

func stripQuery(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

// hydrateJob fills description, job criteria and the direct apply URL from
// the job's view page.
func (a *Adapter) hydrateJob(ctx context.Context, req domain.ScrapeRequest, job *domain.NormalizedJob) error {
	res, err := a.client.Get(ctx, job.JobURL, a.wire.Header())
	if err != nil {
		return err
	}
	if marker := a.wire.Param("signup_marker"); marker != "" && strings.Contains(res.URL, marker) {
		return errors.New("redirected to signup")
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body))
	if err != nil {
		return err
	}

	if html, err := doc.Find(a.wire.Selector("description")).First().Html(); err == nil && strings.TrimSpace(html) != "" {
		job.Description = normalize.FormatDescription(html, req.Format)
	}

	doc.Find(a.wire.Selector("criteria_item")).Each(func(_ int, s *goquery.Selection) {
		header := strings.ToLower(util.CleanText(s.Find(a.wire.Selector("criteria_header")).Text()))
		value := util.CleanText(s.Find(a.wire.Selector("criteria_text")).Text())
		switch {
		case strings.Contains(header, "seniority"):
			job.SetExtra("job_level", strings.ToLower(value))
		case strings.Contains(header, "employment type"):
			job.JobTypes = normalize.ParseJobTypes(value)
		case strings.Contains(header, "job function"):
			job.SetExtra("job_function", value)
		case strings.Contains(header, "industr"):
			job.SetExtra("company_industry", value)
		}
	})

	if code, err := doc.Find(a.wire.Selector("apply_url")).First().Html(); err == nil {
		if m := applyURLRe.FindStringSubmatch(code); m != nil {
			if direct, err := url.QueryUnescape(m[1]); err == nil {
				job.JobURLDirect = direct
			}
		}
	}
	return nil
}
