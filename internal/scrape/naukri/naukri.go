package naukri

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

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
		log:    d.Logger.With(slog.String("site", string(domain.SiteNaukri))),
		now:    d.Now,
	}
}

func (a *Adapter) Site() domain.Site { return domain.SiteNaukri }

func (a *Adapter) Style() types.Style { return types.StylePageNumber }

func (a *Adapter) Start(domain.ScrapeRequest) types.Continuation {
	return types.Continuation{Style: types.StylePageNumber, Page: 1}
}

// SearchParams maps a request onto the v3 search API.
func (a *Adapter) SearchParams(req domain.ScrapeRequest, page int) url.Values {
	term := strings.TrimSpace(req.SearchTerm)
	q := url.Values{}
	q.Set("noOfResults", strconv.Itoa(a.pageSize()))
	q.Set("urlType", "search_by_keyword")
	q.Set("searchType", "adv")
	q.Set("keyword", term)
	q.Set("pageNo", strconv.Itoa(page))
	q.Set("k", term)
	q.Set("seoKey", strings.ToLower(strings.Join(strings.Fields(term), "-"))+"-jobs")
	q.Set("src", "jobsearchDesk")
	q.Set("latLong", "")
	if loc := strings.TrimSpace(req.Location); loc != "" {
		q.Set("location", loc)
	}
	if req.IsRemote {
		q.Set("remote", "true")
	}
	if req.HoursOld > 0 {
		q.Set("jobAge", strconv.Itoa(max(req.HoursOld/24, 1)))
	}
	return q
}

func (a *Adapter) pageSize() int {
	if a.wire.PageSize > 0 {
		return a.wire.PageSize
	}
	return 20
}

type searchResponse struct {
	JobDetails []json.RawMessage `json:"jobDetails"`
	NoOfJobs   int               `json:"noOfJobs"`
}

func (a *Adapter) FetchPage(ctx context.Context, req domain.ScrapeRequest, cont types.Continuation) (types.Page, error) {
	page := max(cont.Page, 1)
	u := a.wire.Endpoint("search") + "?" + a.SearchParams(req, page).Encode()
	res, err := a.client.Get(ctx, u, a.wire.Header())
	if err != nil {
		return types.Page{}, fmt.Errorf("naukri search: %w", err)
	}

	var sr searchResponse
	if err := json.Unmarshal(res.Body, &sr); err != nil {
		a.log.Warn("unexpected search payload", slog.Any("err", err))
		return types.Page{}, nil
	}

	out := types.Page{}
	for _, raw := range sr.JobDetails {
		var head struct {
			JobID string `json:"jobId"`
		}
		_ = json.Unmarshal(raw, &head)
		out.Entries = append(out.Entries, types.RawEntry{
			Key:  util.DedupKey(string(domain.SiteNaukri), head.JobID, ""),
			Data: raw,
		})
	}
	if len(out.Entries) == 0 {
		return out, nil
	}
	if sr.NoOfJobs == 0 || page*a.pageSize() < sr.NoOfJobs {
		out.Next = &types.Continuation{Style: types.StylePageNumber, Page: page + 1}
	}
	return out, nil
}

type placeholder struct {
	Type  string `json:"type"`
	Label string `json:"label"`
}

type naukriJob struct {
	JobID                  string        `json:"jobId"`
	Title                  string        `json:"title"`
	CompanyName            string        `json:"companyName"`
	StaticURL              string        `json:"staticUrl"`
	JDURL                  string        `json:"jdURL"`
	JobDescription         string        `json:"jobDescription"`
	CreatedDate            int64         `json:"createdDate"` // ms epoch
	Placeholders           []placeholder `json:"placeholders"`
	FooterPlaceholderLabel string        `json:"footerPlaceholderLabel"`
	TagsAndSkills          string        `json:"tagsAndSkills"`
	ExperienceText         string        `json:"experienceText"`
	Vacancy                int           `json:"vacancy"`
	AmbitionBoxData        *struct {
		AggregateRating string `json:"AggregateRating"`
		ReviewsCount    int    `json:"ReviewsCount"`
	} `json:"ambitionBoxData"`
	LogoPath string `json:"logoPathV3"`
}

func (j naukriJob) placeholder(typ string) string {
	for _, p := range j.Placeholders {
		if p.Type == typ {
			return strings.TrimSpace(p.Label)
		}
	}
	return ""
}

func (a *Adapter) ParseEntry(_ context.Context, req domain.ScrapeRequest, raw types.RawEntry) (*domain.NormalizedJob, error) {
	data, ok := raw.Data.(json.RawMessage)
	if !ok {
		return nil, fmt.Errorf("naukri: unexpected entry %T", raw.Data)
	}
	var j naukriJob
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("naukri decode: %w", err)
	}
	if j.JobID == "" || strings.TrimSpace(j.Title) == "" {
		return nil, errors.New("naukri: job without id or title")
	}

	job := &domain.NormalizedJob{
		ID:          util.DedupKey(string(domain.SiteNaukri), j.JobID, ""),
		Site:        domain.SiteNaukri,
		Title:       util.CleanText(j.Title),
		Company:     util.CleanText(j.CompanyName),
		JobURL:      a.wire.Endpoint("listing") + j.JobID,
		Description: normalize.FormatDescription(j.JobDescription, req.Format),
		Location:    parseLocation(j.placeholder("location")),
	}
	if j.StaticURL != "" {
		job.CompanyURL = util.ResolveURL(a.wire.BaseURL, j.StaticURL)
	}
	if j.JDURL != "" {
		job.JobURL = util.ResolveURL(a.wire.BaseURL, j.JDURL)
	}

	job.DatePosted = normalize.FromEpoch(j.CreatedDate)
	if job.DatePosted == nil {
		job.DatePosted = normalize.ParseRelativeDate(j.FooterPlaceholderLabel, a.now())
	}

	// "Not disclosed" and similar labels fail the parse and stay absent.
	job.Compensation = normalize.ParseCompensation(j.placeholder("salary"))

	job.SetExtra("skills", j.TagsAndSkills)
	job.SetExtra("experience_range", util.FirstNonEmpty(j.ExperienceText, j.placeholder("experience")))
	if j.Vacancy > 0 {
		job.SetExtra("vacancy_count", strconv.Itoa(j.Vacancy))
	}
	if ab := j.AmbitionBoxData; ab != nil {
		job.SetExtra("company_rating", ab.AggregateRating)
		if ab.ReviewsCount > 0 {
			job.SetExtra("company_reviews_count", strconv.Itoa(ab.ReviewsCount))
		}
	}
	job.SetExtra("company_logo", j.LogoPath)

	job.WorkMode = normalize.ClassifyWorkMode(job.Title, job.Description, j.placeholder("location"))
	job.IsRemote = job.WorkMode == domain.WorkModeRemote
	return job, nil
}

// parseLocation reads "City, State" labels. Every listing is in India.
func parseLocation(label string) domain.Location {
	loc := domain.Location{Country: domain.CountryIndia}
	parts := strings.Split(label, ",")
	if city := util.CleanText(parts[0]); city != "" && !normalize.IsRemote("", "", city) {
		loc.City = city
	}
	if len(parts) > 1 {
		loc.State = util.CleanText(parts[1])
	}
	return loc
}
