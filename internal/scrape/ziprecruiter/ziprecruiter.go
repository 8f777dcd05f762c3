package ziprecruiter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

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

	sessionDone bool
}

func New(d types.Deps) *Adapter {
	d = d.WithDefaults()
	return &Adapter{
		client: d.Client,
		wire:   d.Wire,
		log:    d.Logger.With(slog.String("site", string(domain.SiteZipRecruiter))),
	}
}

func (a *Adapter) Site() domain.Site { return domain.SiteZipRecruiter }

func (a *Adapter) Style() types.Style { return types.StyleOpaqueCursor }

func (a *Adapter) Start(domain.ScrapeRequest) types.Continuation {
	return types.Continuation{Style: types.StyleOpaqueCursor}
}

// SearchParams maps a request onto the app API's query string.
func SearchParams(req domain.ScrapeRequest, cursor string) url.Values {
	q := url.Values{}
	q.Set("search", req.SearchTerm)
	q.Set("location", req.Location)
	if req.HoursOld > 0 {
		q.Set("days", strconv.Itoa(max(req.HoursOld/24, 1)))
	}
	switch req.JobType {
	case "":
	case domain.JobTypeFullTime:
		q.Set("employment_type", "full_time")
	case domain.JobTypePartTime:
		q.Set("employment_type", "part_time")
	default:
		q.Set("employment_type", string(req.JobType))
	}
	if req.EasyApply {
		q.Set("zipapply", "1")
	}
	if req.IsRemote {
		q.Set("remote", "1")
	}
	if req.Distance > 0 {
		q.Set("radius", strconv.Itoa(req.Distance))
	}
	if cursor != "" {
		q.Set("continue_from", cursor)
	}
	return q
}

// startSession posts the app's session event so the API hands out cookies.
// Failure is not fatal; the search usually works without it.
func (a *Adapter) startSession(ctx context.Context) {
	if a.sessionDone {
		return
	}
	a.sessionDone = true
	body := a.wire.Param("session_body")
	if body == "" {
		return
	}
	h := a.wire.Header()
	h.Set("content-type", "application/x-www-form-urlencoded; charset=utf-8")
	if _, err := a.client.Post(ctx, a.wire.Endpoint("session"), h, []byte(body)); err != nil {
		a.log.Debug("session event failed", slog.Any("err", err))
	}
}

type searchResponse struct {
	Jobs     []json.RawMessage `json:"jobs"`
	Continue string            `json:"continue"`
}

func (a *Adapter) FetchPage(ctx context.Context, req domain.ScrapeRequest, cont types.Continuation) (types.Page, error) {
	a.startSession(ctx)

	u := a.wire.Endpoint("search") + "?" + SearchParams(req, cont.Cursor).Encode()
	res, err := a.client.Get(ctx, u, a.wire.Header())
	if err != nil {
		return types.Page{}, fmt.Errorf("ziprecruiter search: %w", err)
	}

	var sr searchResponse
	if err := json.Unmarshal(res.Body, &sr); err != nil {
		a.log.Warn("unexpected search payload", slog.Any("err", err))
		return types.Page{}, nil
	}

	page := types.Page{}
	for _, raw := range sr.Jobs {
		var head struct {
			ListingKey string `json:"listing_key"`
		}
		_ = json.Unmarshal(raw, &head)
		page.Entries = append(page.Entries, types.RawEntry{
			Key:  util.DedupKey(string(domain.SiteZipRecruiter), head.ListingKey, ""),
			Data: raw,
		})
	}
	if sr.Continue != "" && len(page.Entries) > 0 {
		page.Next = &types.Continuation{Style: types.StyleOpaqueCursor, Cursor: sr.Continue, Page: cont.Page + 1}
	}
	return page, nil
}

type zipJob struct {
	ListingKey     string `json:"listing_key"`
	Name           string `json:"name"`
	JobDescription string `json:"job_description"`
	HiringCompany  struct {
		Name string `json:"name"`
	} `json:"hiring_company"`
	JobCity              string   `json:"job_city"`
	JobState             string   `json:"job_state"`
	JobCountry           string   `json:"job_country"`
	EmploymentType       string   `json:"employment_type"`
	PostedTime           string   `json:"posted_time"`
	CompensationInterval string   `json:"compensation_interval"`
	CompensationMin      *float64 `json:"compensation_min"`
	CompensationMax      *float64 `json:"compensation_max"`
	CompensationCurrency string   `json:"compensation_currency"`
	BuyerType            string   `json:"buyer_type"`
}

func (a *Adapter) ParseEntry(_ context.Context, req domain.ScrapeRequest, raw types.RawEntry) (*domain.NormalizedJob, error) {
	data, ok := raw.Data.(json.RawMessage)
	if !ok {
		return nil, fmt.Errorf("ziprecruiter: unexpected entry %T", raw.Data)
	}
	var j zipJob
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("ziprecruiter decode: %w", err)
	}
	if j.ListingKey == "" || strings.TrimSpace(j.Name) == "" {
		return nil, errors.New("ziprecruiter: job without listing key or title")
	}

	job := &domain.NormalizedJob{
		ID:          util.DedupKey(string(domain.SiteZipRecruiter), j.ListingKey, ""),
		Site:        domain.SiteZipRecruiter,
		Title:       util.CleanText(j.Name),
		Company:     util.CleanText(j.HiringCompany.Name),
		JobURL:      a.wire.Endpoint("job") + "?lvk=" + url.QueryEscape(j.ListingKey),
		Description: normalize.FormatDescription(j.JobDescription, req.Format),
		DatePosted:  normalize.ParseDate(j.PostedTime),
		Location: domain.Location{
			City:    j.JobCity,
			State:   j.JobState,
			Country: domain.CountryCanada,
		},
	}
	// the API only serves the US and Canada
	if strings.EqualFold(j.JobCountry, "US") || strings.EqualFold(j.JobCountry, "USA") {
		job.Location.Country = domain.CountryUSA
	}

	if t, ok := normalize.ParseJobType(j.EmploymentType); ok {
		job.JobTypes = []domain.JobType{t}
	}
	job.Compensation = normalize.CompensationFromRange(j.CompensationMin, j.CompensationMax, j.CompensationInterval, j.CompensationCurrency)
	job.SetExtra("listing_type", j.BuyerType)
	return job, nil
}
