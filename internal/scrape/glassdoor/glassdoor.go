package glassdoor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
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

// Adapter pages Glassdoor's GraphQL search. It holds the session token and
// the resolved location for the run it was built for.
type Adapter struct {
	client *fetch.Client
	wire   wire.Descriptor
	log    *slog.Logger
	now    func() time.Time

	base    string
	token   string
	loc     *searchLocation
	started bool
}

type searchLocation struct {
	ID   int64
	Type string
}

func New(d types.Deps) *Adapter {
	d = d.WithDefaults()
	return &Adapter{
		client: d.Client,
		wire:   d.Wire,
		log:    d.Logger.With(slog.String("site", string(domain.SiteGlassdoor))),
		now:    d.Now,
	}
}

func (a *Adapter) Site() domain.Site { return domain.SiteGlassdoor }

func (a *Adapter) Style() types.Style { return types.StyleOpaqueCursor }

// Start is page 1 with no cursor; later pages need the cursor the previous
// response handed out.
func (a *Adapter) Start(domain.ScrapeRequest) types.Continuation {
	return types.Continuation{Style: types.StyleOpaqueCursor, Page: 1}
}

var errNoLocation = errors.New("location not recognised")

// session resolves the host, CSRF token and location once per run.
func (a *Adapter) session(ctx context.Context, req domain.ScrapeRequest) error {
	if a.started {
		if a.loc == nil {
			return errNoLocation
		}
		return nil
	}
	a.started = true

	a.base = a.wire.BaseURL
	if a.base == "" {
		info, ok := domain.LookupCountry(req.CountryCode())
		if !ok || !info.SupportsGlassdoor() {
			return fmt.Errorf("glassdoor is not available for %q", req.Country)
		}
		a.base = "https://" + info.GlassdoorHost()
	}

	token, err := a.fetchToken(ctx)
	if err != nil {
		if fetch.IsRateLimited(err) {
			return err
		}
		a.log.Debug("csrf bootstrap failed, using fallback token", slog.Any("err", err))
	}
	if token == "" {
		token = a.wire.Param("fallback_token")
	}
	a.token = token

	loc, err := a.lookupLocation(ctx, req)
	if err != nil {
		return err
	}
	a.loc = loc
	if a.loc == nil {
		return errNoLocation
	}
	return nil
}

func (a *Adapter) fetchToken(ctx context.Context) (string, error) {
	res, err := a.client.Get(ctx, a.wire.EndpointAt(a.base, "bootstrap"), a.wire.Header())
	if err != nil {
		return "", err
	}
	re, err := regexp.Compile(a.wire.Param("token_pattern"))
	if err != nil {
		return "", fmt.Errorf("token pattern: %w", err)
	}
	if m := re.FindSubmatch(res.Body); len(m) > 1 {
		return string(m[1]), nil
	}
	return "", nil
}

var locationTypes = map[string]string{"C": "CITY", "S": "STATE", "N": "COUNTRY"}

func (a *Adapter) lookupLocation(ctx context.Context, req domain.ScrapeRequest) (*searchLocation, error) {
	term := strings.TrimSpace(req.Location)
	if term == "" || req.IsRemote {
		id, _ := strconv.ParseInt(a.wire.Param("remote_location_id"), 10, 64)
		return &searchLocation{ID: id, Type: a.wire.Param("remote_location_type")}, nil
	}

	q := url.Values{}
	q.Set("maxLocationsToReturn", "10")
	q.Set("term", term)
	res, err := a.client.Get(ctx, a.wire.EndpointAt(a.base, "location")+"?"+q.Encode(), a.wire.Header())
	if err != nil {
		return nil, fmt.Errorf("glassdoor location: %w", err)
	}

	var items []struct {
		LocationID   int64  `json:"locationId"`
		LocationType string `json:"locationType"`
	}
	if err := json.Unmarshal(res.Body, &items); err != nil || len(items) == 0 {
		a.log.Warn("location lookup returned nothing", slog.String("location", term), slog.Any("err", err))
		return nil, nil
	}
	typ, ok := locationTypes[items[0].LocationType]
	if !ok {
		typ = items[0].LocationType
	}
	return &searchLocation{ID: items[0].LocationID, Type: typ}, nil
}

func (a *Adapter) header() http.Header {
	h := a.wire.Header()
	h.Set("gd-csrf-token", a.token)
	h.Set("origin", a.base)
	h.Set("referer", a.base+"/")
	return h
}

type filterParam struct {
	FilterKey string `json:"filterKey"`
	Values    string `json:"values"`
}

// SearchPayload is the single-operation batch body for one result page.
func (a *Adapter) SearchPayload(req domain.ScrapeRequest, cont types.Continuation) ([]byte, error) {
	loc := a.loc
	if loc == nil {
		loc = &searchLocation{}
	}

	filters := []filterParam{}
	if req.EasyApply {
		filters = append(filters, filterParam{"applicationType", "1"})
	}
	var fromAge any
	if req.HoursOld > 0 {
		days := max(req.HoursOld/24, 1)
		fromAge = days
		filters = append(filters, filterParam{"fromAge", strconv.Itoa(days)})
	}
	if req.JobType != "" {
		filters = append(filters, filterParam{"jobType", string(req.JobType)})
	}

	var cursor any
	if cont.Cursor != "" {
		cursor = cont.Cursor
	}

	op := map[string]any{
		"operationName": "JobSearchResultsQuery",
		"variables": map[string]any{
			"excludeJobListingIds": []int64{},
			"filterParams":         filters,
			"keyword":              req.SearchTerm,
			"numJobsToShow":        a.pageSize(),
			"locationType":         loc.Type,
			"locationId":           loc.ID,
			"parameterUrlInput":    fmt.Sprintf("IL.0,12_I%s%d", locationCode(loc.Type), loc.ID),
			"pageNumber":           cont.Page,
			"pageCursor":           cursor,
			"fromage":              fromAge,
			"sort":                 "date",
		},
		"query": a.wire.Query,
	}
	return json.Marshal([]any{op})
}

// locationCode is the one-letter form used in parameterUrlInput.
func locationCode(t string) string {
	switch t {
	case "CITY":
		return "C"
	case "STATE":
		return "S"
	case "COUNTRY":
		return "N"
	}
	return ""
}

func (a *Adapter) pageSize() int {
	if a.wire.PageSize > 0 {
		return a.wire.PageSize
	}
	return 30
}

type searchResponse []struct {
	Data *struct {
		JobListings struct {
			JobListings []struct {
				Jobview json.RawMessage `json:"jobview"`
			} `json:"jobListings"`
			PaginationCursors []struct {
				Cursor     string `json:"cursor"`
				PageNumber int    `json:"pageNumber"`
			} `json:"paginationCursors"`
		} `json:"jobListings"`
	} `json:"data"`
	Errors []json.RawMessage `json:"errors"`
}

func (a *Adapter) FetchPage(ctx context.Context, req domain.ScrapeRequest, cont types.Continuation) (types.Page, error) {
	if limit := a.wire.MaxOffset; limit > 0 && (cont.Page-1)*a.pageSize() >= limit {
		return types.Page{}, nil
	}
	if err := a.session(ctx, req); err != nil {
		if errors.Is(err, errNoLocation) {
			return types.Page{}, nil
		}
		return types.Page{}, err
	}

	body, err := a.SearchPayload(req, cont)
	if err != nil {
		return types.Page{}, err
	}
	res, err := a.client.Post(ctx, a.wire.EndpointAt(a.base, "graphql"), a.header(), body)
	if err != nil {
		return types.Page{}, fmt.Errorf("glassdoor search: %w", err)
	}

	var sr searchResponse
	if err := json.Unmarshal(res.Body, &sr); err != nil || len(sr) == 0 || sr[0].Data == nil || len(sr[0].Errors) > 0 {
		a.log.Warn("unexpected search payload", slog.Any("err", err))
		return types.Page{}, nil
	}
	listings := sr[0].Data.JobListings

	page := types.Page{}
	for _, l := range listings.JobListings {
		var head struct {
			Job struct {
				ListingID int64 `json:"listingId"`
			} `json:"job"`
		}
		_ = json.Unmarshal(l.Jobview, &head)
		id := ""
		if head.Job.ListingID != 0 {
			id = strconv.FormatInt(head.Job.ListingID, 10)
		}
		page.Entries = append(page.Entries, types.RawEntry{
			Key:  util.DedupKey(string(domain.SiteGlassdoor), id, ""),
			Data: l.Jobview,
		})
	}
	if len(page.Entries) == 0 {
		return page, nil
	}
	for _, c := range listings.PaginationCursors {
		if c.PageNumber == cont.Page+1 && c.Cursor != "" {
			page.Next = &types.Continuation{Style: types.StyleOpaqueCursor, Page: c.PageNumber, Cursor: c.Cursor}
			break
		}
	}
	return page, nil
}

type jobview struct {
	Header struct {
		AdOrderSponsorshipLevel string `json:"adOrderSponsorshipLevel"`
		AgeInDays               *int   `json:"ageInDays"`
		EasyApply               bool   `json:"easyApply"`
		Employer                struct {
			ID   int64  `json:"id"`
			Name string `json:"name"`
		} `json:"employer"`
		EmployerNameFromSearch string `json:"employerNameFromSearch"`
		LocationName           string `json:"locationName"`
		LocationType           string `json:"locationType"`
		PayCurrency            string `json:"payCurrency"`
		PayPeriod              string `json:"payPeriod"`
		PayPeriodAdjustedPay   *struct {
			P10 *float64 `json:"p10"`
			P90 *float64 `json:"p90"`
		} `json:"payPeriodAdjustedPay"`
		Rating float64 `json:"rating"`
	} `json:"header"`
	Job struct {
		JobTitleText string `json:"jobTitleText"`
		ListingID    int64  `json:"listingId"`
	} `json:"job"`
	Overview struct {
		SquareLogoURL string `json:"squareLogoUrl"`
	} `json:"overview"`
}

func (a *Adapter) ParseEntry(ctx context.Context, req domain.ScrapeRequest, raw types.RawEntry) (*domain.NormalizedJob, error) {
	data, ok := raw.Data.(json.RawMessage)
	if !ok {
		return nil, fmt.Errorf("glassdoor: unexpected entry %T", raw.Data)
	}
	var v jobview
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("glassdoor decode: %w", err)
	}
	if v.Job.ListingID == 0 || strings.TrimSpace(v.Job.JobTitleText) == "" {
		return nil, errors.New("glassdoor: listing without id or title")
	}
	id := strconv.FormatInt(v.Job.ListingID, 10)
	h := v.Header

	job := &domain.NormalizedJob{
		ID:      util.DedupKey(string(domain.SiteGlassdoor), id, ""),
		Site:    domain.SiteGlassdoor,
		Title:   util.CleanText(v.Job.JobTitleText),
		Company: util.CleanText(util.FirstNonEmpty(h.EmployerNameFromSearch, h.Employer.Name)),
		JobURL:  a.base + "/job-listing/j?jl=" + id,
	}
	if h.Employer.ID != 0 {
		job.CompanyURL = fmt.Sprintf("%s/Overview/W-EI_IE%d.htm", a.base, h.Employer.ID)
	}

	// "S" marks the listing's location as a remote placeholder.
	if h.LocationType == "S" {
		job.IsRemote = true
		job.WorkMode = domain.WorkModeRemote
	} else {
		job.Location = normalize.ParseLocation(h.LocationName, "")
	}

	if h.AgeInDays != nil {
		d := a.now().UTC().Truncate(24*time.Hour).AddDate(0, 0, -*h.AgeInDays)
		job.DatePosted = &d
	}
	if p := h.PayPeriodAdjustedPay; p != nil {
		job.Compensation = normalize.CompensationFromRange(p.P10, p.P90, h.PayPeriod, h.PayCurrency)
	}

	if h.Rating > 0 {
		job.SetExtra("company_rating", strconv.FormatFloat(h.Rating, 'f', 1, 64))
	}
	if h.EasyApply {
		job.SetExtra("easy_apply", "true")
	}
	job.SetExtra("listing_type", strings.ToLower(h.AdOrderSponsorshipLevel))
	job.SetExtra("company_logo", v.Overview.SquareLogoURL)

	desc, err := a.description(ctx, v.Job.ListingID)
	if err != nil {
		a.log.Debug("description skipped", slog.String("job", id), slog.Any("err", err))
	}
	job.Description = normalize.FormatDescription(desc, req.Format)
	return job, nil
}

func (a *Adapter) description(ctx context.Context, listingID int64) (string, error) {
	if a.wire.DetailQuery == "" {
		return "", nil
	}
	body, err := json.Marshal([]any{map[string]any{
		"operationName": "JobDetailQuery",
		"variables": map[string]any{
			"jl":           listingID,
			"queryString":  "q",
			"pageTypeEnum": "SERP",
		},
		"query": a.wire.DetailQuery,
	}})
	if err != nil {
		return "", err
	}
	res, err := a.client.Post(ctx, a.wire.EndpointAt(a.base, "graphql"), a.header(), body)
	if err != nil {
		return "", err
	}
	var out []struct {
		Data struct {
			Jobview struct {
				Job struct {
					Description string `json:"description"`
				} `json:"job"`
			} `json:"jobview"`
		} `json:"data"`
	}
	if err := json.Unmarshal(res.Body, &out); err != nil {
		return "", fmt.Errorf("detail payload: %w", err)
	}
	if len(out) == 0 {
		return "", errors.New("empty detail payload")
	}
	return out[0].Data.Jobview.Job.Description, nil
}
