package indeed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
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
}

func New(d types.Deps) *Adapter {
	d = d.WithDefaults()
	return &Adapter{
		client: d.Client,
		wire:   d.Wire,
		log:    d.Logger.With(slog.String("site", string(domain.SiteIndeed))),
	}
}

func (a *Adapter) Site() domain.Site { return domain.SiteIndeed }

func (a *Adapter) Style() types.Style { return types.StyleOpaqueCursor }

func (a *Adapter) Start(domain.ScrapeRequest) types.Continuation {
	return types.Continuation{Style: types.StyleOpaqueCursor}
}

// filterKeys are Indeed's attribute ids for job types and remote work.
func (a *Adapter) filterKeys(req domain.ScrapeRequest) []string {
	var keys []string
	if req.JobType != "" {
		if k := a.wire.Param("filter_" + string(req.JobType)); k != "" {
			keys = append(keys, k)
		}
	}
	if req.IsRemote {
		if k := a.wire.Param("filter_remote"); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// BuildQuery fills the GraphQL search document. Indeed accepts a single
// filter block, so age beats easy apply, which beats job type and remote.
func (a *Adapter) BuildQuery(req domain.ScrapeRequest, cursor string) string {
	what, where, after, filters := "", "", "", ""
	if term := strings.TrimSpace(req.SearchTerm); term != "" {
		what = "what: " + quote(term)
	}
	if loc := strings.TrimSpace(req.Location); loc != "" {
		where = fmt.Sprintf("location: {where: %s, radius: %d, radiusUnit: MILES}", quote(loc), req.Distance)
	}
	if cursor != "" {
		after = "after: " + quote(cursor)
	}

	switch keys := a.filterKeys(req); {
	case req.HoursOld > 0:
		filters = fmt.Sprintf(`filters: { date: { field: "dateOnIndeed", start: "%dh" } }`, req.HoursOld)
	case req.EasyApply:
		filters = `filters: { keyword: { field: "indeedApplyScope", keys: ["DESKTOP"] } }`
	case len(keys) > 0:
		quoted := make([]string, len(keys))
		for i, k := range keys {
			quoted[i] = quote(k)
		}
		filters = fmt.Sprintf(`filters: { composite: { filters: [{ keyword: { field: "attributes", keys: [%s] } }] } }`,
			strings.Join(quoted, ", "))
	}

	limit := a.wire.PageSize
	if limit <= 0 {
		limit = 100
	}
	return strings.NewReplacer(
		"<<what>>", what,
		"<<location>>", where,
		"<<limit>>", strconv.Itoa(limit),
		"<<cursor>>", after,
		"<<filters>>", filters,
	).Replace(a.wire.Query)
}

func quote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

type searchResponse struct {
	Data *struct {
		JobSearch struct {
			PageInfo struct {
				NextCursor string `json:"nextCursor"`
			} `json:"pageInfo"`
			Results []struct {
				Job json.RawMessage `json:"job"`
			} `json:"results"`
		} `json:"jobSearch"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func (a *Adapter) FetchPage(ctx context.Context, req domain.ScrapeRequest, cont types.Continuation) (types.Page, error) {
	body, err := json.Marshal(map[string]string{"query": a.BuildQuery(req, cont.Cursor)})
	if err != nil {
		return types.Page{}, err
	}

	h := a.wire.Header()
	h.Set("indeed-api-key", a.wire.Param("api_key"))
	if info, ok := domain.LookupCountry(req.CountryCode()); ok {
		h.Set("indeed-co", info.IndeedAPICode())
	}

	res, err := a.client.Post(ctx, a.wire.Endpoint("graphql"), h, body)
	if err != nil {
		return types.Page{}, fmt.Errorf("indeed search: %w", err)
	}

	var sr searchResponse
	if err := json.Unmarshal(res.Body, &sr); err != nil || sr.Data == nil {
		a.log.Warn("unexpected search payload", slog.Any("err", err), slog.Int("errors", len(sr.Errors)))
		return types.Page{}, nil
	}

	page := types.Page{}
	for _, r := range sr.Data.JobSearch.Results {
		var head struct {
			Key string `json:"key"`
		}
		_ = json.Unmarshal(r.Job, &head)
		page.Entries = append(page.Entries, types.RawEntry{
			Key:  util.DedupKey(string(domain.SiteIndeed), head.Key, ""),
			Data: r.Job,
		})
	}
	if next := sr.Data.JobSearch.PageInfo.NextCursor; next != "" && len(page.Entries) > 0 {
		page.Next = &types.Continuation{Style: types.StyleOpaqueCursor, Cursor: next, Page: cont.Page + 1}
	}
	return page, nil
}

type salaryRange struct {
	UnitOfWork string `json:"unitOfWork"`
	Range      *struct {
		Min *float64 `json:"min"`
		Max *float64 `json:"max"`
	} `json:"range"`
}

type indeedJob struct {
	Key           string `json:"key"`
	Title         string `json:"title"`
	DatePublished int64  `json:"datePublished"` // ms epoch
	Description   struct {
		HTML string `json:"html"`
	} `json:"description"`
	Location struct {
		CountryCode string `json:"countryCode"`
		Admin1Code  string `json:"admin1Code"`
		City        string `json:"city"`
		Formatted   struct {
			Long string `json:"long"`
		} `json:"formatted"`
	} `json:"location"`
	Compensation *struct {
		BaseSalary *salaryRange `json:"baseSalary"`
		Estimated  *struct {
			CurrencyCode string       `json:"currencyCode"`
			BaseSalary   *salaryRange `json:"baseSalary"`
		} `json:"estimated"`
		CurrencyCode string `json:"currencyCode"`
	} `json:"compensation"`
	Attributes []struct {
		Key   string `json:"key"`
		Label string `json:"label"`
	} `json:"attributes"`
	Employer *struct {
		RelativeCompanyPageURL string `json:"relativeCompanyPageUrl"`
		Name                   string `json:"name"`
		Dossier                *struct {
			EmployerDetails *struct {
				Industry                string `json:"industry"`
				EmployeesLocalizedLabel string `json:"employeesLocalizedLabel"`
				RevenueLocalizedLabel   string `json:"revenueLocalizedLabel"`
			} `json:"employerDetails"`
			Links *struct {
				CorporateWebsite string `json:"corporateWebsite"`
			} `json:"links"`
		} `json:"dossier"`
	} `json:"employer"`
	Recruit *struct {
		ViewJobURL string `json:"viewJobUrl"`
	} `json:"recruit"`
}

func (a *Adapter) siteBase(req domain.ScrapeRequest) string {
	sub := "www"
	if info, ok := domain.LookupCountry(req.CountryCode()); ok && info.IndeedSubdomain() != "" {
		sub = info.IndeedSubdomain()
	}
	host := a.wire.Param("site_host")
	if host == "" {
		host = "indeed.com"
	}
	return "https://" + sub + "." + host
}

func (a *Adapter) ParseEntry(_ context.Context, req domain.ScrapeRequest, raw types.RawEntry) (*domain.NormalizedJob, error) {
	data, ok := raw.Data.(json.RawMessage)
	if !ok {
		return nil, fmt.Errorf("indeed: unexpected entry %T", raw.Data)
	}
	var j indeedJob
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("indeed decode: %w", err)
	}
	if j.Key == "" || strings.TrimSpace(j.Title) == "" {
		return nil, fmt.Errorf("indeed: entry without key or title")
	}

	base := a.siteBase(req)
	job := &domain.NormalizedJob{
		ID:          raw.Key,
		Site:        domain.SiteIndeed,
		Title:       util.CleanText(j.Title),
		JobURL:      base + "/viewjob?jk=" + j.Key,
		Description: normalize.FormatDescription(j.Description.HTML, req.Format),
		DatePosted:  normalize.FromEpoch(j.DatePublished),
	}
	if raw.Key == "" {
		job.ID = util.DedupKey(string(domain.SiteIndeed), j.Key, "")
	}

	job.Location = domain.Location{City: j.Location.City, State: j.Location.Admin1Code}
	if c, ok := domain.ParseCountry(j.Location.CountryCode); ok {
		job.Location.Country = c
	}

	if e := j.Employer; e != nil {
		job.Company = util.CleanText(e.Name)
		if e.RelativeCompanyPageURL != "" {
			job.CompanyURL = base + e.RelativeCompanyPageURL
		}
		if d := e.Dossier; d != nil {
			if det := d.EmployerDetails; det != nil {
				job.SetExtra("company_industry", det.Industry)
				job.SetExtra("company_num_employees", det.EmployeesLocalizedLabel)
				job.SetExtra("company_revenue", det.RevenueLocalizedLabel)
			}
			if d.Links != nil {
				job.SetExtra("company_url_direct", d.Links.CorporateWebsite)
			}
		}
	}
	if j.Recruit != nil {
		job.JobURLDirect = j.Recruit.ViewJobURL
	}

	labels := make([]string, 0, len(j.Attributes))
	for _, attr := range j.Attributes {
		labels = append(labels, attr.Label)
	}
	job.JobTypes = normalize.ParseJobTypes(labels...)
	job.Compensation = compensation(j)

	job.WorkMode = normalize.ClassifyWorkMode(job.Title, strings.Join(labels, " ")+"\n"+job.Description, j.Location.Formatted.Long)
	job.IsRemote = job.WorkMode == domain.WorkModeRemote
	return job, nil
}

// compensation prefers the employer's figure and falls back to Indeed's estimate.
func compensation(j indeedJob) *domain.Compensation {
	c := j.Compensation
	if c == nil {
		return nil
	}
	sr, currency := c.BaseSalary, c.CurrencyCode
	if (sr == nil || sr.Range == nil) && c.Estimated != nil {
		sr = c.Estimated.BaseSalary
		if c.Estimated.CurrencyCode != "" {
			currency = c.Estimated.CurrencyCode
		}
	}
	if sr == nil || sr.Range == nil {
		return nil
	}
	return normalize.CompensationFromRange(sr.Range.Min, sr.Range.Max, sr.UnitOfWork, currency)
}
