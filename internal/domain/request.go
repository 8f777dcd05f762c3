package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ScrapeRequest is the input to one aggregation run. Treat it as immutable
// once a run starts; WithDefaults returns a filled-in copy.
type ScrapeRequest struct {
	Sites            []Site            `yaml:"sites" json:"sites"`
	SearchTerm       string            `yaml:"search_term" json:"search_term"`
	GoogleSearchTerm string            `yaml:"google_search_term" json:"google_search_term,omitempty"`
	Location         string            `yaml:"location" json:"location"`
	Distance         int               `yaml:"distance" json:"distance"`
	IsRemote         bool              `yaml:"is_remote" json:"is_remote"`
	JobType          JobType           `yaml:"job_type" json:"job_type,omitempty"`
	EasyApply        bool              `yaml:"easy_apply" json:"easy_apply"`
	ResultsWanted    int               `yaml:"results_wanted" json:"results_wanted"`
	Offset           int               `yaml:"offset" json:"offset"`
	HoursOld         int               `yaml:"hours_old" json:"hours_old,omitempty"` // 0 = no age filter
	Format           DescriptionFormat `yaml:"description_format" json:"description_format"`
	Country          string            `yaml:"country" json:"country"` // Indeed/Glassdoor market
	Proxies          []string          `yaml:"proxies" json:"proxies,omitempty"`
	UserAgent        string            `yaml:"user_agent" json:"user_agent,omitempty"`

	EnforceAnnualSalary      bool  `yaml:"enforce_annual_salary" json:"enforce_annual_salary"`
	DedupAcrossSources       bool  `yaml:"dedup_across_sources" json:"dedup_across_sources"`
	LinkedInFetchDescription bool  `yaml:"linkedin_fetch_description" json:"linkedin_fetch_description"`
	LinkedInCompanyIDs       []int `yaml:"linkedin_company_ids" json:"linkedin_company_ids,omitempty"`
}

const (
	DefaultResultsWanted = 15
	DefaultDistance      = 50
)

func (r ScrapeRequest) WithDefaults() ScrapeRequest {
	out := r
	out.Sites = append([]Site(nil), r.Sites...)
	out.Proxies = append([]string(nil), r.Proxies...)
	out.LinkedInCompanyIDs = append([]int(nil), r.LinkedInCompanyIDs...)
	if len(out.Sites) == 0 {
		out.Sites = append(out.Sites, AllSites...)
	}
	// unknown spellings stay as given so Validate can name them
	for i, s := range out.Sites {
		if site, err := ParseSite(string(s)); err == nil {
			out.Sites[i] = site
		}
	}
	if out.ResultsWanted == 0 {
		out.ResultsWanted = DefaultResultsWanted
	}
	if out.Distance == 0 {
		out.Distance = DefaultDistance
	}
	if out.Format == "" {
		out.Format = FormatMarkdown
	}
	if strings.TrimSpace(out.Country) == "" {
		out.Country = "usa"
	}
	out.JobType = JobType(strings.ToLower(strings.TrimSpace(string(out.JobType))))
	return out
}

// CountryCode resolves Country; only meaningful after Validate.
func (r ScrapeRequest) CountryCode() Country {
	c, _ := ParseCountry(r.Country)
	return c
}

// HasSite reports whether s is among the requested sources.
func (r ScrapeRequest) HasSite(s Site) bool {
	for _, x := range r.Sites {
		if x == s {
			return true
		}
	}
	return false
}

// ValidationError names the request field that made the run impossible.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Validate checks r without touching the network. Call it on WithDefaults().
func (r ScrapeRequest) Validate() error {
	var errs []error

	if len(r.Sites) == 0 {
		errs = append(errs, invalid("sites", "at least one site is required"))
	}
	seen := map[Site]bool{}
	for i, raw := range r.Sites {
		s, err := ParseSite(string(raw))
		if err != nil {
			errs = append(errs, invalid(fmt.Sprintf("sites[%d]", i), "unknown site %q", raw))
			continue
		}
		if s != raw {
			errs = append(errs, invalid(fmt.Sprintf("sites[%d]", i), "%q is not canonical, use %q", raw, s))
		}
		if seen[s] {
			errs = append(errs, invalid(fmt.Sprintf("sites[%d]", i), "duplicate site %q", raw))
		}
		seen[s] = true
	}

	if r.ResultsWanted < 0 {
		errs = append(errs, invalid("results_wanted", "must be >= 0, got %d", r.ResultsWanted))
	}
	if r.Offset < 0 {
		errs = append(errs, invalid("offset", "must be >= 0, got %d", r.Offset))
	}
	if r.Distance < 0 {
		errs = append(errs, invalid("distance", "must be >= 0, got %d", r.Distance))
	}
	if r.HoursOld < 0 {
		errs = append(errs, invalid("hours_old", "must be >= 0, got %d", r.HoursOld))
	}
	if r.Format != "" && !r.Format.Valid() {
		errs = append(errs, invalid("description_format", "want markdown, html or plain, got %q", r.Format))
	}
	if r.JobType != "" && !r.JobType.Valid() {
		errs = append(errs, invalid("job_type", "unknown job type %q", r.JobType))
	}

	country, ok := ParseCountry(r.Country)
	if !ok {
		errs = append(errs, invalid("country", "unknown country %q", r.Country))
	} else if seen[SiteGlassdoor] {
		if info, _ := LookupCountry(country); !info.SupportsGlassdoor() {
			errs = append(errs, invalid("country", "glassdoor is not available for %q", r.Country))
		}
	}

	if seen[SiteGoogle] && strings.TrimSpace(r.GoogleSearchTerm) == "" && strings.TrimSpace(r.SearchTerm) == "" {
		errs = append(errs, invalid("google_search_term", "google requires google_search_term or search_term"))
	}

	for i, id := range r.LinkedInCompanyIDs {
		if id <= 0 {
			errs = append(errs, invalid(fmt.Sprintf("linkedin_company_ids[%d]", i), "must be positive, got %d", id))
		}
	}

	return errors.Join(errs...)
}
