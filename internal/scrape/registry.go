package scrape

import (
	"fmt"

	"jobagg/internal/domain"
	"jobagg/internal/scrape/bayt"
	"jobagg/internal/scrape/glassdoor"
	"jobagg/internal/scrape/google"
	"jobagg/internal/scrape/indeed"
	"jobagg/internal/scrape/linkedin"
	"jobagg/internal/scrape/naukri"
	"jobagg/internal/scrape/types"
	"jobagg/internal/scrape/ziprecruiter"
)

// Factory builds a fresh adapter for one run.
type Factory func(types.Deps) types.Adapter

type Registry map[domain.Site]Factory

// DefaultRegistry wires every built-in source.
func DefaultRegistry() Registry {
	return Registry{
		domain.SiteLinkedIn:     func(d types.Deps) types.Adapter { return linkedin.New(d) },
		domain.SiteIndeed:       func(d types.Deps) types.Adapter { return indeed.New(d) },
		domain.SiteGlassdoor:    func(d types.Deps) types.Adapter { return glassdoor.New(d) },
		domain.SiteGoogle:       func(d types.Deps) types.Adapter { return google.New(d) },
		domain.SiteZipRecruiter: func(d types.Deps) types.Adapter { return ziprecruiter.New(d) },
		domain.SiteNaukri:       func(d types.Deps) types.Adapter { return naukri.New(d) },
		domain.SiteBayt:         func(d types.Deps) types.Adapter { return bayt.New(d) },
	}
}

func (r Registry) Build(site domain.Site, d types.Deps) (types.Adapter, error) {
	f, ok := r[site]
	if !ok {
		return nil, fmt.Errorf("no adapter registered for %q", site)
	}
	return f(d), nil
}
