// Package wire holds the per-source wire descriptors: endpoints, headers,
// selectors and query documents that adapters consume as data.
package wire

import (
	_ "embed"
	"fmt"
	"net/http"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"jobagg/internal/domain"
)

//go:embed sites.yaml
var defaultYAML []byte

type Descriptor struct {
	BaseURL     string            `yaml:"base_url"`
	Endpoints   map[string]string `yaml:"endpoints"`
	PageSize    int               `yaml:"page_size"`
	MaxOffset   int               `yaml:"max_offset"`
	Headers     map[string]string `yaml:"headers"`
	Selectors   map[string]string `yaml:"selectors"`
	Params      map[string]string `yaml:"params"`
	Query       string            `yaml:"query"`
	DetailQuery string            `yaml:"detail_query"`
}

// Set maps each source to its descriptor.
type Set map[domain.Site]Descriptor

// Default parses the embedded descriptors.
func Default() (Set, error) {
	return parse(defaultYAML)
}

// MustDefault is Default for tests and static wiring.
func MustDefault() Set {
	s, err := Default()
	if err != nil {
		panic(err)
	}
	return s
}

// Load returns the embedded descriptors with the file at path merged on top.
// An empty path returns the defaults.
func Load(path string) (Set, error) {
	base, err := Default()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(path) == "" {
		return base, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read descriptors: %w", err)
	}
	over, err := parse(b)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	for site, d := range over {
		base[site] = base[site].merge(d)
	}
	return base, nil
}

func parse(b []byte) (Set, error) {
	raw := map[string]Descriptor{}
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return nil, err
	}
	out := Set{}
	for k, d := range raw {
		site, err := domain.ParseSite(k)
		if err != nil {
			return nil, err
		}
		out[site] = d
	}
	return out, nil
}

// merge overlays non-zero fields of o onto d. Maps merge key by key.
func (d Descriptor) merge(o Descriptor) Descriptor {
	if o.BaseURL != "" {
		d.BaseURL = o.BaseURL
	}
	if o.PageSize > 0 {
		d.PageSize = o.PageSize
	}
	if o.MaxOffset > 0 {
		d.MaxOffset = o.MaxOffset
	}
	if o.Query != "" {
		d.Query = o.Query
	}
	if o.DetailQuery != "" {
		d.DetailQuery = o.DetailQuery
	}
	d.Endpoints = mergeMap(d.Endpoints, o.Endpoints)
	d.Headers = mergeMap(d.Headers, o.Headers)
	d.Selectors = mergeMap(d.Selectors, o.Selectors)
	d.Params = mergeMap(d.Params, o.Params)
	return d
}

func mergeMap(a, b map[string]string) map[string]string {
	out := make(map[string]string, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}

// Endpoint resolves a named endpoint against BaseURL. Absolute endpoints are
// returned as is.
func (d Descriptor) Endpoint(name string) string {
	return d.EndpointAt(d.BaseURL, name)
}

// EndpointAt resolves a named endpoint against base, for sources whose host
// depends on the request.
func (d Descriptor) EndpointAt(base, name string) string {
	ep := d.Endpoints[name]
	if strings.HasPrefix(ep, "http://") || strings.HasPrefix(ep, "https://") {
		return ep
	}
	return strings.TrimRight(base, "/") + ep
}

func (d Descriptor) Selector(name string) string { return d.Selectors[name] }

func (d Descriptor) Param(name string) string { return d.Params[name] }

// Header returns a fresh copy of the descriptor headers.
func (d Descriptor) Header() http.Header {
	h := http.Header{}
	for k, v := range d.Headers {
		h.Set(k, v)
	}
	return h
}

// WithBaseURL returns a copy pointing at another host. Tests use it to aim an
// adapter at an httptest server.
func (d Descriptor) WithBaseURL(u string) Descriptor {
	d.BaseURL = u
	eps := make(map[string]string, len(d.Endpoints))
	for k, v := range d.Endpoints {
		if i := strings.Index(v, "://"); i >= 0 {
			if j := strings.Index(v[i+3:], "/"); j >= 0 {
				v = v[i+3+j:]
			}
		}
		eps[k] = v
	}
	d.Endpoints = eps
	return d
}
