package domain

import (
	"strings"
)

// Country is an ISO 3166-1 alpha-2 code in upper case.
type Country string

const (
	CountryUSA    Country = "US"
	CountryUK     Country = "GB"
	CountryCanada Country = "CA"
	CountryIndia  Country = "IN"
)

// CountryInfo carries the per-country domains the board-specific adapters need.
type CountryInfo struct {
	Code  Country
	Names []string // lower-case aliases, first is canonical

	// indeedDomain is "<subdomain>[:<api code>]"; glassdoorDomain is
	// "<tld>" or "<subdomain>:<tld>". Empty means unsupported.
	indeedDomain    string
	glassdoorDomain string
}

var countries = []CountryInfo{
	{Code: "AR", Names: []string{"argentina"}, indeedDomain: "ar", glassdoorDomain: "com.ar"},
	{Code: "AU", Names: []string{"australia"}, indeedDomain: "au", glassdoorDomain: "com.au"},
	{Code: "AT", Names: []string{"austria"}, indeedDomain: "at", glassdoorDomain: "at"},
	{Code: "BH", Names: []string{"bahrain"}, indeedDomain: "bh"},
	{Code: "BE", Names: []string{"belgium"}, indeedDomain: "be", glassdoorDomain: "fr:be"},
	{Code: "BR", Names: []string{"brazil"}, indeedDomain: "br", glassdoorDomain: "com.br"},
	{Code: "CA", Names: []string{"canada"}, indeedDomain: "ca", glassdoorDomain: "ca"},
	{Code: "CL", Names: []string{"chile"}, indeedDomain: "cl"},
	{Code: "CN", Names: []string{"china"}, indeedDomain: "cn"},
	{Code: "CO", Names: []string{"colombia"}, indeedDomain: "co"},
	{Code: "CR", Names: []string{"costa rica"}, indeedDomain: "cr"},
	{Code: "CZ", Names: []string{"czech republic", "czechia"}, indeedDomain: "cz"},
	{Code: "DK", Names: []string{"denmark"}, indeedDomain: "dk"},
	{Code: "EC", Names: []string{"ecuador"}, indeedDomain: "ec"},
	{Code: "EG", Names: []string{"egypt"}, indeedDomain: "eg"},
	{Code: "FI", Names: []string{"finland"}, indeedDomain: "fi"},
	{Code: "FR", Names: []string{"france"}, indeedDomain: "fr", glassdoorDomain: "fr"},
	{Code: "DE", Names: []string{"germany"}, indeedDomain: "de", glassdoorDomain: "de"},
	{Code: "GR", Names: []string{"greece"}, indeedDomain: "gr"},
	{Code: "HK", Names: []string{"hong kong"}, indeedDomain: "hk", glassdoorDomain: "com.hk"},
	{Code: "HU", Names: []string{"hungary"}, indeedDomain: "hu"},
	{Code: "IN", Names: []string{"india"}, indeedDomain: "in", glassdoorDomain: "co.in"},
	{Code: "ID", Names: []string{"indonesia"}, indeedDomain: "id"},
	{Code: "IE", Names: []string{"ireland"}, indeedDomain: "ie", glassdoorDomain: "ie"},
	{Code: "IL", Names: []string{"israel"}, indeedDomain: "il"},
	{Code: "IT", Names: []string{"italy"}, indeedDomain: "it", glassdoorDomain: "it"},
	{Code: "JP", Names: []string{"japan"}, indeedDomain: "jp"},
	{Code: "KW", Names: []string{"kuwait"}, indeedDomain: "kw"},
	{Code: "LU", Names: []string{"luxembourg"}, indeedDomain: "lu"},
	{Code: "MY", Names: []string{"malaysia"}, indeedDomain: "malaysia:my", glassdoorDomain: "com"},
	{Code: "MX", Names: []string{"mexico"}, indeedDomain: "mx", glassdoorDomain: "com.mx"},
	{Code: "MA", Names: []string{"morocco"}, indeedDomain: "ma"},
	{Code: "NL", Names: []string{"netherlands"}, indeedDomain: "nl", glassdoorDomain: "nl"},
	{Code: "NZ", Names: []string{"new zealand"}, indeedDomain: "nz", glassdoorDomain: "co.nz"},
	{Code: "NG", Names: []string{"nigeria"}, indeedDomain: "ng"},
	{Code: "NO", Names: []string{"norway"}, indeedDomain: "no"},
	{Code: "OM", Names: []string{"oman"}, indeedDomain: "om"},
	{Code: "PK", Names: []string{"pakistan"}, indeedDomain: "pk"},
	{Code: "PA", Names: []string{"panama"}, indeedDomain: "pa"},
	{Code: "PE", Names: []string{"peru"}, indeedDomain: "pe"},
	{Code: "PH", Names: []string{"philippines"}, indeedDomain: "ph"},
	{Code: "PL", Names: []string{"poland"}, indeedDomain: "pl"},
	{Code: "PT", Names: []string{"portugal"}, indeedDomain: "pt"},
	{Code: "QA", Names: []string{"qatar"}, indeedDomain: "qa"},
	{Code: "RO", Names: []string{"romania"}, indeedDomain: "ro"},
	{Code: "SA", Names: []string{"saudi arabia"}, indeedDomain: "sa"},
	{Code: "SG", Names: []string{"singapore"}, indeedDomain: "sg", glassdoorDomain: "sg"},
	{Code: "ZA", Names: []string{"south africa"}, indeedDomain: "za"},
	{Code: "KR", Names: []string{"south korea"}, indeedDomain: "kr"},
	{Code: "ES", Names: []string{"spain"}, indeedDomain: "es", glassdoorDomain: "es"},
	{Code: "SE", Names: []string{"sweden"}, indeedDomain: "se"},
	{Code: "CH", Names: []string{"switzerland"}, indeedDomain: "ch", glassdoorDomain: "de:ch"},
	{Code: "TW", Names: []string{"taiwan"}, indeedDomain: "tw"},
	{Code: "TH", Names: []string{"thailand"}, indeedDomain: "th"},
	{Code: "TR", Names: []string{"türkiye", "turkey"}, indeedDomain: "tr"},
	{Code: "UA", Names: []string{"ukraine"}, indeedDomain: "ua"},
	{Code: "AE", Names: []string{"united arab emirates", "uae"}, indeedDomain: "ae"},
	{Code: "GB", Names: []string{"uk", "united kingdom", "england", "great britain"}, indeedDomain: "uk:gb", glassdoorDomain: "co.uk"},
	{Code: "US", Names: []string{"usa", "us", "united states", "united states of america"}, indeedDomain: "www:us", glassdoorDomain: "com"},
	{Code: "UY", Names: []string{"uruguay"}, indeedDomain: "uy"},
	{Code: "VE", Names: []string{"venezuela"}, indeedDomain: "ve"},
	{Code: "VN", Names: []string{"vietnam"}, indeedDomain: "vn", glassdoorDomain: "com"},
}

var (
	countryByCode  = map[Country]CountryInfo{}
	countryByAlias = map[string]CountryInfo{}
)

func init() {
	for _, c := range countries {
		countryByCode[c.Code] = c
		countryByAlias[strings.ToLower(string(c.Code))] = c
		for _, n := range c.Names {
			countryByAlias[n] = c
		}
	}
}

// ParseCountry resolves a free-text country name or ISO code.
func ParseCountry(s string) (Country, bool) {
	key := strings.ToLower(strings.TrimSpace(s))
	if key == "" {
		return "", false
	}
	c, ok := countryByAlias[key]
	if !ok {
		return "", false
	}
	return c.Code, true
}

func LookupCountry(c Country) (CountryInfo, bool) {
	info, ok := countryByCode[c]
	return info, ok
}

// DisplayName is the short label used when rendering a location.
func (c CountryInfo) DisplayName() string {
	switch c.Code {
	case CountryUSA:
		return "USA"
	case CountryUK:
		return "UK"
	}
	return titleCase(c.Names[0])
}

// IndeedSubdomain and IndeedAPICode split "<subdomain>[:<api code>]".
func (c CountryInfo) IndeedSubdomain() string {
	sub, _, _ := strings.Cut(c.indeedDomain, ":")
	return sub
}

func (c CountryInfo) IndeedAPICode() string {
	sub, code, ok := strings.Cut(c.indeedDomain, ":")
	if !ok {
		code = sub
	}
	return strings.ToUpper(code)
}

func (c CountryInfo) SupportsGlassdoor() bool { return c.glassdoorDomain != "" }

// GlassdoorHost returns e.g. "www.glassdoor.co.uk" or "fr.glassdoor.be".
func (c CountryInfo) GlassdoorHost() string {
	if c.glassdoorDomain == "" {
		return ""
	}
	if sub, tld, ok := strings.Cut(c.glassdoorDomain, ":"); ok {
		return sub + ".glassdoor." + tld
	}
	return "www.glassdoor." + c.glassdoorDomain
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(w)
		r[0] = []rune(strings.ToUpper(string(r[0])))[0]
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
