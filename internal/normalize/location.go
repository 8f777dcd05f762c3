package normalize

import (
	"regexp"
	"strings"

	"jobagg/internal/domain"
	"jobagg/internal/scrape/util"
)

var usStates = map[string]bool{
	"AL": true, "AK": true, "AZ": true, "AR": true, "CA": true, "CO": true, "CT": true, "DE": true,
	"DC": true, "FL": true, "GA": true, "HI": true, "ID": true, "IL": true, "IN": true, "IA": true,
	"KS": true, "KY": true, "LA": true, "ME": true, "MD": true, "MA": true, "MI": true, "MN": true,
	"MS": true, "MO": true, "MT": true, "NE": true, "NV": true, "NH": true, "NJ": true, "NM": true,
	"NY": true, "NC": true, "ND": true, "OH": true, "OK": true, "OR": true, "PA": true, "RI": true,
	"SC": true, "SD": true, "TN": true, "TX": true, "UT": true, "VT": true, "VA": true, "WA": true,
	"WV": true, "WI": true, "WY": true, "PR": true,
}

var (
	parenRe       = regexp.MustCompile(`\([^)]*\)`)
	locationSplit = regexp.MustCompile(`\s*[,·|]\s*`)

	workModeWords = map[string]bool{
		"remote": true, "hybrid": true, "on-site": true, "onsite": true, "on site": true,
		"anywhere": true, "work from home": true, "wfh": true,
	}
)

// IsUSState reports whether s is a two-letter US state or territory code.
func IsUSState(s string) bool {
	return usStates[strings.ToUpper(strings.TrimSpace(s))]
}

// ParseLocation splits "City, ST, Country" style text. Work-mode words and
// parentheticals are dropped. When no country is present a US state code
// implies the USA, otherwise fallback is used.
func ParseLocation(text string, fallback domain.Country) domain.Location {
	text = util.CleanText(parenRe.ReplaceAllString(text, " "))

	var parts []string
	for _, p := range locationSplit.Split(text, -1) {
		p = strings.TrimSpace(p)
		if p == "" || workModeWords[strings.ToLower(p)] {
			continue
		}
		parts = append(parts, p)
	}

	var loc domain.Location
	if n := len(parts); n > 0 {
		last := parts[n-1]
		if c, ok := domain.ParseCountry(last); ok && !(len(last) == 2 && IsUSState(last)) {
			loc.Country = c
			parts = parts[:n-1]
		}
	}

	switch len(parts) {
	case 0:
	case 1:
		if IsUSState(parts[0]) && len(parts[0]) == 2 {
			loc.State = strings.ToUpper(parts[0])
		} else {
			loc.City = parts[0]
		}
	default:
		loc.City = parts[0]
		loc.State = parts[1]
	}

	if loc.Country == "" {
		switch {
		case loc.State != "" && IsUSState(loc.State):
			loc.Country = domain.CountryUSA
		case !loc.IsZero():
			loc.Country = fallback
		}
	}
	return loc
}
