package util

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// FindLocation looks for a location on a detail page: the given selectors
// first, then a "Location:" label in og:description or the page text.
func FindLocation(doc *goquery.Document, selectors ...string) string {
	for _, sel := range selectors {
		if sel == "" {
			continue
		}
		if t := CleanText(doc.Find(sel).First().Text()); t != "" {
			return t
		}
	}

	if v, ok := doc.Find(`meta[property="og:description"]`).Attr("content"); ok {
		if loc := ExtractLocationFromLabeledText(v); loc != "" {
			return loc
		}
	}

	return ExtractLocationFromLabeledText(doc.Find("body").Text())
}

// ExtractLocationFromLabeledText returns what follows "Location:" and its
// variants, up to the end of the line.
func ExtractLocationFromLabeledText(s string) string {
	low := strings.ToLower(s)

	// common label forms: "Location", "Locations", "Job Location"
	labels := []string{
		"job location:",
		"locations:",
		"location:",
	}

	for _, lab := range labels {
		if i := strings.Index(low, lab); i >= 0 {
			rest := strings.TrimSpace(s[i+len(lab):])

			// stop at newline-ish boundaries if present
			for _, cut := range []string{"\n", "\r", " | ", " · "} {
				if j := strings.Index(rest, cut); j >= 0 {
					rest = rest[:j]
				}
			}

			rest = CleanText(rest)
			if rest != "" && len(rest) <= 80 {
				return rest
			}
		}
	}
	return ""
}
