package normalize

import (
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"

	"jobagg/internal/domain"
	"jobagg/internal/scrape/util"
)

// FormatDescription renders an HTML description in the requested format.
// Input that fails to convert falls back to plain text.
func FormatDescription(html string, format domain.DescriptionFormat) string {
	html = strings.TrimSpace(html)
	if html == "" {
		return ""
	}
	switch format {
	case domain.FormatHTML:
		return html
	case domain.FormatPlain:
		return PlainText(html)
	default:
		out, err := md.NewConverter("", true, nil).ConvertString(html)
		if err != nil {
			return PlainText(html)
		}
		return strings.TrimSpace(out)
	}
}

// PlainText strips markup and collapses whitespace.
func PlainText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return util.CleanText(html)
	}
	doc.Find("script, style").Remove()
	doc.Find("br, p, li, div, h1, h2, h3, h4").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})
	lines := strings.Split(doc.Text(), "\n")
	out := lines[:0]
	for _, l := range lines {
		if l = util.CleanText(l); l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}
