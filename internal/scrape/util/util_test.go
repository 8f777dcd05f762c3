package util

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalURL(t *testing.T) {
	tests := map[string]string{
		"HTTPS://WWW.Example.com/jobs/1/?utm_source=x&b=2&a=1#apply":     "https://www.example.com/jobs/1?a=1&b=2",
		"https://www.linkedin.com/jobs/view/123?refId=abc&trackingId=xyz": "https://www.linkedin.com/jobs/view/123",
		"https://www.linkedin.com/jobs/search?currentJobId=9&geoId=1":     "https://www.linkedin.com/jobs/search?currentJobId=9",
		"  ": "",
	}
	for in, want := range tests {
		assert.Equal(t, want, CanonicalURL(in), in)
	}
}

func TestDedupKey(t *testing.T) {
	assert.Equal(t, "indeed-abc123", DedupKey("indeed", " abc123 ", "https://x"))

	a := DedupKey("bayt", "", "https://www.bayt.com/en/job/1/?utm_medium=email")
	b := DedupKey("bayt", "", "https://WWW.BAYT.COM/en/job/1")
	assert.Equal(t, a, b)
	assert.Regexp(t, `^bayt-u[0-9a-f]+$`, a)
	assert.NotEqual(t, a, DedupKey("bayt", "", "https://www.bayt.com/en/job/2"))
	assert.Empty(t, DedupKey("bayt", "", ""))
}

func TestResolveURL(t *testing.T) {
	assert.Equal(t, "https://www.bayt.com/en/job/1", ResolveURL("https://www.bayt.com/en/uae/jobs/", "/en/job/1"))
	assert.Equal(t, "https://other.com/x", ResolveURL("https://www.bayt.com/", "https://other.com/x"))
	assert.Equal(t, "7", QueryParam("https://x.com/a?jk=7", "jk"))
}

func TestFindKey(t *testing.T) {
	var doc any
	require.NoError(t, json.Unmarshal([]byte(`
		[{"a": 1}, [{"520084652": "not an array"}, {"deep": {"520084652": ["Title", "Co"]}}]]`), &doc))

	v, ok := FindKey(doc, "520084652", IsArray)
	require.True(t, ok)
	assert.Equal(t, "Title", IndexString(v, 0))
	assert.Equal(t, "Co", IndexString(v, 1))

	v, ok = FindKey(doc, "520084652", nil)
	require.True(t, ok)
	assert.Equal(t, "not an array", v)

	_, ok = FindKey(doc, "missing", nil)
	assert.False(t, ok)
}

func TestDecodeAfterMarker(t *testing.T) {
	html := `<script>x={"520084652":[["Engineer","Acme"]],"other":1};y={"520084652":{"bad":}};z={"520084652":["Dev"]}</script>`
	vals := DecodeAfterMarker(html, "520084652")
	require.Len(t, vals, 2)
	assert.Equal(t, "Engineer", IndexString(vals[0], 0, 0))
	assert.Equal(t, "Dev", IndexString(vals[1], 0))
}

func TestIndex(t *testing.T) {
	v := []any{"a", []any{[]any{"url"}}}
	assert.Equal(t, "url", IndexString(v, 1, 0, 0))
	assert.Nil(t, Index(v, 5))
	assert.Nil(t, Index(v, 0, 1))
	assert.Empty(t, IndexString(v, 1))
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, "a b c", CleanText("  a  b\n\tc "))
	assert.Equal(t, "x", FirstNonEmpty("", "  ", " x "))
}

func TestExtractLocationFromLabeledText(t *testing.T) {
	assert.Equal(t, "Austin, TX", ExtractLocationFromLabeledText("Team: Core\nLocation: Austin, TX\nSalary: n/a"))
	assert.Equal(t, "Remote", ExtractLocationFromLabeledText("Job Location: Remote | Full time"))
	assert.Empty(t, ExtractLocationFromLabeledText("no label here"))
}
