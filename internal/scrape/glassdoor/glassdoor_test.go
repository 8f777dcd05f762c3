package glassdoor

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobagg/internal/domain"
	"jobagg/internal/fetch"
	"jobagg/internal/scrape/types"
	"jobagg/internal/scrape/wire"
)

const searchJSON = `[{"data":{"jobListings":{
  "jobListings":[
    {"jobview":{
      "header":{"adOrderSponsorshipLevel":"STANDARD","ageInDays":3,"easyApply":true,
        "employer":{"id":432,"name":"Acme Corp"},"employerNameFromSearch":"Acme",
        "locationName":"Austin, TX","locationType":"C","payCurrency":"USD","payPeriod":"ANNUAL",
        "payPeriodAdjustedPay":{"p10":95000,"p50":110000,"p90":130000},"rating":4.2},
      "job":{"jobTitleText":"Platform Engineer","listingId":1009001},
      "overview":{"squareLogoUrl":"https://media.example/logo.png"}}},
    {"jobview":{
      "header":{"employerNameFromSearch":"Beta","locationName":"Remote","locationType":"S"},
      "job":{"jobTitleText":"SRE","listingId":1009002}}}
  ],
  "paginationCursors":[{"cursor":"C2","pageNumber":2},{"cursor":"C3","pageNumber":3}]
}}}]`

const detailJSON = `[{"data":{"jobview":{"job":{"description":"<p>Run the <b>platform</b>.</p>"}}}}]`

type fakeGlassdoor struct {
	tokenPage    string
	tokenCode    int // status for the bootstrap page, 0 means 200
	locations    string
	search       string
	lastSearch   atomic.Value // string
	lookups      atomic.Int64
	tokenHeaders atomic.Value // string
}

func (f *fakeGlassdoor) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/Job/computer-science-jobs.htm", func(w http.ResponseWriter, r *http.Request) {
		if f.tokenCode != 0 {
			w.WriteHeader(f.tokenCode)
		}
		_, _ = io.WriteString(w, f.tokenPage)
	})
	mux.HandleFunc("/findPopularLocationAjax.htm", func(w http.ResponseWriter, r *http.Request) {
		f.lookups.Add(1)
		_, _ = io.WriteString(w, f.locations)
	})
	mux.HandleFunc("/graph", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		f.tokenHeaders.Store(r.Header.Get("gd-csrf-token"))
		if strings.Contains(string(body), "JobDetailQuery") {
			_, _ = io.WriteString(w, detailJSON)
			return
		}
		f.lastSearch.Store(string(body))
		_, _ = io.WriteString(w, f.search)
	})
	return mux
}

func newTestAdapter(t *testing.T, f *fakeGlassdoor) *Adapter {
	t.Helper()
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)
	return New(types.Deps{
		Client: fetch.New(fetch.Options{Retry: fetch.NoRetry(), Timeout: 2 * time.Second}),
		Wire:   wire.MustDefault()[domain.SiteGlassdoor].WithBaseURL(srv.URL),
		Now:    func() time.Time { return time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC) },
	})
}

func searchVariables(t *testing.T, body string) map[string]any {
	t.Helper()
	var ops []struct {
		Variables map[string]any `json:"variables"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &ops))
	require.Len(t, ops, 1)
	return ops[0].Variables
}

func TestFetchPageAndParse(t *testing.T) {
	f := &fakeGlassdoor{
		tokenPage: `<script>window.gd = {"token": "CSRF-1"}</script>`,
		locations: `[{"locationId":1139761,"locationType":"C","label":"Austin, TX"}]`,
		search:    searchJSON,
	}
	a := newTestAdapter(t, f)
	req := domain.ScrapeRequest{SearchTerm: "platform", Location: "Austin, TX", HoursOld: 48, EasyApply: true, Format: domain.FormatMarkdown}

	start := a.Start(req)
	assert.Equal(t, 1, start.Page)
	page, err := a.FetchPage(context.Background(), req, start)
	require.NoError(t, err)
	require.Len(t, page.Entries, 2)
	assert.Equal(t, "glassdoor-1009001", page.Entries[0].Key)
	require.NotNil(t, page.Next)
	assert.Equal(t, "C2", page.Next.Cursor)
	assert.Equal(t, 2, page.Next.Page)
	assert.Equal(t, "CSRF-1", f.tokenHeaders.Load())

	vars := searchVariables(t, f.lastSearch.Load().(string))
	assert.Equal(t, "platform", vars["keyword"])
	assert.Equal(t, "CITY", vars["locationType"])
	assert.Equal(t, 1139761.0, vars["locationId"])
	assert.Equal(t, "IL.0,12_IC1139761", vars["parameterUrlInput"])
	assert.Equal(t, 2.0, vars["fromage"])
	assert.Nil(t, vars["pageCursor"])
	assert.Len(t, vars["filterParams"], 2)

	job, err := a.ParseEntry(context.Background(), req, page.Entries[0])
	require.NoError(t, err)
	assert.Equal(t, "glassdoor-1009001", job.ID)
	assert.Equal(t, "Platform Engineer", job.Title)
	assert.Equal(t, "Acme", job.Company)
	assert.True(t, strings.HasSuffix(job.JobURL, "/job-listing/j?jl=1009001"))
	assert.True(t, strings.HasSuffix(job.CompanyURL, "/Overview/W-EI_IE432.htm"))
	assert.Equal(t, domain.Location{City: "Austin", State: "TX", Country: domain.CountryUSA}, job.Location)
	require.NotNil(t, job.DatePosted)
	assert.Equal(t, "2024-05-07", job.DatePosted.Format("2006-01-02"))
	require.NotNil(t, job.Compensation)
	assert.Equal(t, domain.IntervalYearly, job.Compensation.Interval)
	assert.Equal(t, 95000.0, *job.Compensation.MinAmount)
	assert.Equal(t, 130000.0, *job.Compensation.MaxAmount)
	assert.Equal(t, "Run the **platform**.", job.Description)
	assert.Equal(t, "4.2", job.Extras["company_rating"])
	assert.Equal(t, "standard", job.Extras["listing_type"])

	remote, err := a.ParseEntry(context.Background(), req, page.Entries[1])
	require.NoError(t, err)
	assert.True(t, remote.IsRemote)
	assert.True(t, remote.Location.IsZero())
	assert.Nil(t, remote.DatePosted)

	// second page reuses the session and sends the cursor
	_, err = a.FetchPage(context.Background(), req, *page.Next)
	require.NoError(t, err)
	assert.Equal(t, int64(1), f.lookups.Load())
	assert.Equal(t, "C2", searchVariables(t, f.lastSearch.Load().(string))["pageCursor"])
}

func TestFallbackTokenAndRemoteLocation(t *testing.T) {
	f := &fakeGlassdoor{tokenPage: "no token here", search: searchJSON}
	a := newTestAdapter(t, f)

	_, err := a.FetchPage(context.Background(), domain.ScrapeRequest{SearchTerm: "x", IsRemote: true, Location: "Austin"}, a.Start(domain.ScrapeRequest{}))
	require.NoError(t, err)
	assert.Equal(t, a.wire.Param("fallback_token"), f.tokenHeaders.Load())
	assert.Zero(t, f.lookups.Load())

	vars := searchVariables(t, f.lastSearch.Load().(string))
	assert.Equal(t, "STATE", vars["locationType"])
	assert.Equal(t, 11047.0, vars["locationId"])
}

func TestRefusedBootstrapStopsTheSource(t *testing.T) {
	cases := map[string]*fakeGlassdoor{
		"rate limited": {tokenCode: http.StatusTooManyRequests, search: searchJSON},
		"challenge":    {tokenCode: http.StatusForbidden, tokenPage: `<a href="/cdn-cgi/challenge-platform">`, search: searchJSON},
	}
	for name, f := range cases {
		t.Run(name, func(t *testing.T) {
			a := newTestAdapter(t, f)
			_, err := a.FetchPage(context.Background(), domain.ScrapeRequest{SearchTerm: "x"}, a.Start(domain.ScrapeRequest{}))
			require.Error(t, err)
			assert.True(t, fetch.IsRateLimited(err))
			assert.Nil(t, f.lastSearch.Load(), "no search after a refused bootstrap")
		})
	}
}

func TestUnknownLocationAndBadPayload(t *testing.T) {
	a := newTestAdapter(t, &fakeGlassdoor{locations: `[]`, search: searchJSON})
	page, err := a.FetchPage(context.Background(), domain.ScrapeRequest{Location: "Atlantis"}, a.Start(domain.ScrapeRequest{}))
	require.NoError(t, err)
	assert.Empty(t, page.Entries)
	assert.Nil(t, page.Next)

	b := newTestAdapter(t, &fakeGlassdoor{search: `[{"errors":[{"message":"boom"}]}]`})
	page, err = b.FetchPage(context.Background(), domain.ScrapeRequest{}, b.Start(domain.ScrapeRequest{}))
	require.NoError(t, err)
	assert.Empty(t, page.Entries)
}

func TestPageCap(t *testing.T) {
	f := &fakeGlassdoor{search: searchJSON}
	a := newTestAdapter(t, f)
	page, err := a.FetchPage(context.Background(), domain.ScrapeRequest{}, types.Continuation{Style: types.StyleOpaqueCursor, Page: 31, Cursor: "C31"})
	require.NoError(t, err)
	assert.Empty(t, page.Entries)
	assert.Nil(t, f.lastSearch.Load())
}
