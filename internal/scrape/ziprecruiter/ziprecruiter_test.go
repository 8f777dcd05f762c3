package ziprecruiter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
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

const searchJSON = `{
  "jobs": [
    {
      "listing_key": "LK1",
      "name": "Backend Developer",
      "job_description": "<p>Ship Go services</p>",
      "hiring_company": {"name": "Acme"},
      "job_city": "Toronto", "job_state": "ON", "job_country": "CA",
      "employment_type": "full_time",
      "posted_time": "2024-05-02T10:00:00Z",
      "compensation_interval": "annual",
      "compensation_min": 90000, "compensation_max": 120000, "compensation_currency": "CAD",
      "buyer_type": "sponsored"
    },
    {"listing_key": "LK2", "name": "QA", "job_country": "US", "compensation_interval": "hourly", "compensation_min": 0}
  ],
  "continue": "NEXT-1"
}`

func newTestAdapter(t *testing.T, h http.Handler) *Adapter {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(types.Deps{
		Client: fetch.New(fetch.Options{Retry: fetch.NoRetry(), Timeout: 2 * time.Second}),
		Wire:   wire.MustDefault()[domain.SiteZipRecruiter].WithBaseURL(srv.URL),
	})
}

func TestSearchParams(t *testing.T) {
	q := SearchParams(domain.ScrapeRequest{
		SearchTerm: "go", Location: "Toronto", HoursOld: 12, JobType: domain.JobTypePartTime,
		EasyApply: true, IsRemote: true, Distance: 30,
	}, "C1")
	assert.Equal(t, "1", q.Get("days"))
	assert.Equal(t, "part_time", q.Get("employment_type"))
	assert.Equal(t, "1", q.Get("zipapply"))
	assert.Equal(t, "1", q.Get("remote"))
	assert.Equal(t, "30", q.Get("radius"))
	assert.Equal(t, "C1", q.Get("continue_from"))

	q = SearchParams(domain.ScrapeRequest{SearchTerm: "go", HoursOld: 72, JobType: domain.JobTypeContract}, "")
	assert.Equal(t, "3", q.Get("days"))
	assert.Equal(t, "contract", q.Get("employment_type"))
	assert.False(t, q.Has("continue_from"))
	assert.False(t, q.Has("remote"))
}

func TestFetchAndParse(t *testing.T) {
	var sessions atomic.Int64
	queries := make(chan url.Values, 2)
	mux := http.NewServeMux()
	mux.HandleFunc("/jobs-app/event", func(w http.ResponseWriter, r *http.Request) {
		sessions.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})
	mux.HandleFunc("/jobs-app/jobs", func(w http.ResponseWriter, r *http.Request) {
		queries <- r.URL.Query()
		_, _ = w.Write([]byte(searchJSON))
	})
	a := newTestAdapter(t, mux)
	req := domain.ScrapeRequest{SearchTerm: "go", Format: domain.FormatPlain}

	page, err := a.FetchPage(context.Background(), req, a.Start(req))
	require.NoError(t, err, "a failed session event is not fatal")
	assert.Equal(t, "go", (<-queries).Get("search"))
	require.Len(t, page.Entries, 2)
	assert.Equal(t, "zip_recruiter-LK1", page.Entries[0].Key)
	require.NotNil(t, page.Next)
	assert.Equal(t, "NEXT-1", page.Next.Cursor)

	_, err = a.FetchPage(context.Background(), req, *page.Next)
	require.NoError(t, err)
	assert.Equal(t, "NEXT-1", (<-queries).Get("continue_from"))
	assert.Equal(t, int64(1), sessions.Load(), "session is posted once per run")

	job, err := a.ParseEntry(context.Background(), req, page.Entries[0])
	require.NoError(t, err)
	assert.Equal(t, "Backend Developer", job.Title)
	assert.Equal(t, "Acme", job.Company)
	assert.Contains(t, job.JobURL, "/jobs//j?lvk=LK1")
	assert.Equal(t, "Ship Go services", job.Description)
	assert.Equal(t, domain.Location{City: "Toronto", State: "ON", Country: domain.CountryCanada}, job.Location)
	assert.Equal(t, []domain.JobType{domain.JobTypeFullTime}, job.JobTypes)
	require.NotNil(t, job.DatePosted)
	assert.Equal(t, "2024-05-02", job.DatePosted.Format("2006-01-02"))
	require.NotNil(t, job.Compensation)
	assert.Equal(t, domain.IntervalYearly, job.Compensation.Interval)
	assert.Equal(t, "CAD", job.Compensation.Currency)
	assert.Equal(t, "sponsored", job.Extras["listing_type"])

	qa, err := a.ParseEntry(context.Background(), req, page.Entries[1])
	require.NoError(t, err)
	assert.Equal(t, domain.CountryUSA, qa.Location.Country)
	assert.Nil(t, qa.Compensation)
}

func TestLastPageAndBadPayload(t *testing.T) {
	a := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/jobs-app/jobs" {
			_, _ = w.Write([]byte(`{"jobs":[{"listing_key":"X","name":"Y"}]}`))
		}
	}))
	page, err := a.FetchPage(context.Background(), domain.ScrapeRequest{}, a.Start(domain.ScrapeRequest{}))
	require.NoError(t, err)
	assert.Len(t, page.Entries, 1)
	assert.Nil(t, page.Next)

	b := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	page, err = b.FetchPage(context.Background(), domain.ScrapeRequest{}, b.Start(domain.ScrapeRequest{}))
	require.NoError(t, err)
	assert.Empty(t, page.Entries)
}
