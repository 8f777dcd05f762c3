package httpapi

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"jobagg/internal/config"
	"jobagg/internal/domain"
	"jobagg/internal/events"
	"jobagg/internal/scrape"
	"jobagg/internal/store"
)

type fixture struct {
	srv     *httptest.Server
	db      *store.DB
	hub     *events.Hub
	cfgPath string
	calls   atomic.Int32
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	db, err := store.Open(filepath.Join(dir, "jobagg.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cfgPath, err := config.EnsureUserConfig(dir)
	require.NoError(t, err)
	load := func() (config.Config, error) { return config.Load(cfgPath) }
	cfg, err := load()
	require.NoError(t, err)
	var cfgVal atomic.Value
	cfgVal.Store(cfg)

	f := &fixture{db: db, hub: events.NewHub(), cfgPath: cfgPath}
	run := func(ctx context.Context, req domain.ScrapeRequest) (*scrape.Batch, error) {
		f.calls.Add(1)
		b := &scrape.Batch{
			ID:      "run-test",
			Request: req,
			Jobs: []domain.NormalizedJob{{
				ID: "linkedin-1", Site: domain.SiteLinkedIn, Title: "Go Developer",
				Company: "Acme", JobURL: "https://www.linkedin.com/jobs/view/1",
			}},
			StartedAt:  time.Now().UTC(),
			FinishedAt: time.Now().UTC(),
		}
		_, err := db.SaveRun(ctx, store.RunInput{ID: b.ID, Request: req, StartedAt: b.StartedAt, FinishedAt: b.FinishedAt, Jobs: b.Jobs})
		f.hub.Publish(events.MakeEvent(b.ID, events.TypeJobsSaved, events.Version, events.RunProgress{Jobs: len(b.Jobs)}))
		return b, err
	}

	f.srv = httptest.NewServer(NewHandler(Deps{
		DB:          db.Pool,
		Hub:         f.hub,
		CfgVal:      &cfgVal,
		UserCfgPath: cfgPath,
		LoadCfg:     load,
		RunScrape:   run,
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func TestHealthAndRequestID(t *testing.T) {
	f := newFixture(t)
	res, err := http.Get(f.srv.URL + "/health")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.NotEmpty(t, res.Header.Get("X-Request-ID"))
	var body map[string]any
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	assert.Equal(t, true, body["ok"])
	assert.Contains(t, body, "subscribers")

	res2, err := http.Post(f.srv.URL+"/health", "application/json", nil)
	require.NoError(t, err)
	res2.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, res2.StatusCode)
}

func TestScrapeRunWaitThenListJobs(t *testing.T) {
	f := newFixture(t)
	body := `{"sites":["linkedin"],"search_term":"go","results_wanted":5}`
	res, err := http.Post(f.srv.URL+"/scrape/run?wait=true", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	var b scrape.Batch
	require.NoError(t, json.NewDecoder(res.Body).Decode(&b))
	assert.Equal(t, "run-test", b.ID)
	assert.Equal(t, 5, b.Request.ResultsWanted)

	jr, err := http.Get(f.srv.URL + "/jobs?window=all&site=linkedin")
	require.NoError(t, err)
	defer jr.Body.Close()
	var jobs []store.StoredJob
	require.NoError(t, json.NewDecoder(jr.Body).Decode(&jobs))
	require.Len(t, jobs, 1)
	assert.Equal(t, "linkedin-1", jobs[0].ID)

	st, err := http.Get(f.srv.URL + "/scrape/status")
	require.NoError(t, err)
	defer st.Body.Close()
	var status ScrapeStatus
	require.NoError(t, json.NewDecoder(st.Body).Decode(&status))
	assert.False(t, status.Running)
	assert.Equal(t, "run-test", status.LastRunID)
	assert.Equal(t, 1, status.LastJobs)
}

func TestScrapeRunRejectsBadRequests(t *testing.T) {
	f := newFixture(t)
	cases := map[string]string{
		`{"sites":["monster"]}`:                        "sites[0]",
		`{"sites":["indeed"],"proxies":["ftp://x:1"]}`: "proxies",
		`{"sites":["indeed"],"results_wanted":-2}`:     "results_wanted",
	}
	for body, field := range cases {
		res, err := http.Post(f.srv.URL+"/scrape/run", "application/json", strings.NewReader(body))
		require.NoError(t, err)
		var e APIError
		require.NoError(t, json.NewDecoder(res.Body).Decode(&e))
		res.Body.Close()
		assert.Equal(t, http.StatusBadRequest, res.StatusCode, body)
		assert.Equal(t, "invalid_request", e.Error.Code)
		assert.Contains(t, e.Error.Fields, field)
	}

	res, err := http.Post(f.srv.URL+"/scrape/run", "application/json", strings.NewReader(`{"nope":1}`))
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Zero(t, f.calls.Load())
}

func TestEventsStream(t *testing.T) {
	f := newFixture(t)
	res, err := http.Get(f.srv.URL + "/events?run_id=r1")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, "text/event-stream", res.Header.Get("Content-Type"))

	lines := make(chan string, 16)
	go func() {
		sc := bufio.NewScanner(res.Body)
		for sc.Scan() {
			if data, ok := strings.CutPrefix(sc.Text(), "data: "); ok {
				lines <- data
			}
		}
		close(lines)
	}()

	first := <-lines
	assert.Contains(t, first, `"type":"ping"`)

	require.Eventually(t, func() bool { return f.hub.Subscribers() == 1 }, time.Second, 10*time.Millisecond)
	f.hub.Publish(events.MakeEvent("other", events.TypeRunStarted, events.Version, nil))
	f.hub.Publish(events.MakeEvent("r1", events.TypeSourceFinished, events.Version, events.SourceProgress{Site: "bayt"}))

	select {
	case got := <-lines:
		var e events.Event
		require.NoError(t, json.Unmarshal([]byte(got), &e))
		assert.Equal(t, events.TypeSourceFinished, e.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}
}

func TestConfigRoundTrip(t *testing.T) {
	f := newFixture(t)
	res, err := http.Get(f.srv.URL + "/config")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, "application/yaml", res.Header.Get("Content-Type"))

	cfg, err := config.Load(f.cfgPath)
	require.NoError(t, err)
	cfg.App.Port = 0
	bad := yamlBody(t, cfg)
	req, _ := http.NewRequest(http.MethodPut, f.srv.URL+"/config", bad)
	put, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	var v config.Validation
	require.NoError(t, json.NewDecoder(put.Body).Decode(&v))
	put.Body.Close()
	assert.Equal(t, http.StatusBadRequest, put.StatusCode)
	assert.NotEmpty(t, v.Errors)

	cfg.App.Port = 9100
	good := yamlBody(t, cfg)
	req, _ = http.NewRequest(http.MethodPut, f.srv.URL+"/config", good)
	put, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	put.Body.Close()
	assert.Equal(t, http.StatusOK, put.StatusCode)

	saved, err := config.Load(f.cfgPath)
	require.NoError(t, err)
	assert.Equal(t, 9100, saved.App.Port)
}

func TestDBCleanupIsLocal(t *testing.T) {
	f := newFixture(t)
	res, err := http.Post(f.srv.URL+"/db/cleanup?days=30", "", nil)
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func yamlBody(t *testing.T, cfg config.Config) *strings.Reader {
	t.Helper()
	b, err := yaml.Marshal(cfg)
	require.NoError(t, err)
	return strings.NewReader(string(b))
}
