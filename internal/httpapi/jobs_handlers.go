package httpapi

import (
	"database/sql"
	"net/http"
	"strings"

	"jobagg/internal/domain"
	"jobagg/internal/store"
)

type JobsHandler struct {
	DB *sql.DB
}

// List serves stored jobs. Query parameters: site, run, q, remote, window
// (24h|7d|30d|all), sort (date|seen|company|title) and limit.
func (h JobsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, ok := queryInt(r, "limit", 0)
	if !ok {
		WriteError(w, r, http.StatusBadRequest, "invalid_limit", "limit must be an integer")
		return
	}
	opts := store.ListJobsOpts{
		RunID:  q.Get("run"),
		Query:  q.Get("q"),
		Remote: queryBool(r, "remote"),
		Window: q.Get("window"),
		Sort:   q.Get("sort"),
		Limit:  limit,
	}
	if s := strings.TrimSpace(q.Get("site")); s != "" {
		site, err := domain.ParseSite(s)
		if err != nil {
			WriteError(w, r, http.StatusBadRequest, "invalid_site", err.Error())
			return
		}
		opts.Site = site
	}

	jobs, err := store.ListJobs(r.Context(), h.DB, opts)
	if err != nil {
		WriteError(w, r, http.StatusBadRequest, "list_failed", err.Error())
		return
	}
	if jobs == nil {
		jobs = []store.StoredJob{}
	}
	writeJSON(w, jobs)
}

func (h JobsHandler) Runs(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(r, "limit", 50)
	if !ok {
		WriteError(w, r, http.StatusBadRequest, "invalid_limit", "limit must be an integer")
		return
	}
	runs, err := store.ListRuns(r.Context(), h.DB, limit)
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "list_failed", err.Error())
		return
	}
	if runs == nil {
		runs = []store.Run{}
	}
	writeJSON(w, runs)
}
