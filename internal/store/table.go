package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"jobagg/internal/domain"
)

// StoredJob is a job as persisted, with when it was first and last seen.
type StoredJob struct {
	domain.NormalizedJob
	FirstRunID string    `json:"first_run_id"`
	LastRunID  string    `json:"last_run_id"`
	FirstSeen  time.Time `json:"first_seen"`
	LastSeen   time.Time `json:"last_seen"`
}

type ListJobsOpts struct {
	Site   domain.Site
	RunID  string // jobs seen in this run
	Query  string // substring of title or company
	Remote bool
	Window string // 24h | 7d | 30d | all
	Sort   string // date | seen | company | title
	Limit  int
}

const (
	defaultListLimit = 200
	maxListLimit     = 2000
)

func Migrate(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var v int
	if err := tx.QueryRow(`PRAGMA user_version;`).Scan(&v); err != nil {
		return err
	}

	if v >= 1 {
		return tx.Commit()
	}

	// ---- Schema v1 ----

	if _, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS runs (
  id TEXT PRIMARY KEY,
  request TEXT NOT NULL,
  sources TEXT NOT NULL DEFAULT '[]',
  jobs INTEGER NOT NULL DEFAULT 0,
  added INTEGER NOT NULL DEFAULT 0,
  started_at TEXT NOT NULL,
  finished_at TEXT NOT NULL
);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS jobs (
  site TEXT NOT NULL,
  job_key TEXT NOT NULL,
  title TEXT NOT NULL,
  company TEXT NOT NULL DEFAULT '',
  company_url TEXT NOT NULL DEFAULT '',
  job_url TEXT NOT NULL,
  job_url_direct TEXT NOT NULL DEFAULT '',
  city TEXT NOT NULL DEFAULT '',
  state TEXT NOT NULL DEFAULT '',
  country TEXT NOT NULL DEFAULT '',
  is_remote INTEGER NOT NULL DEFAULT 0,
  work_mode TEXT NOT NULL DEFAULT 'unknown',
  date_posted TEXT NOT NULL DEFAULT '',
  compensation TEXT NOT NULL DEFAULT '',
  job_types TEXT NOT NULL DEFAULT '[]',
  emails TEXT NOT NULL DEFAULT '[]',
  extras TEXT NOT NULL DEFAULT '{}',
  description TEXT NOT NULL DEFAULT '',
  first_run_id TEXT NOT NULL,
  last_run_id TEXT NOT NULL,
  first_seen TEXT NOT NULL,
  last_seen TEXT NOT NULL,
  PRIMARY KEY (site, job_key)
);
`); err != nil {
		return err
	}

	for _, idx := range []string{
		`CREATE INDEX IF NOT EXISTS idx_jobs_last_seen ON jobs(last_seen);`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_date_posted ON jobs(date_posted);`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_last_run ON jobs(last_run_id);`,
	} {
		if _, err := tx.Exec(idx); err != nil {
			return err
		}
	}

	if _, err := tx.Exec(`PRAGMA user_version = 1;`); err != nil {
		return err
	}

	return tx.Commit()
}

func ListJobs(ctx context.Context, db *sql.DB, opts ListJobsOpts) ([]StoredJob, error) {
	if opts.Limit <= 0 {
		opts.Limit = defaultListLimit
	}
	if opts.Limit > maxListLimit {
		opts.Limit = maxListLimit
	}

	// whitelist sort columns (prevents SQL injection)
	order := map[string]string{
		"date":    "date_posted DESC, last_seen DESC",
		"seen":    "last_seen DESC",
		"company": "company COLLATE NOCASE ASC, title ASC",
		"title":   "title COLLATE NOCASE ASC",
	}[opts.Sort]
	if order == "" {
		order = "last_seen DESC"
	}

	var where []string
	var args []any
	switch opts.Window {
	case "24h":
		where = append(where, "last_seen >= ?")
		args = append(args, time.Now().UTC().Add(-24*time.Hour).Format(time.RFC3339))
	case "7d", "":
		where = append(where, "last_seen >= ?")
		args = append(args, time.Now().UTC().Add(-7*24*time.Hour).Format(time.RFC3339))
	case "30d":
		where = append(where, "last_seen >= ?")
		args = append(args, time.Now().UTC().Add(-30*24*time.Hour).Format(time.RFC3339))
	case "all":
		// no filter
	default:
		return nil, fmt.Errorf("unknown window %q", opts.Window)
	}
	if opts.Site != "" {
		where = append(where, "site = ?")
		args = append(args, string(opts.Site))
	}
	if opts.RunID != "" {
		where = append(where, "last_run_id = ?")
		args = append(args, opts.RunID)
	}
	if q := strings.TrimSpace(opts.Query); q != "" {
		where = append(where, "(title LIKE ? OR company LIKE ?)")
		like := "%" + q + "%"
		args = append(args, like, like)
	}
	if opts.Remote {
		where = append(where, "is_remote = 1")
	}

	query := `
SELECT site, job_key, title, company, company_url, job_url, job_url_direct,
       city, state, country, is_remote, work_mode, date_posted, compensation,
       job_types, emails, extras, description,
       first_run_id, last_run_id, first_seen, last_seen
FROM jobs`
	if len(where) > 0 {
		query += "\nWHERE " + strings.Join(where, " AND ")
	}
	query += fmt.Sprintf("\nORDER BY %s\nLIMIT ?;", order)
	args = append(args, opts.Limit)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StoredJob
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanJob(rows *sql.Rows) (StoredJob, error) {
	var (
		j                        StoredJob
		site, country, workMode  string
		isRemote                 int
		datePosted, comp         string
		jobTypes, emails, extras string
		firstSeen, lastSeen      string
	)
	if err := rows.Scan(
		&site, &j.ID, &j.Title, &j.Company, &j.CompanyURL, &j.JobURL, &j.JobURLDirect,
		&j.Location.City, &j.Location.State, &country, &isRemote, &workMode, &datePosted, &comp,
		&jobTypes, &emails, &extras, &j.Description,
		&j.FirstRunID, &j.LastRunID, &firstSeen, &lastSeen,
	); err != nil {
		return j, err
	}
	j.Site = domain.Site(site)
	j.Location.Country = domain.Country(country)
	j.IsRemote = isRemote == 1
	j.WorkMode = domain.WorkMode(workMode)
	if t, err := time.Parse(time.RFC3339, datePosted); err == nil {
		j.DatePosted = &t
	}
	if comp != "" {
		var c domain.Compensation
		if err := json.Unmarshal([]byte(comp), &c); err == nil {
			j.Compensation = &c
		}
	}
	_ = json.Unmarshal([]byte(jobTypes), &j.JobTypes)
	_ = json.Unmarshal([]byte(emails), &j.Emails)
	_ = json.Unmarshal([]byte(extras), &j.Extras)
	j.FirstSeen, _ = time.Parse(time.RFC3339, firstSeen)
	j.LastSeen, _ = time.Parse(time.RFC3339, lastSeen)
	return j, nil
}

// Run is one persisted batch without its jobs.
type Run struct {
	ID         string          `json:"id"`
	Request    json.RawMessage `json:"request"`
	Sources    json.RawMessage `json:"sources"`
	Jobs       int             `json:"jobs"`
	Added      int             `json:"added"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
}

func ListRuns(ctx context.Context, db *sql.DB, limit int) ([]Run, error) {
	if limit <= 0 || limit > maxListLimit {
		limit = 50
	}
	rows, err := db.QueryContext(ctx, `
SELECT id, request, sources, jobs, added, started_at, finished_at
FROM runs
ORDER BY started_at DESC
LIMIT ?;`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var req, src, started, finished string
		if err := rows.Scan(&r.ID, &req, &src, &r.Jobs, &r.Added, &started, &finished); err != nil {
			return nil, err
		}
		r.Request = json.RawMessage(req)
		r.Sources = json.RawMessage(src)
		r.StartedAt, _ = time.Parse(time.RFC3339, started)
		r.FinishedAt, _ = time.Parse(time.RFC3339, finished)
		out = append(out, r)
	}
	return out, rows.Err()
}

// CleanupOldJobs deletes jobs not seen since before the cutoff.
func CleanupOldJobs(ctx context.Context, db *sql.DB, olderThan time.Duration) (deleted int64, err error) {
	cutoff := time.Now().UTC().Add(-olderThan).Format(time.RFC3339)
	res, err := db.ExecContext(ctx, `DELETE FROM jobs WHERE last_seen < ?;`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup old jobs: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
