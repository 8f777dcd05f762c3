package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"jobagg/internal/domain"
)

// RunInput is a finished batch to persist.
type RunInput struct {
	ID         string
	Request    any // marshalled as JSON
	Sources    any
	StartedAt  time.Time
	FinishedAt time.Time
	Jobs       []domain.NormalizedJob
}

// SaveRun stores the run and upserts its jobs keyed by (site, dedup key).
// New jobs are inserted; known ones get last_seen and last_run_id bumped.
// It returns how many jobs were new.
func (d *DB) SaveRun(ctx context.Context, in RunInput) (added int, err error) {
	err = d.withWriteLock(ctx, func() error {
		tx, err := d.Pool.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		seen := in.FinishedAt.UTC().Format(time.RFC3339)
		for _, j := range in.Jobs {
			ok, err := insertJobIgnore(ctx, tx, j, in.ID, seen)
			if err != nil {
				return err
			}
			if ok {
				added++
				continue
			}
			if _, err := tx.ExecContext(ctx, `
UPDATE jobs SET last_seen = ?, last_run_id = ? WHERE site = ? AND job_key = ?;`,
				seen, in.ID, string(j.Site), j.ID); err != nil {
				return fmt.Errorf("touch job %s: %w", j.ID, err)
			}
		}

		req, _ := json.Marshal(in.Request)
		src, _ := json.Marshal(in.Sources)
		if _, err := tx.ExecContext(ctx, `
INSERT INTO runs (id, request, sources, jobs, added, started_at, finished_at)
VALUES (?, ?, ?, ?, ?, ?, ?);`,
			in.ID, string(req), string(src), len(in.Jobs), added,
			in.StartedAt.UTC().Format(time.RFC3339), seen); err != nil {
			return fmt.Errorf("insert run: %w", err)
		}
		return tx.Commit()
	})
	if err != nil {
		return 0, err
	}
	d.log.Info("run saved", slog.String("run", in.ID), slog.Int("jobs", len(in.Jobs)), slog.Int("added", added))
	return added, nil
}

func insertJobIgnore(ctx context.Context, tx *sql.Tx, j domain.NormalizedJob, runID, seen string) (added bool, err error) {
	var date, comp string
	if j.DatePosted != nil {
		date = j.DatePosted.UTC().Format(time.RFC3339)
	}
	if j.Compensation.Valid() {
		b, _ := json.Marshal(j.Compensation)
		comp = string(b)
	}
	types, _ := json.Marshal(nonNil(j.JobTypes))
	emails, _ := json.Marshal(nonNil(j.Emails))
	extras, _ := json.Marshal(j.Extras)
	if j.Extras == nil {
		extras = []byte("{}")
	}
	remote := 0
	if j.IsRemote {
		remote = 1
	}
	mode := j.WorkMode
	if mode == "" {
		mode = domain.WorkModeUnknown
	}

	// relies on the (site, job_key) primary key
	res, err := tx.ExecContext(ctx, `
INSERT OR IGNORE INTO jobs (
  site, job_key, title, company, company_url, job_url, job_url_direct,
  city, state, country, is_remote, work_mode, date_posted, compensation,
  job_types, emails, extras, description,
  first_run_id, last_run_id, first_seen, last_seen)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`,
		string(j.Site), j.ID, j.Title, j.Company, j.CompanyURL, j.JobURL, j.JobURLDirect,
		j.Location.City, j.Location.State, string(j.Location.Country), remote, string(mode), date, comp,
		string(types), string(emails), string(extras), j.Description,
		runID, runID, seen, seen,
	)
	if err != nil {
		return false, fmt.Errorf("insert job %s: %w", j.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func nonNil[T any](xs []T) []T {
	if xs == nil {
		return []T{}
	}
	return xs
}
