package httpapi

import "jobagg/internal/scrape/types"

type ScrapeStatus struct {
	Running   bool                 `json:"running"`
	LastRunID string               `json:"last_run_id,omitempty"`
	LastRunAt string               `json:"last_run_at"`
	LastOkAt  string               `json:"last_ok_at"`
	LastError string               `json:"last_error"`
	LastJobs  int                  `json:"last_jobs"`
	Sources   []types.SourceStatus `json:"sources"`
}
