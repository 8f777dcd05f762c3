package httpapi

import (
	"database/sql"
	"net"
	"net/http"
	"time"

	"jobagg/internal/store"
)

type DBHandler struct {
	DB *sql.DB
}

func localOnly(w http.ResponseWriter, r *http.Request) bool {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if host != "127.0.0.1" && host != "::1" && host != "localhost" {
		WriteError(w, r, http.StatusForbidden, "forbidden", "local requests only")
		return false
	}
	return true
}

func (h DBHandler) Checkpoint(w http.ResponseWriter, r *http.Request) {
	if !localOnly(w, r) {
		return
	}
	if _, err := h.DB.ExecContext(r.Context(), `PRAGMA wal_checkpoint(FULL);`); err != nil {
		WriteError(w, r, http.StatusInternalServerError, "checkpoint_failed", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Cleanup deletes jobs not seen for ?days= days (default 90).
func (h DBHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	if !localOnly(w, r) {
		return
	}
	days, ok := queryInt(r, "days", 90)
	if !ok || days <= 0 {
		WriteError(w, r, http.StatusBadRequest, "invalid_days", "days must be a positive integer")
		return
	}
	n, err := store.CleanupOldJobs(r.Context(), h.DB, time.Duration(days)*24*time.Hour)
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "cleanup_failed", err.Error())
		return
	}
	writeJSON(w, map[string]any{"ok": true, "deleted": n})
}
