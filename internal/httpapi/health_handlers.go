package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"jobagg/internal/events"
)

type HealthHandler struct {
	DB  *sql.DB
	Hub *events.Hub
}

// Health answers 200 while the store is reachable and 503 otherwise.
func (h HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"ok":   true,
		"time": time.Now().UTC().Format(time.RFC3339),
	}
	if h.Hub != nil {
		body["subscribers"] = h.Hub.Subscribers()
		body["events_dropped"] = h.Hub.Dropped()
	}
	if h.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.DB.PingContext(ctx); err != nil {
			body["ok"] = false
			body["db_error"] = err.Error()
			WriteJSON(w, http.StatusServiceUnavailable, body)
			return
		}
	}
	writeJSON(w, body)
}
