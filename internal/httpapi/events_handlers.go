package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"jobagg/internal/events"
)

// EventsHandler streams run progress as server-sent events. Each frame's
// event name is the envelope type; ?run_id= narrows the stream to one run.
type EventsHandler struct {
	Hub *events.Hub

	// KeepAlive is the interval of comment frames that keep idle proxies
	// from closing the stream. Zero means 25s.
	KeepAlive time.Duration
}

func (h EventsHandler) ServeSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteError(w, r, http.StatusInternalServerError, "stream_unsupported", "Streaming unsupported")
		return
	}
	runID := strings.TrimSpace(r.URL.Query().Get("run_id"))

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := h.Hub.Subscribe()
	defer h.Hub.Unsubscribe(ch)

	send := func(typ, data string) {
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", typ, data)
		flusher.Flush()
	}
	send("ping", events.MakeEvent(RequestIDFrom(r.Context()), "ping", events.Version, nil))

	every := h.KeepAlive
	if every <= 0 {
		every = 25 * time.Second
	}
	tick := time.NewTicker(every)
	defer tick.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-tick.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var head struct {
				Type  string `json:"type"`
				RunID string `json:"run_id"`
			}
			if err := json.Unmarshal([]byte(msg), &head); err != nil || head.Type == "" {
				head.Type = "message"
			}
			if runID != "" && head.RunID != runID {
				continue
			}
			send(head.Type, msg)
		}
	}
}
