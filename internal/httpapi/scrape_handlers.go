package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"jobagg/internal/domain"
	"jobagg/internal/fetch"
	"jobagg/internal/scrape"
	"jobagg/internal/scrape/types"
)

// ScrapeHandler starts batches on demand. One manual batch runs at a time.
type ScrapeHandler struct {
	RunScrape    func(ctx context.Context, req domain.ScrapeRequest) (*scrape.Batch, error)
	SourceStatus func() []types.SourceStatus
	Log          *slog.Logger

	// RunTimeout bounds a background batch. Zero means 15 minutes.
	RunTimeout time.Duration

	mu     *sync.Mutex
	status *ScrapeStatus
}

func NewScrapeHandler(d Deps) ScrapeHandler {
	return ScrapeHandler{
		RunScrape:    d.RunScrape,
		SourceStatus: d.SourceStatus,
		Log:          d.Log,
		mu:           &sync.Mutex{},
		status:       &ScrapeStatus{},
	}
}

func (h ScrapeHandler) Status(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	st := *h.status
	h.mu.Unlock()
	if h.SourceStatus != nil {
		st.Sources = h.SourceStatus()
	}
	writeJSON(w, st)
}

// Run decodes a ScrapeRequest and starts a batch. With ?wait=true the batch
// runs inside the request and is returned; otherwise the call answers 202
// and progress arrives on /events.
func (h ScrapeHandler) Run(w http.ResponseWriter, r *http.Request) {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req domain.ScrapeRequest
	if err := dec.Decode(&req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_json", "invalid JSON: "+err.Error())
		return
	}
	if dec.More() {
		WriteError(w, r, http.StatusBadRequest, "invalid_json", "invalid JSON: trailing data")
		return
	}
	req = req.WithDefaults()
	if err := precheck(req); err != nil {
		writeRequestError(w, r, err)
		return
	}

	if !h.begin() {
		WriteError(w, r, http.StatusConflict, "already_running", "a scrape is already running")
		return
	}

	if queryBool(r, "wait") {
		b, err := h.RunScrape(r.Context(), req)
		h.finish(b, err)
		if err != nil {
			if isValidation(err) {
				writeRequestError(w, r, err)
				return
			}
			WriteError(w, r, http.StatusInternalServerError, "scrape_failed", err.Error())
			return
		}
		writeJSON(w, b)
		return
	}

	timeout := h.RunTimeout
	if timeout <= 0 {
		timeout = 15 * time.Minute
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		b, err := h.RunScrape(ctx, req)
		if err != nil {
			h.Log.Error("scrape failed", slog.Any("err", err))
		}
		h.finish(b, err)
	}()

	WriteJSON(w, http.StatusAccepted, map[string]any{"ok": true})
}

// precheck catches what the aggregator would reject before a background run
// is started.
func precheck(req domain.ScrapeRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	if _, err := fetch.NewProxyPool(req.Proxies); err != nil {
		return &domain.ValidationError{Field: "proxies", Reason: err.Error()}
	}
	return nil
}

func (h ScrapeHandler) begin() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.status.Running {
		return false
	}
	h.status.Running = true
	h.status.LastRunAt = time.Now().UTC().Format(time.RFC3339)
	h.status.LastError = ""
	h.status.LastJobs = 0
	return true
}

func (h ScrapeHandler) finish(b *scrape.Batch, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.status.Running = false
	if err != nil {
		h.status.LastError = err.Error()
		return
	}
	h.status.LastRunID = b.ID
	h.status.LastJobs = len(b.Jobs)
	h.status.LastOkAt = time.Now().UTC().Format(time.RFC3339)
}
