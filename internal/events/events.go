package events

import (
	"encoding/json"
	"time"
)

// Event types published while a run is in flight.
const (
	TypeRunStarted     = "run_started"
	TypeSourceStarted  = "source_started"
	TypeSourceFinished = "source_finished"
	TypeRunFinished    = "run_finished"
	TypeJobsSaved      = "jobs_saved"
)

// Version of the event payloads below.
const Version = 1

type Event struct {
	Type    string          `json:"type"`
	Version int             `json:"v"`
	At      time.Time       `json:"at"`
	RunID   string          `json:"run_id,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

type RunProgress struct {
	Sites []string `json:"sites,omitempty"`
	Jobs  int      `json:"jobs"`
	Error string   `json:"error,omitempty"`
}

type SourceProgress struct {
	Site      string `json:"site"`
	State     string `json:"state,omitempty"`
	Jobs      int    `json:"jobs"`
	Pages     int    `json:"pages"`
	Error     string `json:"error,omitempty"`
	ElapsedMS int64  `json:"elapsed_ms,omitempty"`
}

// MakeEvent renders one event envelope as a JSON line.
func MakeEvent(runID, typ string, v int, data any) string {
	var raw json.RawMessage
	if data != nil {
		b, _ := json.Marshal(data)
		raw = b
	}
	e := Event{
		Type:    typ,
		Version: v,
		At:      time.Now().UTC(),
		RunID:   runID,
		Data:    raw,
	}
	b, _ := json.Marshal(e)
	return string(b)
}
