package types

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"jobagg/internal/domain"
	"jobagg/internal/fetch"
	"jobagg/internal/scrape/wire"
)

// Style is how a source continues from one page to the next.
type Style int

const (
	StyleOffset Style = iota
	StylePageNumber
	StyleOpaqueCursor
)

func (s Style) String() string {
	switch s {
	case StyleOffset:
		return "offset"
	case StylePageNumber:
		return "page_number"
	case StyleOpaqueCursor:
		return "opaque_cursor"
	}
	return fmt.Sprintf("style(%d)", s)
}

// Continuation says where the next page starts. The field matching Style
// drives paging; cursor sources may also carry the page number they are on.
type Continuation struct {
	Style  Style
	Offset int
	Page   int
	Cursor string
}

func (c Continuation) String() string {
	switch c.Style {
	case StyleOffset:
		return fmt.Sprintf("offset=%d", c.Offset)
	case StylePageNumber:
		return fmt.Sprintf("page=%d", c.Page)
	default:
		if len(c.Cursor) > 16 {
			return "cursor=" + c.Cursor[:16] + "..."
		}
		return "cursor=" + c.Cursor
	}
}

// RawEntry is one unparsed listing. Key is the dedup key when the adapter
// can tell it before parsing, which lets the controller skip repeats without
// paying for detail fetches.
type RawEntry struct {
	Key  string
	Data any
}

// Page is one fetched result page. A nil Next means the source is exhausted.
type Page struct {
	Entries []RawEntry
	Next    *Continuation
}

// Adapter is the contract every job source implements.
//
// FetchPage returns a transport error when the page could not be retrieved.
// A payload it cannot make sense of yields an empty Page and a nil error.
// ParseEntry returns (nil, nil) for entries that should be skipped silently
// and an error for entries that could not be parsed; either way the rest of
// the page is still processed.
type Adapter interface {
	Site() domain.Site
	Style() Style
	Start(req domain.ScrapeRequest) Continuation
	FetchPage(ctx context.Context, req domain.ScrapeRequest, cont Continuation) (Page, error)
	ParseEntry(ctx context.Context, req domain.ScrapeRequest, raw RawEntry) (*domain.NormalizedJob, error)
}

// Deps is what an adapter is built from. Adapters keep per-run state such
// as session tokens, so a fresh one is built for every run.
type Deps struct {
	Client *fetch.Client
	Wire   wire.Descriptor
	Logger *slog.Logger
	Now    func() time.Time
}

// WithDefaults fills a discard logger and the wall clock.
func (d Deps) WithDefaults() Deps {
	if d.Logger == nil {
		d.Logger = slog.New(slog.DiscardHandler)
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Client == nil {
		d.Client = fetch.New(fetch.Options{Logger: d.Logger})
	}
	return d
}

// SourceStatus is the last known outcome of running one source.
type SourceStatus struct {
	Site      domain.Site `json:"site"`
	LastRunAt string      `json:"last_run_at"`
	LastOkAt  string      `json:"last_ok_at"`
	LastError string      `json:"last_error"`
	LastAdded int         `json:"last_added"`
	Running   bool        `json:"running"`
}
