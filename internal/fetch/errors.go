package fetch

import (
	"errors"
	"fmt"
)

var (
	// ErrRateLimited means the source answered 429. It is never retried here.
	ErrRateLimited = errors.New("rate limited")

	// ErrBlocked means the source served a bot challenge instead of content.
	ErrBlocked = errors.New("blocked by anti-bot challenge")

	// ErrRetriesExhausted wraps the last transient failure once the policy gives up.
	ErrRetriesExhausted = errors.New("retries exhausted")
)

// StatusError is returned for any non-2xx response the client does not absorb.
type StatusError struct {
	StatusCode int
	URL        string
	Body       string // truncated preview
	err        error
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("status %d from %s", e.StatusCode, e.URL)
	if e.err != nil {
		msg = e.err.Error() + ": " + msg
	}
	if e.Body != "" {
		msg += " body=" + e.Body
	}
	return msg
}

func (e *StatusError) Unwrap() error { return e.err }

// IsRateLimited reports whether err means the source is actively refusing us.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrBlocked)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
