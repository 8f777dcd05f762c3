package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ParseDate accepts RFC3339, YYYY-MM-DD and epoch seconds or milliseconds.
func ParseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil && n > 0 {
		return FromEpoch(n)
	}
	return nil
}

// FromEpoch treats values >= 1e12 as milliseconds.
func FromEpoch(n int64) *time.Time {
	if n <= 0 {
		return nil
	}
	var t time.Time
	if n >= 1_000_000_000_000 {
		t = time.UnixMilli(n).UTC()
	} else {
		t = time.Unix(n, 0).UTC()
	}
	return &t
}

var relativeRe = regexp.MustCompile(`(?i)(\d+)\s*\+?\s*(minute|min|hour|hr|day|week|month|year)s?`)

// ParseRelativeDate resolves listing ages like "3 days ago", "30+ days ago",
// "Just posted" or "today" against now. The result is truncated to the day.
func ParseRelativeDate(s string, now time.Time) *time.Time {
	low := strings.ToLower(strings.TrimSpace(s))
	if low == "" {
		return nil
	}
	day := func(t time.Time) *time.Time {
		d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
		return &d
	}

	switch {
	case strings.Contains(low, "just posted"), strings.Contains(low, "today"),
		strings.Contains(low, "just now"), strings.Contains(low, "few hours"):
		return day(now)
	case strings.Contains(low, "yesterday"):
		return day(now.AddDate(0, 0, -1))
	}

	m := relativeRe.FindStringSubmatch(low)
	if m == nil {
		return ParseDate(s)
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	switch m[2] {
	case "minute", "min":
		return day(now.Add(-time.Duration(n) * time.Minute))
	case "hour", "hr":
		return day(now.Add(-time.Duration(n) * time.Hour))
	case "day":
		return day(now.AddDate(0, 0, -n))
	case "week":
		return day(now.AddDate(0, 0, -7*n))
	case "month":
		return day(now.AddDate(0, -n, 0))
	case "year":
		return day(now.AddDate(-n, 0, 0))
	}
	return nil
}
