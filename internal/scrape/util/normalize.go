package util

import "strings"

func CleanText(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = strings.Join(strings.Fields(s), " ")
	return strings.TrimSpace(s)
}

// FirstNonEmpty returns the first value that is not blank after cleanup.
func FirstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = CleanText(v); v != "" {
			return v
		}
	}
	return ""
}
