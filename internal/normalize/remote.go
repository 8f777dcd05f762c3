package normalize

import (
	"regexp"
	"strings"

	"jobagg/internal/domain"
)

var (
	remoteRe = regexp.MustCompile(`(?i)\b(remote|remotely|work from home|work-from-home|wfh|telecommut\w*|telework\w*|home[- ]based)\b`)
	hybridRe = regexp.MustCompile(`(?i)\bhybrid\b`)
	onsiteRe = regexp.MustCompile(`(?i)\b(on-site|onsite|on site|in-office|in office)\b`)
)

// IsRemote is true when any of the texts carries a fully-remote signal.
// Hybrid alone does not count.
func IsRemote(title, description, location string) bool {
	return ClassifyWorkMode(title, description, location) == domain.WorkModeRemote
}

// ClassifyWorkMode checks title and location before the description, since
// descriptions often mention remote work in passing. Within one text, when
// both remote and hybrid appear the earlier mention wins: "Remote (hybrid
// optional)" is remote, "Hybrid, 2 days remote" is hybrid. Onsite counts
// only when neither appears.
func ClassifyWorkMode(title, description, location string) domain.WorkMode {
	head := strings.Join([]string{title, location}, " ")
	if m := classify(head); m != domain.WorkModeUnknown {
		return m
	}
	return classify(description)
}

func classify(s string) domain.WorkMode {
	if strings.TrimSpace(s) == "" {
		return domain.WorkModeUnknown
	}
	r, h := remoteRe.FindStringIndex(s), hybridRe.FindStringIndex(s)
	switch {
	case h != nil && (r == nil || h[0] < r[0]):
		return domain.WorkModeHybrid
	case r != nil:
		return domain.WorkModeRemote
	case onsiteRe.MatchString(s):
		return domain.WorkModeOnsite
	default:
		return domain.WorkModeUnknown
	}
}
