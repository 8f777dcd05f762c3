package domain

import (
	"strings"
	"time"
)

type WorkMode string

const (
	WorkModeRemote  WorkMode = "remote"
	WorkModeHybrid  WorkMode = "hybrid"
	WorkModeOnsite  WorkMode = "onsite"
	WorkModeUnknown WorkMode = "unknown"
)

// NormalizedJob is the one record shape every source is reduced to.
// An adapter creates it once; normalizers only fill gaps afterwards.
type NormalizedJob struct {
	ID           string            `json:"id"` // dedup key
	Site         Site              `json:"site"`
	Title        string            `json:"title"`
	Company      string            `json:"company"`
	CompanyURL   string            `json:"company_url,omitempty"`
	JobURL       string            `json:"job_url"`
	JobURLDirect string            `json:"job_url_direct,omitempty"`
	Location     Location          `json:"location"`
	Compensation *Compensation     `json:"compensation"`
	JobTypes     []JobType         `json:"job_types"`
	DatePosted   *time.Time        `json:"date_posted"`
	IsRemote     bool              `json:"is_remote"`
	WorkMode     WorkMode          `json:"work_mode"`
	Description  string            `json:"description"`
	Emails       []string          `json:"emails"`
	Extras       map[string]string `json:"extras,omitempty"`
}

// SetExtra stores a source-specific field, skipping blanks.
func (j *NormalizedJob) SetExtra(key, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	if j.Extras == nil {
		j.Extras = map[string]string{}
	}
	j.Extras[key] = value
}

func (j NormalizedJob) HasJobType(t JobType) bool {
	for _, x := range j.JobTypes {
		if x == t {
			return true
		}
	}
	return false
}

// Location is best-effort: any field may be empty.
type Location struct {
	City    string  `json:"city,omitempty"`
	State   string  `json:"state,omitempty"`
	Country Country `json:"country,omitempty"`
}

func (l Location) IsZero() bool {
	return l.City == "" && l.State == "" && l.Country == ""
}

// Display renders "City, State, Country" skipping empty parts.
func (l Location) Display() string {
	parts := make([]string, 0, 3)
	if l.City != "" {
		parts = append(parts, l.City)
	}
	if l.State != "" {
		parts = append(parts, l.State)
	}
	if l.Country != "" {
		if info, ok := LookupCountry(l.Country); ok {
			parts = append(parts, info.DisplayName())
		} else {
			parts = append(parts, string(l.Country))
		}
	}
	return strings.Join(parts, ", ")
}
