package domain

import (
	"fmt"
	"strings"
)

// Site identifies one external job source.
type Site string

const (
	SiteLinkedIn     Site = "linkedin"
	SiteIndeed       Site = "indeed"
	SiteGlassdoor    Site = "glassdoor"
	SiteGoogle       Site = "google"
	SiteZipRecruiter Site = "zip_recruiter"
	SiteNaukri       Site = "naukri"
	SiteBayt         Site = "bayt"
)

// AllSites is the default source list, in output sort order.
var AllSites = []Site{
	SiteBayt,
	SiteGlassdoor,
	SiteGoogle,
	SiteIndeed,
	SiteLinkedIn,
	SiteNaukri,
	SiteZipRecruiter,
}

func ParseSite(s string) (Site, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	v = strings.ReplaceAll(v, "-", "_")
	if v == "ziprecruiter" {
		v = string(SiteZipRecruiter)
	}
	for _, site := range AllSites {
		if string(site) == v {
			return site, nil
		}
	}
	return "", fmt.Errorf("unknown site %q", s)
}

type JobType string

const (
	JobTypeFullTime   JobType = "fulltime"
	JobTypePartTime   JobType = "parttime"
	JobTypeContract   JobType = "contract"
	JobTypeTemporary  JobType = "temporary"
	JobTypeInternship JobType = "internship"
	JobTypePerDiem    JobType = "perdiem"
	JobTypeNights     JobType = "nights"
	JobTypeOther      JobType = "other"
	JobTypeSummer     JobType = "summer"
	JobTypeVolunteer  JobType = "volunteer"
)

var AllJobTypes = []JobType{
	JobTypeFullTime,
	JobTypePartTime,
	JobTypeContract,
	JobTypeTemporary,
	JobTypeInternship,
	JobTypePerDiem,
	JobTypeNights,
	JobTypeOther,
	JobTypeSummer,
	JobTypeVolunteer,
}

func (t JobType) Valid() bool {
	for _, x := range AllJobTypes {
		if x == t {
			return true
		}
	}
	return false
}

type DescriptionFormat string

const (
	FormatMarkdown DescriptionFormat = "markdown"
	FormatHTML     DescriptionFormat = "html"
	FormatPlain    DescriptionFormat = "plain"
)

func (f DescriptionFormat) Valid() bool {
	return f == FormatMarkdown || f == FormatHTML || f == FormatPlain
}
