package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobagg/internal/domain"
)

func TestIsRemote(t *testing.T) {
	assert.True(t, IsRemote("Remote Software Engineer", "", ""))
	assert.False(t, IsRemote("On-site Developer", "Office based", ""))
	assert.True(t, IsRemote("Engineer", "You can work from home every day.", ""))
	assert.True(t, IsRemote("Engineer", "", "Anywhere (WFH)"))
	assert.True(t, IsRemote("Support Agent - Telecommute", "", ""))
	assert.False(t, IsRemote("Hybrid Engineer", "", "London"))
	assert.False(t, IsRemote("Remotes and Sensors Technician", "", ""))
	assert.True(t, IsRemote("Remote (Hybrid optional) Engineer", "", ""))
}

func TestClassifyWorkMode(t *testing.T) {
	tests := []struct {
		title, desc, loc string
		want             domain.WorkMode
	}{
		{"Backend Engineer (Hybrid)", "", "", domain.WorkModeHybrid},
		{"Backend Engineer", "", "Remote, US", domain.WorkModeRemote},
		{"Backend Engineer", "This is an onsite role.", "Austin, TX", domain.WorkModeOnsite},
		{"Onsite Nurse", "Remote charting tools are used.", "", domain.WorkModeOnsite},
		{"Backend Engineer", "", "", domain.WorkModeUnknown},
		{"Remote (Hybrid optional) Engineer", "", "", domain.WorkModeRemote},
		{"Hybrid Engineer, 2 days remote", "", "", domain.WorkModeHybrid},
		{"Engineer", "Fully remote. Hybrid for those near Austin.", "", domain.WorkModeRemote},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyWorkMode(tt.title, tt.desc, tt.loc), tt.title)
	}
}

func TestParseJobType(t *testing.T) {
	tests := map[string]domain.JobType{
		"Full-time":  domain.JobTypeFullTime,
		"FULLTIME":   domain.JobTypeFullTime,
		"full_time":  domain.JobTypeFullTime,
		"Vollzeit":   domain.JobTypeFullTime,
		"全职":         domain.JobTypeFullTime,
		"Teilzeit":   domain.JobTypePartTime,
		"Part Time":  domain.JobTypePartTime,
		"Contract":   domain.JobTypeContract,
		"Praktikum":  domain.JobTypeInternship,
		"Prácticas":  domain.JobTypeInternship,
		"Temporary":  domain.JobTypeTemporary,
		"Per Diem":   domain.JobTypePerDiem,
		"Volunteer":  domain.JobTypeVolunteer,
		"Other":      domain.JobTypeOther,
	}
	for in, want := range tests {
		got, ok := ParseJobType(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}

	_, ok := ParseJobType("astronaut")
	assert.False(t, ok)
	_, ok = ParseJobType("full-time contract")
	assert.False(t, ok, "labels are matched whole")

	assert.Equal(t,
		[]domain.JobType{domain.JobTypeFullTime, domain.JobTypeContract},
		ParseJobTypes("Full-time", "bogus", "fulltime", "Contract"))
}

func TestClassifyJobTypes(t *testing.T) {
	got := ClassifyJobTypes("Full-time or part-time contract role")
	assert.Equal(t, []domain.JobType{domain.JobTypeFullTime, domain.JobTypePartTime, domain.JobTypeContract}, got)

	assert.Equal(t, []domain.JobType{domain.JobTypeInternship}, ClassifyJobTypes("Summer internship in Berlin"))
	assert.Equal(t, []domain.JobType{domain.JobTypeFullTime}, ClassifyJobTypes("Stelle in Vollzeit"))
	assert.Empty(t, ClassifyJobTypes("We are an early-stage startup building internal tools"))
	assert.Empty(t, ClassifyJobTypes(""))
}

func TestParseLocation(t *testing.T) {
	tests := []struct {
		in       string
		fallback domain.Country
		want     domain.Location
	}{
		{"San Francisco, CA", domain.CountryUSA, domain.Location{City: "San Francisco", State: "CA", Country: domain.CountryUSA}},
		{"Indianapolis, IN", domain.CountryIndia, domain.Location{City: "Indianapolis", State: "IN", Country: domain.CountryUSA}},
		{"Toronto, ON, Canada", domain.CountryUSA, domain.Location{City: "Toronto", State: "ON", Country: domain.CountryCanada}},
		{"Bengaluru", domain.CountryIndia, domain.Location{City: "Bengaluru", Country: domain.CountryIndia}},
		{"United Kingdom", domain.CountryUSA, domain.Location{Country: domain.CountryUK}},
		{"New York, NY (Hybrid)", domain.CountryUSA, domain.Location{City: "New York", State: "NY", Country: domain.CountryUSA}},
		{"Remote", domain.CountryUSA, domain.Location{}},
		{"Dubai · United Arab Emirates", domain.CountryUSA, domain.Location{City: "Dubai", Country: "AE"}},
		{"", domain.CountryUSA, domain.Location{}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLocation(tt.in, tt.fallback), tt.in)
	}
}

func TestParseRelativeDate(t *testing.T) {
	now := time.Date(2024, 5, 10, 15, 30, 0, 0, time.UTC)
	day := func(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

	tests := map[string]time.Time{
		"3 days ago":    day(2024, 5, 7),
		"30+ days ago":  day(2024, 4, 10),
		"Just posted":   day(2024, 5, 10),
		"Posted today":  day(2024, 5, 10),
		"yesterday":     day(2024, 5, 9),
		"2 weeks ago":   day(2024, 4, 26),
		"1 month ago":   day(2024, 4, 10),
		"5 hours ago":   day(2024, 5, 10),
		"2024-01-02":    day(2024, 1, 2),
	}
	for in, want := range tests {
		got := ParseRelativeDate(in, now)
		require.NotNil(t, got, in)
		assert.True(t, want.Equal(*got), "%s: got %s", in, got)
	}
	assert.Nil(t, ParseRelativeDate("", now))
	assert.Nil(t, ParseRelativeDate("sometime", now))
}

func TestParseDate(t *testing.T) {
	want := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{"2024-01-02", "2024-01-02T00:00:00Z", "1704153600", "1704153600000"} {
		got := ParseDate(in)
		require.NotNil(t, got, in)
		assert.True(t, want.Equal(*got), in)
	}
	assert.Nil(t, ParseDate("not a date"))
	assert.Nil(t, FromEpoch(0))
}

func TestExtractEmails(t *testing.T) {
	got := ExtractEmails("Contact HR@Example.com or hr@example.com, and jobs@acme.io.")
	assert.Equal(t, []string{"hr@example.com", "jobs@acme.io"}, got)
	assert.Empty(t, ExtractEmails("no addresses here"))
}

func TestFormatDescription(t *testing.T) {
	html := "<p>Hello <b>world</b></p><ul><li>Go</li><li>SQL</li></ul>"

	assert.Equal(t, html, FormatDescription(html, domain.FormatHTML))
	assert.Equal(t, "Hello world\nGo\nSQL", FormatDescription(html, domain.FormatPlain))

	out := FormatDescription(html, domain.FormatMarkdown)
	assert.Contains(t, out, "Hello **world**")
	assert.Contains(t, out, "- Go")
	assert.Empty(t, FormatDescription("  ", domain.FormatMarkdown))
}

func TestEnrich(t *testing.T) {
	req := domain.ScrapeRequest{EnforceAnnualSalary: true}
	job := &domain.NormalizedJob{
		Title:       "Engineer",
		Location:    domain.Location{City: "Austin"},
		Description: "Pay: $50 - $75 per hour. Email jobs@acme.io. Full-time remote role.",
	}
	Enrich(job, req, DefaultSalaryHeuristics())

	require.NotNil(t, job.Compensation)
	assert.Equal(t, domain.IntervalYearly, job.Compensation.Interval)
	assert.Equal(t, 104000.0, *job.Compensation.MinAmount)
	assert.Equal(t, 156000.0, *job.Compensation.MaxAmount)
	assert.Equal(t, domain.WorkModeRemote, job.WorkMode)
	assert.True(t, job.IsRemote)
	assert.Equal(t, []domain.JobType{domain.JobTypeFullTime}, job.JobTypes)
	assert.Equal(t, []string{"jobs@acme.io"}, job.Emails)
	assert.Empty(t, job.Location.Country, "country is the adapter's call")
}

func TestEnrichKeepsAdapterFields(t *testing.T) {
	comp := &domain.Compensation{Interval: domain.IntervalYearly, MinAmount: domain.Amount(90000), Currency: "USD"}
	job := &domain.NormalizedJob{
		Description:  "$50 - $75 per hour, part-time",
		Compensation: comp,
		JobTypes:     []domain.JobType{domain.JobTypeContract},
		WorkMode:     domain.WorkModeOnsite,
	}
	Enrich(job, domain.ScrapeRequest{}, DefaultSalaryHeuristics())

	assert.Same(t, comp, job.Compensation)
	assert.Equal(t, []domain.JobType{domain.JobTypeContract}, job.JobTypes)
	assert.Equal(t, domain.WorkModeOnsite, job.WorkMode)
	assert.False(t, job.IsRemote)

	half := &domain.NormalizedJob{Compensation: &domain.Compensation{Currency: "USD"}}
	Enrich(half, domain.ScrapeRequest{}, DefaultSalaryHeuristics())
	assert.Nil(t, half.Compensation)
}
