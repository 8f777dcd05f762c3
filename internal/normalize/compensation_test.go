package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobagg/internal/domain"
)

func TestParseCompensation(t *testing.T) {
	tests := []struct {
		text     string
		interval domain.Interval
		min, max float64
		currency string
	}{
		{"$100,000 - $150,000", domain.IntervalYearly, 100000, 150000, "USD"},
		{"$100k - $150k per year", domain.IntervalYearly, 100000, 150000, "USD"},
		{"Salary: $100K-150K", domain.IntervalYearly, 100000, 150000, "USD"},
		{"$25 - $35 an hour", domain.IntervalHourly, 25, 35, "USD"},
		{"$25.50 to $30.75", domain.IntervalHourly, 25.5, 30.75, "USD"},
		{"$5,000 - $8,000", domain.IntervalMonthly, 5000, 8000, "USD"},
		{"£40k – £50k", domain.IntervalYearly, 40000, 50000, "GBP"},
		{"€3,000 - €4,000 per month", domain.IntervalMonthly, 3000, 4000, "EUR"},
		{"12-16 Lacs P.A.", domain.IntervalYearly, 1_200_000, 1_600_000, "INR"},
		{"₹ 1-5 Cr", domain.IntervalYearly, 10_000_000, 50_000_000, "INR"},
		{"8 LPA", domain.IntervalYearly, 800_000, 800_000, "INR"},
		{"$120,000 - $150,000 plus a monthly bonus", domain.IntervalYearly, 120000, 150000, "USD"},
		{"Pay: $90,000 - $110,000. We offer a monthly wellness stipend.", domain.IntervalYearly, 90000, 110000, "USD"},
		{"$100k - $150k USD per year", domain.IntervalYearly, 100000, 150000, "USD"},
		{"€3,000 - €4,000 / month", domain.IntervalMonthly, 3000, 4000, "EUR"},
		{"Serving 3 crore customers. Salary $100,000 - $150,000", domain.IntervalYearly, 100000, 150000, "USD"},
		{"CTC: 18 Lakhs", domain.IntervalYearly, 1_800_000, 1_800_000, "INR"},
		{"₹50,000 - ₹80,000 per month", domain.IntervalMonthly, 50000, 80000, "INR"},
		{"$90 - $120k", domain.IntervalYearly, 90000, 120000, "USD"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			c := ParseCompensation(tt.text)
			require.NotNil(t, c)
			require.True(t, c.Valid())
			assert.Equal(t, tt.interval, c.Interval)
			assert.Equal(t, tt.min, *c.MinAmount)
			assert.Equal(t, tt.max, *c.MaxAmount)
			assert.Equal(t, tt.currency, c.Currency)
		})
	}
}

func TestParseCompensationAbsent(t *testing.T) {
	for _, text := range []string{
		"",
		"Not disclosed",
		"Competitive salary",
		"$100 - $50",       // min >= max
		"$10 - $900,000",   // implied annual max out of range
		"$100,000",         // no range
		"5-7 years of experience",
		"Serving 3 crore customers across India",
		"$90k - $120",
		"$20 - $120k",
		"Funded with 500 crore in 2021. Salary: 900 crore",
	} {
		assert.Nil(t, ParseCompensation(text), text)
	}
}

func TestSalaryHeuristicsAreConfigurable(t *testing.T) {
	h := DefaultSalaryHeuristics()
	h.HourlyThreshold = 10

	// 25 is no longer hourly, and as a monthly figure it is implausibly low.
	assert.Nil(t, h.Parse("$25 - $35"))
	assert.NotNil(t, ParseCompensation("$25 - $35"))
}

func TestAnnualize(t *testing.T) {
	hourly := &domain.Compensation{
		Interval:  domain.IntervalHourly,
		MinAmount: domain.Amount(50),
		MaxAmount: domain.Amount(75),
		Currency:  "USD",
	}
	got := Annualize(hourly)
	require.NotNil(t, got)
	assert.Equal(t, domain.IntervalYearly, got.Interval)
	assert.Equal(t, 104000.0, *got.MinAmount)
	assert.Equal(t, 156000.0, *got.MaxAmount)
	assert.Equal(t, domain.IntervalHourly, hourly.Interval, "input must not change")

	assert.Same(t, got, Annualize(got))
	assert.Nil(t, Annualize(nil))

	monthly := &domain.Compensation{Interval: domain.IntervalMonthly, MaxAmount: domain.Amount(5000)}
	m := Annualize(monthly)
	assert.Nil(t, m.MinAmount)
	assert.Equal(t, 60000.0, *m.MaxAmount)

	weekly := Annualize(&domain.Compensation{Interval: domain.IntervalWeekly, MinAmount: domain.Amount(1000)})
	assert.Equal(t, 52000.0, *weekly.MinAmount)
	daily := Annualize(&domain.Compensation{Interval: domain.IntervalDaily, MinAmount: domain.Amount(100)})
	assert.Equal(t, 26000.0, *daily.MinAmount)
}

func TestParseInterval(t *testing.T) {
	tests := map[string]domain.Interval{
		"HOUR":     domain.IntervalHourly,
		"hourly":   domain.IntervalHourly,
		"per hour": domain.IntervalHourly,
		"/hr":      domain.IntervalHourly,
		"DAY":      domain.IntervalDaily,
		"WEEKLY":   domain.IntervalWeekly,
		"MONTH":    domain.IntervalMonthly,
		"ANNUAL":   domain.IntervalYearly,
		"YEARLY":   domain.IntervalYearly,
		"per year": domain.IntervalYearly,
	}
	for in, want := range tests {
		got, ok := ParseInterval(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}

	_, ok := ParseInterval("fortnight")
	assert.False(t, ok)
	_, ok = ParseInterval("")
	assert.False(t, ok)
}

func TestCompensationFromRange(t *testing.T) {
	c := CompensationFromRange(domain.Amount(20), nil, "HOUR", "usd")
	require.NotNil(t, c)
	assert.Equal(t, domain.IntervalHourly, c.Interval)
	assert.Equal(t, 20.0, *c.MinAmount)
	assert.Nil(t, c.MaxAmount)
	assert.Equal(t, "USD", c.Currency)

	assert.Nil(t, CompensationFromRange(domain.Amount(20), domain.Amount(30), "bogus", "USD"))
	assert.Nil(t, CompensationFromRange(nil, nil, "YEARLY", "USD"))
	assert.Nil(t, CompensationFromRange(domain.Amount(0), domain.Amount(0), "YEARLY", "USD"))
}
