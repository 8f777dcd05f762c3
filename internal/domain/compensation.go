package domain

import (
	"fmt"
	"strings"
)

type Interval string

const (
	IntervalHourly  Interval = "hourly"
	IntervalDaily   Interval = "daily"
	IntervalWeekly  Interval = "weekly"
	IntervalMonthly Interval = "monthly"
	IntervalYearly  Interval = "yearly"
)

func (i Interval) Valid() bool {
	switch i {
	case IntervalHourly, IntervalDaily, IntervalWeekly, IntervalMonthly, IntervalYearly:
		return true
	}
	return false
}

// Compensation is either absent (nil) or carries an interval plus at least one bound.
type Compensation struct {
	Interval  Interval `json:"interval"`
	MinAmount *float64 `json:"min_amount"`
	MaxAmount *float64 `json:"max_amount"`
	Currency  string   `json:"currency"`
}

func (c *Compensation) Valid() bool {
	if c == nil || !c.Interval.Valid() {
		return false
	}
	return c.MinAmount != nil || c.MaxAmount != nil
}

func (c *Compensation) String() string {
	if c == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(c.Currency)
	if c.MinAmount != nil {
		fmt.Fprintf(&b, " %.0f", *c.MinAmount)
	}
	if c.MaxAmount != nil {
		fmt.Fprintf(&b, " - %.0f", *c.MaxAmount)
	}
	b.WriteString(" ")
	b.WriteString(string(c.Interval))
	return strings.TrimSpace(b.String())
}

// Amount is a small helper for building compensation literals.
func Amount(v float64) *float64 { return &v }
