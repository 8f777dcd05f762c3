package normalize

import (
	"regexp"
	"strconv"
	"strings"

	"jobagg/internal/domain"
)

// SalaryHeuristics bounds the free-text salary parser. The numbers are
// rules of thumb and are loaded from config.
type SalaryHeuristics struct {
	LowerLimit       float64 `yaml:"lower_limit"`       // lowest plausible annual figure
	UpperLimit       float64 `yaml:"upper_limit"`       // highest plausible annual figure
	HourlyThreshold  float64 `yaml:"hourly_threshold"`  // min below this is hourly
	MonthlyThreshold float64 `yaml:"monthly_threshold"` // min below this is monthly
}

func DefaultSalaryHeuristics() SalaryHeuristics {
	return SalaryHeuristics{
		LowerLimit:       1000,
		UpperLimit:       700000,
		HourlyThreshold:  350,
		MonthlyThreshold: 30000,
	}
}

const (
	lakh  = 100_000
	crore = 10_000_000
)

var (
	currencyBySymbol = map[string]string{
		"$": "USD",
		"£": "GBP",
		"€": "EUR",
		"₹": "INR",
	}

	rangeRe = regexp.MustCompile(
		`([$£€₹])\s?(\d{1,3}(?:,\d{3})+|\d+)(\.\d+)?\s*([kK])?\s*(?:-|–|—|to)\s*[$£€₹]?\s?(\d{1,3}(?:,\d{3})+|\d+)(\.\d+)?\s*([kK])?`)

	indianRangeRe = regexp.MustCompile(
		`(?i)(\d+(?:\.\d+)?)\s*(?:-|–|—|to)\s*(\d+(?:\.\d+)?)\s*(lakhs?|lacs?|lpa|crores?|cr)\b`)
	indianSingleRe = regexp.MustCompile(
		`(?i)(\d+(?:\.\d+)?)\s*(lakhs?|lacs?|lpa|crores?|cr)\b`)
	// a lone lakh/crore figure is only pay when it reads like pay
	indianPayContextRe = regexp.MustCompile(`(?i)(salary|ctc|package|stipend|compensation|\bpay\b|₹|\binr\b|\brs\.?)`)

	// the interval word must follow the range directly: "$25 - $35 an hour",
	// "$100k - $150k USD per year", "€3,000 - €4,000 / month"
	explicitIntervalRe = regexp.MustCompile(
		`(?i)^[\s(,]*(?:(?:usd|gbp|eur|inr)\s*)?(?:(?:per|an?|/)\s*(hour|hr|day|week|wk|month|mo|year|yr|annum)\b|(hourly|daily|weekly|monthly|yearly|annually)\b)`)
)

// inrScale widens the plausibility bounds for rupee figures.
const inrScale = 100

// ParseCompensation runs Parse with the default heuristics.
func ParseCompensation(text string) *domain.Compensation {
	return DefaultSalaryHeuristics().Parse(text)
}

// Parse extracts a salary range from free text. It returns nil unless the
// result satisfies the compensation invariant and the implied annual range is
// plausible. A range carrying a currency symbol wins over lakh/crore
// notation, except for rupee ranges, where the lakh/crore reading is
// preferred.
func (h SalaryHeuristics) Parse(text string) *domain.Compensation {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	sym := h.parseSymbolRange(text)
	if sym != nil && sym.Currency != "INR" {
		return sym
	}
	if c := h.parseIndian(text); c != nil {
		return c
	}
	return sym
}

func (h SalaryHeuristics) parseSymbolRange(text string) *domain.Compensation {
	loc := rangeRe.FindStringSubmatchIndex(text)
	if loc == nil {
		return nil
	}
	group := func(i int) string {
		if loc[2*i] < 0 {
			return ""
		}
		return text[loc[2*i]:loc[2*i+1]]
	}
	lo, ok1 := parseAmount(group(2), group(3))
	hi, ok2 := parseAmount(group(5), group(6))
	if !ok1 || !ok2 {
		return nil
	}
	loK, hiK := group(4) != "", group(7) != ""
	if loK {
		lo *= 1000
	}
	if hiK {
		hi *= 1000
		// "$90 - $120k": the suffix is shared when the bare lower bound
		// only makes sense in thousands
		if !loK && lo*1000 < hi && lo*1000*4 >= hi {
			lo *= 1000
		}
	}
	currency := currencyBySymbol[group(1)]

	interval, explicit := explicitInterval(text[loc[1]:])
	if !explicit {
		switch {
		case lo < h.HourlyThreshold:
			interval = domain.IntervalHourly
		case lo < h.MonthlyThreshold:
			interval = domain.IntervalMonthly
		default:
			interval = domain.IntervalYearly
		}
	}

	f := annualFactor(interval)
	if !h.plausible(lo*f, hi*f, currency) || lo >= hi {
		return nil
	}
	return &domain.Compensation{
		Interval:  interval,
		MinAmount: domain.Amount(lo),
		MaxAmount: domain.Amount(hi),
		Currency:  currency,
	}
}

// plausible checks an annual range against the configured bounds.
func (h SalaryHeuristics) plausible(lo, hi float64, currency string) bool {
	lower, upper := h.LowerLimit, h.UpperLimit
	if currency == "INR" {
		lower, upper = lower*inrScale, upper*inrScale
	}
	return lo >= lower && lo <= upper && hi >= lower && hi <= upper
}

func (h SalaryHeuristics) parseIndian(text string) *domain.Compensation {
	if m := indianRangeRe.FindStringSubmatch(text); m != nil {
		unit := indianUnit(m[3])
		lo, err1 := strconv.ParseFloat(m[1], 64)
		hi, err2 := strconv.ParseFloat(m[2], 64)
		if err1 == nil && err2 == nil && lo <= hi && hi > 0 && h.plausible(lo*unit, hi*unit, "INR") {
			return &domain.Compensation{
				Interval:  domain.IntervalYearly,
				MinAmount: domain.Amount(lo * unit),
				MaxAmount: domain.Amount(hi * unit),
				Currency:  "INR",
			}
		}
	}
	for _, loc := range indianSingleRe.FindAllStringSubmatchIndex(text, -1) {
		unitText := text[loc[4]:loc[5]]
		if !strings.EqualFold(unitText, "lpa") && !indianPayContextRe.MatchString(text[max(0, loc[0]-40):loc[0]]) {
			continue
		}
		v, err := strconv.ParseFloat(text[loc[2]:loc[3]], 64)
		if err != nil || v == 0 {
			continue
		}
		v *= indianUnit(unitText)
		if !h.plausible(v, v, "INR") {
			continue
		}
		return &domain.Compensation{
			Interval:  domain.IntervalYearly,
			MinAmount: domain.Amount(v),
			MaxAmount: domain.Amount(v),
			Currency:  "INR",
		}
	}
	return nil
}

func indianUnit(s string) float64 {
	if strings.HasPrefix(strings.ToLower(s), "c") {
		return crore
	}
	return lakh
}

func parseAmount(whole, frac string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(whole, ",", "")+frac, 64)
	return v, err == nil
}

// explicitInterval reads a unit word at the start of tail, the text right
// after the matched range.
func explicitInterval(tail string) (domain.Interval, bool) {
	m := explicitIntervalRe.FindStringSubmatch(tail)
	if m == nil {
		return "", false
	}
	word := m[1]
	if word == "" {
		word = m[2]
	}
	return ParseInterval(word)
}

var intervalAliases = map[string]domain.Interval{
	"hour": domain.IntervalHourly, "hourly": domain.IntervalHourly, "hr": domain.IntervalHourly, "h": domain.IntervalHourly,
	"day": domain.IntervalDaily, "daily": domain.IntervalDaily,
	"week": domain.IntervalWeekly, "weekly": domain.IntervalWeekly, "wk": domain.IntervalWeekly,
	"month": domain.IntervalMonthly, "monthly": domain.IntervalMonthly, "mo": domain.IntervalMonthly, "mth": domain.IntervalMonthly,
	"year": domain.IntervalYearly, "yearly": domain.IntervalYearly, "yr": domain.IntervalYearly, "annual": domain.IntervalYearly,
	"annually": domain.IntervalYearly, "annum": domain.IntervalYearly, "pa": domain.IntervalYearly,
}

// ParseInterval maps a source's pay-period label ("HOUR", "per year",
// "ANNUAL", "monthly", ...) onto the canonical enum.
func ParseInterval(s string) (domain.Interval, bool) {
	v := strings.ToLower(strings.TrimSpace(s))
	v = strings.TrimPrefix(v, "/")
	v = strings.TrimPrefix(v, "per ")
	v = strings.TrimPrefix(v, "an ")
	v = strings.TrimPrefix(v, "a ")
	v = strings.TrimSuffix(v, "s")
	v = strings.TrimSpace(v)
	if v == "" {
		return "", false
	}
	i, ok := intervalAliases[v]
	return i, ok
}

// CompensationFromRange builds compensation from a source that already
// supplies numbers and a unit. Non-positive amounts count as missing.
func CompensationFromRange(lo, hi *float64, unit, currency string) *domain.Compensation {
	interval, ok := ParseInterval(unit)
	if !ok {
		return nil
	}
	c := &domain.Compensation{
		Interval:  interval,
		MinAmount: positive(lo),
		MaxAmount: positive(hi),
		Currency:  strings.ToUpper(strings.TrimSpace(currency)),
	}
	if !c.Valid() {
		return nil
	}
	return c
}

func positive(v *float64) *float64 {
	if v == nil || *v <= 0 {
		return nil
	}
	return domain.Amount(*v)
}

func annualFactor(i domain.Interval) float64 {
	switch i {
	case domain.IntervalHourly:
		return 2080
	case domain.IntervalDaily:
		return 260
	case domain.IntervalWeekly:
		return 52
	case domain.IntervalMonthly:
		return 12
	}
	return 1
}

// Annualize returns a yearly copy of c. Yearly and nil input come back as is.
func Annualize(c *domain.Compensation) *domain.Compensation {
	if c == nil || c.Interval == domain.IntervalYearly || !c.Interval.Valid() {
		return c
	}
	f := annualFactor(c.Interval)
	out := &domain.Compensation{Interval: domain.IntervalYearly, Currency: c.Currency}
	if c.MinAmount != nil {
		out.MinAmount = domain.Amount(*c.MinAmount * f)
	}
	if c.MaxAmount != nil {
		out.MaxAmount = domain.Amount(*c.MaxAmount * f)
	}
	return out
}
