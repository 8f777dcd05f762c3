package config

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"

	"jobagg/internal/fetch"
)

type Validation struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (v *Validation) addErr(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}
func (v *Validation) addWarn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}
func (v Validation) OK() bool { return len(v.Errors) == 0 }

// Err folds the errors into one, or nil.
func (v Validation) Err() error {
	if v.OK() {
		return nil
	}
	return fmt.Errorf("config validation failed:\n- %s", strings.Join(v.Errors, "\n- "))
}

// CronParser accepts standard five-field expressions and descriptors such as
// @daily.
var CronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// NormalizeAndValidate returns a normalized copy of cfg and what is wrong
// with it.
func NormalizeAndValidate(cfg Config) (Config, Validation) {
	out := cfg
	var res Validation

	trimList := func(xs []string) []string {
		seen := map[string]bool{}
		var ys []string
		for _, x := range xs {
			x = strings.TrimSpace(x)
			if x == "" {
				continue
			}
			key := strings.ToLower(x)
			if seen[key] {
				continue
			}
			seen[key] = true
			ys = append(ys, x)
		}
		return ys
	}

	out.App.LogLevel = strings.ToLower(strings.TrimSpace(out.App.LogLevel))
	out.App.LogFormat = strings.ToLower(strings.TrimSpace(out.App.LogFormat))
	out.Fetch.Proxies = trimList(out.Fetch.Proxies)
	out.Schedules = append([]Schedule(nil), cfg.Schedules...)

	if out.App.Port <= 0 || out.App.Port > 65535 {
		res.addErr("app.port must be 1..65535")
	}
	switch out.App.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		res.addErr("app.log_level must be debug, info, warn or error, got %q", out.App.LogLevel)
	}
	switch out.App.LogFormat {
	case "", "text", "json":
	default:
		res.addErr("app.log_format must be text or json, got %q", out.App.LogFormat)
	}

	// fetch sanity
	if out.Fetch.TimeoutSeconds <= 0 {
		res.addErr("fetch.timeout_seconds must be > 0")
	}
	if out.Fetch.MaxAttempts < 1 {
		res.addErr("fetch.max_attempts must be >= 1")
	}
	if out.Fetch.MaxBackoffMS < out.Fetch.InitialBackoffMS {
		res.addErr("fetch.max_backoff_ms must be >= fetch.initial_backoff_ms")
	}
	if out.Fetch.RequestsPerSecond < 0 {
		res.addErr("fetch.requests_per_second must be >= 0")
	} else if out.Fetch.RequestsPerSecond == 0 {
		res.addWarn("fetch.requests_per_second is 0; per-host rate limiting is off.")
	}
	for i, p := range out.Fetch.Proxies {
		if _, err := fetch.ParseProxy(p); err != nil {
			res.addErr("fetch.proxies[%d]: %v", i, err)
		}
	}

	// pagination
	if out.Pagination.MinDelayMS < 0 {
		res.addErr("pagination.min_delay_ms must be >= 0")
	}
	if out.Pagination.MaxDelayMS < out.Pagination.MinDelayMS {
		res.addErr("pagination.max_delay_ms must be >= pagination.min_delay_ms")
	}
	if out.Pagination.MaxDelayMS == 0 {
		res.addWarn("pagination delay is 0; sources may rate limit quickly.")
	}

	if out.Sources.TimeoutSeconds <= 0 {
		res.addErr("sources.timeout_seconds must be > 0")
	}

	s := out.Normalize.Salary
	if s.LowerLimit <= 0 || s.UpperLimit <= s.LowerLimit {
		res.addErr("normalize.salary needs 0 < lower_limit < upper_limit")
	}
	if s.HourlyThreshold <= 0 || s.MonthlyThreshold <= s.HourlyThreshold {
		res.addErr("normalize.salary needs 0 < hourly_threshold < monthly_threshold")
	}

	if err := out.Request.WithDefaults().Validate(); err != nil {
		res.addErr("request: %v", err)
	}

	names := map[string]bool{}
	for i, sc := range out.Schedules {
		sc.Name = strings.TrimSpace(sc.Name)
		sc.Cron = strings.TrimSpace(sc.Cron)
		out.Schedules[i] = sc
		if sc.Name == "" {
			res.addErr("schedules[%d].name is required", i)
		} else if names[sc.Name] {
			res.addErr("schedules[%d].name %q is duplicated", i, sc.Name)
		}
		names[sc.Name] = true
		if _, err := CronParser.Parse(sc.Cron); err != nil {
			res.addErr("schedules[%d].cron: %v", i, err)
		}
		if err := sc.Request.WithDefaults().Validate(); err != nil {
			res.addErr("schedules[%d].request: %v", i, err)
		}
		if sc.Enabled && sc.Request.ResultsWanted > 500 {
			res.addWarn("schedules[%d] asks for %d results per site; expect rate limits.", i, sc.Request.ResultsWanted)
		}
	}

	return out, res
}
