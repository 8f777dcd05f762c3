package normalize

import (
	"regexp"
	"strings"

	"jobagg/internal/domain"
)

// jobTypeVariations lists the labels sources use for each job type, in the
// languages the supported markets publish in.
var jobTypeVariations = map[domain.JobType][]string{
	domain.JobTypeFullTime: {
		"fulltime", "full-time", "full time", "períodointegral", "estágio/trainee", "cunormăîntreagă",
		"tiempocompleto", "vollzeit", "voltijds", "tempointegral", "全职", "plnýúvazek", "fuldtid",
		"دوامكامل", "kokopäivätyö", "tempsplein", "πλήρηςαπασχόληση", "teljesmunkaidő", "tempopieno",
		"heltid", "jornadacompleta", "pełnyetat", "정규직", "100%", "全職", "งานประจำ", "tamzamanlı",
		"повназайнятість", "toànthờigian", "permanent",
	},
	domain.JobTypePartTime: {
		"parttime", "part-time", "part time", "teilzeit", "částečnýúvazek", "deltid", "medio tiempo",
		"tempo parziale", "temps partiel", "część etatu", "兼职", "パートタイム", "시간제",
	},
	domain.JobTypeContract: {
		"contract", "contractor", "contrato", "befristet", "contratto", "contrat", "kontrakt", "合同",
		"freelance", "freelancer",
	},
	domain.JobTypeInternship: {
		"internship", "intern", "prácticas", "praktikum", "stage", "stagiaire", "tirocinio", "praktyki",
		"実習", "实习", "인턴",
	},
	domain.JobTypeTemporary: {
		"temporary", "temp", "temporal", "temporär", "temporaire", "tymczasowa", "seasonal",
	},
	domain.JobTypePerDiem:    {"per diem", "per-diem", "perdiem", "prn"},
	domain.JobTypeNights:     {"nights", "night shift", "overnight"},
	domain.JobTypeSummer:     {"summer", "summer job"},
	domain.JobTypeVolunteer:  {"volunteer", "voluntario", "bénévole", "ehrenamt"},
	domain.JobTypeOther:      {"other"},
}

// labelOnly variations are too ambiguous to look for in prose.
var labelOnly = map[string]bool{"100%": true, "other": true, "stage": true, "temp": true, "summer": true}

// exact lookup keys have spaces, hyphens and slashes removed
var jobTypeByLabel = map[string]domain.JobType{}

var jobTypeRes = map[domain.JobType]*regexp.Regexp{}

func init() {
	for _, t := range domain.AllJobTypes {
		var words []string
		for _, v := range jobTypeVariations[t] {
			jobTypeByLabel[labelKey(v)] = t
			if labelOnly[v] {
				continue
			}
			words = append(words, regexp.QuoteMeta(v))
		}
		if len(words) > 0 {
			jobTypeRes[t] = regexp.MustCompile(`(?i)(?:^|[^\pL])(?:` + strings.Join(words, "|") + `)(?:$|[^\pL])`)
		}
	}
}

func labelKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "", "-", "", "_", "", "/", "").Replace(s)
}

// ParseJobType maps one job-type label to the enum. It matches whole labels
// only ("Full-time", "Vollzeit", "FULLTIME"); use ClassifyJobTypes for prose.
func ParseJobType(label string) (domain.JobType, bool) {
	t, ok := jobTypeByLabel[labelKey(label)]
	return t, ok
}

// ParseJobTypes resolves a list of labels, dropping unknown and repeated ones.
func ParseJobTypes(labels ...string) []domain.JobType {
	var out []domain.JobType
	seen := map[domain.JobType]bool{}
	for _, l := range labels {
		if t, ok := ParseJobType(l); ok && !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

// ClassifyJobTypes returns every job type whose keywords occur in text, in
// enum order. The result may be empty.
func ClassifyJobTypes(text string) []domain.JobType {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	var out []domain.JobType
	for _, t := range domain.AllJobTypes {
		if re, ok := jobTypeRes[t]; ok && re.MatchString(text) {
			out = append(out, t)
		}
	}
	return out
}
