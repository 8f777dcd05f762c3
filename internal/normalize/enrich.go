package normalize

import (
	"jobagg/internal/domain"
)

// Enrich fills gaps in a parsed job in place. Fields the adapter already
// set are left alone, except that compensation is annualized when the
// request enforces yearly salaries.
func Enrich(job *domain.NormalizedJob, req domain.ScrapeRequest, h SalaryHeuristics) {
	if job == nil {
		return
	}

	if job.Compensation != nil && !job.Compensation.Valid() {
		job.Compensation = nil
	}
	if job.Compensation == nil {
		job.Compensation = h.Parse(job.Description)
	}
	if req.EnforceAnnualSalary {
		job.Compensation = Annualize(job.Compensation)
	}

	switch {
	case job.WorkMode != "" && job.WorkMode != domain.WorkModeUnknown:
	case job.IsRemote:
		job.WorkMode = domain.WorkModeRemote
	default:
		job.WorkMode = ClassifyWorkMode(job.Title, job.Description, job.Location.Display())
	}
	if job.WorkMode == domain.WorkModeRemote {
		job.IsRemote = true
	}

	if len(job.JobTypes) == 0 {
		job.JobTypes = ClassifyJobTypes(job.Title + "\n" + job.Description)
	}
	if len(job.Emails) == 0 {
		job.Emails = ExtractEmails(job.Description)
	}
}
