// Package snapshot freezes job and company data at the moment a user commits
// to apply, so later edits or removal of the listing cannot corrupt an
// in-flight or historical application.
package snapshot

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"jobswipe-core/internal/models"
)

// Build composes the immutable snapshot for one application. It fails, and
// with it the enclosing enqueue transaction, when the source job is missing
// core fields; defaults are never silently substituted for them.
func Build(applicationID string, job models.Job, company models.Company) (models.JobSnapshot, error) {
	switch {
	case job.ID == "":
		return models.JobSnapshot{}, fmt.Errorf("snapshot job: missing id")
	case job.Title == "":
		return models.JobSnapshot{}, fmt.Errorf("snapshot job %s: missing title", job.ID)
	case job.ApplyURL == "":
		return models.JobSnapshot{}, fmt.Errorf("snapshot job %s: missing apply url", job.ID)
	case company.Name == "":
		return models.JobSnapshot{}, fmt.Errorf("snapshot job %s: missing company name", job.ID)
	}

	return models.JobSnapshot{
		ID:            uuid.New().String(),
		ApplicationID: applicationID,
		JobID:         job.ID,

		Title:       job.Title,
		Description: job.Description,
		ApplyURL:    job.ApplyURL,
		JobBoard:    models.JobBoardFromURL(job.ApplyURL),
		Location:    job.Location,
		RemoteType:  job.RemoteType,
		SalaryMin:   job.SalaryMin,
		SalaryMax:   job.SalaryMax,
		Currency:    job.Currency,
		JobType:     job.JobType,
		Category:    job.Category,
		Tags:        job.Tags,
		Source:      job.Source,

		CompanyID:      company.ID,
		CompanyName:    company.Name,
		CompanyDomain:  company.Domain,
		CompanyLogoURL: company.LogoURL,
		CompanyWebsite: company.Website,

		SchemaID: job.SchemaID,

		CapturedAt: time.Now().UTC(),
	}, nil
}
