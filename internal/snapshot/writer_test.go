package snapshot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobswipe-core/internal/models"
)

func sampleJob() models.Job {
	min, max := 120000, 160000
	return models.Job{
		ID:         "job-1",
		CompanyID:  "co-1",
		Title:      "Backend Engineer",
		ApplyURL:   "https://boards.greenhouse.io/acme/jobs/42",
		Location:   "Remote (US)",
		RemoteType: "remote",
		SalaryMin:  &min,
		SalaryMax:  &max,
		Currency:   "USD",
		Tags:       []string{"go", "postgres"},
		SchemaID:   "schema-7",
		IsActive:   true,
	}
}

func sampleCompany() models.Company {
	return models.Company{ID: "co-1", Name: "Acme", Domain: "acme.dev"}
}

func TestBuildSnapshot(t *testing.T) {
	snap, err := Build("app-1", sampleJob(), sampleCompany())
	require.NoError(t, err)

	assert.NotEmpty(t, snap.ID)
	assert.Equal(t, "app-1", snap.ApplicationID)
	assert.Equal(t, "Backend Engineer", snap.Title)
	assert.Equal(t, "greenhouse", snap.JobBoard)
	assert.Equal(t, "Acme", snap.CompanyName)
	assert.Equal(t, "schema-7", snap.SchemaID)
	assert.Equal(t, 120000, *snap.SalaryMin)
	assert.False(t, snap.CapturedAt.IsZero())
}

func TestBuildSnapshotMissingCoreFields(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(j *models.Job, c *models.Company)
	}{
		{"missing title", func(j *models.Job, _ *models.Company) { j.Title = "" }},
		{"missing apply url", func(j *models.Job, _ *models.Company) { j.ApplyURL = "" }},
		{"missing company name", func(_ *models.Job, c *models.Company) { c.Name = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job, company := sampleJob(), sampleCompany()
			tt.mutate(&job, &company)
			_, err := Build("app-1", job, company)
			assert.Error(t, err)
		})
	}
}

func TestJobBoardDetection(t *testing.T) {
	tests := []struct {
		url   string
		board string
	}{
		{"https://boards.greenhouse.io/acme/jobs/42", "greenhouse"},
		{"https://jobs.lever.co/acme/42", "lever"},
		{"https://acme.wd1.myworkday.com/careers/42", "workday"},
		{"https://www.linkedin.com/jobs/view/42", "linkedin"},
		{"https://careers.acme.dev/apply/42", "generic"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.board, models.JobBoardFromURL(tt.url), tt.url)
	}
}
