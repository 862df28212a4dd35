package classifier

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobswipe-core/internal/enrichment"
	"jobswipe-core/internal/models"
)

type fakeEnricher struct {
	intel enrichment.Intelligence
	err   error
}

func (f *fakeEnricher) Enrich(context.Context, string, string) (enrichment.Intelligence, error) {
	return f.intel, f.err
}

func sampleForm() []models.FormField {
	return []models.FormField{
		{ID: "first_name", Type: models.FieldText, Required: true, Label: "First Name"},
		{ID: "email", Type: models.FieldEmail, Required: true, Label: "Email"},
		{ID: "resume", Type: models.FieldFile, Required: true, Label: "Resume/CV"},
		{ID: "motivation", Type: models.FieldTextarea, Required: true, Label: "Why do you want to work here?"},
		{ID: "newsletter", Type: models.FieldBoolean, Required: false, Label: "Subscribe to updates"},
	}
}

func TestBuildSchema(t *testing.T) {
	b := NewBuilder(&fakeEnricher{intel: enrichment.Intelligence{Keywords: []string{"go", "distributed systems"}}})

	job := models.Job{ID: "job-1", Title: "Backend Engineer", Description: "..."}
	company := models.Company{ID: "co-1", Name: "Acme"}

	schema, err := b.Build(context.Background(), job, company, 1, sampleForm())
	require.NoError(t, err)

	assert.Equal(t, "job-1", schema.JobID)
	assert.Equal(t, 1, schema.Version)
	assert.Len(t, schema.Fields, 5)
	assert.Equal(t, 4, schema.RequiredFields)
	assert.Equal(t, 1, schema.OptionalFields)
	assert.Equal(t, 1, schema.FileUploadFields)
	assert.Equal(t, 1, schema.CoverLetterFields)
	assert.NotEmpty(t, schema.ID)

	// 3 deterministic + 1 generated required: round((3*98+90)/4) = 96.
	assert.Equal(t, 96, schema.Feasibility.EstimatedSuccessRate)
	assert.Equal(t, models.FeasibilityHigh, schema.Feasibility.Feasibility)

	var essay models.ClassifiedField
	for _, cf := range schema.Fields {
		if cf.Strategy == models.StrategyAIGenerate {
			essay = cf
		}
	}
	assert.Contains(t, essay.GenerationHint, "Why do you want to work here?")
	assert.Contains(t, essay.GenerationHint, "Backend Engineer at Acme")
	assert.Contains(t, essay.GenerationHint, "distributed systems")
}

func TestBuildSchemaEnrichmentDown(t *testing.T) {
	b := NewBuilder(&fakeEnricher{err: errors.New("upstream timeout")})

	schema, err := b.Build(context.Background(),
		models.Job{ID: "job-1", Title: "Backend Engineer"},
		models.Company{ID: "co-1", Name: "Acme"}, 2, sampleForm())
	require.NoError(t, err)
	assert.Equal(t, 2, schema.Version)
}

func TestBuildSchemaRejectsEmptyForm(t *testing.T) {
	b := NewBuilder(nil)
	_, err := b.Build(context.Background(), models.Job{ID: "job-1"}, models.Company{}, 1, nil)
	assert.Error(t, err)
}
