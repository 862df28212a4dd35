package classifier

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"jobswipe-core/internal/enrichment"
	"jobswipe-core/internal/models"
)

// Builder turns a scraped form into a stored ApplicationSchema. Runs on the
// batch path, offline from user-facing enqueues.
type Builder struct {
	enrich enrichment.Client // optional
}

// NewBuilder constructs a Builder. The enrichment client may be nil; schemas
// are then built from the scraped form alone.
func NewBuilder(enrich enrichment.Client) *Builder {
	return &Builder{enrich: enrich}
}

// Build classifies every field, scores feasibility, and assembles a new schema
// version for the job's form.
func (b *Builder) Build(ctx context.Context, job models.Job, company models.Company, version int, fields []models.FormField) (*models.ApplicationSchema, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("build schema for job %s: no form fields", job.ID)
	}

	classified := ClassifyAll(fields)

	// Generated answers read better with posting context appended to the
	// question hint. Enrichment failure is not fatal to schema construction.
	jobContext := fmt.Sprintf(" Role: %s at %s.", job.Title, company.Name)
	if b.enrich != nil {
		intel, err := b.enrich.Enrich(ctx, job.Title, job.Description)
		if err != nil {
			log.Printf("enrichment unavailable for job %s: %v", job.ID, err)
		} else if len(intel.Keywords) > 0 {
			kws := intel.Keywords
			if len(kws) > 5 {
				kws = kws[:5]
			}
			jobContext += fmt.Sprintf(" Emphasize: %s.", strings.Join(kws, ", "))
		}
	}

	schema := &models.ApplicationSchema{
		ID:        uuid.New().String(),
		JobID:     job.ID,
		CompanyID: company.ID,
		Version:   version,
		Fields:    classified,
		ScrapedAt: time.Now().UTC(),
	}

	for i := range schema.Fields {
		cf := &schema.Fields[i]
		if cf.Field.Required {
			schema.RequiredFields++
		} else {
			schema.OptionalFields++
		}
		switch cf.Strategy {
		case models.StrategyFileUpload:
			schema.FileUploadFields++
		case models.StrategyAIGenerate:
			schema.CoverLetterFields++
			cf.GenerationHint += jobContext
		}
	}

	schema.Feasibility = Score(schema.Fields)
	return schema, nil
}
