package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"jobswipe-core/internal/models"
)

// GetJob fetches a job with its company. Returns ErrNotFound when missing.
func (s *Store) GetJob(ctx context.Context, id string) (models.Job, models.Company, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT j.id, j.company_id, j.title, j.description, j.apply_url, j.location, j.remote_type,
		       j.salary_min, j.salary_max, j.currency, j.job_type, j.category, j.tags, j.source,
		       j.is_active, j.schema_id, j.posted_at, j.updated_at,
		       c.name, c.domain, c.logo_url, c.website, c.industry
		FROM jobs j
		JOIN companies c ON c.id = j.company_id
		WHERE j.id = $1
	`, id)

	var (
		job      models.Job
		company  models.Company
		tagsJSON []byte
		salMin   pgtype.Int4
		salMax   pgtype.Int4
		schemaID pgtype.Text
	)
	err := row.Scan(&job.ID, &job.CompanyID, &job.Title, &job.Description, &job.ApplyURL,
		&job.Location, &job.RemoteType, &salMin, &salMax, &job.Currency, &job.JobType,
		&job.Category, &tagsJSON, &job.Source, &job.IsActive, &schemaID,
		&job.PostedAt, &job.UpdatedAt,
		&company.Name, &company.Domain, &company.LogoURL, &company.Website, &company.Industry)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Job{}, models.Company{}, ErrNotFound
	}
	if err != nil {
		return models.Job{}, models.Company{}, fmt.Errorf("scan job: %w", err)
	}

	job.SalaryMin = intPtr(salMin)
	job.SalaryMax = intPtr(salMax)
	if schemaID.Valid {
		job.SchemaID = schemaID.String
	}
	if err := json.Unmarshal(tagsJSON, &job.Tags); err != nil {
		return models.Job{}, models.Company{}, fmt.Errorf("unmarshal job tags: %w", err)
	}
	company.ID = job.CompanyID
	return job, company, nil
}

// SaveSchema inserts a new schema version and points the job at it.
func (s *Store) SaveSchema(ctx context.Context, schema *models.ApplicationSchema) error {
	fieldsJSON, err := json.Marshal(schema.Fields)
	if err != nil {
		return fmt.Errorf("marshal schema fields: %w", err)
	}
	feasJSON, err := json.Marshal(schema.Feasibility)
	if err != nil {
		return fmt.Errorf("marshal feasibility: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) // safe no-op on commit

	_, err = tx.Exec(ctx, `
		INSERT INTO application_schemas
			(id, job_id, company_id, version, fields, required_fields, optional_fields,
			 file_upload_fields, cover_letter_fields, feasibility, scraped_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, schema.ID, schema.JobID, schema.CompanyID, schema.Version, fieldsJSON,
		schema.RequiredFields, schema.OptionalFields, schema.FileUploadFields,
		schema.CoverLetterFields, feasJSON, schema.ScrapedAt)
	if err != nil {
		return fmt.Errorf("insert schema: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE jobs SET schema_id = $2, updated_at = NOW() WHERE id = $1
	`, schema.JobID, schema.ID); err != nil {
		return fmt.Errorf("point job at schema: %w", err)
	}

	return tx.Commit(ctx)
}

// NextSchemaVersion returns the version a fresh re-scrape of the job's form
// should carry.
func (s *Store) NextSchemaVersion(ctx context.Context, jobID string) (int, error) {
	var v int
	err := s.pool.QueryRow(ctx, `
		SELECT COALESCE(MAX(version), 0) + 1 FROM application_schemas WHERE job_id = $1
	`, jobID).Scan(&v)
	if err != nil {
		return 0, fmt.Errorf("next schema version: %w", err)
	}
	return v, nil
}

// GetSchema fetches one schema version by id.
func (s *Store) GetSchema(ctx context.Context, id string) (*models.ApplicationSchema, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, job_id, company_id, version, fields, required_fields, optional_fields,
		       file_upload_fields, cover_letter_fields, feasibility, scraped_at
		FROM application_schemas WHERE id = $1
	`, id)

	var (
		schema     models.ApplicationSchema
		fieldsJSON []byte
		feasJSON   []byte
	)
	err := row.Scan(&schema.ID, &schema.JobID, &schema.CompanyID, &schema.Version, &fieldsJSON,
		&schema.RequiredFields, &schema.OptionalFields, &schema.FileUploadFields,
		&schema.CoverLetterFields, &feasJSON, &schema.ScrapedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan schema: %w", err)
	}
	if err := json.Unmarshal(fieldsJSON, &schema.Fields); err != nil {
		return nil, fmt.Errorf("unmarshal schema fields: %w", err)
	}
	if err := json.Unmarshal(feasJSON, &schema.Feasibility); err != nil {
		return nil, fmt.Errorf("unmarshal feasibility: %w", err)
	}
	return &schema, nil
}

// GetProfile reads the attributes the automation engine substitutes into
// deterministic fields.
func (s *Store) GetProfile(ctx context.Context, userID string) (models.UserProfile, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT user_id, first_name, last_name, email, phone, resume_url, cover_letter,
		       current_title, years_experience, skills, linkedin_url, portfolio_url,
		       website_url, location, willing_to_relocate, work_authorization,
		       require_sponsorship, custom_fields
		FROM user_profiles WHERE user_id = $1
	`, userID)

	var (
		p          models.UserProfile
		years      pgtype.Int4
		sponsor    pgtype.Bool
		skillsJSON []byte
		customJSON []byte
	)
	err := row.Scan(&p.UserID, &p.FirstName, &p.LastName, &p.Email, &p.Phone, &p.ResumeURL,
		&p.CoverLetter, &p.CurrentTitle, &years, &skillsJSON, &p.LinkedInURL, &p.PortfolioURL,
		&p.WebsiteURL, &p.Location, &p.WillingToRelocate, &p.WorkAuthorization,
		&sponsor, &customJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.UserProfile{}, ErrNotFound
	}
	if err != nil {
		return models.UserProfile{}, fmt.Errorf("scan profile: %w", err)
	}

	p.YearsExperience = intPtr(years)
	if sponsor.Valid {
		v := sponsor.Bool
		p.RequireSponsorship = &v
	}
	if err := json.Unmarshal(skillsJSON, &p.Skills); err != nil {
		return models.UserProfile{}, fmt.Errorf("unmarshal skills: %w", err)
	}
	if err := json.Unmarshal(customJSON, &p.CustomFields); err != nil {
		return models.UserProfile{}, fmt.Errorf("unmarshal custom fields: %w", err)
	}
	return p, nil
}
