package models

import (
	"time"
)

// FieldType is the declared input type of a scraped form field.
type FieldType string

const (
	FieldText        FieldType = "text"
	FieldEmail       FieldType = "email"
	FieldPhone       FieldType = "phone"
	FieldFile        FieldType = "file"
	FieldTextarea    FieldType = "textarea"
	FieldSelect      FieldType = "select"
	FieldMultiSelect FieldType = "multiselect"
	FieldDate        FieldType = "date"
	FieldBoolean     FieldType = "boolean"
)

// FormField is one field of a scraped third-party application form.
// Immutable once scraped.
type FormField struct {
	ID          string    `json:"id"`
	Type        FieldType `json:"type"`
	Required    bool      `json:"required"`
	Label       string    `json:"label"`
	Description string    `json:"description,omitempty"`
	Options     []string  `json:"options,omitempty"`
	FileTypes   []string  `json:"file_types,omitempty"`
}

// AnswerStrategy is the classified method by which a field will be filled.
type AnswerStrategy string

const (
	StrategyProfileDirect     AnswerStrategy = "profile_direct"
	StrategyProfileBoolean    AnswerStrategy = "profile_boolean"
	StrategyProfileCalculated AnswerStrategy = "profile_calculated"
	StrategyFileUpload        AnswerStrategy = "file_upload"
	StrategyAIGenerate        AnswerStrategy = "ai_generate"
	StrategyAIAssisted        AnswerStrategy = "ai_assisted"
	StrategySkip              AnswerStrategy = "skip"
	StrategyUserInput         AnswerStrategy = "user_input"
)

// Deterministic reports whether the strategy is pure profile substitution,
// the most reliable bucket for the feasibility weighting.
func (s AnswerStrategy) Deterministic() bool {
	switch s {
	case StrategyProfileDirect, StrategyProfileBoolean, StrategyProfileCalculated, StrategyFileUpload:
		return true
	}
	return false
}

// ClassifiedField pairs a form field with its derived answer plan.
type ClassifiedField struct {
	Field          FormField      `json:"field"`
	Strategy       AnswerStrategy `json:"strategy"`
	ProfileMapping string         `json:"profile_mapping,omitempty"`
	GenerationHint string         `json:"generation_hint,omitempty"`
	Confidence     float64        `json:"confidence"`
}

// FeasibilityTier is the coarse automation-feasibility bucket for one form.
type FeasibilityTier string

const (
	FeasibilityHigh   FeasibilityTier = "high"
	FeasibilityMedium FeasibilityTier = "medium"
	FeasibilityLow    FeasibilityTier = "low"
)

// FeasibilityMetrics predicts whether automated submission will succeed.
type FeasibilityMetrics struct {
	EstimatedSuccessRate int             `json:"estimated_success_rate"`
	Feasibility          FeasibilityTier `json:"feasibility"`
	PreFillableRequired  int             `json:"pre_fillable_required"`
	AIDependentRequired  int             `json:"ai_dependent_required"`
	TotalRequired        int             `json:"total_required"`
}

// ApplicationSchema is the classified application form for one (job, company)
// pair. A re-scrape produces a new schema version; old versions stay referenced
// by past snapshots.
type ApplicationSchema struct {
	ID        string `json:"id"`
	JobID     string `json:"job_id"`
	CompanyID string `json:"company_id"`
	Version   int    `json:"version"`

	Fields []ClassifiedField `json:"fields"`

	RequiredFields    int `json:"required_fields"`
	OptionalFields    int `json:"optional_fields"`
	FileUploadFields  int `json:"file_upload_fields"`
	CoverLetterFields int `json:"cover_letter_fields"`

	Feasibility FeasibilityMetrics `json:"feasibility"`

	ScrapedAt time.Time `json:"scraped_at"`
}
