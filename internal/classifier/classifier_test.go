package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"jobswipe-core/internal/models"
)

func TestClassifyResumeUpload(t *testing.T) {
	cf := Classify(models.FormField{
		ID:       "resume",
		Type:     models.FieldFile,
		Required: true,
		Label:    "Resume",
	})
	assert.Equal(t, models.StrategyFileUpload, cf.Strategy)
	assert.Equal(t, models.ProfileResumeURL, cf.ProfileMapping)
	assert.Equal(t, 1.0, cf.Confidence)
}

func TestClassifyEssayPrompt(t *testing.T) {
	cf := Classify(models.FormField{
		ID:       "q1",
		Type:     models.FieldTextarea,
		Required: true,
		Label:    "Why do you want to work here?",
	})
	assert.Equal(t, models.StrategyAIGenerate, cf.Strategy)
	assert.Contains(t, cf.GenerationHint, "Why do you want to work here?")
	assert.Equal(t, 0.9, cf.Confidence)
}

func TestClassifyTable(t *testing.T) {
	tests := []struct {
		name     string
		field    models.FormField
		strategy models.AnswerStrategy
		mapping  string
		conf     float64
	}{
		{
			name:     "first name text input",
			field:    models.FormField{ID: "first_name", Type: models.FieldText, Required: true, Label: "First Name"},
			strategy: models.StrategyProfileDirect,
			mapping:  models.ProfileFirstName,
			conf:     1.0,
		},
		{
			name:     "email by field id alone",
			field:    models.FormField{ID: "candidate_email", Type: models.FieldText, Required: true, Label: "Contact"},
			strategy: models.StrategyProfileDirect,
			mapping:  models.ProfileEmail,
			conf:     1.0,
		},
		{
			name:     "phone",
			field:    models.FormField{ID: "f2", Type: models.FieldPhone, Required: true, Label: "Telephone number"},
			strategy: models.StrategyProfileDirect,
			mapping:  models.ProfilePhone,
			conf:     1.0,
		},
		{
			name:     "linkedin url",
			field:    models.FormField{ID: "f3", Type: models.FieldText, Required: false, Label: "LinkedIn Profile"},
			strategy: models.StrategyProfileDirect,
			mapping:  models.ProfileLinkedInURL,
			conf:     1.0,
		},
		{
			name:     "portfolio wins over website",
			field:    models.FormField{ID: "f4", Type: models.FieldText, Required: false, Label: "Portfolio or website URL"},
			strategy: models.StrategyProfileDirect,
			mapping:  models.ProfilePortfolioURL,
			conf:     0.9,
		},
		{
			name:     "plain website",
			field:    models.FormField{ID: "f5", Type: models.FieldText, Required: false, Label: "Personal website"},
			strategy: models.StrategyProfileDirect,
			mapping:  models.ProfileWebsiteURL,
			conf:     0.9,
		},
		{
			name:     "sponsorship boolean",
			field:    models.FormField{ID: "f6", Type: models.FieldBoolean, Required: true, Label: "Will you require visa sponsorship?"},
			strategy: models.StrategyProfileBoolean,
			mapping:  models.ProfileRequireSponsorship,
			conf:     1.0,
		},
		{
			name:     "relocation boolean",
			field:    models.FormField{ID: "f7", Type: models.FieldBoolean, Required: true, Label: "Are you willing to relocate?"},
			strategy: models.StrategyProfileBoolean,
			mapping:  models.ProfileWillingToRelocate,
			conf:     1.0,
		},
		{
			name:     "work authorization",
			field:    models.FormField{ID: "f8", Type: models.FieldSelect, Required: true, Label: "Are you authorized to work in the US?", Options: []string{"Yes", "No"}},
			strategy: models.StrategyProfileDirect,
			mapping:  models.ProfileWorkAuthorization,
			conf:     0.9,
		},
		{
			name:     "years of experience",
			field:    models.FormField{ID: "f9", Type: models.FieldText, Required: true, Label: "Years of relevant experience"},
			strategy: models.StrategyProfileCalculated,
			mapping:  models.ProfileYearsExperience,
			conf:     0.8,
		},
		{
			name:     "cover letter upload stays a file",
			field:    models.FormField{ID: "cover_letter", Type: models.FieldFile, Required: false, Label: "Cover Letter"},
			strategy: models.StrategyFileUpload,
			conf:     0.8,
		},
		{
			name:     "required select with no mapping",
			field:    models.FormField{ID: "f10", Type: models.FieldSelect, Required: true, Label: "Pronouns", Options: []string{"she/her", "he/him", "they/them"}},
			strategy: models.StrategyAIAssisted,
			conf:     0.7,
		},
		{
			name:     "optional anything is skipped",
			field:    models.FormField{ID: "f11", Type: models.FieldTextarea, Required: false, Label: "Anything else you want us to know? Feel free to elaborate."},
			strategy: models.StrategySkip,
			conf:     1.0,
		},
		{
			name:     "required field with no heuristic falls back",
			field:    models.FormField{ID: "f12", Type: models.FieldText, Required: true, Label: "Referral code"},
			strategy: models.StrategyAIAssisted,
			conf:     0.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cf := Classify(tt.field)
			assert.Equal(t, tt.strategy, cf.Strategy)
			assert.Equal(t, tt.mapping, cf.ProfileMapping)
			assert.Equal(t, tt.conf, cf.Confidence)
		})
	}
}

// A label matching several heuristics resolves to the earliest rule: a file
// field mentioning "email" in its label is still a file upload.
func TestClassifyRuleOrder(t *testing.T) {
	cf := Classify(models.FormField{
		ID:       "f1",
		Type:     models.FieldFile,
		Required: true,
		Label:    "Resume (or email it to us)",
	})
	assert.Equal(t, models.StrategyFileUpload, cf.Strategy)
	assert.Equal(t, models.ProfileResumeURL, cf.ProfileMapping)
}

func TestClassifyDeterministic(t *testing.T) {
	f := models.FormField{ID: "f1", Type: models.FieldTextarea, Required: true, Label: "Why do you want to join our team?"}
	first := Classify(f)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Classify(f))
	}
}
