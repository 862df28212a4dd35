package classifier

import (
	"fmt"
	"strings"

	"jobswipe-core/internal/models"
)

// Classify maps one form field to an answer strategy, an optional profile
// attribute, and a confidence. Pure and deterministic: the same field and label
// text always yields the same classification.
func Classify(f models.FormField) models.ClassifiedField {
	text := matchText(f)
	for _, r := range rules {
		if cf, ok := r.apply(text, f); ok {
			return cf
		}
	}
	// Unreachable: the chain ends with catch-all rules for optional and
	// required fields.
	return models.ClassifiedField{Field: f, Strategy: models.StrategyUserInput, Confidence: 0}
}

// ClassifyAll classifies every field of one form in order.
func ClassifyAll(fields []models.FormField) []models.ClassifiedField {
	out := make([]models.ClassifiedField, 0, len(fields))
	for _, f := range fields {
		out = append(out, Classify(f))
	}
	return out
}

// matchText lowercases label plus field identifier; every rule matches against
// both so scraped forms with machine names like "first_name" still resolve.
func matchText(f models.FormField) string {
	return strings.ToLower(f.Label + " " + f.ID)
}

// rule is one step of the ordered decision chain. First match wins, so a label
// satisfying several heuristics resolves to the earliest rule.
type rule struct {
	name  string
	apply func(text string, f models.FormField) (models.ClassifiedField, bool)
}

var rules = []rule{
	{"file-upload", matchFileUpload},
	{"profile-direct", matchProfileDirect},
	{"boolean-preference", matchBooleanPreference},
	{"work-authorization", matchWorkAuthorization},
	{"years-of-experience", matchYearsExperience},
	{"essay", matchEssay},
	{"ambiguous-select", matchAmbiguousSelect},
	{"skip-optional", matchSkipOptional},
	{"required-fallback", matchRequiredFallback},
}

func matchFileUpload(text string, f models.FormField) (models.ClassifiedField, bool) {
	if f.Type != models.FieldFile {
		return models.ClassifiedField{}, false
	}
	cf := models.ClassifiedField{Field: f, Strategy: models.StrategyFileUpload, Confidence: 1.0}
	if containsAny(text, "resume", "cv", "curriculum vitae") {
		cf.ProfileMapping = models.ProfileResumeURL
	} else {
		// Non-resume uploads (portfolios, transcripts) still go through the
		// upload path but without a known profile attribute.
		cf.Confidence = 0.8
	}
	return cf, true
}

// directMappings pairs label keywords with the profile attribute they resolve
// to. Checked in order; more specific keywords come first.
var directMappings = []struct {
	keywords   []string
	attribute  string
	confidence float64
}{
	{[]string{"first name", "first_name", "firstname", "given name"}, models.ProfileFirstName, 1.0},
	{[]string{"last name", "last_name", "lastname", "family name", "surname"}, models.ProfileLastName, 1.0},
	{[]string{"email", "e-mail"}, models.ProfileEmail, 1.0},
	{[]string{"phone", "telephone", "mobile"}, models.ProfilePhone, 1.0},
	{[]string{"linkedin"}, models.ProfileLinkedInURL, 1.0},
	{[]string{"portfolio", "website", "personal site"}, "", 0.9},
}

func matchProfileDirect(text string, f models.FormField) (models.ClassifiedField, bool) {
	for _, m := range directMappings {
		if !containsAny(text, m.keywords...) {
			continue
		}
		attr := m.attribute
		if attr == "" {
			// website vs. portfolio is disambiguated by the word itself.
			attr = models.ProfileWebsiteURL
			if strings.Contains(text, "portfolio") {
				attr = models.ProfilePortfolioURL
			}
		}
		return models.ClassifiedField{
			Field:          f,
			Strategy:       models.StrategyProfileDirect,
			ProfileMapping: attr,
			Confidence:     m.confidence,
		}, true
	}
	return models.ClassifiedField{}, false
}

func matchBooleanPreference(text string, f models.FormField) (models.ClassifiedField, bool) {
	switch {
	case containsAny(text, "visa", "sponsorship", "sponsor"):
		return models.ClassifiedField{
			Field:          f,
			Strategy:       models.StrategyProfileBoolean,
			ProfileMapping: models.ProfileRequireSponsorship,
			Confidence:     1.0,
		}, true
	case strings.Contains(text, "relocat"):
		return models.ClassifiedField{
			Field:          f,
			Strategy:       models.StrategyProfileBoolean,
			ProfileMapping: models.ProfileWillingToRelocate,
			Confidence:     1.0,
		}, true
	}
	return models.ClassifiedField{}, false
}

func matchWorkAuthorization(text string, f models.FormField) (models.ClassifiedField, bool) {
	if !containsAny(text, "authorized", "authorization", "work authorisation", "legally able to work") {
		return models.ClassifiedField{}, false
	}
	return models.ClassifiedField{
		Field:          f,
		Strategy:       models.StrategyProfileDirect,
		ProfileMapping: models.ProfileWorkAuthorization,
		Confidence:     0.9,
	}, true
}

func matchYearsExperience(text string, f models.FormField) (models.ClassifiedField, bool) {
	if f.Type == models.FieldTextarea {
		return models.ClassifiedField{}, false
	}
	if !containsAny(text, "years", "experience") {
		return models.ClassifiedField{}, false
	}
	return models.ClassifiedField{
		Field:          f,
		Strategy:       models.StrategyProfileCalculated,
		ProfileMapping: models.ProfileYearsExperience,
		Confidence:     0.8,
	}, true
}

func matchEssay(text string, f models.FormField) (models.ClassifiedField, bool) {
	coverLetter := containsAny(text, "cover letter", "cover_letter", "coverletter")
	essay := f.Type == models.FieldTextarea && f.Required &&
		(strings.Contains(text, "why") || len(f.Label) > 20)
	if !coverLetter && !essay {
		return models.ClassifiedField{}, false
	}
	return models.ClassifiedField{
		Field:          f,
		Strategy:       models.StrategyAIGenerate,
		GenerationHint: generationHint(f),
		Confidence:     0.9,
	}, true
}

func matchAmbiguousSelect(_ string, f models.FormField) (models.ClassifiedField, bool) {
	if !f.Required {
		return models.ClassifiedField{}, false
	}
	if f.Type != models.FieldSelect && f.Type != models.FieldMultiSelect {
		return models.ClassifiedField{}, false
	}
	return models.ClassifiedField{Field: f, Strategy: models.StrategyAIAssisted, Confidence: 0.7}, true
}

func matchSkipOptional(_ string, f models.FormField) (models.ClassifiedField, bool) {
	if f.Required {
		return models.ClassifiedField{}, false
	}
	return models.ClassifiedField{Field: f, Strategy: models.StrategySkip, Confidence: 1.0}, true
}

func matchRequiredFallback(_ string, f models.FormField) (models.ClassifiedField, bool) {
	return models.ClassifiedField{Field: f, Strategy: models.StrategyAIAssisted, Confidence: 0.5}, true
}

// generationHint builds the instruction handed to the text generator, keeping
// the literal question so the answer addresses what was actually asked.
func generationHint(f models.FormField) string {
	hint := fmt.Sprintf("Answer the application question: %q", f.Label)
	if f.Description != "" {
		hint += fmt.Sprintf(" (%s)", f.Description)
	}
	return hint
}

func containsAny(text string, keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
