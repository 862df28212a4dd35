package classifier

import (
	"math"

	"jobswipe-core/internal/models"
)

// Per-field success weights. Deterministic profile substitution is far more
// reliable than generated free text, which beats ambiguous multi-select
// guessing.
const (
	weightDeterministic = 0.98
	weightAIGenerated   = 0.90
	weightAIAssisted    = 0.75
)

// Tier cutoffs on the 0-100 estimated success rate.
const (
	tierHighCutoff   = 85
	tierMediumCutoff = 70
)

// allOptionalDefault is returned for forms with no required fields: trivially
// automatable.
var allOptionalDefault = models.FeasibilityMetrics{
	EstimatedSuccessRate: 95,
	Feasibility:          models.FeasibilityHigh,
}

// Score aggregates classified fields into feasibility metrics for one form.
func Score(fields []models.ClassifiedField) models.FeasibilityMetrics {
	var deterministic, aiGenerated, aiAssisted, totalRequired int
	for _, cf := range fields {
		if !cf.Field.Required {
			continue
		}
		totalRequired++
		switch cf.Strategy {
		case models.StrategyProfileDirect, models.StrategyProfileBoolean,
			models.StrategyProfileCalculated, models.StrategyFileUpload:
			deterministic++
		case models.StrategyAIGenerate:
			aiGenerated++
		case models.StrategyAIAssisted:
			aiAssisted++
		case models.StrategySkip, models.StrategyUserInput:
			// Required fields the automation cannot answer contribute zero
			// weight and drag the rate down.
		}
	}

	if totalRequired == 0 {
		return allOptionalDefault
	}

	weighted := float64(deterministic)*weightDeterministic +
		float64(aiGenerated)*weightAIGenerated +
		float64(aiAssisted)*weightAIAssisted
	rate := int(math.Round(weighted / float64(totalRequired) * 100))

	return models.FeasibilityMetrics{
		EstimatedSuccessRate: rate,
		Feasibility:          tierFor(rate),
		PreFillableRequired:  deterministic,
		AIDependentRequired:  aiGenerated + aiAssisted,
		TotalRequired:        totalRequired,
	}
}

func tierFor(rate int) models.FeasibilityTier {
	switch {
	case rate >= tierHighCutoff:
		return models.FeasibilityHigh
	case rate >= tierMediumCutoff:
		return models.FeasibilityMedium
	default:
		return models.FeasibilityLow
	}
}
