package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"jobswipe-core/internal/models"
)

func classified(strategy models.AnswerStrategy, required bool) models.ClassifiedField {
	return models.ClassifiedField{
		Field:    models.FormField{Required: required},
		Strategy: strategy,
	}
}

func repeat(strategy models.AnswerStrategy, required bool, n int) []models.ClassifiedField {
	out := make([]models.ClassifiedField, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, classified(strategy, required))
	}
	return out
}

func TestScoreAllOptional(t *testing.T) {
	fields := repeat(models.StrategySkip, false, 4)
	m := Score(fields)
	assert.Equal(t, 95, m.EstimatedSuccessRate)
	assert.Equal(t, models.FeasibilityHigh, m.Feasibility)
	assert.Equal(t, 0, m.PreFillableRequired)
	assert.Equal(t, 0, m.AIDependentRequired)
	assert.Equal(t, 0, m.TotalRequired)
}

func TestScoreEmptyForm(t *testing.T) {
	m := Score(nil)
	assert.Equal(t, 95, m.EstimatedSuccessRate)
	assert.Equal(t, models.FeasibilityHigh, m.Feasibility)
}

// 6 deterministic + 2 generated + 2 assisted required fields:
// round((6*98 + 2*90 + 2*75)/10) = round(91.8) = 92, tier high.
func TestScoreWeightedMix(t *testing.T) {
	fields := repeat(models.StrategyProfileDirect, true, 5)
	fields = append(fields, classified(models.StrategyFileUpload, true))
	fields = append(fields, repeat(models.StrategyAIGenerate, true, 2)...)
	fields = append(fields, repeat(models.StrategyAIAssisted, true, 2)...)

	m := Score(fields)
	assert.Equal(t, 92, m.EstimatedSuccessRate)
	assert.Equal(t, models.FeasibilityHigh, m.Feasibility)
	assert.Equal(t, 6, m.PreFillableRequired)
	assert.Equal(t, 4, m.AIDependentRequired)
	assert.Equal(t, 10, m.TotalRequired)
}

func TestScoreTiers(t *testing.T) {
	tests := []struct {
		name string
		in   []models.ClassifiedField
		rate int
		tier models.FeasibilityTier
	}{
		{
			name: "all deterministic",
			in:   repeat(models.StrategyProfileDirect, true, 3),
			rate: 98,
			tier: models.FeasibilityHigh,
		},
		{
			name: "all assisted",
			in:   repeat(models.StrategyAIAssisted, true, 4),
			rate: 75,
			tier: models.FeasibilityMedium,
		},
		{
			name: "assisted dragged down by an unanswerable required field",
			in:   append(repeat(models.StrategyAIAssisted, true, 2), classified(models.StrategyUserInput, true)),
			rate: 50,
			tier: models.FeasibilityLow,
		},
		{
			name: "optional fields do not dilute required-only weighting",
			in:   append(repeat(models.StrategyProfileDirect, true, 2), repeat(models.StrategySkip, false, 8)...),
			rate: 98,
			tier: models.FeasibilityHigh,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Score(tt.in)
			assert.Equal(t, tt.rate, m.EstimatedSuccessRate)
			assert.Equal(t, tt.tier, m.Feasibility)
		})
	}
}

// Reclassifying any AI_ASSISTED required field to PROFILE_DIRECT never lowers
// the estimated success rate.
func TestScoreMonotoneUpgrade(t *testing.T) {
	fields := append(repeat(models.StrategyAIAssisted, true, 5), repeat(models.StrategyAIGenerate, true, 3)...)
	prev := Score(fields).EstimatedSuccessRate
	for i := range fields {
		if fields[i].Strategy != models.StrategyAIAssisted {
			continue
		}
		fields[i].Strategy = models.StrategyProfileDirect
		next := Score(fields).EstimatedSuccessRate
		assert.GreaterOrEqual(t, next, prev)
		prev = next
	}
}
