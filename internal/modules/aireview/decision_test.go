package aireview

import (
	"testing"

	"github.com/openkb/review-core/internal/config"
	"github.com/openkb/review-core/internal/models"
	"github.com/stretchr/testify/assert"
)

func testEngine() *DecisionEngine {
	return NewDecisionEngine(config.ReviewConfig{
		ApproveThreshold: 0.90,
		RejectThreshold:  0.80,
	})
}

func part(decision models.ReviewDecision, confidence float64, violations ...string) models.ReviewPartResult {
	return models.ReviewPartResult{
		Name:           "text",
		Type:           models.PartTypeTextField,
		Decision:       decision,
		Confidence:     confidence,
		ViolationTypes: violations,
	}
}

func TestAggregateRejectDominates(t *testing.T) {
	// One confident violation outweighs any number of clean parts.
	decision, confidence, violations := testEngine().Aggregate([]models.ReviewPartResult{
		part(models.DecisionTrue, 0.99),
		part(models.DecisionFalse, 0.85, "porn"),
		part(models.DecisionTrue, 0.97),
	})

	assert.Equal(t, AutoRejected, decision)
	assert.Equal(t, 0.85, confidence)
	assert.Equal(t, []string{"porn"}, violations)
}

func TestAggregateRejectTakesMinAmongDrivers(t *testing.T) {
	decision, confidence, _ := testEngine().Aggregate([]models.ReviewPartResult{
		part(models.DecisionFalse, 0.95, "violence"),
		part(models.DecisionFalse, 0.82, "porn"),
	})

	assert.Equal(t, AutoRejected, decision)
	assert.Equal(t, 0.82, confidence)
}

func TestAggregateApproveAllClean(t *testing.T) {
	decision, confidence, violations := testEngine().Aggregate([]models.ReviewPartResult{
		part(models.DecisionTrue, 0.95),
		part(models.DecisionTrue, 0.92),
	})

	assert.Equal(t, AutoApproved, decision)
	assert.Equal(t, 0.92, confidence)
	assert.Empty(t, violations)
}

func TestAggregateLowConfidenceCleanGoesManual(t *testing.T) {
	decision, confidence, _ := testEngine().Aggregate([]models.ReviewPartResult{
		part(models.DecisionTrue, 0.95),
		part(models.DecisionTrue, 0.70),
	})

	assert.Equal(t, PendingManual, decision)
	assert.Equal(t, 0.70, confidence)
}

func TestAggregateUnconfidentViolationGoesManual(t *testing.T) {
	// A violation below the rejection threshold never auto-rejects.
	decision, _, violations := testEngine().Aggregate([]models.ReviewPartResult{
		part(models.DecisionTrue, 0.99),
		part(models.DecisionFalse, 0.60, "abuse"),
	})

	assert.Equal(t, PendingManual, decision)
	assert.Equal(t, []string{"abuse"}, violations)
}

func TestAggregateUnknownPartBlocksApproval(t *testing.T) {
	decision, _, _ := testEngine().Aggregate([]models.ReviewPartResult{
		part(models.DecisionTrue, 0.99),
		part(models.DecisionUnknown, 0),
	})

	assert.Equal(t, PendingManual, decision)
}

func TestAggregateViolationUnionDeduplicatedSorted(t *testing.T) {
	_, _, violations := testEngine().Aggregate([]models.ReviewPartResult{
		part(models.DecisionFalse, 0.9, "violence", "porn"),
		part(models.DecisionFalse, 0.9, "porn", "abuse"),
	})

	assert.Equal(t, []string{"abuse", "porn", "violence"}, violations)
}

func TestAggregateEmptyParts(t *testing.T) {
	decision, confidence, violations := testEngine().Aggregate(nil)

	assert.Equal(t, PendingManual, decision)
	assert.Zero(t, confidence)
	assert.Empty(t, violations)
}

func TestAggregateThresholdBoundaries(t *testing.T) {
	e := testEngine()

	// Exactly at the rejection threshold rejects.
	decision, _, _ := e.Aggregate([]models.ReviewPartResult{part(models.DecisionFalse, 0.80, "porn")})
	assert.Equal(t, AutoRejected, decision)

	// Exactly at the approval threshold approves.
	decision, _, _ = e.Aggregate([]models.ReviewPartResult{part(models.DecisionTrue, 0.90)})
	assert.Equal(t, AutoApproved, decision)

	// Just below each threshold goes manual.
	decision, _, _ = e.Aggregate([]models.ReviewPartResult{part(models.DecisionFalse, 0.79, "porn")})
	assert.Equal(t, PendingManual, decision)
	decision, _, _ = e.Aggregate([]models.ReviewPartResult{part(models.DecisionTrue, 0.89)})
	assert.Equal(t, PendingManual, decision)
}
