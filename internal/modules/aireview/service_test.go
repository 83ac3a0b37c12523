package aireview

import (
	"testing"

	"github.com/openkb/review-core/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOverallDecision(t *testing.T) {
	assert.Equal(t, models.DecisionUnknown, overallDecision(nil))

	assert.Equal(t, models.DecisionTrue, overallDecision([]models.ReviewPartResult{
		part(models.DecisionTrue, 0.9),
		part(models.DecisionTrue, 0.95),
	}))

	// A violation anywhere taints the whole item.
	assert.Equal(t, models.DecisionFalse, overallDecision([]models.ReviewPartResult{
		part(models.DecisionTrue, 0.9),
		part(models.DecisionFalse, 0.5, "porn"),
		part(models.DecisionError, 0),
	}))

	assert.Equal(t, models.DecisionError, overallDecision([]models.ReviewPartResult{
		part(models.DecisionTrue, 0.9),
		part(models.DecisionError, 0),
		part(models.DecisionUnknown, 0),
	}))

	assert.Equal(t, models.DecisionUnknown, overallDecision([]models.ReviewPartResult{
		part(models.DecisionTrue, 0.9),
		part(models.DecisionUnknown, 0),
	}))
}

func TestTextFieldPartsSkipsEmptyAndKeepsOrder(t *testing.T) {
	parts := textFieldParts(map[string]string{
		"title":       "标题",
		"description": "   ",
		"greeting":    "hi",
		"persona":     "a helpful assistant",
	})

	require.Len(t, parts, 3)
	assert.Equal(t, "title", parts[0].Name)
	assert.Equal(t, "greeting", parts[1].Name)
	assert.Equal(t, "persona", parts[2].Name)
	for _, p := range parts {
		assert.Equal(t, models.PartTypeTextField, p.Type)
	}
}

func TestSourceFor(t *testing.T) {
	src, err := sourceFor(models.ContentTypeKnowledge)
	require.NoError(t, err)
	assert.Equal(t, models.SourceKnowledge, src)

	src, err = sourceFor(models.ContentTypePersona)
	require.NoError(t, err)
	assert.Equal(t, models.SourcePersona, src)

	_, err = sourceFor(models.ContentType("user"))
	assert.Error(t, err)
}
