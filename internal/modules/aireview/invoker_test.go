package aireview

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/openkb/review-core/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testModel(maxContext int) *models.AIModelConfig {
	m := &models.AIModelConfig{
		Provider:         "openai",
		Name:             "test-model",
		ModelID:          "test-model",
		MaxContextLength: maxContext,
	}
	m.ID = "model-1"
	return m
}

func stubInvoker(call callFunc) *Invoker {
	return &Invoker{
		timeout:        5 * time.Second,
		violationTypes: []string{"porn", "violence"},
		call:           call,
	}
}

func TestParseVerdictPlainJSON(t *testing.T) {
	v := parseVerdict(`{"decision": false, "confidence": 0.93, "violation_types": ["porn"]}`)

	assert.Equal(t, models.DecisionFalse, v.Decision)
	assert.Equal(t, 0.93, v.Confidence)
	assert.Equal(t, []string{"porn"}, v.ViolationTypes)
	assert.True(t, v.IsSuccess)
}

func TestParseVerdictFencedJSON(t *testing.T) {
	v := parseVerdict("```json\n{\"decision\": true, \"confidence\": 0.98, \"violation_types\": []}\n```")

	assert.Equal(t, models.DecisionTrue, v.Decision)
	assert.Equal(t, 0.98, v.Confidence)
	assert.True(t, v.IsSuccess)
}

func TestParseVerdictJSONInsideProse(t *testing.T) {
	raw := `Sure, here is my analysis: {"decision": true, "confidence": 0.9, "violation_types": []} hope that helps.`
	v := parseVerdict(raw)

	assert.Equal(t, models.DecisionTrue, v.Decision)
	assert.True(t, v.IsSuccess)
}

func TestParseVerdictUnparsableIsUnknown(t *testing.T) {
	for _, raw := range []string{
		"I cannot review this content.",
		"",
		`{"confidence": 0.9}`, // no decision key
		"{broken json",
	} {
		v := parseVerdict(raw)
		assert.Equal(t, models.DecisionUnknown, v.Decision, "raw=%q", raw)
		assert.True(t, v.IsSuccess, "unparsable output is still a completed call")
	}
}

func TestParseVerdictClampsConfidence(t *testing.T) {
	v := parseVerdict(`{"decision": true, "confidence": 1.7, "violation_types": []}`)
	assert.Equal(t, 1.0, v.Confidence)

	v = parseVerdict(`{"decision": false, "confidence": -0.2, "violation_types": []}`)
	assert.Equal(t, 0.0, v.Confidence)
}

func TestInvokeTransportErrorBecomesErrorVerdict(t *testing.T) {
	iv := stubInvoker(func(context.Context, *models.AIModelConfig, string, string) (*callResult, error) {
		return nil, errors.New("connection refused")
	})

	v := iv.Invoke(context.Background(), testModel(8192), ReviewPart{
		Name: "text", Type: models.PartTypeTextField, Text: "hello",
	})

	assert.Equal(t, models.DecisionError, v.Decision)
	assert.False(t, v.IsSuccess)
	assert.Contains(t, v.ErrorMessage, "connection refused")
	assert.False(t, v.RateLimited)
}

func TestInvokeRateLimitErrorFlagged(t *testing.T) {
	iv := stubInvoker(func(context.Context, *models.AIModelConfig, string, string) (*callResult, error) {
		return nil, &rateLimitError{body: "too many requests"}
	})

	v := iv.Invoke(context.Background(), testModel(8192), ReviewPart{
		Name: "text", Type: models.PartTypeTextField, Text: "hello",
	})

	assert.Equal(t, models.DecisionError, v.Decision)
	assert.True(t, v.RateLimited)
}

func TestInvokeSplitsOversizedPart(t *testing.T) {
	var prompts []string
	iv := stubInvoker(func(_ context.Context, _ *models.AIModelConfig, _, user string) (*callResult, error) {
		prompts = append(prompts, user)
		return &callResult{
			raw:              `{"decision": true, "confidence": 0.95, "violation_types": []}`,
			promptTokens:     100,
			completionTokens: 10,
		}, nil
	})

	// Context budget of 1280 leaves 256 tokens ≈ 1024 runes per segment.
	long := ""
	for i := 0; i < 3000; i++ {
		long += "a"
	}

	v := iv.Invoke(context.Background(), testModel(1280), ReviewPart{
		Name: "text", Type: models.PartTypeTextField, Text: long,
	})

	require.Greater(t, len(prompts), 1, "oversized part must fan out into segments")
	assert.Equal(t, models.DecisionTrue, v.Decision)
	assert.Len(t, v.Segments, len(prompts))
	assert.Equal(t, 100*len(prompts), v.PromptTokens)
	assert.Equal(t, 10*len(prompts), v.CompletionTokens)
	for _, seg := range v.Segments {
		assert.Equal(t, models.PartTypeSegment, seg.Type)
		assert.Contains(t, seg.Name, "#")
	}
}

func TestRollUpSegmentsViolationWins(t *testing.T) {
	v := rollUpSegments([]RawVerdict{
		{Decision: models.DecisionTrue, Confidence: 0.99, IsSuccess: true},
		{Decision: models.DecisionFalse, Confidence: 0.88, ViolationTypes: []string{"violence"}, IsSuccess: true},
		{Decision: models.DecisionUnknown, IsSuccess: true},
	})

	assert.Equal(t, models.DecisionFalse, v.Decision)
	assert.Equal(t, 0.88, v.Confidence)
	assert.Equal(t, []string{"violence"}, v.ViolationTypes)
	assert.True(t, v.IsSuccess)
}

func TestRollUpSegmentsErrorOverUnknown(t *testing.T) {
	v := rollUpSegments([]RawVerdict{
		{Decision: models.DecisionUnknown, IsSuccess: true},
		{Decision: models.DecisionError, ErrorMessage: "timeout", IsSuccess: false},
	})

	assert.Equal(t, models.DecisionError, v.Decision)
	assert.False(t, v.IsSuccess)
	assert.Equal(t, "timeout", v.ErrorMessage)
}

func TestRollUpSegmentsAllCleanTakesMin(t *testing.T) {
	v := rollUpSegments([]RawVerdict{
		{Decision: models.DecisionTrue, Confidence: 0.99, IsSuccess: true},
		{Decision: models.DecisionTrue, Confidence: 0.91, IsSuccess: true},
	})

	assert.Equal(t, models.DecisionTrue, v.Decision)
	assert.Equal(t, 0.91, v.Confidence)
}
