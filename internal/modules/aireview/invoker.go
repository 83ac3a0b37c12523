package aireview

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/openkb/review-core/internal/models"
)

// callFunc matches callModel; swapped out in tests.
type callFunc func(ctx context.Context, m *models.AIModelConfig, systemPrompt, userPrompt string) (*callResult, error)

// Invoker turns one review part into a normalized verdict. It owns context
// fitting (chunking oversized input into segments), the per-call timeout and
// verdict parsing. It never lets an error escape: every outcome is a
// recordable RawVerdict.
type Invoker struct {
	timeout        time.Duration
	violationTypes []string
	call           callFunc
}

func NewInvoker(timeout time.Duration, violationTypes []string) *Invoker {
	return &Invoker{
		timeout:        timeout,
		violationTypes: violationTypes,
		call:           callModel,
	}
}

// Invoke reviews one part with the given model. Oversized parts are split
// into segments, each invoked separately, and rolled up into one part-level
// verdict carrying the nested segment results.
func (iv *Invoker) Invoke(ctx context.Context, m *models.AIModelConfig, part ReviewPart) RawVerdict {
	segments := splitSegments(part.Text, m.MaxContextLength)
	if len(segments) == 1 {
		return iv.invokeOnce(ctx, m, part.Name, part.Type, segments[0])
	}

	verdicts := make([]RawVerdict, 0, len(segments))
	results := make([]models.ReviewPartResult, 0, len(segments))
	var promptTokens, completionTokens int
	var latency int64
	rateLimited := false

	for i, seg := range segments {
		v := iv.invokeOnce(ctx, m, segmentName(part.Name, i), models.PartTypeSegment, seg)
		verdicts = append(verdicts, v)
		results = append(results, models.ReviewPartResult{
			Name:           segmentName(part.Name, i),
			Type:           models.PartTypeSegment,
			Decision:       v.Decision,
			Confidence:     v.Confidence,
			ViolationTypes: v.ViolationTypes,
		})
		promptTokens += v.PromptTokens
		completionTokens += v.CompletionTokens
		latency += v.LatencyMS
		rateLimited = rateLimited || v.RateLimited
	}

	rolled := rollUpSegments(verdicts)
	rolled.Segments = results
	rolled.PromptTokens = promptTokens
	rolled.CompletionTokens = completionTokens
	rolled.LatencyMS = latency
	rolled.RateLimited = rateLimited
	return rolled
}

func (iv *Invoker) invokeOnce(ctx context.Context, m *models.AIModelConfig, name string, partType models.ReviewPartType, text string) RawVerdict {
	systemPrompt, userPrompt := buildModerationPrompt(iv.violationTypes, name, string(partType), text)

	callCtx := ctx
	if iv.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, iv.timeout)
		defer cancel()
	}

	start := time.Now()
	result, err := iv.call(callCtx, m, systemPrompt, userPrompt)
	latency := time.Since(start).Milliseconds()

	if err != nil {
		// Timeouts read as transport errors, same as any other provider
		// failure; the task retry policy decides what happens next.
		return RawVerdict{
			Decision:     models.DecisionError,
			ErrorMessage: err.Error(),
			IsSuccess:    false,
			RateLimited:  isRateLimitError(err),
			LatencyMS:    latency,
		}
	}

	verdict := parseVerdict(result.raw)
	verdict.RawOutput = result.raw
	verdict.PromptTokens = result.promptTokens
	verdict.CompletionTokens = result.completionTokens
	verdict.LatencyMS = latency
	return verdict
}

// parseVerdict extracts {decision, confidence, violation_types} from the raw
// model output. Anything unparsable comes back as decision=unknown with the
// raw text preserved, still a successful invocation for audit purposes.
func parseVerdict(raw string) RawVerdict {
	var payload struct {
		Decision       *bool    `json:"decision"`
		Confidence     float64  `json:"confidence"`
		ViolationTypes []string `json:"violation_types"`
	}

	if err := unmarshalVerdictJSON(raw, &payload); err != nil || payload.Decision == nil {
		return RawVerdict{
			Decision:  models.DecisionUnknown,
			IsSuccess: true,
		}
	}

	decision := models.DecisionTrue
	if !*payload.Decision {
		decision = models.DecisionFalse
	}

	confidence := payload.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	violations := make([]string, 0, len(payload.ViolationTypes))
	for _, v := range payload.ViolationTypes {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		violations = append(violations, v)
	}

	return RawVerdict{
		Decision:       decision,
		Confidence:     confidence,
		ViolationTypes: violations,
		IsSuccess:      true,
	}
}

// unmarshalVerdictJSON tolerates markdown fences and prose around the JSON
// object, which smaller models produce despite the prompt.
func unmarshalVerdictJSON(raw string, out interface{}) error {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```JSON")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	if err := json.Unmarshal([]byte(cleaned), out); err == nil {
		return nil
	}

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(cleaned[start:end+1]), out); err == nil {
			return nil
		}
	}

	return fmt.Errorf("invalid JSON verdict")
}

// rollUpSegments folds segment verdicts into one part-level verdict: any
// violating segment taints the part, transport errors win over unknowns, and
// a clean part takes the least confident clean segment.
func rollUpSegments(verdicts []RawVerdict) RawVerdict {
	out := RawVerdict{Decision: models.DecisionTrue, Confidence: 1, IsSuccess: true}

	seen := make(map[string]struct{})
	var falseConf, trueConf float64 = 2, 2
	hasFalse, hasError, hasUnknown := false, false, false

	for _, v := range verdicts {
		for _, vt := range v.ViolationTypes {
			if _, ok := seen[vt]; ok {
				continue
			}
			seen[vt] = struct{}{}
			out.ViolationTypes = append(out.ViolationTypes, vt)
		}

		switch v.Decision {
		case models.DecisionFalse:
			hasFalse = true
			if v.Confidence < falseConf {
				falseConf = v.Confidence
			}
		case models.DecisionError:
			hasError = true
			if out.ErrorMessage == "" {
				out.ErrorMessage = v.ErrorMessage
			}
		case models.DecisionUnknown:
			hasUnknown = true
		default:
			if v.Confidence < trueConf {
				trueConf = v.Confidence
			}
		}
	}

	switch {
	case hasFalse:
		out.Decision = models.DecisionFalse
		out.Confidence = falseConf
	case hasError:
		out.Decision = models.DecisionError
		out.Confidence = 0
		out.IsSuccess = false
	case hasUnknown:
		out.Decision = models.DecisionUnknown
		out.Confidence = 0
	default:
		out.Decision = models.DecisionTrue
		if trueConf <= 1 {
			out.Confidence = trueConf
		}
	}
	return out
}
