package aireview

import (
	"sort"

	"github.com/openkb/review-core/internal/config"
	"github.com/openkb/review-core/internal/models"
)

// DecisionEngine turns part-level verdicts into one content-level
// auto-decision using configured confidence bands.
type DecisionEngine struct {
	policy config.ReviewConfig
}

func NewDecisionEngine(policy config.ReviewConfig) *DecisionEngine {
	return &DecisionEngine{policy: policy}
}

// Aggregate applies severity dominance over all parts of one content item:
//
//   - any part violating (decision=false) with confidence at or above the
//     rejection threshold forces auto_rejected, regardless of other parts;
//   - all parts clean (decision=true) at or above the approval threshold
//     yields auto_approved;
//   - anything else (unknown/error parts, confidence in the indeterminate
//     band) routes to manual review.
//
// The reported confidence is the minimum among the parts driving the
// decision. Violation types are the deduplicated union across all parts.
func (e *DecisionEngine) Aggregate(parts []models.ReviewPartResult) (AutoDecision, float64, []string) {
	violations := unionViolations(parts)

	if len(parts) == 0 {
		return PendingManual, 0, violations
	}

	var rejectConf float64 = 2
	for _, p := range parts {
		if p.Decision == models.DecisionFalse && p.Confidence >= e.policy.RejectThreshold {
			if p.Confidence < rejectConf {
				rejectConf = p.Confidence
			}
		}
	}
	if rejectConf <= 1 {
		return AutoRejected, rejectConf, violations
	}

	allCleanConfident := true
	var approveConf float64 = 2
	for _, p := range parts {
		if p.Decision != models.DecisionTrue || p.Confidence < e.policy.ApproveThreshold {
			allCleanConfident = false
			break
		}
		if p.Confidence < approveConf {
			approveConf = p.Confidence
		}
	}
	if allCleanConfident {
		return AutoApproved, approveConf, violations
	}

	return PendingManual, minConfidence(parts), violations
}

func unionViolations(parts []models.ReviewPartResult) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, p := range parts {
		for _, v := range p.ViolationTypes {
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	// Stable output keeps reports and reject reasons reproducible.
	sort.Strings(out)
	return out
}

func minConfidence(parts []models.ReviewPartResult) float64 {
	if len(parts) == 0 {
		return 0
	}
	m := parts[0].Confidence
	for _, p := range parts[1:] {
		if p.Confidence < m {
			m = p.Confidence
		}
	}
	return m
}
