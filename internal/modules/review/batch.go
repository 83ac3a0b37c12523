package review

import (
	"context"
	"errors"

	"github.com/openkb/review-core/internal/models"
)

// BatchFailure reports why one item in a batch operation failed.
type BatchFailure struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// BatchResult is the per-call outcome of a batch operation. It is computed
// fresh per request and never persisted. success_count+fail_count always
// equals the number of requested ids.
type BatchResult struct {
	SuccessCount int            `json:"success_count"`
	FailCount    int            `json:"fail_count"`
	Failures     []BatchFailure `json:"failures"`
}

// applyBatch runs op independently per id: one failure never aborts or rolls
// back the rest. Errors map to caller-facing reasons; unknown errors are
// passed through verbatim.
func applyBatch(ids []string, op func(id string) error) BatchResult {
	result := BatchResult{Failures: []BatchFailure{}}

	for _, id := range ids {
		if err := op(id); err != nil {
			result.FailCount++
			result.Failures = append(result.Failures, BatchFailure{
				ID:     id,
				Reason: failureReason(err),
			})
			continue
		}
		result.SuccessCount++
	}

	return result
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrContentNotFound):
		return "not found"
	case errors.Is(err, ErrInvalidState):
		return err.Error()
	default:
		return err.Error()
	}
}

// BatchApprove approves each id independently.
func (s *Service) BatchApprove(ctx context.Context, ct models.ContentType, ids []string) BatchResult {
	return applyBatch(ids, func(id string) error {
		return s.Approve(ctx, ct, id)
	})
}

// BatchReject rejects each id independently with the shared reason. Reason
// validation happens once at the call boundary, before any item is touched.
func (s *Service) BatchReject(ctx context.Context, ct models.ContentType, ids []string, reason string) BatchResult {
	return applyBatch(ids, func(id string) error {
		return s.Reject(ctx, ct, id, reason)
	})
}

// BatchDelete soft-deletes each id independently.
func (s *Service) BatchDelete(ctx context.Context, ct models.ContentType, ids []string) BatchResult {
	return applyBatch(ids, func(id string) error {
		return s.Delete(ctx, ct, id)
	})
}
