package aireview

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/openkb/review-core/internal/config"
	"github.com/openkb/review-core/internal/models"
	"github.com/openkb/review-core/internal/modules/modelpool"
	"github.com/openkb/review-core/internal/modules/review"
	"github.com/openkb/review-core/internal/pkg/taskqueue"
	"go.uber.org/zap"
)

// TaskRunner binds the review service to the async task queue.
type TaskRunner struct {
	svc    *Service
	tasks  *taskqueue.Service
	policy taskqueue.RetryPolicy
	log    *zap.Logger
}

func NewTaskRunner(svc *Service, tasks *taskqueue.Service, cfg config.ReviewConfig, log *zap.Logger) *TaskRunner {
	return &TaskRunner{
		svc:   svc,
		tasks: tasks,
		policy: taskqueue.RetryPolicy{
			MaxAttempts: cfg.MaxAttempts,
			Backoff:     cfg.RetryBackoff,
		},
		log: log,
	}
}

// RegisterExecutors wires the review task types into the worker.
func (r *TaskRunner) RegisterExecutors(w *taskqueue.Worker) {
	w.Register(TaskTypeAutoReview, r.runAutoReview)
	w.Register(TaskTypeBatchReview, r.runBatchReview)
}

// EnqueueAutoReview schedules the async AI review of one content item.
// The dedup key collapses duplicate triggers for the same item while one is
// still queued.
func (r *TaskRunner) EnqueueAutoReview(ctx context.Context, ct models.ContentType, id string) error {
	payload := AutoReviewPayload{ContentID: id, ContentType: string(ct)}
	dedup := fmt.Sprintf("%s:%s:%s", TaskTypeAutoReview, ct, id)
	_, err := r.tasks.Enqueue(ctx, TaskTypeAutoReview, payload, dedup, "", r.policy)
	return err
}

// EnqueueBatchReview schedules one task reviewing many items of one type.
func (r *TaskRunner) EnqueueBatchReview(ctx context.Context, ct models.ContentType, ids []string) (*taskqueue.Task, error) {
	payload := BatchReviewPayload{ContentIDs: ids, ContentType: string(ct)}
	return r.tasks.Enqueue(ctx, TaskTypeBatchReview, payload, "", "", r.policy)
}

// runAutoReview executes one queued review. Only transient failures are
// returned so the worker retries them; permanent conditions (content gone,
// bad payload) complete the task with the report as the record.
func (r *TaskRunner) runAutoReview(ctx context.Context, payload json.RawMessage) error {
	var p AutoReviewPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		r.log.Error("bad auto review payload", zap.Error(err))
		return nil
	}

	_, err := r.svc.ReviewContent(ctx, models.ContentType(p.ContentType), p.ContentID)
	return r.classify(err, p.ContentID)
}

// runBatchReview reviews each item in the batch independently. One item's
// failure never blocks the rest; the task only retries when at least one
// item failed transiently.
func (r *TaskRunner) runBatchReview(ctx context.Context, payload json.RawMessage) error {
	var p BatchReviewPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		r.log.Error("bad batch review payload", zap.Error(err))
		return nil
	}

	var transient error
	for _, id := range p.ContentIDs {
		_, err := r.svc.ReviewContent(ctx, models.ContentType(p.ContentType), id)
		if err := r.classify(err, id); err != nil && transient == nil {
			transient = err
		}
	}
	return transient
}

// classify splits failures into retryable and final. Missing content and
// unknown types never come back; model exhaustion and provider errors do.
func (r *TaskRunner) classify(err error, contentID string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, review.ErrContentNotFound), errors.Is(err, review.ErrUnknownContentType):
		r.log.Warn("review target unavailable, not retrying",
			zap.String("content_id", contentID), zap.Error(err))
		return nil
	case errors.Is(err, modelpool.ErrNoModelAvailable):
		return err
	default:
		return err
	}
}
