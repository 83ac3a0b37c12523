package review

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openkb/review-core/internal/models"
	"github.com/openkb/review-core/internal/modules/notify"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrContentNotFound    = errors.New("content not found")
	ErrUnknownContentType = errors.New("unknown content type")
	ErrReasonRequired     = errors.New("reject reason is required")
	// ErrInvalidState marks a transition attempted from a terminal state that
	// contradicts it (e.g. approving rejected content). Idempotent repeats of
	// a terminal state are no-ops, not errors.
	ErrInvalidState = errors.New("invalid state transition")
)

// Action is a moderation transition trigger.
type Action string

const (
	ActionApprove     Action = "approve"
	ActionReject      Action = "reject"
	ActionReturnDraft Action = "return_draft"
)

// transitionOutcome classifies what a (status, action) pair means before any
// write happens.
type transitionOutcome int

const (
	outcomeApply transitionOutcome = iota
	outcomeNoop
	outcomeInvalid
)

// resolveTransition is the pure guard of the state machine. Only transitions
// out of pending mutate state; re-applying the terminal state an item is
// already in is a tolerated no-op so retried batch calls stay safe.
func resolveTransition(status models.ContentStatus, action Action) transitionOutcome {
	switch action {
	case ActionApprove:
		switch status {
		case models.StatusPending:
			return outcomeApply
		case models.StatusApproved:
			return outcomeNoop
		default:
			return outcomeInvalid
		}
	case ActionReject:
		switch status {
		case models.StatusPending:
			return outcomeApply
		case models.StatusRejected:
			return outcomeNoop
		default:
			return outcomeInvalid
		}
	case ActionReturnDraft:
		if status == models.StatusPending {
			return outcomeApply
		}
		return outcomeInvalid
	}
	return outcomeInvalid
}

// Snapshot is a read of one content item's moderation-relevant fields.
type Snapshot struct {
	ID         string
	Type       models.ContentType
	UploaderID string
	Title      string
	Public     bool
	Status     models.ContentStatus
	Version    int
}

// Service is the authoritative moderation state machine for knowledge bases
// and persona cards.
type Service struct {
	db       *gorm.DB
	notifier *notify.Service
	log      *zap.Logger

	// enqueueAutoReview is injected at wiring time to avoid a dependency on
	// the review engine; it schedules the async AI review of one item.
	enqueueAutoReview func(ctx context.Context, ct models.ContentType, id string) error
}

func NewService(db *gorm.DB, notifier *notify.Service, log *zap.Logger) *Service {
	return &Service{db: db, notifier: notifier, log: log}
}

// SetAutoReviewEnqueuer wires the async review trigger used on submission.
func (s *Service) SetAutoReviewEnqueuer(fn func(ctx context.Context, ct models.ContentType, id string) error) {
	s.enqueueAutoReview = fn
}

// DB exposes the underlying handle for the handler's list queries.
func (s *Service) DB() *gorm.DB { return s.db }

func tableFor(ct models.ContentType) (string, error) {
	switch ct {
	case models.ContentTypeKnowledge:
		return models.KnowledgeBaseModel{}.TableName(), nil
	case models.ContentTypePersona:
		return models.PersonaCardModel{}.TableName(), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownContentType, ct)
}

// Get reads one content item's moderation snapshot.
func (s *Service) Get(ct models.ContentType, id string) (*Snapshot, error) {
	table, err := tableFor(ct)
	if err != nil {
		return nil, err
	}

	var row struct {
		ID         string
		UploaderID string
		Title      string
		Public     bool
		Status     models.ContentStatus
		Version    int
	}
	err = s.db.Table(table).
		Select("id, uploader_id, title, public, status, version").
		Where("id = ? AND deleted_at IS NULL", id).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrContentNotFound
		}
		return nil, err
	}

	return &Snapshot{
		ID:         row.ID,
		Type:       ct,
		UploaderID: row.UploaderID,
		Title:      row.Title,
		Public:     row.Public,
		Status:     row.Status,
		Version:    row.Version,
	}, nil
}

// Submit puts a content item (back) into the review queue. Public items get
// an async AI review enqueued; private items bypass automated review
// entirely and wait for a human.
func (s *Service) Submit(ctx context.Context, ct models.ContentType, id string) (*Snapshot, error) {
	snap, err := s.Get(ct, id)
	if err != nil {
		return nil, err
	}

	table, _ := tableFor(ct)
	updates := map[string]interface{}{
		"status":        models.StatusPending,
		"reject_reason": "",
		"ai_decision":   "",
		"version":       gorm.Expr("version + 1"),
	}
	if err := s.db.WithContext(ctx).Table(table).Where("id = ?", id).Updates(updates).Error; err != nil {
		return nil, err
	}
	snap.Status = models.StatusPending
	snap.Version++

	if snap.Public && s.enqueueAutoReview != nil {
		if err := s.enqueueAutoReview(ctx, ct, id); err != nil {
			s.log.Warn("auto review enqueue failed",
				zap.String("content", id),
				zap.String("type", string(ct)),
				zap.Error(err))
		}
	}
	return snap, nil
}

// Approve transitions pending → approved. Approving already-approved content
// is a no-op; approving rejected content is an ErrInvalidState.
func (s *Service) Approve(ctx context.Context, ct models.ContentType, id string) error {
	return s.transition(ctx, ct, id, ActionApprove, "", false, nil)
}

// Reject transitions pending → rejected with a mandatory human reason.
func (s *Service) Reject(ctx context.Context, ct models.ContentType, id, reason string) error {
	if strings.TrimSpace(reason) == "" {
		return ErrReasonRequired
	}
	return s.transition(ctx, ct, id, ActionReject, reason, false, nil)
}

// RejectAuto transitions pending → rejected with a system-generated reason
// referencing the detected violation types.
func (s *Service) RejectAuto(ctx context.Context, ct models.ContentType, id string, violationTypes []string) error {
	reason := "AI 审核判定违规"
	if len(violationTypes) > 0 {
		reason = fmt.Sprintf("AI 审核判定违规: %s", strings.Join(violationTypes, ", "))
	}
	return s.transition(ctx, ct, id, ActionReject, reason, true, violationTypes)
}

// ReturnDraft sends a pending item back to its uploader for edits. State
// stays pending; the cached AI decision is cleared so the next submission
// re-triggers review. The reason is informational only.
func (s *Service) ReturnDraft(ctx context.Context, ct models.ContentType, id, reason string) error {
	snap, err := s.Get(ct, id)
	if err != nil {
		return err
	}
	if resolveTransition(snap.Status, ActionReturnDraft) != outcomeApply {
		return fmt.Errorf("%w: cannot return %s content to draft", ErrInvalidState, snap.Status)
	}

	table, _ := tableFor(ct)
	res := s.db.WithContext(ctx).Table(table).
		Where("id = ? AND status = ? AND version = ?", id, models.StatusPending, snap.Version).
		Updates(map[string]interface{}{
			"ai_decision": "",
			"version":     snap.Version + 1,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: content changed concurrently", ErrInvalidState)
	}

	body := "内容已退回修改，编辑后可重新提交审核"
	if strings.TrimSpace(reason) != "" {
		body = fmt.Sprintf("%s：%s", body, strings.TrimSpace(reason))
	}
	s.notifyUploader(ctx, snap, notify.TypeReviewReturned, "内容已退回", body, nil)
	return nil
}

// SetAIDecision caches the engine's auto-decision on the content row without
// touching the lifecycle state. Used for pending_manual stamps.
func (s *Service) SetAIDecision(ctx context.Context, ct models.ContentType, id, decision string) error {
	table, err := tableFor(ct)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Table(table).
		Where("id = ?", id).
		Update("ai_decision", decision).Error
}

// Delete soft-deletes a content item. The review subsystem never hard-deletes.
func (s *Service) Delete(ctx context.Context, ct models.ContentType, id string) error {
	switch ct {
	case models.ContentTypeKnowledge:
		res := s.db.WithContext(ctx).Delete(&models.KnowledgeBaseModel{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrContentNotFound
		}
		return nil
	case models.ContentTypePersona:
		res := s.db.WithContext(ctx).Delete(&models.PersonaCardModel{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrContentNotFound
		}
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownContentType, ct)
}

// transition performs one guarded, optimistically-locked state change.
// Concurrent writers race on the version column; the loser re-reads and is
// classified as either a tolerated no-op or an invalid transition.
func (s *Service) transition(ctx context.Context, ct models.ContentType, id string, action Action, reason string, auto bool, violationTypes []string) error {
	snap, err := s.Get(ct, id)
	if err != nil {
		return err
	}

	switch resolveTransition(snap.Status, action) {
	case outcomeNoop:
		// Already in the requested terminal state. No write, no notification.
		return nil
	case outcomeInvalid:
		return fmt.Errorf("%w: cannot %s %s content", ErrInvalidState, action, snap.Status)
	}

	table, _ := tableFor(ct)
	updates := map[string]interface{}{
		"version": snap.Version + 1,
	}
	switch action {
	case ActionApprove:
		updates["status"] = models.StatusApproved
		updates["reject_reason"] = ""
		if auto {
			updates["ai_decision"] = "auto_approved"
		}
	case ActionReject:
		updates["status"] = models.StatusRejected
		updates["reject_reason"] = strings.TrimSpace(reason)
		if auto {
			updates["ai_decision"] = "auto_rejected"
		}
	}

	res := s.db.WithContext(ctx).Table(table).
		Where("id = ? AND status = ? AND version = ?", id, models.StatusPending, snap.Version).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// Lost the race. Re-read and classify against the winner's state.
		current, err := s.Get(ct, id)
		if err != nil {
			return err
		}
		switch resolveTransition(current.Status, action) {
		case outcomeNoop:
			return nil
		default:
			return fmt.Errorf("%w: content is now %s", ErrInvalidState, current.Status)
		}
	}

	switch action {
	case ActionApprove:
		s.notifyUploader(ctx, snap, notify.TypeReviewApproved,
			"审核通过", fmt.Sprintf("你的内容《%s》已通过审核", snap.Title), nil)
	case ActionReject:
		meta := map[string]interface{}{"reason": strings.TrimSpace(reason)}
		if len(violationTypes) > 0 {
			meta["violation_types"] = violationTypes
		}
		s.notifyUploader(ctx, snap, notify.TypeReviewRejected,
			"审核未通过", fmt.Sprintf("你的内容《%s》未通过审核：%s", snap.Title, strings.TrimSpace(reason)), meta)
	}
	return nil
}

func (s *Service) notifyUploader(ctx context.Context, snap *Snapshot, notifyType, title, body string, meta map[string]interface{}) {
	if s.notifier == nil {
		return
	}
	if meta == nil {
		meta = map[string]interface{}{}
	}
	meta["content_id"] = snap.ID
	meta["content_type"] = string(snap.Type)
	if err := s.notifier.Dispatch(ctx, snap.UploaderID, notifyType, title, body, meta); err != nil {
		s.log.Warn("uploader notification failed",
			zap.String("content", snap.ID),
			zap.String("user", snap.UploaderID),
			zap.Error(err))
	}
}
