package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/openkb/review-core/internal/models"
	redisc "github.com/openkb/review-core/internal/pkg/redis"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	TypeReviewApproved = "review_approved"
	TypeReviewRejected = "review_rejected"
	TypeReviewReturned = "review_returned"
)

// Service persists inbox records and publishes the realtime copy on Redis
// pub/sub. The platform gateway subscribes to the per-user channel and pushes
// over its own transport; this service never touches sockets.
type Service struct {
	db  *gorm.DB
	rc  *redisc.Client
	log *zap.Logger
}

func New(db *gorm.DB, rc *redisc.Client, log *zap.Logger) *Service {
	return &Service{db: db, rc: rc, log: log}
}

func channelFor(userID string) string {
	return fmt.Sprintf("review:notify:%s", userID)
}

// Dispatch writes the inbox row and publishes the realtime message. The inbox
// write is the durable step; a pub/sub failure only costs the live push and
// is logged, not surfaced.
func (s *Service) Dispatch(ctx context.Context, userID, notifyType, title, body string, meta map[string]interface{}) error {
	if userID == "" {
		return nil
	}

	n := models.NotificationModel{
		UserID: userID,
		Type:   notifyType,
		Title:  title,
		Body:   body,
		Meta:   meta,
	}
	if err := s.db.WithContext(ctx).Create(&n).Error; err != nil {
		return fmt.Errorf("persist notification: %w", err)
	}

	payload, err := json.Marshal(n)
	if err == nil {
		err = s.rc.Publish(ctx, channelFor(userID), payload)
	}
	if err != nil {
		s.log.Warn("realtime notify publish failed",
			zap.String("user", userID),
			zap.String("type", notifyType),
			zap.Error(err))
	}
	return nil
}

// ListForUser returns a user's inbox, newest first.
func (s *Service) ListForUser(userID string, limit, offset int) ([]models.NotificationModel, int64, error) {
	tx := s.db.Model(&models.NotificationModel{}).Where("user_id = ?", userID)

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var out []models.NotificationModel
	err := tx.Order("created_at DESC").Limit(limit).Offset(offset).Find(&out).Error
	return out, total, err
}

// MarkRead marks one notification read, scoped to its owner.
func (s *Service) MarkRead(userID, id string) error {
	res := s.db.Model(&models.NotificationModel{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// MarkAllRead marks a user's whole inbox read.
func (s *Service) MarkAllRead(userID string) error {
	return s.db.Model(&models.NotificationModel{}).
		Where("user_id = ? AND `read` = ?", userID, false).
		Update("read", true).Error
}
