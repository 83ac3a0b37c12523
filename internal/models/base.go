package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base is the base model for all entities.
// ID is a UUID string for API compatibility with the platform's object IDs.
type Base struct {
	ID        string         `json:"id"       gorm:"type:char(36);primaryKey"`
	CreatedAt time.Time      `json:"created"`
	UpdatedAt time.Time      `json:"modified"`
	DeletedAt gorm.DeletedAt `json:"-"        gorm:"index"`
}

func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	return nil
}

// ContentStatus is the moderation lifecycle state of a content item.
type ContentStatus string

const (
	StatusPending  ContentStatus = "pending"
	StatusApproved ContentStatus = "approved"
	StatusRejected ContentStatus = "rejected"
)

// ContentBase carries the moderation fields shared by knowledge bases and
// persona cards. Version backs optimistic locking on state transitions.
type ContentBase struct {
	Base
	UploaderID   string        `json:"uploader_id"   gorm:"index;not null"`
	Title        string        `json:"title"         gorm:"not null"`
	Description  string        `json:"description"   gorm:"type:text"`
	Tags         StringSlice   `json:"tags"          gorm:"type:json;serializer:json"`
	Public       bool          `json:"public"        gorm:"default:true;index"`
	Status       ContentStatus `json:"status"        gorm:"type:varchar(16);default:'pending';index"`
	RejectReason string        `json:"reject_reason"`
	AIDecision   string        `json:"ai_decision"` // cached auto-decision, cleared on return-to-draft
	Version      int           `json:"version"      gorm:"default:0"`
}
