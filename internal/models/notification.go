package models

// NotificationModel is a persisted inbox record. The realtime copy goes out
// over Redis pub/sub and is delivered by the platform gateway.
type NotificationModel struct {
	Base
	UserID string                 `json:"user_id" gorm:"index;not null"`
	Type   string                 `json:"type"    gorm:"not null"` // review_approved | review_rejected | review_returned
	Title  string                 `json:"title"   gorm:"not null"`
	Body   string                 `json:"body"    gorm:"type:text"`
	Meta   map[string]interface{} `json:"meta,omitempty" gorm:"serializer:json"`
	Read   bool                   `json:"read"    gorm:"default:false;index"`
}

func (NotificationModel) TableName() string { return "notifications" }
