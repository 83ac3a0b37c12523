package models

// ContentType identifies which moderated entity a review operation targets.
type ContentType string

const (
	ContentTypeKnowledge ContentType = "knowledge"
	ContentTypePersona   ContentType = "persona"
)

// KnowledgeBaseModel is an uploaded knowledge base subject to moderation.
type KnowledgeBaseModel struct {
	ContentBase
	Text  string              `json:"text"  gorm:"type:longtext"`
	Files []KnowledgeFileText `json:"files" gorm:"type:longtext;serializer:json"`
}

func (KnowledgeBaseModel) TableName() string { return "knowledge_bases" }

// KnowledgeFileText is the extracted text of one attached file.
// Extraction itself happens in the upload pipeline; the review engine only
// sees the resulting text.
type KnowledgeFileText struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

// PersonaCardModel is a shared persona card subject to moderation.
type PersonaCardModel struct {
	ContentBase
	Greeting string `json:"greeting" gorm:"type:text"`
	Persona  string `json:"persona"  gorm:"type:longtext"`
}

func (PersonaCardModel) TableName() string { return "persona_cards" }

// CommentModel is a user comment. Comments skip the lifecycle state machine
// but can be run through AI review, producing a comment-sourced report.
type CommentModel struct {
	Base
	UploaderID string `json:"uploader_id" gorm:"index"`
	RefType    string `json:"ref_type"    gorm:"index"`
	RefID      string `json:"ref_id"      gorm:"index"`
	Text       string `json:"text"        gorm:"type:text;not null"`
}

func (CommentModel) TableName() string { return "comments" }

// UserModel is the minimal uploader reference; account management lives in
// the main platform service.
type UserModel struct {
	Base
	Name string `json:"name" gorm:"not null"`
	Mail string `json:"mail"`
}

func (UserModel) TableName() string { return "users" }
