package models

// ReviewDecision is the categorical verdict for a part or a whole content item.
type ReviewDecision string

const (
	DecisionTrue    ReviewDecision = "true"  // clean
	DecisionFalse   ReviewDecision = "false" // violating
	DecisionUnknown ReviewDecision = "unknown"
	DecisionError   ReviewDecision = "error"
)

// ReviewPartType classifies a reviewable unit within one content item.
type ReviewPartType string

const (
	PartTypeTextField ReviewPartType = "text_field"
	PartTypeFile      ReviewPartType = "file"
	PartTypeSegment   ReviewPartType = "segment"
)

// ReviewSource identifies which entity kind a review report belongs to.
type ReviewSource string

const (
	SourceComment       ReviewSource = "comment"
	SourceKnowledge     ReviewSource = "knowledge"
	SourcePersona       ReviewSource = "persona"
	SourceKnowledgeFile ReviewSource = "knowledge_file"
)

// ReviewPartResult is the verdict for one part of a content item. Long text
// parts carry nested segment results.
type ReviewPartResult struct {
	Name           string             `json:"name"`
	Type           ReviewPartType     `json:"type"`
	Decision       ReviewDecision     `json:"decision"`
	Confidence     float64            `json:"confidence"`
	ViolationTypes []string           `json:"violation_types"`
	Segments       []ReviewPartResult `json:"segments,omitempty"`
}

// AIReviewReport is the immutable audit record of one review invocation.
// One row is written per attempt, success or failure, and rows are never
// updated or deleted.
type AIReviewReport struct {
	Base
	Source           ReviewSource       `json:"source"            gorm:"type:varchar(24);index;not null"`
	RefID            string             `json:"ref_id"            gorm:"index;not null"`
	Decision         ReviewDecision     `json:"decision"          gorm:"type:varchar(12);index;not null"`
	AutoDecision     string             `json:"auto_decision"     gorm:"type:varchar(20)"`
	Confidence       float64            `json:"confidence"`
	ViolationTypes   StringSlice        `json:"violation_types"   gorm:"type:json;serializer:json"`
	Parts            []ReviewPartResult `json:"parts"             gorm:"type:longtext;serializer:json"`
	ModelName        string             `json:"model_name"        gorm:"index"`
	ModelProvider    string             `json:"model_provider"`
	PromptTokens     int                `json:"prompt_tokens"`
	CompletionTokens int                `json:"completion_tokens"`
	LatencyMS        int64              `json:"latency_ms"`
	IsSuccess        bool               `json:"is_success"        gorm:"index"`
	RawOutput        string             `json:"raw_output"        gorm:"type:longtext"`
	ErrorMessage     string             `json:"error_message"     gorm:"type:text"`
}

func (AIReviewReport) TableName() string { return "ai_review_reports" }
