package aireview

import (
	"github.com/openkb/review-core/internal/models"
)

// AutoDecision is the content-level output of the decision engine.
type AutoDecision string

const (
	AutoApproved  AutoDecision = "auto_approved"
	AutoRejected  AutoDecision = "auto_rejected"
	PendingManual AutoDecision = "pending_manual"
	// AutoError marks a run that produced no usable verdict (provider failure,
	// no model available). State stays untouched, only the report records it.
	AutoError AutoDecision = "error"
)

// ReviewPart is one reviewable unit of a content item before invocation.
type ReviewPart struct {
	Name string
	Type models.ReviewPartType
	Text string
}

// RawVerdict is the normalized result of invoking one model on one part.
// It is always recordable: transport failures come back as Decision=error
// with IsSuccess=false, never as a panic or a lost result.
type RawVerdict struct {
	Decision         models.ReviewDecision
	Confidence       float64
	ViolationTypes   []string
	RawOutput        string
	ErrorMessage     string
	IsSuccess        bool
	RateLimited      bool // provider-reported 429; triggers model cooldown
	PromptTokens     int
	CompletionTokens int
	LatencyMS        int64
	Segments         []models.ReviewPartResult
}

// ReviewOutcome is the result of one full review run over a content item.
type ReviewOutcome struct {
	Report       *models.AIReviewReport
	AutoDecision AutoDecision
}

// AutoReviewPayload is the payload of the single-item async review task.
type AutoReviewPayload struct {
	ContentID   string `json:"content_id"`
	ContentType string `json:"content_type"`
}

// BatchReviewPayload fans one task out over many content items.
type BatchReviewPayload struct {
	ContentIDs  []string `json:"content_ids"`
	ContentType string   `json:"content_type"`
}

const (
	TaskTypeAutoReview  = "review:auto"
	TaskTypeBatchReview = "review:batch"
)
