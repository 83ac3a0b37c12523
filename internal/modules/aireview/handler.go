package aireview

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/openkb/review-core/internal/models"
	"github.com/openkb/review-core/internal/modules/review"
	"github.com/openkb/review-core/internal/pkg/response"
)

type Handler struct {
	runner *TaskRunner
	svc    *Service
}

func NewHandler(runner *TaskRunner, svc *Service) *Handler {
	return &Handler{runner: runner, svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/review", authMW)

	g.POST("/:id/ai_review", h.triggerReview)
	g.POST("/batch_ai_review", h.triggerBatchReview)
	g.GET("/:id/ai_report", h.latestReport)
	g.POST("/comments/:id/ai_review", h.reviewComment)
}

func contentTypeFrom(c *gin.Context) (models.ContentType, bool) {
	ct := models.ContentType(c.Query("content_type"))
	if ct != models.ContentTypeKnowledge && ct != models.ContentTypePersona {
		response.BadRequest(c, "无效的内容类型")
		return "", false
	}
	return ct, true
}

type triggerDTO struct {
	ContentType string `json:"content_type"`
}

// triggerReview queues the AI review of one item and returns immediately.
// content_type comes from the body, falling back to the query string.
func (h *Handler) triggerReview(c *gin.Context) {
	var dto triggerDTO
	if err := c.ShouldBindJSON(&dto); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(c, err.Error())
		return
	}
	raw := dto.ContentType
	if raw == "" {
		raw = c.Query("content_type")
	}
	ct := models.ContentType(raw)
	if ct != models.ContentTypeKnowledge && ct != models.ContentTypePersona {
		response.BadRequest(c, "无效的内容类型")
		return
	}
	if err := h.runner.EnqueueAutoReview(c.Request.Context(), ct, c.Param("id")); err != nil {
		response.InternalError(c, err)
		return
	}
	response.Accepted(c, gin.H{"content_id": c.Param("id"), "content_type": ct})
}

type batchReviewDTO struct {
	IDs         []string `json:"ids"         binding:"required"`
	ContentType string   `json:"content_type" binding:"required"`
}

func (h *Handler) triggerBatchReview(c *gin.Context) {
	var dto batchReviewDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if len(dto.IDs) == 0 {
		response.BadRequest(c, "ids 不能为空")
		return
	}
	ct := models.ContentType(dto.ContentType)
	if ct != models.ContentTypeKnowledge && ct != models.ContentTypePersona {
		response.BadRequest(c, "无效的内容类型")
		return
	}

	task, err := h.runner.EnqueueBatchReview(c.Request.Context(), ct, dto.IDs)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Accepted(c, gin.H{"task_id": task.ID, "count": len(dto.IDs)})
}

func (h *Handler) latestReport(c *gin.Context) {
	ct, ok := contentTypeFrom(c)
	if !ok {
		return
	}
	report, err := h.svc.LatestReport(ct, c.Param("id"))
	if err != nil {
		if errors.Is(err, review.ErrContentNotFound) {
			response.NotFoundMsg(c, "暂无审核报告")
			return
		}
		if errors.Is(err, review.ErrUnknownContentType) {
			response.BadRequest(c, err.Error())
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, report)
}

// reviewComment runs a synchronous AI review of one comment. Comment text is
// short so the inline call stays within the request timeout.
func (h *Handler) reviewComment(c *gin.Context) {
	outcome, err := h.svc.ReviewComment(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, review.ErrContentNotFound) {
			response.NotFound(c)
			return
		}
		if outcome != nil && outcome.Report != nil {
			// Failed run still produced an audit report; surface it.
			response.OK(c, outcome.Report)
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, outcome.Report)
}
