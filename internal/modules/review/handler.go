package review

import (
	"errors"
	"io"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/openkb/review-core/internal/models"
	"github.com/openkb/review-core/internal/pkg/pagination"
	"github.com/openkb/review-core/internal/pkg/response"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/review", authMW)

	g.GET("", h.listPending)
	g.GET("/stats", h.stats)
	g.POST("/:id/submit", h.submit)
	g.POST("/:id/approve", h.approve)
	g.POST("/:id/reject", h.reject)
	g.POST("/:id/return_draft", h.returnDraft)
	g.POST("/batch_approve", h.batchApprove)
	g.POST("/batch_reject", h.batchReject)
	g.POST("/batch_delete", h.batchDelete)
}

func parseContentType(raw string) (models.ContentType, error) {
	switch models.ContentType(raw) {
	case models.ContentTypeKnowledge:
		return models.ContentTypeKnowledge, nil
	case models.ContentTypePersona:
		return models.ContentTypePersona, nil
	}
	return "", ErrUnknownContentType
}

func (h *Handler) listPending(c *gin.Context) {
	q := pagination.FromContext(c)

	filter := QueueFilter{
		ContentType: c.Query("content_type"),
		Keyword:     c.Query("keyword"),
	}
	if filter.ContentType != "" {
		if _, err := parseContentType(filter.ContentType); err != nil {
			response.BadRequest(c, "无效的内容类型")
			return
		}
	}
	if raw := c.Query("start"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.BadRequest(c, "无效的开始时间")
			return
		}
		filter.Start = &t
	}
	if raw := c.Query("end"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.BadRequest(c, "无效的结束时间")
			return
		}
		filter.End = &t
	}

	items, total, err := h.svc.ListPending(filter, q.Page, q.Size)
	if err != nil {
		response.InternalError(c, err)
		return
	}

	totalPage := int((total + int64(q.Size) - 1) / int64(q.Size))
	response.Paged(c, items, response.Pagination{
		Total:       total,
		CurrentPage: q.Page,
		TotalPage:   totalPage,
		Size:        q.Size,
		HasNextPage: q.Page < totalPage,
	})
}

func (h *Handler) stats(c *gin.Context) {
	st, err := h.svc.GetStats()
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, st)
}

type actionDTO struct {
	ContentType string `json:"content_type"`
	Reason      string `json:"reason"`
}

// bindAction reads the action body. content_type lives in the body; the
// query string is accepted as a fallback for older callers. An empty body
// is fine since reason is optional for most actions.
func (h *Handler) bindAction(c *gin.Context) (actionDTO, models.ContentType, bool) {
	var dto actionDTO
	if err := c.ShouldBindJSON(&dto); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(c, err.Error())
		return dto, "", false
	}
	raw := dto.ContentType
	if raw == "" {
		raw = c.Query("content_type")
	}
	ct, err := parseContentType(raw)
	if err != nil {
		response.BadRequest(c, "无效的内容类型")
		return dto, "", false
	}
	return dto, ct, true
}

func (h *Handler) submit(c *gin.Context) {
	_, ct, ok := h.bindAction(c)
	if !ok {
		return
	}
	snap, err := h.svc.Submit(c.Request.Context(), ct, c.Param("id"))
	if err != nil {
		h.writeActionError(c, err)
		return
	}
	response.OK(c, snap)
}

func (h *Handler) approve(c *gin.Context) {
	_, ct, ok := h.bindAction(c)
	if !ok {
		return
	}
	if err := h.svc.Approve(c.Request.Context(), ct, c.Param("id")); err != nil {
		h.writeActionError(c, err)
		return
	}
	response.OK(c, gin.H{"id": c.Param("id"), "status": models.StatusApproved})
}

func (h *Handler) reject(c *gin.Context) {
	dto, ct, ok := h.bindAction(c)
	if !ok {
		return
	}
	if err := h.svc.Reject(c.Request.Context(), ct, c.Param("id"), dto.Reason); err != nil {
		h.writeActionError(c, err)
		return
	}
	response.OK(c, gin.H{"id": c.Param("id"), "status": models.StatusRejected})
}

func (h *Handler) returnDraft(c *gin.Context) {
	dto, ct, ok := h.bindAction(c)
	if !ok {
		return
	}
	if err := h.svc.ReturnDraft(c.Request.Context(), ct, c.Param("id"), dto.Reason); err != nil {
		h.writeActionError(c, err)
		return
	}
	response.OK(c, gin.H{"id": c.Param("id"), "status": models.StatusPending})
}

type batchDTO struct {
	IDs         []string `json:"ids"          binding:"required"`
	ContentType string   `json:"content_type" binding:"required"`
	Reason      string   `json:"reason"`
}

// bindBatch validates the whole batch request up front; a malformed call
// fails before any item is touched.
func (h *Handler) bindBatch(c *gin.Context, requireReason bool) (batchDTO, models.ContentType, bool) {
	var dto batchDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return dto, "", false
	}
	if len(dto.IDs) == 0 {
		response.BadRequest(c, "ids 不能为空")
		return dto, "", false
	}
	ct, err := parseContentType(dto.ContentType)
	if err != nil {
		response.BadRequest(c, "无效的内容类型")
		return dto, "", false
	}
	if requireReason && strings.TrimSpace(dto.Reason) == "" {
		response.UnprocessableEntity(c, "请填写拒绝原因")
		return dto, "", false
	}
	return dto, ct, true
}

func (h *Handler) batchApprove(c *gin.Context) {
	dto, ct, ok := h.bindBatch(c, false)
	if !ok {
		return
	}
	response.OK(c, h.svc.BatchApprove(c.Request.Context(), ct, dto.IDs))
}

func (h *Handler) batchReject(c *gin.Context) {
	dto, ct, ok := h.bindBatch(c, true)
	if !ok {
		return
	}
	response.OK(c, h.svc.BatchReject(c.Request.Context(), ct, dto.IDs, dto.Reason))
}

func (h *Handler) batchDelete(c *gin.Context) {
	dto, ct, ok := h.bindBatch(c, false)
	if !ok {
		return
	}
	response.OK(c, h.svc.BatchDelete(c.Request.Context(), ct, dto.IDs))
}

func (h *Handler) writeActionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrContentNotFound):
		response.NotFound(c)
	case errors.Is(err, ErrInvalidState):
		response.Conflict(c, err.Error())
	case errors.Is(err, ErrReasonRequired):
		response.UnprocessableEntity(c, "请填写拒绝原因")
	case errors.Is(err, ErrUnknownContentType):
		response.BadRequest(c, err.Error())
	default:
		response.InternalError(c, err)
	}
}
