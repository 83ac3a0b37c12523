package tasks

import (
	"encoding/json"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/openkb/review-core/internal/pkg/pagination"
	"github.com/openkb/review-core/internal/pkg/response"
	"github.com/openkb/review-core/internal/pkg/taskqueue"
)

// Handler exposes the review task queue for admin inspection.
type Handler struct {
	svc *taskqueue.Service
}

func NewHandler(svc *taskqueue.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/ai/tasks", authMW)
	g.GET("", h.list)
	g.GET("/:taskId", h.get)
	g.POST("/:taskId/cancel", h.cancel)
	g.POST("/:taskId/retry", h.retry)
	g.DELETE("/:taskId", h.delete)
	g.DELETE("", h.deleteFinished)
}

// GET /ai/tasks?type=...&status=...
func (h *Handler) list(c *gin.Context) {
	q := pagination.FromContext(c)
	taskType := c.Query("type")
	statusStr := c.Query("status")

	var taskTypePtr *string
	var statusPtr *taskqueue.TaskStatus
	if taskType != "" {
		taskTypePtr = &taskType
	}
	if statusStr != "" {
		s := taskqueue.TaskStatus(statusStr)
		statusPtr = &s
	}

	items, total, err := h.svc.List(c.Request.Context(), q.Page, q.Size, taskTypePtr, statusPtr)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	totalPages := int((total + int64(q.Size) - 1) / int64(q.Size))
	response.Paged(c, items, response.Pagination{
		Total:       total,
		CurrentPage: q.Page,
		TotalPage:   totalPages,
		Size:        q.Size,
		HasNextPage: q.Page < totalPages,
	})
}

// GET /ai/tasks/:taskId
func (h *Handler) get(c *gin.Context) {
	task, err := h.svc.GetByID(c.Request.Context(), c.Param("taskId"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if task == nil {
		response.NotFoundMsg(c, "任务不存在")
		return
	}
	response.OK(c, task)
}

// POST /ai/tasks/:taskId/cancel
func (h *Handler) cancel(c *gin.Context) {
	if err := h.svc.Cancel(c.Request.Context(), c.Param("taskId")); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	response.NoContent(c)
}

// POST /ai/tasks/:taskId/retry — re-enqueue with the same type and payload.
// The dedup key is dropped so the retry is not swallowed by the original.
func (h *Handler) retry(c *gin.Context) {
	task, err := h.svc.GetByID(c.Request.Context(), c.Param("taskId"))
	if err != nil || task == nil {
		response.NotFoundMsg(c, "任务不存在")
		return
	}

	var rawPayload interface{}
	if err := json.Unmarshal(task.Payload, &rawPayload); err != nil {
		response.BadRequest(c, "invalid task payload")
		return
	}
	policy := taskqueue.RetryPolicy{MaxAttempts: task.MaxAttempts, Backoff: task.Backoff}
	newTask, err := h.svc.Enqueue(c.Request.Context(), task.Type, rawPayload, "", task.GroupKey, policy)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Created(c, newTask)
}

// DELETE /ai/tasks/:taskId
func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.DeleteByID(c.Request.Context(), c.Param("taskId")); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	response.NoContent(c)
}

// DELETE /ai/tasks?before=<unix_ms> — purge finished tasks.
func (h *Handler) deleteFinished(c *gin.Context) {
	beforeStr := c.Query("before")
	var before int64
	if beforeStr != "" {
		if v, err := strconv.ParseInt(beforeStr, 10, 64); err == nil {
			before = v
		}
	}
	if err := h.svc.DeleteCompleted(c.Request.Context(), before); err != nil {
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}
