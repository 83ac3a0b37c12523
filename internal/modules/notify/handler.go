package notify

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/openkb/review-core/internal/middleware"
	"github.com/openkb/review-core/internal/pkg/pagination"
	"github.com/openkb/review-core/internal/pkg/response"
	"gorm.io/gorm"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/notifications", authMW)

	g.GET("", h.list)
	g.PATCH("/:id/read", h.markRead)
	g.PATCH("/read_all", h.markAllRead)
}

func (h *Handler) list(c *gin.Context) {
	q := pagination.FromContext(c)
	userID := middleware.CurrentUserID(c)

	items, total, err := h.svc.ListForUser(userID, q.Size, (q.Page-1)*q.Size)
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

func (h *Handler) markRead(c *gin.Context) {
	err := h.svc.MarkRead(middleware.CurrentUserID(c), c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}

func (h *Handler) markAllRead(c *gin.Context) {
	if err := h.svc.MarkAllRead(middleware.CurrentUserID(c)); err != nil {
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}
