package auditlog

import (
	"github.com/gin-gonic/gin"
	"github.com/openkb/review-core/internal/pkg/pagination"
	"github.com/openkb/review-core/internal/pkg/response"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/moderation-logs", authMW)

	g.GET("", h.list)
	g.GET("/stats", h.stats)
}

func filterFrom(c *gin.Context) Filter {
	f := Filter{
		Source:    c.Query("source"),
		Decision:  c.Query("decision"),
		ModelName: c.Query("model_name"),
		RefID:     c.Query("ref_id"),
	}
	switch c.Query("is_success") {
	case "true":
		v := true
		f.IsSuccess = &v
	case "false":
		v := false
		f.IsSuccess = &v
	}
	return f
}

func (h *Handler) list(c *gin.Context) {
	reports, page, err := h.svc.List(filterFrom(c), pagination.FromContext(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, reports, page)
}

func (h *Handler) stats(c *gin.Context) {
	st, err := h.svc.GetStats(filterFrom(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, st)
}
