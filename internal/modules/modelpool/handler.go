package modelpool

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/openkb/review-core/internal/models"
	"github.com/openkb/review-core/internal/pkg/response"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/ai/models", authMW)

	g.GET("", h.list)
	g.POST("", h.create)
	g.GET("/:id", h.get)
	g.PATCH("/:id", h.update)
	g.DELETE("/:id", h.delete)
	g.POST("/:id/enable", h.setEnabled(true))
	g.POST("/:id/disable", h.setEnabled(false))
}

func (h *Handler) list(c *gin.Context) {
	items, err := h.svc.List()
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, items)
}

func (h *Handler) get(c *gin.Context) {
	m, err := h.svc.GetByID(c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrModelNotFound) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, m)
}

type createModelDTO struct {
	Provider         string  `json:"provider"  binding:"required"`
	Name             string  `json:"name"      binding:"required"`
	ModelID          string  `json:"model_id"  binding:"required"`
	Endpoint         string  `json:"endpoint"`
	APIKey           string  `json:"api_key"`
	ParamSize        string  `json:"param_size"`
	MaxContextLength int     `json:"max_context_length"`
	RPMLimit         int     `json:"rpm_limit"`
	TPMLimit         int     `json:"tpm_limit"`
	Priority         int     `json:"priority"`
	CooldownSeconds  int     `json:"cooldown_seconds"`
	Temperature      float64 `json:"temperature"`
}

func (h *Handler) create(c *gin.Context) {
	var dto createModelDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	m := models.AIModelConfig{
		Provider:         dto.Provider,
		Name:             dto.Name,
		ModelID:          dto.ModelID,
		Endpoint:         dto.Endpoint,
		APIKey:           dto.APIKey,
		ParamSize:        dto.ParamSize,
		MaxContextLength: dto.MaxContextLength,
		RPMLimit:         dto.RPMLimit,
		TPMLimit:         dto.TPMLimit,
		Priority:         dto.Priority,
		CooldownSeconds:  dto.CooldownSeconds,
		Temperature:      dto.Temperature,
		Enabled:          true,
	}
	if err := h.svc.Create(&m); err != nil {
		response.InternalError(c, err)
		return
	}
	response.Created(c, m)
}

func (h *Handler) update(c *gin.Context) {
	var patch map[string]interface{}
	if err := c.ShouldBindJSON(&patch); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	delete(patch, "id")

	m, err := h.svc.Update(c.Param("id"), patch)
	if err != nil {
		if errors.Is(err, ErrModelNotFound) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, m)
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Param("id")); err != nil {
		if errors.Is(err, ErrModelNotFound) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}

func (h *Handler) setEnabled(enabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := h.svc.SetEnabled(c.Param("id"), enabled); err != nil {
			if errors.Is(err, ErrModelNotFound) {
				response.NotFound(c)
				return
			}
			response.InternalError(c, err)
			return
		}
		response.NoContent(c)
	}
}
