package sysconfig

import (
	"net/http"
	"prompt-manager/internal/errors"
	"prompt-manager/internal/utils"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service  Service
	features func() map[string]bool
}

// NewHandler serves settings. features reports the deployment's feature
// switches alongside the public settings.
func NewHandler(service Service, features func() map[string]bool) *Handler {
	return &Handler{service: service, features: features}
}

func (h *Handler) Public(c *gin.Context) {
	settings, err := h.service.Public(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}

	features := map[string]bool{}
	if h.features != nil {
		features = h.features()
	}
	c.JSON(http.StatusOK, gin.H{"settings": settings, "features": features})
}

func (h *Handler) List(c *gin.Context) {
	q, err := utils.GetListQuery(c)
	if err != nil {
		c.Error(err)
		return
	}

	page, err := h.service.List(c.Request.Context(), q)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, page)
}

func (h *Handler) Show(c *gin.Context) {
	cfg, err := h.service.Get(c.Request.Context(), c.Param("key"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"config": cfg, "value": cfg.Value()})
}

func (h *Handler) Set(c *gin.Context) {
	var input SetInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	cfg, err := h.service.Set(c.Request.Context(), c.Param("key"), input)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"config": cfg, "value": cfg.Value()})
}

func (h *Handler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("key")); err != nil {
		c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}
