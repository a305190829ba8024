package tag

import (
	"net/http"
	"prompt-manager/internal/errors"
	"prompt-manager/internal/utils"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Create(c *gin.Context) {
	userID, err := utils.CurrentUserID(c)
	if err != nil {
		c.Error(err)
		return
	}
	var form CreateInput
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	tag, err := h.service.Create(c.Request.Context(), userID, form)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, tag)
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
	id, err := utils.ParseID(c, "id")
	if err != nil {
		c.Error(err)
		return
	}

	tag, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, tag)
}

func (h *Handler) Update(c *gin.Context) {
	userID, err := utils.CurrentUserID(c)
	if err != nil {
		c.Error(err)
		return
	}
	id, err := utils.ParseID(c, "id")
	if err != nil {
		c.Error(err)
		return
	}
	var changes map[string]any
	if err := c.ShouldBindJSON(&changes); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	tag, err := h.service.Update(c.Request.Context(), id, userID, changes)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, tag)
}

func (h *Handler) Delete(c *gin.Context) {
	userID, err := utils.CurrentUserID(c)
	if err != nil {
		c.Error(err)
		return
	}
	id, err := utils.ParseID(c, "id")
	if err != nil {
		c.Error(err)
		return
	}

	if err := h.service.Delete(c.Request.Context(), id, userID); err != nil {
		c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}
