package oplog

import (
	"context"
	"net/http"
	"prompt-manager/internal/domain"
	"prompt-manager/internal/utils"

	"github.com/gin-gonic/gin"
)

// PromptAccess checks that a user may see a prompt before its history is
// shown.
type PromptAccess interface {
	Viewable(ctx context.Context, id, userID uint64) (*domain.Prompt, error)
}

type Handler struct {
	service Service
	prompts PromptAccess
}

func NewHandler(service Service, prompts PromptAccess) *Handler {
	return &Handler{service: service, prompts: prompts}
}

func (h *Handler) Mine(c *gin.Context) {
	userID, err := utils.CurrentUserID(c)
	if err != nil {
		c.Error(err)
		return
	}
	q, err := utils.GetListQuery(c)
	if err != nil {
		c.Error(err)
		return
	}

	page, err := h.service.Mine(c.Request.Context(), userID, q)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, page)
}

func (h *Handler) PromptHistory(c *gin.Context) {
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
	q, err := utils.GetListQuery(c)
	if err != nil {
		c.Error(err)
		return
	}
	if _, err := h.prompts.Viewable(c.Request.Context(), id, userID); err != nil {
		c.Error(err)
		return
	}

	page, err := h.service.History(c.Request.Context(), domain.ResourcePrompt, id, q)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, page)
}
