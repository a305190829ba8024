package testrun

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

// params reads the caller and the :id path parameter.
func params(c *gin.Context) (id, userID uint64, err error) {
	if userID, err = utils.CurrentUserID(c); err != nil {
		return 0, 0, err
	}
	id, err = utils.ParseID(c, "id")
	return id, userID, err
}

// Run answers 201 even when the model call failed; the record's status
// tells the outcome.
func (h *Handler) Run(c *gin.Context) {
	promptID, userID, err := params(c)
	if err != nil {
		c.Error(err)
		return
	}
	var input RunInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	rec, err := h.service.Run(c.Request.Context(), promptID, userID, input)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, rec)
}

func (h *Handler) List(c *gin.Context) {
	promptID, userID, err := params(c)
	if err != nil {
		c.Error(err)
		return
	}
	q, err := utils.GetListQuery(c)
	if err != nil {
		c.Error(err)
		return
	}

	page, err := h.service.List(c.Request.Context(), promptID, userID, q)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, page)
}

func (h *Handler) Summary(c *gin.Context) {
	promptID, userID, err := params(c)
	if err != nil {
		c.Error(err)
		return
	}

	summary, err := h.service.Summary(c.Request.Context(), promptID, userID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

func (h *Handler) Show(c *gin.Context) {
	id, userID, err := params(c)
	if err != nil {
		c.Error(err)
		return
	}

	rec, err := h.service.Get(c.Request.Context(), id, userID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, rec)
}

func (h *Handler) Rate(c *gin.Context) {
	id, userID, err := params(c)
	if err != nil {
		c.Error(err)
		return
	}
	var input RateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	rec, err := h.service.Rate(c.Request.Context(), id, userID, input)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, rec)
}
