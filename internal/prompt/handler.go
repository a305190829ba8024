package prompt

import (
	"net/http"
	"prompt-manager/internal/domain"
	"prompt-manager/internal/errors"
	"prompt-manager/internal/utils"
	"strconv"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

type ContentRequest struct {
	Content       string `json:"content" binding:"required"`
	ChangeSummary string `json:"change_summary" binding:"max=500"`
}

type RollbackRequest struct {
	VersionNumber int `json:"version_number" binding:"required,min=1"`
}

type InviteRequest struct {
	UserID uint64 `json:"user_id" binding:"required"`
	Role   string `json:"role" binding:"required,oneof=editor viewer"`
}

type RoleRequest struct {
	Role string `json:"role" binding:"required,oneof=editor viewer"`
}

type InvitationResponse struct {
	Accept *bool `json:"accept" binding:"required"`
}

// params reads the caller and the :id path parameter.
func params(c *gin.Context) (id, userID uint64, err error) {
	if userID, err = utils.CurrentUserID(c); err != nil {
		return 0, 0, err
	}
	id, err = utils.ParseID(c, "id")
	return id, userID, err
}

func versionParam(c *gin.Context, name string) (int, error) {
	n, err := strconv.Atoi(c.Param(name))
	if err != nil || n < 1 {
		return 0, errors.BadRequest("invalid version number", err)
	}
	return n, nil
}

func (h *Handler) Create(c *gin.Context) {
	userID, err := utils.CurrentUserID(c)
	if err != nil {
		c.Error(err)
		return
	}
	var input CreateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	p, err := h.service.Create(c.Request.Context(), userID, input)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, p)
}

// List accepts the generic page, per_page, order_by and filters
// parameters, plus tag_id and q.
func (h *Handler) List(c *gin.Context) {
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
	opts := ListOptions{Search: c.Query("q")}
	if raw := c.Query("tag_id"); raw != "" {
		if opts.TagID, err = strconv.ParseUint(raw, 10, 64); err != nil {
			c.Error(errors.BadRequest("invalid tag_id", err))
			return
		}
	}

	page, err := h.service.List(c.Request.Context(), userID, q, opts)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, page)
}

func (h *Handler) Show(c *gin.Context) {
	id, userID, err := params(c)
	if err != nil {
		c.Error(err)
		return
	}

	p, err := h.service.Get(c.Request.Context(), id, userID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, p)
}

func (h *Handler) UpdateMetadata(c *gin.Context) {
	id, userID, err := params(c)
	if err != nil {
		c.Error(err)
		return
	}
	var changes map[string]any
	if err := c.ShouldBindJSON(&changes); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	p, err := h.service.UpdateMetadata(c.Request.Context(), id, userID, changes)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, p)
}

// UpdateContent answers 201 when a version was created and 200 when the
// content was already current.
func (h *Handler) UpdateContent(c *gin.Context) {
	id, userID, err := params(c)
	if err != nil {
		c.Error(err)
		return
	}
	var form ContentRequest
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	p, v, err := h.service.UpdateContent(c.Request.Context(), id, userID, form.Content, form.ChangeSummary)
	if err != nil {
		c.Error(err)
		return
	}

	respondRevision(c, p, v)
}

func (h *Handler) Rollback(c *gin.Context) {
	id, userID, err := params(c)
	if err != nil {
		c.Error(err)
		return
	}
	var form RollbackRequest
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	p, v, err := h.service.Rollback(c.Request.Context(), id, userID, form.VersionNumber)
	if err != nil {
		c.Error(err)
		return
	}

	respondRevision(c, p, v)
}

func respondRevision(c *gin.Context, p *domain.Prompt, v *domain.PromptVersion) {
	status := http.StatusOK
	if v != nil {
		status = http.StatusCreated
	}
	p.Versions = nil
	c.JSON(status, gin.H{"prompt": p, "version": v, "changed": v != nil})
}

func (h *Handler) Versions(c *gin.Context) {
	id, userID, err := params(c)
	if err != nil {
		c.Error(err)
		return
	}

	versions, err := h.service.Versions(c.Request.Context(), id, userID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": versions})
}

func (h *Handler) ShowVersion(c *gin.Context) {
	id, userID, err := params(c)
	if err != nil {
		c.Error(err)
		return
	}
	number, err := versionParam(c, "number")
	if err != nil {
		c.Error(err)
		return
	}

	v, err := h.service.Version(c.Request.Context(), id, userID, number)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, v)
}

func (h *Handler) Lineage(c *gin.Context) {
	id, userID, err := params(c)
	if err != nil {
		c.Error(err)
		return
	}
	number, err := versionParam(c, "number")
	if err != nil {
		c.Error(err)
		return
	}

	lineage, err := h.service.Lineage(c.Request.Context(), id, userID, number)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, lineage)
}

// Compare serves GET /prompts/:id/compare?from=1&to=3.
func (h *Handler) Compare(c *gin.Context) {
	id, userID, err := params(c)
	if err != nil {
		c.Error(err)
		return
	}
	from, errFrom := strconv.Atoi(c.Query("from"))
	to, errTo := strconv.Atoi(c.Query("to"))
	if errFrom != nil || errTo != nil {
		c.Error(errors.BadRequest("from and to must be version numbers", nil))
		return
	}

	cmp, err := h.service.Compare(c.Request.Context(), id, userID, from, to)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, cmp)
}

// Lifecycle returns a handler for one of the owner-only status operations.
func (h *Handler) Lifecycle(action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, userID, err := params(c)
		if err != nil {
			c.Error(err)
			return
		}

		ctx := c.Request.Context()
		switch action {
		case "publish":
			err = h.service.Publish(ctx, id, userID)
		case "draft":
			err = h.service.SetDraft(ctx, id, userID)
		case "delete":
			err = h.service.Delete(ctx, id, userID)
		case "purge":
			err = h.service.Purge(ctx, id, userID)
		default:
			err = errors.BadRequest("unknown action "+action, nil)
		}
		if err != nil {
			c.Error(err)
			return
		}

		c.Status(http.StatusNoContent)
	}
}

func (h *Handler) AttachTag(c *gin.Context) {
	h.tag(c, true)
}

func (h *Handler) DetachTag(c *gin.Context) {
	h.tag(c, false)
}

func (h *Handler) tag(c *gin.Context, attach bool) {
	id, userID, err := params(c)
	if err != nil {
		c.Error(err)
		return
	}
	tagID, err := utils.ParseID(c, "tagId")
	if err != nil {
		c.Error(err)
		return
	}

	if attach {
		err = h.service.AttachTag(c.Request.Context(), id, userID, tagID)
	} else {
		err = h.service.DetachTag(c.Request.Context(), id, userID, tagID)
	}
	if err != nil {
		c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) ListCollaborators(c *gin.Context) {
	id, userID, err := params(c)
	if err != nil {
		c.Error(err)
		return
	}

	grants, err := h.service.Collaborators(c.Request.Context(), id, userID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": grants})
}

func (h *Handler) Invite(c *gin.Context) {
	id, userID, err := params(c)
	if err != nil {
		c.Error(err)
		return
	}
	var form InviteRequest
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}
	role, err := domain.ParseRole(form.Role)
	if err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	grant, err := h.service.Invite(c.Request.Context(), id, userID, form.UserID, role)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, grant)
}

func (h *Handler) ChangeRole(c *gin.Context) {
	id, userID, err := params(c)
	if err != nil {
		c.Error(err)
		return
	}
	targetID, err := utils.ParseID(c, "userId")
	if err != nil {
		c.Error(err)
		return
	}
	var form RoleRequest
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}
	role, err := domain.ParseRole(form.Role)
	if err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	grant, err := h.service.ChangeRole(c.Request.Context(), id, userID, targetID, role)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, grant)
}

func (h *Handler) RemoveCollaborator(c *gin.Context) {
	id, userID, err := params(c)
	if err != nil {
		c.Error(err)
		return
	}
	targetID, err := utils.ParseID(c, "userId")
	if err != nil {
		c.Error(err)
		return
	}

	if err := h.service.RemoveCollaborator(c.Request.Context(), id, userID, targetID); err != nil {
		c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) RespondInvitation(c *gin.Context) {
	id, userID, err := params(c)
	if err != nil {
		c.Error(err)
		return
	}
	var form InvitationResponse
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	grant, err := h.service.RespondInvitation(c.Request.Context(), id, userID, *form.Accept)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, grant)
}

func (h *Handler) Invitations(c *gin.Context) {
	userID, err := utils.CurrentUserID(c)
	if err != nil {
		c.Error(err)
		return
	}

	grants, err := h.service.Invitations(c.Request.Context(), userID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": grants})
}
