package user

import (
	"net/http"
	"prompt-manager/internal/domain"
	"prompt-manager/internal/errors"
	"prompt-manager/internal/utils"

	"github.com/gin-gonic/gin"
)

// Handler handles HTTP requests for users
type Handler struct {
	service Service
}

// NewHandler creates a new user handler
func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// FormLogin represents login form data
type FormLogin struct {
	Login    string `json:"login" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// FormRegister represents registration form data
type FormRegister struct {
	Username    string `json:"username" binding:"required,min=3,max=50"`
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required"`
	DisplayName string `json:"display_name" binding:"max=100"`
}

type FormChangePassword struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

type FormProfile struct {
	DisplayName *string `json:"display_name" binding:"omitempty,max=100"`
	Bio         *string `json:"bio"`
	AvatarURL   *string `json:"avatar_url" binding:"omitempty,url,max=255"`
}

// Register handles user registration
func (h *Handler) Register(c *gin.Context) {
	var form FormRegister
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	user, err := h.service.Register(c.Request.Context(), RegisterInput{
		Username:    form.Username,
		Email:       form.Email,
		Password:    form.Password,
		DisplayName: form.DisplayName,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": user.ToSafeUser()})
}

// Login checks credentials. Token issuance belongs to the gateway in front
// of this service.
func (h *Handler) Login(c *gin.Context) {
	var form FormLogin
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	user, err := h.service.Login(c.Request.Context(), form.Login, form.Password)
	if err != nil {
		c.Error(err)
		return
	}
	if user == nil {
		c.Error(errors.New(errors.CodeInvalidCredentials, "invalid username or password", nil))
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user.ToSafeUser()})
}

// GetProfile handles getting the current user's profile
func (h *Handler) GetProfile(c *gin.Context) {
	userID, err := utils.CurrentUserID(c)
	if err != nil {
		c.Error(err)
		return
	}

	user, err := h.service.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user.ToSafeUser(), "preferences": user.Preferences})
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	userID, err := utils.CurrentUserID(c)
	if err != nil {
		c.Error(err)
		return
	}
	var form FormProfile
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	changes := map[string]any{}
	if form.DisplayName != nil {
		changes["display_name"] = *form.DisplayName
	}
	if form.Bio != nil {
		changes["bio"] = *form.Bio
	}
	if form.AvatarURL != nil {
		changes["avatar_url"] = *form.AvatarURL
	}

	user, err := h.service.UpdateProfile(c.Request.Context(), userID, changes)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user.ToSafeUser()})
}

func (h *Handler) ChangePassword(c *gin.Context) {
	userID, err := utils.CurrentUserID(c)
	if err != nil {
		c.Error(err)
		return
	}
	var form FormChangePassword
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	if err := h.service.ChangePassword(c.Request.Context(), userID, form.OldPassword, form.NewPassword); err != nil {
		c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) UpdatePreferences(c *gin.Context) {
	userID, err := utils.CurrentUserID(c)
	if err != nil {
		c.Error(err)
		return
	}
	var prefs map[string]any
	if err := c.ShouldBindJSON(&prefs); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	user, err := h.service.UpdatePreferences(c.Request.Context(), userID, prefs)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"preferences": user.Preferences})
}

func (h *Handler) GetStatistics(c *gin.Context) {
	userID, err := utils.CurrentUserID(c)
	if err != nil {
		c.Error(err)
		return
	}

	stats, err := h.service.Statistics(c.Request.Context(), userID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// DeleteAccount soft-deletes the caller's own account.
func (h *Handler) DeleteAccount(c *gin.Context) {
	userID, err := utils.CurrentUserID(c)
	if err != nil {
		c.Error(err)
		return
	}

	if err := h.service.DeleteUser(c.Request.Context(), userID); err != nil {
		c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) SearchUsers(c *gin.Context) {
	users, err := h.service.SearchUsers(c.Request.Context(), c.Query("q"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": users})
}

// SetStatus serves the internal activate/deactivate routes.
func (h *Handler) SetStatus(status domain.UserStatus) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := utils.ParseID(c, "id")
		if err != nil {
			c.Error(err)
			return
		}

		if status == domain.UserActive {
			err = h.service.ActivateUser(c.Request.Context(), id)
		} else {
			err = h.service.DeactivateUser(c.Request.Context(), id)
		}
		if err != nil {
			c.Error(err)
			return
		}

		c.Status(http.StatusNoContent)
	}
}
