package middleware

import (
	"crypto/subtle"
	"prompt-manager/internal/audit"
	"prompt-manager/internal/errors"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Auth trusts the gateway in front of the service: the gateway presents the
// shared internal secret and names the authenticated user in X-User-Id.
type Auth struct {
	InternalSecret string
}

func (m *Auth) InternalAuthMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if !m.checkSecret(ctx) {
			return
		}
		ctx.Next()
	}
}

// checkSecret aborts ctx unless it carries the internal secret. It never
// advances the chain.
func (m *Auth) checkSecret(ctx *gin.Context) bool {
	token := strings.TrimPrefix(
		ctx.GetHeader("Authorization"),
		"Bearer ",
	)

	if subtle.ConstantTimeCompare([]byte(token), []byte(m.InternalSecret)) != 1 {
		ctx.Error(errors.Unauthorized("Unauthorized internal call!", nil))
		ctx.Abort()
		return false
	}
	return true
}

// UserMiddleware requires the internal secret and an X-User-Id header. The
// user id is stored on the gin context and as the audit actor on the
// request context.
func (m *Auth) UserMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if !m.checkSecret(ctx) {
			return
		}

		userID, err := strconv.ParseUint(ctx.GetHeader("X-User-Id"), 10, 64)
		if err != nil || userID == 0 {
			ctx.Error(errors.Unauthorized("Invalid User ID!", err))
			ctx.Abort()
			return
		}

		ctx.Set("user_id", userID)
		reqCtx := audit.WithActor(ctx.Request.Context(), audit.Actor{
			UserID:    userID,
			IPAddress: ctx.ClientIP(),
			UserAgent: ctx.Request.UserAgent(),
		})
		logger := log.Ctx(reqCtx).With().Uint64("user_id", userID).Logger()
		ctx.Request = ctx.Request.WithContext(logger.WithContext(reqCtx))

		ctx.Next()
	}
}
