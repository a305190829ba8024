package middleware

import (
	"errors"
	apiError "prompt-manager/internal/errors"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ErrorHandler renders the last error a handler attached as
// {"error": code, "message": msg}. Errors without a code become
// INTERNAL_ERROR so storage details never leak to the client.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		var apiErr *apiError.APIError
		if !errors.As(c.Errors.Last().Err, &apiErr) {
			apiErr = apiError.Internal(c.Errors.Last().Err)
		}

		level := zerolog.InfoLevel
		if apiErr.Status >= 500 {
			level = zerolog.ErrorLevel
		}
		log.Ctx(c.Request.Context()).WithLevel(level).
			Err(apiErr.Internal).
			Str("code", apiErr.Code).
			Int("status", apiErr.Status).
			Str("route", c.FullPath()).
			Int("errors", len(c.Errors)).
			Msg(apiErr.Message)

		// a handler that already answered keeps its response
		if c.Writer.Written() {
			return
		}
		c.AbortWithStatusJSON(apiErr.Status, apiErr)
	}
}
