package middleware

import (
	"prompt-manager/internal/audit"
	"prompt-manager/internal/metrics"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// RequestLogger tags every request with an id, attaches a request scoped
// logger and anonymous audit metadata to the context, and records metrics.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		reqID := c.GetHeader("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Set("request_id", reqID)
		c.Writer.Header().Set("X-Request-ID", reqID)

		logger := log.Logger.With().Str("rid", reqID).Logger()
		ctx := audit.WithActor(c.Request.Context(), audit.Actor{
			IPAddress: c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		})
		c.Request = c.Request.WithContext(logger.WithContext(ctx))

		c.Next()

		duration := time.Since(start)
		metrics.ObserveRequest(c.Request.Method, c.FullPath(), c.Writer.Status(), duration)

		level := zerolog.InfoLevel
		if c.Writer.Status() >= 500 {
			level = zerolog.ErrorLevel
		}
		logger.WithLevel(level).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Int64("latency_ms", duration.Milliseconds()).
			Str("client_ip", c.ClientIP()).
			Msg("http_request")
	}
}
