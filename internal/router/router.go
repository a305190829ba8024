package router

import (
	"net/http"
	"prompt-manager/internal/app"
	"prompt-manager/internal/domain"
	"prompt-manager/internal/metrics"
	"prompt-manager/internal/middleware"
	"prompt-manager/internal/oplog"
	"prompt-manager/internal/prompt"
	"prompt-manager/internal/sysconfig"
	"prompt-manager/internal/tag"
	"prompt-manager/internal/testrun"
	"prompt-manager/internal/user"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// New builds the HTTP surface over a. Everything under /api/v1 except
// registration, login and the public settings requires the gateway's
// identity headers; /internal routes require only the gateway secret.
func New(a *app.App) *gin.Engine {
	cfg := a.Config
	router := gin.New()

	// cors setting
	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-User-Id", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: false,
	}
	if cfg.IsProduction() {
		// Restrict origins in production
		corsConfig.AllowOrigins = []string{cfg.FrontendAddress}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	router.Use(cors.New(corsConfig), middleware.RequestLogger(), gin.Recovery(), middleware.ErrorHandler())

	authn := &middleware.Auth{InternalSecret: cfg.InternalSecret}
	users := user.NewHandler(a.Users)
	prompts := prompt.NewHandler(a.Prompts)
	tags := tag.NewHandler(a.Tags)
	tests := testrun.NewHandler(a.Tests)
	settings := sysconfig.NewHandler(a.Settings, cfg.FeatureFlags)
	activity := oplog.NewHandler(a.Activity, a.Prompts)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := router.Group("/api/v1")
	api.POST("/auth/register", users.Register)
	api.POST("/auth/login", users.Login)
	api.GET("/config", settings.Public)

	secured := api.Group("", authn.UserMiddleware())

	// User routes
	secured.GET("/users", users.SearchUsers)
	secured.GET("/users/me", users.GetProfile)
	secured.PUT("/users/me", users.UpdateProfile)
	secured.DELETE("/users/me", users.DeleteAccount)
	secured.PUT("/users/me/password", users.ChangePassword)
	secured.PUT("/users/me/preferences", users.UpdatePreferences)
	secured.GET("/users/me/statistics", users.GetStatistics)
	secured.GET("/users/me/activity", activity.Mine)
	secured.GET("/users/me/invitations", prompts.Invitations)

	// Prompt routes
	secured.POST("/prompts", prompts.Create)
	secured.GET("/prompts", prompts.List)
	secured.GET("/prompts/:id", prompts.Show)
	secured.PATCH("/prompts/:id", prompts.UpdateMetadata)
	secured.DELETE("/prompts/:id", prompts.Lifecycle("delete"))
	secured.DELETE("/prompts/:id/purge", prompts.Lifecycle("purge"))
	secured.POST("/prompts/:id/publish", prompts.Lifecycle("publish"))
	secured.POST("/prompts/:id/draft", prompts.Lifecycle("draft"))
	secured.PUT("/prompts/:id/content", prompts.UpdateContent)
	secured.POST("/prompts/:id/rollback", prompts.Rollback)
	secured.GET("/prompts/:id/versions", prompts.Versions)
	secured.GET("/prompts/:id/versions/:number", prompts.ShowVersion)
	secured.GET("/prompts/:id/versions/:number/lineage", prompts.Lineage)
	secured.GET("/prompts/:id/compare", prompts.Compare)
	secured.POST("/prompts/:id/tags/:tagId", prompts.AttachTag)
	secured.DELETE("/prompts/:id/tags/:tagId", prompts.DetachTag)
	secured.GET("/prompts/:id/collaborators", prompts.ListCollaborators)
	secured.POST("/prompts/:id/collaborators", prompts.Invite)
	secured.PUT("/prompts/:id/collaborators/:userId", prompts.ChangeRole)
	secured.DELETE("/prompts/:id/collaborators/:userId", prompts.RemoveCollaborator)
	secured.POST("/prompts/:id/invitation", prompts.RespondInvitation)
	secured.GET("/prompts/:id/activity", activity.PromptHistory)
	secured.POST("/prompts/:id/tests", tests.Run)
	secured.GET("/prompts/:id/tests", tests.List)
	secured.GET("/prompts/:id/tests/summary", tests.Summary)
	secured.GET("/tests/:id", tests.Show)
	secured.PUT("/tests/:id/rating", tests.Rate)

	// Tag routes
	secured.POST("/tags", tags.Create)
	secured.GET("/tags", tags.List)
	secured.GET("/tags/:id", tags.Show)
	secured.PUT("/tags/:id", tags.Update)
	secured.DELETE("/tags/:id", tags.Delete)

	// internal use routes
	internal := router.Group("/internal", authn.InternalAuthMiddleware())
	internal.POST("/users/:id/activate", users.SetStatus(domain.UserActive))
	internal.POST("/users/:id/deactivate", users.SetStatus(domain.UserDisabled))
	internal.GET("/config", settings.List)
	internal.GET("/config/:key", settings.Show)
	internal.PUT("/config/:key", settings.Set)
	internal.DELETE("/config/:key", settings.Delete)

	return router
}
