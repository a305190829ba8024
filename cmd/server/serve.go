package main

import (
	"context"
	"fmt"
	"net/http"
	"prompt-manager/auth"
	"prompt-manager/internal/app"
	"prompt-manager/internal/audit"
	"prompt-manager/internal/db"
	"prompt-manager/internal/router"
	"prompt-manager/internal/worker"
	"prompt-manager/redis"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the HTTP server. The schema is migrated and default settings
are seeded before the server accepts requests.

Audit entries are written to the operation_logs table and, when Redis is
reachable, mirrored to the configured stream.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, conn, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer db.CloseDb(conn)

		if err := db.Migrate(conn); err != nil {
			return err
		}

		rdb := redis.InitRedis(ctx, cfg.RedisAddress)
		defer redis.CloseRedis()

		pool := worker.NewWorkerPool("audit", cfg.AuditWorkers)
		defer pool.Shutdown()
		sinks := []audit.Sink{audit.NewDBSink(conn)}
		if rdb != nil {
			sinks = append(sinks, audit.NewStreamSink(rdb, cfg.AuditStream))
		}

		runner := app.NewRunner(cfg)
		log.Info().Strs("providers", runner.Providers()).Str("default_model", runner.DefaultModel()).Msg("model runners ready")

		a := app.New(cfg, conn, audit.NewDispatcher(pool, sinks...), runner, auth.NewBcryptHasher())
		if _, err := a.Settings.Seed(ctx); err != nil {
			return err
		}

		if cfg.IsProduction() {
			gin.SetMode(gin.ReleaseMode)
		}
		port := cfg.ServerPort
		if servePort != "" {
			port = servePort
		}
		server := &http.Server{
			Addr:              fmt.Sprintf(":%s", port),
			Handler:           router.New(a).Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			log.Info().Str("port", port).Msg("server listening")
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		log.Info().Msg("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("server shutdown error")
		}
		log.Info().Msg("server shutdown complete")
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&servePort, "port", "", "port to listen on (default: PORT)")
}
