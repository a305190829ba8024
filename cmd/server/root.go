package main

import (
	"context"
	"prompt-manager/internal/config"
	"prompt-manager/internal/db"
	"prompt-manager/internal/logging"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var rootCmd = &cobra.Command{
	Use:   "prompt-manager",
	Short: "Prompt management backend",
	Long: `prompt-manager stores prompts with full version history, tags,
collaborators and model test runs, and serves them over HTTP behind an
authenticating gateway.

Configuration is read from .env and the environment.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd)
}

// bootstrap loads configuration, sets up logging and opens the database.
func bootstrap(ctx context.Context) (config.Config, *gorm.DB, error) {
	config.LoadConfig()
	cfg := config.AppConfig

	out := logging.Setup(logging.Options{
		Level:       cfg.LogLevel,
		Environment: cfg.Environment,
		FilePath:    cfg.LogFilePath,
		MaxSizeMB:   cfg.LogMaxSizeMB,
		MaxBackups:  cfg.LogMaxBackups,
	})

	conn, err := db.ConnectDb(ctx, cfg, out)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, conn, nil
}
