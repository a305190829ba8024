package db

import (
	"prompt-manager/internal/domain"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Migrate creates or updates the schema for every registered model.
func Migrate(db *gorm.DB) error {
	if err := db.SetupJoinTable(&domain.Prompt{}, "Tags", &domain.PromptTag{}); err != nil {
		return err
	}
	if err := db.AutoMigrate(domain.Models()...); err != nil {
		return err
	}

	log.Info().Int("models", len(domain.Models())).Msg("database schema migrated successfully")
	return nil
}
