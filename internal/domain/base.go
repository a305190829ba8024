package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Model holds the columns every table shares.
type Model struct {
	ID        uint64    `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Fingerprint returns the hex encoded SHA-256 digest of text.
func Fingerprint(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Models lists every persisted entity in dependency order.
// The migrator consumes this list instead of discovering models on its own.
func Models() []any {
	return []any{
		&User{},
		&Tag{},
		&Prompt{},
		&PromptVersion{},
		&PromptTag{},
		&PromptCollaborator{},
		&TestRecord{},
		&SystemConfig{},
		&OperationLog{},
	}
}
