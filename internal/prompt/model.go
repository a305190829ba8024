package prompt

import (
	"fmt"
	"prompt-manager/internal/crud"
	"prompt-manager/internal/domain"
)

// Schema is the field table for generic prompt queries and metadata
// patches. Content and lifecycle columns are read-only here because they
// change only through the version and status operations.
func Schema() crud.Schema[domain.Prompt] {
	return crud.Schema[domain.Prompt]{
		Resource:   domain.ResourcePrompt,
		ID:         func(p *domain.Prompt) uint64 { return p.ID },
		SoftDelete: func(p *domain.Prompt) { p.SoftDelete() },
		Validate:   validatePrompt,
		Fields: map[string]crud.Field[domain.Prompt]{
			"id":             crud.ReadOnly("id", func(p *domain.Prompt) any { return p.ID }),
			"owner_id":       crud.ReadOnly("owner_id", func(p *domain.Prompt) any { return p.OwnerID }),
			"status":         crud.ReadOnly("status", func(p *domain.Prompt) any { return p.Status }),
			"version_count":  crud.ReadOnly("version_count", func(p *domain.Prompt) any { return p.VersionCount }),
			"test_count":     crud.ReadOnly("test_count", func(p *domain.Prompt) any { return p.TestCount }),
			"created_at":     crud.ReadOnly("created_at", func(p *domain.Prompt) any { return p.CreatedAt }),
			"updated_at":     crud.ReadOnly("updated_at", func(p *domain.Prompt) any { return p.UpdatedAt }),
			"last_tested_at": crud.ReadOnly("last_tested_at", func(p *domain.Prompt) any { return p.LastTestedAt }),
			"title":          crud.StringField("title", func(p *domain.Prompt) *string { return &p.Title }),
			"description":    crud.StringField("description", func(p *domain.Prompt) *string { return &p.Description }),
			"category":       crud.StringField("category", func(p *domain.Prompt) *string { return &p.Category }),
			"language":       crud.StringField("language", func(p *domain.Prompt) *string { return &p.Language }),
			"model_type":     crud.StringField("model_type", func(p *domain.Prompt) *string { return &p.ModelType }),
			"visibility":     crud.IntField("visibility", func(p *domain.Prompt) *domain.Visibility { return &p.Visibility }),
		},
	}
}

func validatePrompt(p *domain.Prompt) error {
	if p.Title == "" || len(p.Title) > 200 {
		return fmt.Errorf("title must be between 1 and 200 characters")
	}
	if !p.Visibility.Valid() {
		return fmt.Errorf("invalid visibility %d", p.Visibility)
	}
	return nil
}

// collaboratorSchema only exists so grant changes are audited under their
// own resource type.
func collaboratorSchema() crud.Schema[domain.PromptCollaborator] {
	return crud.Schema[domain.PromptCollaborator]{
		Resource: domain.ResourceCollaborator,
		ID:       func(c *domain.PromptCollaborator) uint64 { return c.ID },
		Fields: map[string]crud.Field[domain.PromptCollaborator]{
			"prompt_id": crud.ReadOnly("prompt_id", func(c *domain.PromptCollaborator) any { return c.PromptID }),
			"user_id":   crud.ReadOnly("user_id", func(c *domain.PromptCollaborator) any { return c.UserID }),
			"status":    crud.ReadOnly("status", func(c *domain.PromptCollaborator) any { return c.Status }),
			"role":      crud.IntField("role", func(c *domain.PromptCollaborator) *domain.Role { return &c.Role }),
		},
	}
}

type CreateInput struct {
	Title       string            `json:"title" validate:"required,max=200"`
	Content     string            `json:"content" validate:"required"`
	Description string            `json:"description"`
	Category    string            `json:"category" validate:"max=50"`
	Language    string            `json:"language" validate:"max=10"`
	ModelType   string            `json:"model_type" validate:"max=50"`
	Visibility  domain.Visibility `json:"visibility" validate:"omitempty,min=1,max=3"`
	Draft       bool              `json:"draft"`
	TagIDs      []uint64          `json:"tag_ids"`
}

// ListOptions narrows the visible prompt list beyond generic filters.
type ListOptions struct {
	TagID  uint64
	Search string
}

// Comparison is the result of comparing two versions of one prompt.
type Comparison struct {
	From       domain.PromptVersion     `json:"from"`
	To         domain.PromptVersion     `json:"to"`
	Comparison domain.VersionComparison `json:"comparison"`
	Diff       domain.ContentDiff       `json:"diff"`
}

// Lineage places one version in the version tree.
type Lineage struct {
	Version     domain.PromptVersion   `json:"version"`
	Ancestors   []domain.PromptVersion `json:"ancestors"`
	Descendants []domain.PromptVersion `json:"descendants"`
}
