package tag

import (
	"fmt"
	"prompt-manager/internal/crud"
	"prompt-manager/internal/domain"
	"regexp"
)

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

func Schema() crud.Schema[domain.Tag] {
	return crud.Schema[domain.Tag]{
		Resource: domain.ResourceTag,
		ID:       func(t *domain.Tag) uint64 { return t.ID },
		Validate: validateTag,
		Fields: map[string]crud.Field[domain.Tag]{
			"id":          crud.ReadOnly("id", func(t *domain.Tag) any { return t.ID }),
			"usage_count": crud.ReadOnly("usage_count", func(t *domain.Tag) any { return t.UsageCount }),
			"created_by":  crud.ReadOnly("created_by", func(t *domain.Tag) any { return t.CreatedBy }),
			"created_at":  crud.ReadOnly("created_at", func(t *domain.Tag) any { return t.CreatedAt }),
			"name":        crud.StringField("name", func(t *domain.Tag) *string { return &t.Name }),
			"description": crud.StringField("description", func(t *domain.Tag) *string { return &t.Description }),
			"color": {
				Column: "color",
				Get:    func(t *domain.Tag) any { return t.Color },
				Set: func(t *domain.Tag, v any) error {
					s, ok := v.(string)
					if !ok {
						return fmt.Errorf("color: expected string, got %T", v)
					}
					t.SetColor(s)
					return nil
				},
			},
		},
	}
}

func validateTag(t *domain.Tag) error {
	if t.Name == "" || len(t.Name) > 50 {
		return fmt.Errorf("name must be between 1 and 50 characters")
	}
	if t.Color != "" && !hexColor.MatchString(t.Color) {
		return fmt.Errorf("color must look like #rrggbb")
	}
	return nil
}

type CreateInput struct {
	Name        string `json:"name" binding:"required,max=50"`
	Color       string `json:"color" binding:"omitempty,max=7"`
	Description string `json:"description" binding:"max=200"`
}
