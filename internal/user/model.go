package user

import (
	"prompt-manager/internal/crud"
	"prompt-manager/internal/domain"
	"time"
)

// Schema is the field table generic queries use for users. Credentials are
// deliberately absent so they can never be filtered or patched by name.
func Schema() crud.Schema[domain.User] {
	return crud.Schema[domain.User]{
		Resource:   domain.ResourceUser,
		ID:         func(u *domain.User) uint64 { return u.ID },
		SoftDelete: func(u *domain.User) { u.SoftDelete() },
		Fields: map[string]crud.Field[domain.User]{
			"id":           crud.ReadOnly("id", func(u *domain.User) any { return u.ID }),
			"username":     crud.ReadOnly("username", func(u *domain.User) any { return u.Username }),
			"email":        crud.ReadOnly("email", func(u *domain.User) any { return u.Email }),
			"status":       crud.ReadOnly("status", func(u *domain.User) any { return u.Status }),
			"created_at":   crud.ReadOnly("created_at", func(u *domain.User) any { return u.CreatedAt }),
			"display_name": crud.StringField("display_name", func(u *domain.User) *string { return &u.DisplayName }),
			"bio":          crud.StringField("bio", func(u *domain.User) *string { return &u.Bio }),
			"avatar_url":   crud.StringField("avatar_url", func(u *domain.User) *string { return &u.AvatarURL }),
		},
	}
}

// profileFields are the only fields UpdateProfile may change.
var profileFields = []string{"display_name", "bio", "avatar_url"}

type RegisterInput struct {
	Username    string `json:"username" validate:"required,min=3,max=50,alphanum"`
	Email       string `json:"email" validate:"required,email,max=100"`
	Password    string `json:"password" validate:"required"`
	DisplayName string `json:"display_name" validate:"max=100"`
}

type Statistics struct {
	PromptCount        int64      `json:"prompt_count"`
	CollaborationCount int64      `json:"collaboration_count"`
	CreatedTagsCount   int64      `json:"created_tags_count"`
	TestRecordsCount   int64      `json:"test_records_count"`
	LastLoginAt        *time.Time `json:"last_login_at"`
	AccountCreatedAt   time.Time  `json:"account_created_at"`
	IsActive           bool       `json:"is_active"`
}
