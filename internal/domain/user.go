package domain

import (
	"time"

	"gorm.io/datatypes"
)

type UserStatus int

const (
	UserDeleted  UserStatus = -1
	UserDisabled UserStatus = 0
	UserActive   UserStatus = 1
)

type User struct {
	Model
	Username     string            `gorm:"size:50;uniqueIndex;not null" json:"username"`
	Email        string            `gorm:"size:100;uniqueIndex;not null" json:"email"`
	PasswordHash string            `gorm:"size:255" json:"-"`
	DisplayName  string            `gorm:"size:100" json:"display_name"`
	AvatarURL    string            `gorm:"size:255" json:"avatar_url"`
	Bio          string            `gorm:"type:text" json:"bio"`
	Preferences  datatypes.JSONMap `json:"preferences"`
	Status       UserStatus        `gorm:"not null;index" json:"status"`
	LastLoginAt  *time.Time        `json:"last_login_at"`
}

func (u *User) IsActive() bool  { return u.Status == UserActive }
func (u *User) IsDeleted() bool { return u.Status == UserDeleted }

func (u *User) Activate()   { u.Status = UserActive }
func (u *User) Deactivate() { u.Status = UserDisabled }
func (u *User) SoftDelete() { u.Status = UserDeleted }

// GetPreference returns the stored preference or def when the key is absent.
func (u *User) GetPreference(key string, def any) any {
	if v, ok := u.Preferences[key]; ok {
		return v
	}
	return def
}

// SetPreference replaces the preference map with a copy holding key=value,
// so the ORM sees a new value instead of an in-place mutation.
func (u *User) SetPreference(key string, value any) {
	next := u.copyPreferences()
	next[key] = value
	u.Preferences = next
}

func (u *User) RemovePreference(key string) {
	if _, ok := u.Preferences[key]; !ok {
		return
	}
	next := u.copyPreferences()
	delete(next, key)
	u.Preferences = next
}

// ReplacePreferences swaps the whole preference map for a copy of prefs.
func (u *User) ReplacePreferences(prefs map[string]any) {
	next := make(datatypes.JSONMap, len(prefs))
	for k, v := range prefs {
		next[k] = v
	}
	u.Preferences = next
}

func (u *User) copyPreferences() datatypes.JSONMap {
	next := make(datatypes.JSONMap, len(u.Preferences)+1)
	for k, v := range u.Preferences {
		next[k] = v
	}
	return next
}

// SafeUser is the public projection of a User.
type SafeUser struct {
	ID          uint64     `json:"id"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	DisplayName string     `json:"display_name"`
	AvatarURL   string     `json:"avatar_url"`
	Bio         string     `json:"bio"`
	Status      UserStatus `json:"status"`
	LastLoginAt *time.Time `json:"last_login_at"`
	CreatedAt   time.Time  `json:"created_at"`
}

func (u *User) ToSafeUser() SafeUser {
	return SafeUser{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		AvatarURL:   u.AvatarURL,
		Bio:         u.Bio,
		Status:      u.Status,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
	}
}
