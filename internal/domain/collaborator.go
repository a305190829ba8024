package domain

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// Role is a privilege level; a lower value carries more privilege.
type Role int

const (
	RoleOwner  Role = 1
	RoleEditor Role = 2
	RoleViewer Role = 3
)

func (r Role) Valid() bool   { return r >= RoleOwner && r <= RoleViewer }
func (r Role) CanEdit() bool { return r.Valid() && r <= RoleEditor }
func (r Role) CanView() bool { return r.Valid() && r <= RoleViewer }

func (r Role) String() string {
	switch r {
	case RoleOwner:
		return "owner"
	case RoleEditor:
		return "editor"
	case RoleViewer:
		return "viewer"
	}
	return "none"
}

func ParseRole(s string) (Role, error) {
	switch s {
	case "owner":
		return RoleOwner, nil
	case "editor":
		return RoleEditor, nil
	case "viewer":
		return RoleViewer, nil
	}
	return 0, fmt.Errorf("unknown role %q", s)
}

type CollaboratorStatus int

const (
	CollaboratorRejected CollaboratorStatus = -1
	CollaboratorPending  CollaboratorStatus = 0
	CollaboratorActive   CollaboratorStatus = 1
)

type PromptCollaborator struct {
	Model
	PromptID    uint64             `gorm:"not null;uniqueIndex:idx_prompt_collaborator" json:"prompt_id"`
	UserID      uint64             `gorm:"not null;uniqueIndex:idx_prompt_collaborator" json:"user_id"`
	User        *User              `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	Role        Role               `gorm:"not null" json:"role"`
	Permissions datatypes.JSONMap  `json:"permissions"`
	InvitedBy   *uint64            `json:"invited_by"`
	InvitedAt   time.Time          `json:"invited_at"`
	AcceptedAt  *time.Time         `json:"accepted_at"`
	Status      CollaboratorStatus `gorm:"not null;index" json:"status"`
}

// NewInvitation returns a pending grant.
func NewInvitation(promptID, userID, inviterID uint64, role Role, now time.Time) *PromptCollaborator {
	return &PromptCollaborator{
		PromptID:  promptID,
		UserID:    userID,
		Role:      role,
		InvitedBy: &inviterID,
		InvitedAt: now,
		Status:    CollaboratorPending,
	}
}

func (c *PromptCollaborator) Accept(now time.Time) {
	c.Status = CollaboratorActive
	c.AcceptedAt = &now
}

func (c *PromptCollaborator) Reject() { c.Status = CollaboratorRejected }

func (c *PromptCollaborator) IsActive() bool   { return c.Status == CollaboratorActive }
func (c *PromptCollaborator) IsPending() bool  { return c.Status == CollaboratorPending }
func (c *PromptCollaborator) IsRejected() bool { return c.Status == CollaboratorRejected }

func (c *PromptCollaborator) IsOwner() bool  { return c.Role == RoleOwner }
func (c *PromptCollaborator) IsEditor() bool { return c.Role == RoleEditor }
func (c *PromptCollaborator) IsViewer() bool { return c.Role == RoleViewer }

func (c *PromptCollaborator) CanEdit() bool { return c.IsActive() && c.Role.CanEdit() }
func (c *PromptCollaborator) CanView() bool { return c.IsActive() && c.Role.CanView() }

// HasPermission looks up a fine-grained flag, defaulting to what the role allows.
func (c *PromptCollaborator) HasPermission(name string) bool {
	if v, ok := c.Permissions[name].(bool); ok {
		return v
	}
	switch name {
	case "edit":
		return c.CanEdit()
	case "view":
		return c.CanView()
	}
	return false
}
