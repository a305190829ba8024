package domain

import (
	"fmt"

	"gorm.io/datatypes"
)

const (
	OpCreate     = "CREATE"
	OpUpdate     = "UPDATE"
	OpDelete     = "DELETE"
	OpSoftDelete = "SOFT_DELETE"
	OpBulkCreate = "BULK_CREATE"
	OpView       = "VIEW"
	OpLogin      = "LOGIN"
	OpLogout     = "LOGOUT"
	OpTest       = "TEST"
	OpRollback   = "ROLLBACK"
	OpActivate   = "ACTIVATE"
	OpDeactivate = "DEACTIVATE"
)

const (
	ResourceUser         = "user"
	ResourcePrompt       = "prompt"
	ResourceTag          = "tag"
	ResourceVersion      = "version"
	ResourceCollaborator = "collaborator"
	ResourceTest         = "test"
	ResourceSystemConfig = "system_config"
)

// OperationLog is an append-only audit row. UserID is nil for system actions.
type OperationLog struct {
	Model
	UserID       *uint64           `gorm:"index" json:"user_id"`
	User         *User             `gorm:"foreignKey:UserID;constraint:OnDelete:SET NULL" json:"user,omitempty"`
	Operation    string            `gorm:"size:50;not null;index" json:"operation"`
	ResourceType string            `gorm:"size:50;not null;index" json:"resource_type"`
	ResourceID   *uint64           `json:"resource_id"`
	Detail       datatypes.JSONMap `json:"detail"`
	IPAddress    string            `gorm:"size:45" json:"ip_address"`
	UserAgent    string            `gorm:"size:500" json:"user_agent"`
}

// Summary renders a one-line description, e.g. "alice CREATE prompt #3".
func (l *OperationLog) Summary() string {
	actor := "System"
	if l.User != nil {
		actor = l.User.Username
	} else if l.UserID != nil {
		actor = fmt.Sprintf("user #%d", *l.UserID)
	}
	if l.ResourceID == nil {
		return fmt.Sprintf("%s %s %s", actor, l.Operation, l.ResourceType)
	}
	return fmt.Sprintf("%s %s %s #%d", actor, l.Operation, l.ResourceType, *l.ResourceID)
}

func (l *OperationLog) DetailValue(key string, def any) any {
	if v, ok := l.Detail[key]; ok {
		return v
	}
	return def
}
