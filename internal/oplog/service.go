package oplog

import (
	"context"
	"prompt-manager/internal/audit"
	"prompt-manager/internal/crud"
	"prompt-manager/internal/domain"

	"gorm.io/gorm"
)

func Schema() crud.Schema[domain.OperationLog] {
	return crud.Schema[domain.OperationLog]{
		Resource: "operation_log",
		ID:       func(l *domain.OperationLog) uint64 { return l.ID },
		Fields: map[string]crud.Field[domain.OperationLog]{
			"id":            crud.ReadOnly("id", func(l *domain.OperationLog) any { return l.ID }),
			"user_id":       crud.ReadOnly("user_id", func(l *domain.OperationLog) any { return l.UserID }),
			"operation":     crud.ReadOnly("operation", func(l *domain.OperationLog) any { return l.Operation }),
			"resource_type": crud.ReadOnly("resource_type", func(l *domain.OperationLog) any { return l.ResourceType }),
			"resource_id":   crud.ReadOnly("resource_id", func(l *domain.OperationLog) any { return l.ResourceID }),
			"ip_address":    crud.ReadOnly("ip_address", func(l *domain.OperationLog) any { return l.IPAddress }),
			"created_at":    crud.ReadOnly("created_at", func(l *domain.OperationLog) any { return l.CreatedAt }),
		},
	}
}

// Entry is an operation log row with its rendered summary. Subject names
// the affected record when the detail carries one.
type Entry struct {
	domain.OperationLog
	Summary string `json:"summary"`
	Subject string `json:"subject,omitempty"`
}

var subjectKeys = []string{"title", "name", "username", "config_key", "model"}

func subject(l *domain.OperationLog) string {
	for _, key := range subjectKeys {
		if s, ok := l.DetailValue(key, nil).(string); ok && s != "" {
			return s
		}
	}
	return ""
}

type Page struct {
	Data []Entry   `json:"data"`
	Meta crud.Meta `json:"meta"`
}

type Service interface {
	// Mine lists what userID did.
	Mine(ctx context.Context, userID uint64, q crud.Query) (*Page, error)
	// History lists everything recorded against one resource.
	History(ctx context.Context, resourceType string, resourceID uint64, q crud.Query) (*Page, error)
}

type DefaultService struct {
	logs *crud.Service[domain.OperationLog]
}

// NewService reads the operation_logs table. Reads are not audited.
func NewService(db *gorm.DB) Service {
	return &DefaultService{logs: crud.NewService(db, Schema(), audit.Nop)}
}

func (s *DefaultService) Mine(ctx context.Context, userID uint64, q crud.Query) (*Page, error) {
	q.Scopes = append(q.Scopes, func(db *gorm.DB) *gorm.DB {
		return db.Where("user_id = ?", userID)
	})
	return s.list(ctx, q)
}

func (s *DefaultService) History(ctx context.Context, resourceType string, resourceID uint64, q crud.Query) (*Page, error) {
	q.Scopes = append(q.Scopes, func(db *gorm.DB) *gorm.DB {
		return db.Where("resource_type = ? AND resource_id = ?", resourceType, resourceID)
	})
	return s.list(ctx, q)
}

func (s *DefaultService) list(ctx context.Context, q crud.Query) (*Page, error) {
	if q.OrderBy == "" {
		q.OrderBy = "-created_at"
	}
	q.Preload = append(q.Preload, "User")

	page, err := s.logs.List(ctx, q)
	if err != nil {
		return nil, err
	}

	out := &Page{Data: make([]Entry, len(page.Data)), Meta: page.Meta}
	for i := range page.Data {
		l := &page.Data[i]
		out.Data[i] = Entry{OperationLog: *l, Summary: l.Summary(), Subject: subject(l)}
	}
	return out, nil
}
