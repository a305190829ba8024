package audit

import (
	"context"
	"prompt-manager/internal/domain"

	"gorm.io/gorm"
)

// DBSink appends entries to the operation_logs table.
type DBSink struct {
	db *gorm.DB
}

func NewDBSink(db *gorm.DB) *DBSink {
	return &DBSink{db: db}
}

func (s *DBSink) Name() string { return "db" }

func (s *DBSink) Write(ctx context.Context, e Entry) error {
	row := &domain.OperationLog{
		UserID:       e.UserID,
		Operation:    e.Operation,
		ResourceType: e.ResourceType,
		ResourceID:   e.ResourceID,
		Detail:       e.Detail,
		IPAddress:    e.IPAddress,
		UserAgent:    e.UserAgent,
	}
	row.CreatedAt = e.At
	return s.db.WithContext(ctx).Create(row).Error
}
