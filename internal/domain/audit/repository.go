package audit

import (
	"context"

	"github.com/ispcrm/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// ChangeRecordFilter defines filtering options for audit queries
type ChangeRecordFilter struct {
	shared.Filter
	EntityType *string
	EntityID   *uuid.UUID
	ActorID    *uuid.UUID
	Action     *Action
}

// ChangeRecordRepository defines the interface for the append-only audit sink
type ChangeRecordRepository interface {
	// Append writes an audit entry; records are never updated or deleted
	Append(ctx context.Context, record *ChangeRecord) error

	// FindByEntity lists the audit trail of an entity, newest first
	FindByEntity(ctx context.Context, entityType string, entityID uuid.UUID) ([]ChangeRecord, error)

	// FindAll lists audit entries with filtering
	FindAll(ctx context.Context, filter ChangeRecordFilter) ([]ChangeRecord, error)

	// Count counts audit entries matching the filter
	Count(ctx context.Context, filter ChangeRecordFilter) (int64, error)
}
