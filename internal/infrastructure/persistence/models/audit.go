package models

import (
	"time"

	"github.com/ispcrm/backend/internal/domain/audit"
	"github.com/google/uuid"
)

// ChangeRecordModel is the persistence model for the append-only audit log.
type ChangeRecordModel struct {
	ID         uuid.UUID          `gorm:"type:uuid;primary_key"`
	EntityType string             `gorm:"type:varchar(50);not null;index:idx_change_records_entity,priority:1"`
	EntityID   uuid.UUID          `gorm:"type:uuid;not null;index:idx_change_records_entity,priority:2"`
	Action     audit.Action       `gorm:"type:varchar(20);not null;index"`
	Changes    audit.FieldChanges `gorm:"type:jsonb;default:'[]'"`
	ActorID    uuid.UUID          `gorm:"type:uuid;not null;index"`
	RecordedAt time.Time          `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (ChangeRecordModel) TableName() string {
	return "change_records"
}

// ToDomain converts the persistence model to a domain ChangeRecord.
func (m *ChangeRecordModel) ToDomain() *audit.ChangeRecord {
	return &audit.ChangeRecord{
		ID:         m.ID,
		EntityType: m.EntityType,
		EntityID:   m.EntityID,
		Action:     m.Action,
		Changes:    m.Changes,
		ActorID:    m.ActorID,
		RecordedAt: m.RecordedAt,
	}
}

// FromDomain populates the persistence model from a domain ChangeRecord.
func (m *ChangeRecordModel) FromDomain(record *audit.ChangeRecord) {
	m.ID = record.ID
	m.EntityType = record.EntityType
	m.EntityID = record.EntityID
	m.Action = record.Action
	m.Changes = record.Changes
	m.ActorID = record.ActorID
	m.RecordedAt = record.RecordedAt
}

// ChangeRecordModelFromDomain creates a new persistence model from a domain ChangeRecord.
func ChangeRecordModelFromDomain(record *audit.ChangeRecord) *ChangeRecordModel {
	m := &ChangeRecordModel{}
	m.FromDomain(record)
	return m
}
