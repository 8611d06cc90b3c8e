// Package audit provides the append-only change history the ledger writes
// on every deletion and balance-affecting edit. Records are never read back
// by the billing logic; they exist for staff accountability.
package audit

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/ispcrm/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Action describes what happened to the audited entity
type Action string

const (
	ActionCreate Action = "CREATE"
	ActionUpdate Action = "UPDATE"
	ActionDelete Action = "DELETE"
)

// IsValid checks if the action is valid
func (a Action) IsValid() bool {
	return a == ActionCreate || a == ActionUpdate || a == ActionDelete
}

// FieldChange captures one field's old and new values
type FieldChange struct {
	Field string `json:"field"`
	Old   string `json:"old,omitempty"`
	New   string `json:"new,omitempty"`
}

// FieldChanges is stored as a JSONB column
type FieldChanges []FieldChange

// Value implements driver.Valuer for JSONB storage
func (f FieldChanges) Value() (driver.Value, error) {
	if f == nil {
		return "[]", nil
	}
	return json.Marshal(f)
}

// Scan implements sql.Scanner for JSONB retrieval
func (f *FieldChanges) Scan(value interface{}) error {
	if value == nil {
		*f = FieldChanges{}
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan FieldChanges: unsupported type")
	}
	if len(bytes) == 0 {
		*f = FieldChanges{}
		return nil
	}
	return json.Unmarshal(bytes, f)
}

// ChangeRecord is one append-only audit entry
type ChangeRecord struct {
	ID         uuid.UUID    `json:"id"`
	EntityType string       `json:"entity_type"` // "Subscription", "Charge", "Payment", ...
	EntityID   uuid.UUID    `json:"entity_id"`
	Action     Action       `json:"action"`
	Changes    FieldChanges `json:"changes"`
	ActorID    uuid.UUID    `json:"actor_id"` // Staff member performing the action
	RecordedAt time.Time    `json:"recorded_at"`
}

// NewChangeRecord creates an audit entry
func NewChangeRecord(entityType string, entityID uuid.UUID, action Action, actorID uuid.UUID, changes ...FieldChange) (*ChangeRecord, error) {
	if entityType == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Entity type cannot be empty")
	}
	if !action.IsValid() {
		return nil, shared.NewDomainError("INVALID_INPUT", "Unknown audit action: "+string(action))
	}
	return &ChangeRecord{
		ID:         uuid.New(),
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		Changes:    changes,
		ActorID:    actorID,
		RecordedAt: time.Now(),
	}, nil
}
