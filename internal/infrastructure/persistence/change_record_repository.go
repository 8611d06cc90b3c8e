package persistence

import (
	"context"

	"github.com/ispcrm/backend/internal/domain/audit"
	"github.com/ispcrm/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormChangeRecordRepository implements ChangeRecordRepository using GORM.
// The table is append-only: no update or delete path exists.
type GormChangeRecordRepository struct {
	db *gorm.DB
}

// NewGormChangeRecordRepository creates a new GormChangeRecordRepository
func NewGormChangeRecordRepository(db *gorm.DB) *GormChangeRecordRepository {
	return &GormChangeRecordRepository{db: db}
}

// Append writes an audit entry
func (r *GormChangeRecordRepository) Append(ctx context.Context, record *audit.ChangeRecord) error {
	model := models.ChangeRecordModelFromDomain(record)
	return r.db.WithContext(ctx).Create(model).Error
}

// FindByEntity lists the audit trail of an entity, newest first
func (r *GormChangeRecordRepository) FindByEntity(ctx context.Context, entityType string, entityID uuid.UUID) ([]audit.ChangeRecord, error) {
	var recordModels []models.ChangeRecordModel
	if err := r.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("recorded_at DESC").
		Find(&recordModels).Error; err != nil {
		return nil, err
	}
	return toDomainRecords(recordModels), nil
}

// FindAll lists audit entries with filtering
func (r *GormChangeRecordRepository) FindAll(ctx context.Context, filter audit.ChangeRecordFilter) ([]audit.ChangeRecord, error) {
	var recordModels []models.ChangeRecordModel
	query := r.db.WithContext(ctx).Model(&models.ChangeRecordModel{})
	query = r.applyFilter(query, filter)

	if err := query.Order("recorded_at DESC").Find(&recordModels).Error; err != nil {
		return nil, err
	}
	return toDomainRecords(recordModels), nil
}

// Count counts audit entries matching the filter
func (r *GormChangeRecordRepository) Count(ctx context.Context, filter audit.ChangeRecordFilter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.ChangeRecordModel{})
	query = r.applyFilter(query, filter)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// applyFilter applies filter options to the query
func (r *GormChangeRecordRepository) applyFilter(query *gorm.DB, filter audit.ChangeRecordFilter) *gorm.DB {
	if filter.EntityType != nil {
		query = query.Where("entity_type = ?", *filter.EntityType)
	}
	if filter.EntityID != nil {
		query = query.Where("entity_id = ?", *filter.EntityID)
	}
	if filter.ActorID != nil {
		query = query.Where("actor_id = ?", *filter.ActorID)
	}
	if filter.Action != nil {
		query = query.Where("action = ?", *filter.Action)
	}
	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}
	return query
}

func toDomainRecords(recordModels []models.ChangeRecordModel) []audit.ChangeRecord {
	records := make([]audit.ChangeRecord, len(recordModels))
	for i, model := range recordModels {
		records[i] = *model.ToDomain()
	}
	return records
}

// Ensure GormChangeRecordRepository implements ChangeRecordRepository
var _ audit.ChangeRecordRepository = (*GormChangeRecordRepository)(nil)
