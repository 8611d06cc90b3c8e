package persistence

import (
	"context"
	"errors"

	"github.com/ispcrm/backend/internal/domain/catalog"
	"github.com/ispcrm/backend/internal/domain/shared"
	"github.com/ispcrm/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormChargeTemplateRepository implements ChargeTemplateRepository using GORM
type GormChargeTemplateRepository struct {
	db *gorm.DB
}

// NewGormChargeTemplateRepository creates a new GormChargeTemplateRepository
func NewGormChargeTemplateRepository(db *gorm.DB) *GormChargeTemplateRepository {
	return &GormChargeTemplateRepository{db: db}
}

// FindByID finds a template by its ID
func (r *GormChargeTemplateRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.ChargeTemplate, error) {
	var model models.ChargeTemplateModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll finds templates with filtering
func (r *GormChargeTemplateRepository) FindAll(ctx context.Context, filter catalog.ChargeTemplateFilter) ([]catalog.ChargeTemplate, error) {
	var templateModels []models.ChargeTemplateModel
	query := r.db.WithContext(ctx).Model(&models.ChargeTemplateModel{})
	query = r.applyFilter(query, filter)

	if err := query.Find(&templateModels).Error; err != nil {
		return nil, err
	}
	templates := make([]catalog.ChargeTemplate, len(templateModels))
	for i, model := range templateModels {
		templates[i] = *model.ToDomain()
	}
	return templates, nil
}

// FindActive finds every active template, alphabetically
func (r *GormChargeTemplateRepository) FindActive(ctx context.Context) ([]catalog.ChargeTemplate, error) {
	var templateModels []models.ChargeTemplateModel
	if err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("name ASC").
		Find(&templateModels).Error; err != nil {
		return nil, err
	}
	templates := make([]catalog.ChargeTemplate, len(templateModels))
	for i, model := range templateModels {
		templates[i] = *model.ToDomain()
	}
	return templates, nil
}

// Save creates or updates a template
func (r *GormChargeTemplateRepository) Save(ctx context.Context, template *catalog.ChargeTemplate) error {
	model := models.ChargeTemplateModelFromDomain(template)
	if err := r.db.WithContext(ctx).Save(model).Error; err != nil {
		if isUniqueViolation(err) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// Delete removes a template
func (r *GormChargeTemplateRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.ChargeTemplateModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Count counts templates matching the filter
func (r *GormChargeTemplateRepository) Count(ctx context.Context, filter catalog.ChargeTemplateFilter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.ChargeTemplateModel{})
	if filter.Active != nil {
		query = query.Where("active = ?", *filter.Active)
	}
	if filter.Search != "" {
		query = query.Where("name LIKE ?", "%"+filter.Search+"%")
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ExistsByName checks whether a template with the given name exists
func (r *GormChargeTemplateRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.ChargeTemplateModel{}).
		Where("name = ?", name).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// applyFilter applies filter options to the query
func (r *GormChargeTemplateRepository) applyFilter(query *gorm.DB, filter catalog.ChargeTemplateFilter) *gorm.DB {
	if filter.Active != nil {
		query = query.Where("active = ?", *filter.Active)
	}
	if filter.Search != "" {
		query = query.Where("name LIKE ?", "%"+filter.Search+"%")
	}

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	if filter.OrderBy != "" {
		field := ValidateSortField(filter.OrderBy, ChargeTemplateSortFields, "name")
		query = query.Order(field + " " + ValidateSortOrder(filter.OrderDir))
	} else {
		query = query.Order("name ASC")
	}

	return query
}

// Ensure GormChargeTemplateRepository implements ChargeTemplateRepository
var _ catalog.ChargeTemplateRepository = (*GormChargeTemplateRepository)(nil)
