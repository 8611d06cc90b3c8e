package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/ispcrm/backend/internal/domain/billing"
	"github.com/ispcrm/backend/internal/domain/shared"
	"github.com/ispcrm/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormSubscriptionRepository implements SubscriptionRepository using GORM
type GormSubscriptionRepository struct {
	db *gorm.DB
}

// NewGormSubscriptionRepository creates a new GormSubscriptionRepository
func NewGormSubscriptionRepository(db *gorm.DB) *GormSubscriptionRepository {
	return &GormSubscriptionRepository{db: db}
}

// FindByID finds a subscription by its ID
func (r *GormSubscriptionRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Subscription, error) {
	var model models.SubscriptionModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByClient finds the subscription belonging to a client
func (r *GormSubscriptionRepository) FindByClient(ctx context.Context, clientID uuid.UUID) (*billing.Subscription, error) {
	var model models.SubscriptionModel
	if err := r.db.WithContext(ctx).
		Where("client_id = ?", clientID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll finds subscriptions with filtering
func (r *GormSubscriptionRepository) FindAll(ctx context.Context, filter billing.SubscriptionFilter) ([]billing.Subscription, error) {
	var subscriptionModels []models.SubscriptionModel
	query := r.db.WithContext(ctx).Model(&models.SubscriptionModel{})
	query = r.applyFilter(query, filter)

	if err := query.Find(&subscriptionModels).Error; err != nil {
		return nil, err
	}
	subscriptions := make([]billing.Subscription, len(subscriptionModels))
	for i, model := range subscriptionModels {
		subscriptions[i] = *model.ToDomain()
	}
	return subscriptions, nil
}

// FindActive finds every active subscription, ordered by client for stable
// batch runs
func (r *GormSubscriptionRepository) FindActive(ctx context.Context) ([]billing.Subscription, error) {
	var subscriptionModels []models.SubscriptionModel
	if err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("client_id ASC").
		Find(&subscriptionModels).Error; err != nil {
		return nil, err
	}
	subscriptions := make([]billing.Subscription, len(subscriptionModels))
	for i, model := range subscriptionModels {
		subscriptions[i] = *model.ToDomain()
	}
	return subscriptions, nil
}

// Save creates or updates a subscription
func (r *GormSubscriptionRepository) Save(ctx context.Context, sub *billing.Subscription) error {
	model := models.SubscriptionModelFromDomain(sub)
	if err := r.db.WithContext(ctx).Save(model).Error; err != nil {
		if isUniqueViolation(err) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// SaveWithLock saves with optimistic locking
func (r *GormSubscriptionRepository) SaveWithLock(ctx context.Context, sub *billing.Subscription) error {
	model := models.SubscriptionModelFromDomain(sub)
	result := r.db.WithContext(ctx).
		Model(model).
		Where("id = ? AND version = ?", sub.ID, sub.Version-1).
		Updates(model)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError("OPTIMISTIC_LOCK_ERROR", "The record has been modified by another transaction")
	}
	return nil
}

// Delete removes a subscription
func (r *GormSubscriptionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.SubscriptionModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Count counts subscriptions matching the filter
func (r *GormSubscriptionRepository) Count(ctx context.Context, filter billing.SubscriptionFilter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.SubscriptionModel{})
	query = r.applyFilterWithoutPagination(query, filter)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ExistsByClient checks whether a client already has a subscription
func (r *GormSubscriptionRepository) ExistsByClient(ctx context.Context, clientID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.SubscriptionModel{}).
		Where("client_id = ?", clientID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// applyFilter applies filter options to the query
func (r *GormSubscriptionRepository) applyFilter(query *gorm.DB, filter billing.SubscriptionFilter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	if filter.OrderBy != "" {
		field := ValidateSortField(filter.OrderBy, SubscriptionSortFields, "created_at")
		query = query.Order(field + " " + ValidateSortOrder(filter.OrderDir))
	} else {
		query = query.Order("created_at DESC")
	}

	return query
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormSubscriptionRepository) applyFilterWithoutPagination(query *gorm.DB, filter billing.SubscriptionFilter) *gorm.DB {
	if filter.ClientID != nil {
		query = query.Where("client_id = ?", *filter.ClientID)
	}
	if filter.Active != nil {
		query = query.Where("active = ?", *filter.Active)
	}
	if filter.MinBalance != nil {
		query = query.Where("balance >= ?", *filter.MinBalance)
	}
	return query
}

// isUniqueViolation reports whether the error came from a uniqueness
// constraint. GORM normalizes this for Postgres; the string checks cover the
// SQLite driver used in tests.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}

// Ensure GormSubscriptionRepository implements SubscriptionRepository
var _ billing.SubscriptionRepository = (*GormSubscriptionRepository)(nil)
