package persistence

import (
	"context"
	"errors"

	"github.com/ispcrm/backend/internal/domain/billing"
	"github.com/ispcrm/backend/internal/domain/shared"
	"github.com/ispcrm/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ledgerOrder sorts charges for display and allocation: period ascending
// with period-less charges last, creation time as tiebreaker.
const ledgerOrder = "period_year ASC NULLS LAST, period_month ASC NULLS LAST, created_at ASC"

// GormChargeRepository implements ChargeRepository using GORM
type GormChargeRepository struct {
	db *gorm.DB
}

// NewGormChargeRepository creates a new GormChargeRepository
func NewGormChargeRepository(db *gorm.DB) *GormChargeRepository {
	return &GormChargeRepository{db: db}
}

// FindByID finds a charge by its ID
func (r *GormChargeRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Charge, error) {
	var model models.ChargeModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	charge := model.ToDomain()
	if err := charge.CheckLinkInvariant(); err != nil {
		return nil, err
	}
	return charge, nil
}

// FindBySubscription finds all charges of a subscription with filtering
func (r *GormChargeRepository) FindBySubscription(ctx context.Context, subscriptionID uuid.UUID, filter billing.ChargeFilter) ([]billing.Charge, error) {
	var chargeModels []models.ChargeModel
	query := r.db.WithContext(ctx).Model(&models.ChargeModel{}).
		Where("subscription_id = ?", subscriptionID)
	query = r.applyFilter(query, filter)

	if err := query.Find(&chargeModels).Error; err != nil {
		return nil, err
	}
	return toDomainCharges(chargeModels)
}

// FindAllBySubscription finds the complete ledger of a subscription in
// ledger order
func (r *GormChargeRepository) FindAllBySubscription(ctx context.Context, subscriptionID uuid.UUID) ([]billing.Charge, error) {
	var chargeModels []models.ChargeModel
	if err := r.db.WithContext(ctx).
		Where("subscription_id = ?", subscriptionID).
		Order(ledgerOrder).
		Find(&chargeModels).Error; err != nil {
		return nil, err
	}
	return toDomainCharges(chargeModels)
}

// FindPendingBySubscription finds pending charges in allocation order
func (r *GormChargeRepository) FindPendingBySubscription(ctx context.Context, subscriptionID uuid.UUID) ([]billing.Charge, error) {
	var chargeModels []models.ChargeModel
	if err := r.db.WithContext(ctx).
		Where("subscription_id = ? AND status = ?", subscriptionID, billing.ChargeStatusPending).
		Order(ledgerOrder).
		Find(&chargeModels).Error; err != nil {
		return nil, err
	}
	return toDomainCharges(chargeModels)
}

// FindByPayment finds every charge settled by the given payment
func (r *GormChargeRepository) FindByPayment(ctx context.Context, paymentID uuid.UUID) ([]billing.Charge, error) {
	var chargeModels []models.ChargeModel
	if err := r.db.WithContext(ctx).
		Where("payment_id = ?", paymentID).
		Order(ledgerOrder).
		Find(&chargeModels).Error; err != nil {
		return nil, err
	}
	return toDomainCharges(chargeModels)
}

// ExistsForPeriod checks if a period-bearing charge exists for the
// subscription and period
func (r *GormChargeRepository) ExistsForPeriod(ctx context.Context, subscriptionID uuid.UUID, period billing.BillingPeriod) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.ChargeModel{}).
		Where("subscription_id = ? AND period_year = ? AND period_month = ?",
			subscriptionID, period.Year, period.Month).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Save creates or updates a charge. A second period-bearing charge for the
// same (subscription, period) hits the unique index and surfaces
// shared.ErrAlreadyExists.
func (r *GormChargeRepository) Save(ctx context.Context, charge *billing.Charge) error {
	model := models.ChargeModelFromDomain(charge)
	if err := r.db.WithContext(ctx).Save(model).Error; err != nil {
		if isUniqueViolation(err) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// SaveAll persists several charges in the caller's transaction
func (r *GormChargeRepository) SaveAll(ctx context.Context, charges []*billing.Charge) error {
	for _, charge := range charges {
		if err := r.Save(ctx, charge); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a charge
func (r *GormChargeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.ChargeModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// SumPendingBySubscription sums the amounts of the subscription's pending
// charges: the authoritative balance
func (r *GormChargeRepository) SumPendingBySubscription(ctx context.Context, subscriptionID uuid.UUID) (decimal.Decimal, error) {
	var result struct {
		Total decimal.Decimal
	}
	if err := r.db.WithContext(ctx).
		Model(&models.ChargeModel{}).
		Select("COALESCE(SUM(amount), 0) as total").
		Where("subscription_id = ? AND status = ?", subscriptionID, billing.ChargeStatusPending).
		Scan(&result).Error; err != nil {
		return decimal.Zero, err
	}
	return result.Total, nil
}

// Count counts charges matching the filter
func (r *GormChargeRepository) Count(ctx context.Context, filter billing.ChargeFilter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.ChargeModel{})
	query = r.applyFilterWithoutPagination(query, filter)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// applyFilter applies filter options to the query
func (r *GormChargeRepository) applyFilter(query *gorm.DB, filter billing.ChargeFilter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	if filter.OrderBy != "" {
		field := ValidateSortField(filter.OrderBy, ChargeSortFields, "created_at")
		query = query.Order(field + " " + ValidateSortOrder(filter.OrderDir))
	} else {
		query = query.Order(ledgerOrder)
	}

	return query
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormChargeRepository) applyFilterWithoutPagination(query *gorm.DB, filter billing.ChargeFilter) *gorm.DB {
	if filter.SubscriptionID != nil {
		query = query.Where("subscription_id = ?", *filter.SubscriptionID)
	}
	if filter.ClientID != nil {
		query = query.Where("client_id = ?", *filter.ClientID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Kind != nil {
		query = query.Where("kind = ?", *filter.Kind)
	}
	if filter.Period != nil {
		query = query.Where("period_year = ? AND period_month = ?", filter.Period.Year, filter.Period.Month)
	}
	if filter.FromDate != nil {
		query = query.Where("created_at >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		query = query.Where("created_at <= ?", *filter.ToDate)
	}
	return query
}

// toDomainCharges converts loaded rows and verifies the payment-link
// invariant on each: a row violating it means the store is corrupt, and
// surfacing that beats allocating payments against it.
func toDomainCharges(chargeModels []models.ChargeModel) ([]billing.Charge, error) {
	charges := make([]billing.Charge, len(chargeModels))
	for i, model := range chargeModels {
		charge := model.ToDomain()
		if err := charge.CheckLinkInvariant(); err != nil {
			return nil, err
		}
		charges[i] = *charge
	}
	return charges, nil
}

// Ensure GormChargeRepository implements ChargeRepository
var _ billing.ChargeRepository = (*GormChargeRepository)(nil)
