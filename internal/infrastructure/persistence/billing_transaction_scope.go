package persistence

import (
	"context"

	appbilling "github.com/ispcrm/backend/internal/application/billing"
	"github.com/ispcrm/backend/internal/domain/audit"
	"github.com/ispcrm/backend/internal/domain/billing"
	"gorm.io/gorm"
)

// GormTransactionScope implements the application layer's TransactionScope
// using a GORM transaction. Every repository handed to the callback is bound
// to the same *gorm.DB transaction, so a failure anywhere rolls back the
// charge, payment, balance and audit writes together.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs fn inside a database transaction
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appbilling.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&transactionalRepositories{tx: tx})
	})
}

// transactionalRepositories bundles repositories bound to one transaction
type transactionalRepositories struct {
	tx *gorm.DB
}

func (r *transactionalRepositories) Subscriptions() billing.SubscriptionRepository {
	return NewGormSubscriptionRepository(r.tx)
}

func (r *transactionalRepositories) Charges() billing.ChargeRepository {
	return NewGormChargeRepository(r.tx)
}

func (r *transactionalRepositories) Payments() billing.PaymentRepository {
	return NewGormPaymentRepository(r.tx)
}

func (r *transactionalRepositories) Audit() audit.ChangeRecordRepository {
	return NewGormChangeRecordRepository(r.tx)
}

// Ensure GormTransactionScope implements TransactionScope
var _ appbilling.TransactionScope = (*GormTransactionScope)(nil)
