package billing

import (
	"context"

	"github.com/ispcrm/backend/internal/domain/audit"
	"github.com/ispcrm/backend/internal/domain/billing"
)

// TransactionalRepositories gives a use-case access to every repository it
// needs, all bound to one database transaction
type TransactionalRepositories interface {
	Subscriptions() billing.SubscriptionRepository
	Charges() billing.ChargeRepository
	Payments() billing.PaymentRepository
	Audit() audit.ChangeRecordRepository
}

// TransactionScope executes a function atomically: every repository
// operation inside fn commits together or not at all. Charge mutations and
// their balance adjustments always run inside one scope.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}
