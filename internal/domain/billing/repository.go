package billing

import (
	"context"
	"time"

	"github.com/ispcrm/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SubscriptionFilter defines filtering options for subscription queries
type SubscriptionFilter struct {
	shared.Filter
	ClientID   *uuid.UUID       // Filter by client
	Active     *bool            // Filter by active flag
	MinBalance *decimal.Decimal // Filter by minimum cached balance
}

// SubscriptionRepository defines the interface for subscription persistence
type SubscriptionRepository interface {
	// FindByID finds a subscription by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Subscription, error)

	// FindByClient finds the subscription belonging to a client
	FindByClient(ctx context.Context, clientID uuid.UUID) (*Subscription, error)

	// FindAll finds subscriptions with filtering
	FindAll(ctx context.Context, filter SubscriptionFilter) ([]Subscription, error)

	// FindActive finds every active subscription, for batch charge generation
	FindActive(ctx context.Context) ([]Subscription, error)

	// Save creates or updates a subscription
	Save(ctx context.Context, sub *Subscription) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, sub *Subscription) error

	// Delete removes a subscription
	Delete(ctx context.Context, id uuid.UUID) error

	// Count counts subscriptions matching the filter
	Count(ctx context.Context, filter SubscriptionFilter) (int64, error)

	// ExistsByClient checks whether a client already has a subscription
	ExistsByClient(ctx context.Context, clientID uuid.UUID) (bool, error)
}

// ChargeFilter defines filtering options for charge queries
type ChargeFilter struct {
	shared.Filter
	SubscriptionID *uuid.UUID
	ClientID       *uuid.UUID
	Status         *ChargeStatus
	Kind           *ChargeKind
	Period         *BillingPeriod
	FromDate       *time.Time // Creation date range start
	ToDate         *time.Time // Creation date range end
}

// ChargeRepository defines the interface for charge persistence
type ChargeRepository interface {
	// FindByID finds a charge by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Charge, error)

	// FindBySubscription finds all charges of a subscription with filtering
	FindBySubscription(ctx context.Context, subscriptionID uuid.UUID, filter ChargeFilter) ([]Charge, error)

	// FindAllBySubscription finds the complete ledger of a subscription,
	// ordered period ascending with period-less charges last, then created_at
	FindAllBySubscription(ctx context.Context, subscriptionID uuid.UUID) ([]Charge, error)

	// FindPendingBySubscription finds pending charges in allocation order
	FindPendingBySubscription(ctx context.Context, subscriptionID uuid.UUID) ([]Charge, error)

	// FindByPayment finds every charge settled by the given payment
	FindByPayment(ctx context.Context, paymentID uuid.UUID) ([]Charge, error)

	// ExistsForPeriod checks if a period-bearing charge exists for the
	// subscription and period
	ExistsForPeriod(ctx context.Context, subscriptionID uuid.UUID, period BillingPeriod) (bool, error)

	// Save creates or updates a charge. Inserting a second period-bearing
	// charge for the same (subscription, period) fails the storage uniqueness
	// constraint and surfaces shared.ErrAlreadyExists.
	Save(ctx context.Context, charge *Charge) error

	// SaveAll persists several charges in the caller's transaction
	SaveAll(ctx context.Context, charges []*Charge) error

	// Delete removes a charge
	Delete(ctx context.Context, id uuid.UUID) error

	// SumPendingBySubscription sums the amounts of the subscription's
	// pending charges: the authoritative balance
	SumPendingBySubscription(ctx context.Context, subscriptionID uuid.UUID) (decimal.Decimal, error)

	// Count counts charges matching the filter
	Count(ctx context.Context, filter ChargeFilter) (int64, error)
}

// PaymentFilter defines filtering options for payment queries
type PaymentFilter struct {
	shared.Filter
	ClientID *uuid.UUID
	Method   *PaymentMethod
	FromDate *time.Time // Payment date range start
	ToDate   *time.Time // Payment date range end
}

// PaymentRepository defines the interface for payment persistence
type PaymentRepository interface {
	// FindByID finds a payment by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Payment, error)

	// FindByClient finds a client's payments with filtering
	FindByClient(ctx context.Context, clientID uuid.UUID, filter PaymentFilter) ([]Payment, error)

	// Save creates or updates a payment
	Save(ctx context.Context, payment *Payment) error

	// Delete removes a payment
	Delete(ctx context.Context, id uuid.UUID) error

	// Count counts payments matching the filter
	Count(ctx context.Context, filter PaymentFilter) (int64, error)

	// SumByClient sums all payment amounts of a client
	SumByClient(ctx context.Context, clientID uuid.UUID) (decimal.Decimal, error)
}
