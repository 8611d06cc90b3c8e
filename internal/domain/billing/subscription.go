package billing

import (
	"time"

	"github.com/ispcrm/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Subscription is the billing profile of a client: one per client. It caches
// the running balance (positive = owed by the client), which every charge and
// payment mutation adjusts under optimistic locking. The authoritative value
// is always Σ(amounts of the subscription's PENDING charges).
type Subscription struct {
	shared.BaseAggregateRoot
	ClientID          uuid.UUID       `json:"client_id"`
	MonthlyFee        decimal.Decimal `json:"monthly_fee"`
	BillingDay        int             `json:"billing_day"` // Clamped to 1-28
	InstallationDate  time.Time       `json:"installation_date"`
	InstallationCost  decimal.Decimal `json:"installation_cost"`
	AdditionalCharges decimal.Decimal `json:"additional_charges"`
	AdditionalNotes   string          `json:"additional_notes,omitempty"`
	Balance           decimal.Decimal `json:"balance"`
	Active            bool            `json:"active"`
}

// NewSubscription creates a subscription after validating the fee and costs.
// The billing day is clamped to 1-28 rather than rejected so the due date
// exists in every month.
func NewSubscription(clientID uuid.UUID, monthlyFee decimal.Decimal, billingDay int, installationDate time.Time, installationCost, additionalCharges decimal.Decimal) (*Subscription, error) {
	if clientID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CLIENT", "Client ID is required")
	}
	if monthlyFee.IsNegative() {
		return nil, shared.NewDomainError("INVALID_FEE", "Monthly fee cannot be negative")
	}
	if installationCost.IsNegative() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Installation cost cannot be negative")
	}
	if additionalCharges.IsNegative() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Additional charges cannot be negative")
	}
	if installationDate.IsZero() {
		return nil, shared.NewDomainError("INVALID_INSTALLATION_DATE", "Installation date is required")
	}

	sub := &Subscription{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		ClientID:          clientID,
		MonthlyFee:        monthlyFee.Round(2),
		BillingDay:        ClampBillingDay(billingDay),
		InstallationDate:  installationDate,
		InstallationCost:  installationCost.Round(2),
		AdditionalCharges: additionalCharges.Round(2),
		Balance:           decimal.Zero,
		Active:            true,
	}
	sub.AddDomainEvent(NewSubscriptionCreatedEvent(sub))
	return sub, nil
}

// AdjustBalance applies a signed delta to the cached balance and bumps the
// version. Callers persist the result with SaveWithLock inside the same
// transaction as the charge or payment mutation that produced the delta.
func (s *Subscription) AdjustBalance(delta decimal.Decimal) {
	if delta.IsZero() {
		return
	}
	s.Balance = s.Balance.Add(delta).Round(2)
	s.UpdatedAt = time.Now()
	s.IncrementVersion()
	s.AddDomainEvent(NewBalanceAdjustedEvent(s, delta))
}

// SetBalance overwrites the cached balance with a recomputed value.
// Used by the recompute repair operation only.
func (s *Subscription) SetBalance(balance decimal.Decimal) {
	s.Balance = balance.Round(2)
	s.UpdatedAt = time.Now()
	s.IncrementVersion()
}

// UpdateFee changes the monthly fee applied to future monthly charges.
// Already-created charges keep their amounts.
func (s *Subscription) UpdateFee(newFee decimal.Decimal) error {
	if newFee.IsNegative() {
		return shared.NewDomainError("INVALID_FEE", "Monthly fee cannot be negative")
	}
	s.MonthlyFee = newFee.Round(2)
	s.UpdatedAt = time.Now()
	s.IncrementVersion()
	return nil
}

// Deactivate excludes the subscription from batch charge generation
func (s *Subscription) Deactivate() {
	if !s.Active {
		return
	}
	s.Active = false
	s.UpdatedAt = time.Now()
	s.IncrementVersion()
}

// Activate re-enables batch charge generation
func (s *Subscription) Activate() {
	if s.Active {
		return
	}
	s.Active = true
	s.UpdatedAt = time.Now()
	s.IncrementVersion()
}

// PendingTotal sums the amounts of the given charges that are PENDING and
// belong to this subscription. This is the authoritative balance.
func (s *Subscription) PendingTotal(charges []Charge) decimal.Decimal {
	total := decimal.Zero
	for i := range charges {
		if charges[i].SubscriptionID == s.ID && charges[i].IsPending() {
			total = total.Add(charges[i].Amount)
		}
	}
	return total
}
