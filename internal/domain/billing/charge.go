package billing

import (
	"time"

	"github.com/ispcrm/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ChargeKind classifies what a charge bills for
type ChargeKind string

const (
	ChargeKindMonthly      ChargeKind = "MONTHLY"      // Regular monthly service fee
	ChargeKindProrated     ChargeKind = "PRORATED"     // Partial first month
	ChargeKindInstallation ChargeKind = "INSTALLATION" // One-time installation cost
	ChargeKindAdHoc        ChargeKind = "ADHOC"        // Catalog or free-form one-time charge
)

// IsValid checks if the kind is a valid ChargeKind
func (k ChargeKind) IsValid() bool {
	switch k {
	case ChargeKindMonthly, ChargeKindProrated, ChargeKindInstallation, ChargeKindAdHoc:
		return true
	}
	return false
}

// String returns the string representation of ChargeKind
func (k ChargeKind) String() string {
	return string(k)
}

// RequiresPeriod returns true for kinds that must carry a billing period
func (k ChargeKind) RequiresPeriod() bool {
	return k == ChargeKindMonthly || k == ChargeKindProrated
}

// ChargeStatus represents the payment status of a charge
type ChargeStatus string

const (
	ChargeStatusPending ChargeStatus = "PENDING"
	ChargeStatusPaid    ChargeStatus = "PAID"
)

// IsValid checks if the status is a valid ChargeStatus
func (s ChargeStatus) IsValid() bool {
	return s == ChargeStatusPending || s == ChargeStatusPaid
}

// String returns the string representation of ChargeStatus
func (s ChargeStatus) String() string {
	return string(s)
}

// Charge is a single billable item on a subscription's ledger.
// A charge is either PENDING (counted in the subscription balance) or PAID
// (linked to the payment that settled it). PAID, PaymentID and PaidAt are
// set and cleared together.
type Charge struct {
	shared.BaseAggregateRoot
	SubscriptionID uuid.UUID       `json:"subscription_id"`
	ClientID       uuid.UUID       `json:"client_id"`
	Amount         decimal.Decimal `json:"amount"`
	Description    string          `json:"description"`
	Kind           ChargeKind      `json:"kind"`
	Period         *BillingPeriod  `json:"period,omitempty"` // Required for MONTHLY/PRORATED
	Status         ChargeStatus    `json:"status"`
	PaymentID      *uuid.UUID      `json:"payment_id,omitempty"`
	PaidAt         *time.Time      `json:"paid_at,omitempty"`
	Advance        bool            `json:"advance"` // Created ahead of its period by an over-payment
}

// NewCharge creates a pending charge after validating kind, amount and period
func NewCharge(subscriptionID, clientID uuid.UUID, amount decimal.Decimal, description string, kind ChargeKind, period *BillingPeriod) (*Charge, error) {
	if !kind.IsValid() {
		return nil, shared.NewDomainError("INVALID_CHARGE_KIND", "Unknown charge kind: "+string(kind))
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Charge amount must be positive")
	}
	if kind.RequiresPeriod() && period == nil {
		return nil, shared.NewDomainError("PERIOD_REQUIRED", "Charges of kind "+string(kind)+" must carry a billing period")
	}
	if !kind.RequiresPeriod() && period != nil {
		return nil, shared.NewDomainError("PERIOD_NOT_ALLOWED", "Charges of kind "+string(kind)+" cannot carry a billing period")
	}
	if description == "" {
		return nil, shared.NewDomainError("INVALID_DESCRIPTION", "Charge description cannot be empty")
	}

	charge := &Charge{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		SubscriptionID:    subscriptionID,
		ClientID:          clientID,
		Amount:            amount.Round(2),
		Description:       description,
		Kind:              kind,
		Period:            period,
		Status:            ChargeStatusPending,
	}
	charge.AddDomainEvent(NewChargeCreatedEvent(charge))
	return charge, nil
}

// NewMonthlyCharge creates the pending MONTHLY charge for a period at the
// subscription's monthly fee, with the period's derived label as description
func NewMonthlyCharge(sub *Subscription, period BillingPeriod) (*Charge, error) {
	p := period
	return NewCharge(sub.ID, sub.ClientID, sub.MonthlyFee, p.Label(), ChargeKindMonthly, &p)
}

// IsPending returns true if the charge still counts toward the balance
func (c *Charge) IsPending() bool {
	return c.Status == ChargeStatusPending
}

// IsPaid returns true if the charge has been settled by a payment
func (c *Charge) IsPaid() bool {
	return c.Status == ChargeStatusPaid
}

// MarkPaid settles the charge with the given payment
func (c *Charge) MarkPaid(paymentID uuid.UUID, paidAt time.Time) error {
	if c.Status == ChargeStatusPaid {
		return shared.NewDomainError("INVALID_STATE", "Charge is already paid")
	}
	c.Status = ChargeStatusPaid
	c.PaymentID = &paymentID
	c.PaidAt = &paidAt
	c.UpdatedAt = time.Now()
	c.IncrementVersion()
	c.AddDomainEvent(NewChargePaidEvent(c))
	return nil
}

// ResetToPending reverts a paid charge to pending, clearing the payment link.
// Used when the settling payment is deleted.
func (c *Charge) ResetToPending() error {
	if c.Status != ChargeStatusPaid {
		return shared.NewDomainError("INVALID_STATE", "Only paid charges can be reset to pending")
	}
	c.Status = ChargeStatusPending
	c.PaymentID = nil
	c.PaidAt = nil
	c.UpdatedAt = time.Now()
	c.IncrementVersion()
	return nil
}

// UpdateAmount changes the amount and description of a pending charge and
// returns the signed balance delta (new - old). Paid charges are immutable:
// delete the settling payment first.
func (c *Charge) UpdateAmount(newAmount decimal.Decimal, newDescription string) (decimal.Decimal, error) {
	if c.Status == ChargeStatusPaid {
		return decimal.Zero, shared.NewDomainError("INVALID_STATE", "Cannot edit a paid charge; delete its payment first")
	}
	if newAmount.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, shared.NewDomainError("INVALID_AMOUNT", "Charge amount must be positive")
	}

	newAmount = newAmount.Round(2)
	delta := newAmount.Sub(c.Amount)
	c.Amount = newAmount
	if newDescription != "" {
		c.Description = newDescription
	}
	c.UpdatedAt = time.Now()
	c.IncrementVersion()
	return delta, nil
}

// CanDelete returns nil if the charge may be deleted. Paid charges cannot be
// deleted while their payment still exists: that would leave a dangling
// payment reference.
func (c *Charge) CanDelete() error {
	if c.Status == ChargeStatusPaid && c.PaymentID != nil {
		return shared.NewDomainError("INVALID_STATE", "Cannot delete a paid charge; delete its payment first")
	}
	return nil
}

// CheckLinkInvariant verifies PAID <=> payment link set. Violations indicate
// storage corruption, not a caller mistake.
func (c *Charge) CheckLinkInvariant() error {
	linked := c.PaymentID != nil && c.PaidAt != nil
	unlinked := c.PaymentID == nil && c.PaidAt == nil
	switch c.Status {
	case ChargeStatusPaid:
		if !linked {
			return shared.NewDomainError("INVALID_STATE", "Paid charge is missing its payment link")
		}
	case ChargeStatusPending:
		if !unlinked {
			return shared.NewDomainError("INVALID_STATE", "Pending charge still carries a payment link")
		}
	}
	return nil
}
