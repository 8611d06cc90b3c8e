package billing

import (
	"time"

	"github.com/ispcrm/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SubscriptionCreatedEvent is raised when a billing profile is opened
type SubscriptionCreatedEvent struct {
	shared.BaseDomainEvent
	SubscriptionID   uuid.UUID       `json:"subscription_id"`
	ClientID         uuid.UUID       `json:"client_id"`
	MonthlyFee       decimal.Decimal `json:"monthly_fee"`
	BillingDay       int             `json:"billing_day"`
	InstallationDate time.Time       `json:"installation_date"`
}

// NewSubscriptionCreatedEvent creates a new SubscriptionCreatedEvent
func NewSubscriptionCreatedEvent(sub *Subscription) *SubscriptionCreatedEvent {
	return &SubscriptionCreatedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent("SubscriptionCreated", "Subscription", sub.ID),
		SubscriptionID:   sub.ID,
		ClientID:         sub.ClientID,
		MonthlyFee:       sub.MonthlyFee,
		BillingDay:       sub.BillingDay,
		InstallationDate: sub.InstallationDate,
	}
}

// BalanceAdjustedEvent is raised whenever the cached balance moves
type BalanceAdjustedEvent struct {
	shared.BaseDomainEvent
	SubscriptionID uuid.UUID       `json:"subscription_id"`
	ClientID       uuid.UUID       `json:"client_id"`
	Delta          decimal.Decimal `json:"delta"`
	NewBalance     decimal.Decimal `json:"new_balance"`
}

// NewBalanceAdjustedEvent creates a new BalanceAdjustedEvent
func NewBalanceAdjustedEvent(sub *Subscription, delta decimal.Decimal) *BalanceAdjustedEvent {
	return &BalanceAdjustedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("BalanceAdjusted", "Subscription", sub.ID),
		SubscriptionID:  sub.ID,
		ClientID:        sub.ClientID,
		Delta:           delta,
		NewBalance:      sub.Balance,
	}
}

// ChargeCreatedEvent is raised when a charge enters the ledger
type ChargeCreatedEvent struct {
	shared.BaseDomainEvent
	ChargeID       uuid.UUID       `json:"charge_id"`
	SubscriptionID uuid.UUID       `json:"subscription_id"`
	ClientID       uuid.UUID       `json:"client_id"`
	Amount         decimal.Decimal `json:"amount"`
	Kind           ChargeKind      `json:"kind"`
	Period         *BillingPeriod  `json:"period,omitempty"`
}

// NewChargeCreatedEvent creates a new ChargeCreatedEvent
func NewChargeCreatedEvent(c *Charge) *ChargeCreatedEvent {
	return &ChargeCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("ChargeCreated", "Charge", c.ID),
		ChargeID:        c.ID,
		SubscriptionID:  c.SubscriptionID,
		ClientID:        c.ClientID,
		Amount:          c.Amount,
		Kind:            c.Kind,
		Period:          c.Period,
	}
}

// ChargePaidEvent is raised when a payment settles a charge
type ChargePaidEvent struct {
	shared.BaseDomainEvent
	ChargeID       uuid.UUID       `json:"charge_id"`
	SubscriptionID uuid.UUID       `json:"subscription_id"`
	PaymentID      uuid.UUID       `json:"payment_id"`
	Amount         decimal.Decimal `json:"amount"`
	Advance        bool            `json:"advance"`
}

// NewChargePaidEvent creates a new ChargePaidEvent
func NewChargePaidEvent(c *Charge) *ChargePaidEvent {
	var paymentID uuid.UUID
	if c.PaymentID != nil {
		paymentID = *c.PaymentID
	}
	return &ChargePaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("ChargePaid", "Charge", c.ID),
		ChargeID:        c.ID,
		SubscriptionID:  c.SubscriptionID,
		PaymentID:       paymentID,
		Amount:          c.Amount,
		Advance:         c.Advance,
	}
}

// PaymentReceivedEvent is raised when a payment is recorded
type PaymentReceivedEvent struct {
	shared.BaseDomainEvent
	PaymentID   uuid.UUID       `json:"payment_id"`
	ClientID    uuid.UUID       `json:"client_id"`
	Amount      decimal.Decimal `json:"amount"`
	Method      PaymentMethod   `json:"method"`
	PaymentDate time.Time       `json:"payment_date"`
}

// NewPaymentReceivedEvent creates a new PaymentReceivedEvent
func NewPaymentReceivedEvent(p *Payment) *PaymentReceivedEvent {
	return &PaymentReceivedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("PaymentReceived", "Payment", p.ID),
		PaymentID:       p.ID,
		ClientID:        p.ClientID,
		Amount:          p.Amount,
		Method:          p.Method,
		PaymentDate:     p.PaymentDate,
	}
}

// PaymentDeletedEvent is raised when a payment is removed and its charges
// restored to their pre-payment state
type PaymentDeletedEvent struct {
	shared.BaseDomainEvent
	PaymentID      uuid.UUID       `json:"payment_id"`
	ClientID       uuid.UUID       `json:"client_id"`
	Amount         decimal.Decimal `json:"amount"`
	ChargesReset   int             `json:"charges_reset"`
	ChargesDeleted int             `json:"charges_deleted"`
}

// NewPaymentDeletedEvent creates a new PaymentDeletedEvent
func NewPaymentDeletedEvent(p *Payment, chargesReset, chargesDeleted int) *PaymentDeletedEvent {
	return &PaymentDeletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("PaymentDeleted", "Payment", p.ID),
		PaymentID:       p.ID,
		ClientID:        p.ClientID,
		Amount:          p.Amount,
		ChargesReset:    chargesReset,
		ChargesDeleted:  chargesDeleted,
	}
}
