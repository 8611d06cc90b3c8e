package models

import (
	"time"

	"github.com/ispcrm/backend/internal/domain/billing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SubscriptionModel is the persistence model for the Subscription aggregate root.
type SubscriptionModel struct {
	AggregateModel
	ClientID          uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_subscriptions_client"`
	MonthlyFee        decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	BillingDay        int             `gorm:"not null"`
	InstallationDate  time.Time       `gorm:"not null"`
	InstallationCost  decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	AdditionalCharges decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	AdditionalNotes   string          `gorm:"type:text"`
	Balance           decimal.Decimal `gorm:"type:decimal(18,2);not null;index"`
	Active            bool            `gorm:"not null;default:true;index"`
}

// TableName returns the table name for GORM
func (SubscriptionModel) TableName() string {
	return "subscriptions"
}

// ToDomain converts the persistence model to a domain Subscription entity.
func (m *SubscriptionModel) ToDomain() *billing.Subscription {
	sub := &billing.Subscription{
		ClientID:          m.ClientID,
		MonthlyFee:        m.MonthlyFee,
		BillingDay:        m.BillingDay,
		InstallationDate:  m.InstallationDate,
		InstallationCost:  m.InstallationCost,
		AdditionalCharges: m.AdditionalCharges,
		AdditionalNotes:   m.AdditionalNotes,
		Balance:           m.Balance,
		Active:            m.Active,
	}
	m.PopulateAggregateRoot(&sub.BaseAggregateRoot)
	return sub
}

// FromDomain populates the persistence model from a domain Subscription entity.
func (m *SubscriptionModel) FromDomain(sub *billing.Subscription) {
	m.FromDomainAggregateRoot(sub.BaseAggregateRoot)
	m.ClientID = sub.ClientID
	m.MonthlyFee = sub.MonthlyFee
	m.BillingDay = sub.BillingDay
	m.InstallationDate = sub.InstallationDate
	m.InstallationCost = sub.InstallationCost
	m.AdditionalCharges = sub.AdditionalCharges
	m.AdditionalNotes = sub.AdditionalNotes
	m.Balance = sub.Balance
	m.Active = sub.Active
}

// SubscriptionModelFromDomain creates a new persistence model from a domain Subscription.
func SubscriptionModelFromDomain(sub *billing.Subscription) *SubscriptionModel {
	m := &SubscriptionModel{}
	m.FromDomain(sub)
	return m
}

// ChargeModel is the persistence model for the Charge aggregate root.
// Period-bearing charges are unique per (subscription, year, month); the
// composite index ignores rows with NULL period columns, so one-time charges
// never collide.
type ChargeModel struct {
	AggregateModel
	SubscriptionID uuid.UUID            `gorm:"type:uuid;not null;index;uniqueIndex:idx_charges_subscription_period,priority:1"`
	ClientID       uuid.UUID            `gorm:"type:uuid;not null;index"`
	Amount         decimal.Decimal      `gorm:"type:decimal(18,2);not null"`
	Description    string               `gorm:"type:varchar(500);not null"`
	Kind           billing.ChargeKind   `gorm:"type:varchar(20);not null;index"`
	PeriodYear     *int                 `gorm:"uniqueIndex:idx_charges_subscription_period,priority:2"`
	PeriodMonth    *int                 `gorm:"uniqueIndex:idx_charges_subscription_period,priority:3"`
	Status         billing.ChargeStatus `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	PaymentID      *uuid.UUID           `gorm:"type:uuid;index"`
	PaidAt         *time.Time
	Advance        bool `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (ChargeModel) TableName() string {
	return "charges"
}

// ToDomain converts the persistence model to a domain Charge entity.
func (m *ChargeModel) ToDomain() *billing.Charge {
	charge := &billing.Charge{
		SubscriptionID: m.SubscriptionID,
		ClientID:       m.ClientID,
		Amount:         m.Amount,
		Description:    m.Description,
		Kind:           m.Kind,
		Status:         m.Status,
		PaymentID:      m.PaymentID,
		PaidAt:         m.PaidAt,
		Advance:        m.Advance,
	}
	if m.PeriodYear != nil && m.PeriodMonth != nil {
		charge.Period = &billing.BillingPeriod{Month: *m.PeriodMonth, Year: *m.PeriodYear}
	}
	m.PopulateAggregateRoot(&charge.BaseAggregateRoot)
	return charge
}

// FromDomain populates the persistence model from a domain Charge entity.
func (m *ChargeModel) FromDomain(charge *billing.Charge) {
	m.FromDomainAggregateRoot(charge.BaseAggregateRoot)
	m.SubscriptionID = charge.SubscriptionID
	m.ClientID = charge.ClientID
	m.Amount = charge.Amount
	m.Description = charge.Description
	m.Kind = charge.Kind
	if charge.Period != nil {
		year, month := charge.Period.Year, charge.Period.Month
		m.PeriodYear = &year
		m.PeriodMonth = &month
	} else {
		m.PeriodYear = nil
		m.PeriodMonth = nil
	}
	m.Status = charge.Status
	m.PaymentID = charge.PaymentID
	m.PaidAt = charge.PaidAt
	m.Advance = charge.Advance
}

// ChargeModelFromDomain creates a new persistence model from a domain Charge.
func ChargeModelFromDomain(charge *billing.Charge) *ChargeModel {
	m := &ChargeModel{}
	m.FromDomain(charge)
	return m
}

// PaymentModel is the persistence model for the Payment aggregate root.
type PaymentModel struct {
	AggregateModel
	ClientID      uuid.UUID             `gorm:"type:uuid;not null;index"`
	Amount        decimal.Decimal       `gorm:"type:decimal(18,2);not null"`
	PaymentDate   time.Time             `gorm:"not null;index"`
	Method        billing.PaymentMethod `gorm:"type:varchar(20);not null;index"`
	BankReference string                `gorm:"type:varchar(100)"`
	ReceiptNumber string                `gorm:"type:varchar(50)"`
	Notes         string                `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "payments"
}

// ToDomain converts the persistence model to a domain Payment entity.
func (m *PaymentModel) ToDomain() *billing.Payment {
	payment := &billing.Payment{
		ClientID:      m.ClientID,
		Amount:        m.Amount,
		PaymentDate:   m.PaymentDate,
		Method:        m.Method,
		BankReference: m.BankReference,
		ReceiptNumber: m.ReceiptNumber,
		Notes:         m.Notes,
	}
	m.PopulateAggregateRoot(&payment.BaseAggregateRoot)
	return payment
}

// FromDomain populates the persistence model from a domain Payment entity.
func (m *PaymentModel) FromDomain(payment *billing.Payment) {
	m.FromDomainAggregateRoot(payment.BaseAggregateRoot)
	m.ClientID = payment.ClientID
	m.Amount = payment.Amount
	m.PaymentDate = payment.PaymentDate
	m.Method = payment.Method
	m.BankReference = payment.BankReference
	m.ReceiptNumber = payment.ReceiptNumber
	m.Notes = payment.Notes
}

// PaymentModelFromDomain creates a new persistence model from a domain Payment.
func PaymentModelFromDomain(payment *billing.Payment) *PaymentModel {
	m := &PaymentModel{}
	m.FromDomain(payment)
	return m
}
