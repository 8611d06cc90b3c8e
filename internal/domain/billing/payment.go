package billing

import (
	"time"

	"github.com/ispcrm/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentMethod represents how a payment was received
type PaymentMethod string

const (
	PaymentMethodCash     PaymentMethod = "CASH"
	PaymentMethodTransfer PaymentMethod = "TRANSFER"
	PaymentMethodCard     PaymentMethod = "CARD"
	PaymentMethodDeposit  PaymentMethod = "DEPOSIT"
)

// IsValid checks if the payment method is valid
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodTransfer, PaymentMethodCard, PaymentMethodDeposit:
		return true
	}
	return false
}

// String returns the string representation of PaymentMethod
func (m PaymentMethod) String() string {
	return string(m)
}

// Payment is money received from a client. Payments arrive settled: there is
// no gateway state machine. Charges reference the payment that settled them;
// the payment itself does not list charges.
type Payment struct {
	shared.BaseAggregateRoot
	ClientID      uuid.UUID       `json:"client_id"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentDate   time.Time       `json:"payment_date"`
	Method        PaymentMethod   `json:"method"`
	BankReference string          `json:"bank_reference,omitempty"`
	ReceiptNumber string          `json:"receipt_number,omitempty"`
	Notes         string          `json:"notes,omitempty"`
}

// NewPayment creates a payment after validating amount and method
func NewPayment(clientID uuid.UUID, amount decimal.Decimal, paymentDate time.Time, method PaymentMethod) (*Payment, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	if !method.IsValid() {
		return nil, shared.NewDomainError("INVALID_PAYMENT_METHOD", "Unknown payment method: "+string(method))
	}
	if paymentDate.IsZero() {
		paymentDate = time.Now()
	}

	payment := &Payment{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		ClientID:          clientID,
		Amount:            amount.Round(2),
		PaymentDate:       paymentDate,
		Method:            method,
	}
	payment.AddDomainEvent(NewPaymentReceivedEvent(payment))
	return payment, nil
}

// WithBankReference sets the bank reference for transfer payments
func (p *Payment) WithBankReference(ref string) *Payment {
	p.BankReference = ref
	return p
}

// WithReceiptNumber sets the printed receipt number
func (p *Payment) WithReceiptNumber(number string) *Payment {
	p.ReceiptNumber = number
	return p
}

// WithNotes sets free-form notes
func (p *Payment) WithNotes(notes string) *Payment {
	p.Notes = notes
	return p
}
