package billing

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================
// PaymentMethod Tests
// ============================================

func TestPaymentMethod_IsValid(t *testing.T) {
	tests := []struct {
		method  PaymentMethod
		isValid bool
	}{
		{PaymentMethodCash, true},
		{PaymentMethodTransfer, true},
		{PaymentMethodCard, true},
		{PaymentMethodDeposit, true},
		{PaymentMethod("CHEQUE"), false},
		{PaymentMethod(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.method), func(t *testing.T) {
			assert.Equal(t, tt.isValid, tt.method.IsValid())
		})
	}
}

// ============================================
// NewPayment Tests
// ============================================

func TestNewPayment(t *testing.T) {
	clientID := uuid.New()
	date := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		amount  decimal.Decimal
		method  PaymentMethod
		wantErr bool
	}{
		{"valid cash", decimal.NewFromInt(500), PaymentMethodCash, false},
		{"valid transfer", decimal.RequireFromString("416.67"), PaymentMethodTransfer, false},
		{"zero amount", decimal.Zero, PaymentMethodCash, true},
		{"negative amount", decimal.NewFromInt(-10), PaymentMethodCash, true},
		{"invalid method", decimal.NewFromInt(100), PaymentMethod("BAD"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewPayment(clientID, tt.amount, date, tt.method)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, clientID, p.ClientID)
			assert.Equal(t, date, p.PaymentDate)
			assert.Len(t, p.GetDomainEvents(), 1)
		})
	}
}

func TestNewPayment_ZeroDateDefaultsToNow(t *testing.T) {
	p, err := NewPayment(uuid.New(), decimal.NewFromInt(100), time.Time{}, PaymentMethodCash)
	require.NoError(t, err)
	assert.False(t, p.PaymentDate.IsZero())
}

func TestPayment_Builders(t *testing.T) {
	p, err := NewPayment(uuid.New(), decimal.NewFromInt(100), time.Now(), PaymentMethodTransfer)
	require.NoError(t, err)

	p.WithBankReference("SPEI-00123").WithReceiptNumber("R-2026-0815").WithNotes("August service")

	assert.Equal(t, "SPEI-00123", p.BankReference)
	assert.Equal(t, "R-2026-0815", p.ReceiptNumber)
	assert.Equal(t, "August service", p.Notes)
}
