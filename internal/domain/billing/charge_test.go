package billing

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helpers

func createTestSubscription(t *testing.T) *Subscription {
	sub, err := NewSubscription(
		uuid.New(),
		decimal.NewFromInt(500),
		10,
		time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC),
		decimal.NewFromInt(150),
		decimal.Zero,
	)
	require.NoError(t, err)
	return sub
}

func createTestMonthlyCharge(t *testing.T, sub *Subscription, month, year int) *Charge {
	charge, err := NewMonthlyCharge(sub, BillingPeriod{Month: month, Year: year})
	require.NoError(t, err)
	return charge
}

// ============================================
// ChargeKind Tests
// ============================================

func TestChargeKind_IsValid(t *testing.T) {
	tests := []struct {
		kind    ChargeKind
		isValid bool
	}{
		{ChargeKindMonthly, true},
		{ChargeKindProrated, true},
		{ChargeKindInstallation, true},
		{ChargeKindAdHoc, true},
		{ChargeKind("INVALID"), false},
		{ChargeKind(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.isValid, tt.kind.IsValid())
		})
	}
}

func TestChargeKind_RequiresPeriod(t *testing.T) {
	assert.True(t, ChargeKindMonthly.RequiresPeriod())
	assert.True(t, ChargeKindProrated.RequiresPeriod())
	assert.False(t, ChargeKindInstallation.RequiresPeriod())
	assert.False(t, ChargeKindAdHoc.RequiresPeriod())
}

// ============================================
// NewCharge Tests
// ============================================

func TestNewCharge(t *testing.T) {
	subID := uuid.New()
	clientID := uuid.New()
	period := BillingPeriod{Month: 6, Year: 2026}

	tests := []struct {
		name        string
		amount      decimal.Decimal
		description string
		kind        ChargeKind
		period      *BillingPeriod
		wantErr     bool
	}{
		{"valid monthly", decimal.NewFromInt(500), "Monthly service 6/2026", ChargeKindMonthly, &period, false},
		{"valid adhoc", decimal.NewFromInt(50), "Router replacement", ChargeKindAdHoc, nil, false},
		{"zero amount", decimal.Zero, "x", ChargeKindAdHoc, nil, true},
		{"negative amount", decimal.NewFromInt(-10), "x", ChargeKindAdHoc, nil, true},
		{"monthly without period", decimal.NewFromInt(500), "x", ChargeKindMonthly, nil, true},
		{"adhoc with period", decimal.NewFromInt(50), "x", ChargeKindAdHoc, &period, true},
		{"invalid kind", decimal.NewFromInt(50), "x", ChargeKind("BAD"), nil, true},
		{"empty description", decimal.NewFromInt(50), "", ChargeKindAdHoc, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			charge, err := NewCharge(subID, clientID, tt.amount, tt.description, tt.kind, tt.period)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, ChargeStatusPending, charge.Status)
			assert.Nil(t, charge.PaymentID)
			assert.Nil(t, charge.PaidAt)
			assert.False(t, charge.Advance)
			assert.Len(t, charge.GetDomainEvents(), 1)
		})
	}
}

func TestNewMonthlyCharge(t *testing.T) {
	sub := createTestSubscription(t)
	charge := createTestMonthlyCharge(t, sub, 7, 2026)

	assert.Equal(t, sub.ID, charge.SubscriptionID)
	assert.Equal(t, sub.ClientID, charge.ClientID)
	assert.True(t, charge.Amount.Equal(sub.MonthlyFee))
	assert.Equal(t, "Monthly service 7/2026", charge.Description)
	require.NotNil(t, charge.Period)
	assert.Equal(t, BillingPeriod{Month: 7, Year: 2026}, *charge.Period)
}

// ============================================
// Charge Lifecycle Tests
// ============================================

func TestCharge_MarkPaid(t *testing.T) {
	sub := createTestSubscription(t)
	charge := createTestMonthlyCharge(t, sub, 7, 2026)
	paymentID := uuid.New()
	paidAt := time.Now()

	err := charge.MarkPaid(paymentID, paidAt)
	require.NoError(t, err)

	assert.True(t, charge.IsPaid())
	require.NotNil(t, charge.PaymentID)
	assert.Equal(t, paymentID, *charge.PaymentID)
	require.NotNil(t, charge.PaidAt)
	assert.NoError(t, charge.CheckLinkInvariant())

	// Paying twice is rejected
	err = charge.MarkPaid(uuid.New(), time.Now())
	assert.Error(t, err)
}

func TestCharge_ResetToPending(t *testing.T) {
	sub := createTestSubscription(t)
	charge := createTestMonthlyCharge(t, sub, 7, 2026)

	// Cannot reset a charge that was never paid
	assert.Error(t, charge.ResetToPending())

	require.NoError(t, charge.MarkPaid(uuid.New(), time.Now()))
	require.NoError(t, charge.ResetToPending())

	assert.True(t, charge.IsPending())
	assert.Nil(t, charge.PaymentID)
	assert.Nil(t, charge.PaidAt)
	assert.NoError(t, charge.CheckLinkInvariant())
}

func TestCharge_UpdateAmount(t *testing.T) {
	sub := createTestSubscription(t)
	charge := createTestMonthlyCharge(t, sub, 7, 2026) // 500

	delta, err := charge.UpdateAmount(decimal.NewFromInt(450), "Discounted month")
	require.NoError(t, err)
	assert.True(t, delta.Equal(decimal.NewFromInt(-50)))
	assert.True(t, charge.Amount.Equal(decimal.NewFromInt(450)))
	assert.Equal(t, "Discounted month", charge.Description)

	// Raising the amount yields a positive delta
	delta, err = charge.UpdateAmount(decimal.NewFromInt(600), "")
	require.NoError(t, err)
	assert.True(t, delta.Equal(decimal.NewFromInt(150)))
	assert.Equal(t, "Discounted month", charge.Description) // unchanged when empty

	// Non-positive amounts rejected
	_, err = charge.UpdateAmount(decimal.Zero, "")
	assert.Error(t, err)

	// Paid charges are immutable
	require.NoError(t, charge.MarkPaid(uuid.New(), time.Now()))
	_, err = charge.UpdateAmount(decimal.NewFromInt(100), "")
	assert.Error(t, err)
}

func TestCharge_CanDelete(t *testing.T) {
	sub := createTestSubscription(t)
	charge := createTestMonthlyCharge(t, sub, 7, 2026)

	assert.NoError(t, charge.CanDelete())

	require.NoError(t, charge.MarkPaid(uuid.New(), time.Now()))
	assert.Error(t, charge.CanDelete())

	require.NoError(t, charge.ResetToPending())
	assert.NoError(t, charge.CanDelete())
}

func TestCharge_CheckLinkInvariant_Corruption(t *testing.T) {
	sub := createTestSubscription(t)

	paid := createTestMonthlyCharge(t, sub, 7, 2026)
	paid.Status = ChargeStatusPaid // no payment link
	assert.Error(t, paid.CheckLinkInvariant())

	pending := createTestMonthlyCharge(t, sub, 8, 2026)
	id := uuid.New()
	pending.PaymentID = &id // pending with a dangling link
	assert.Error(t, pending.CheckLinkInvariant())
}
