package billing

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func paidChargeForPeriod(t *testing.T, sub *Subscription, amount int64, month, year int) *Charge {
	c := chargeForPeriod(t, sub, amount, month, year)
	require.NoError(t, c.MarkPaid(uuid.New(), time.Now()))
	return c
}

// ============================================
// Classification Tests
// ============================================

func TestDeriveAccountState_InDebt(t *testing.T) {
	sub := createTestSubscription(t)
	now := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)

	charges := []*Charge{
		chargeForPeriod(t, sub, 500, 7, 2026),
		chargeForPeriod(t, sub, 500, 8, 2026),
		paidChargeForPeriod(t, sub, 500, 6, 2026),
	}

	state := DeriveAccountState(charges, 10, now)

	assert.Equal(t, AccountInDebt, state.Classification)
	assert.True(t, state.PendingTotal.Equal(decimal.NewFromInt(1000)))
	assert.True(t, state.DisplayBalance.Equal(decimal.NewFromInt(1000)))
	assert.Equal(t, 2, state.PendingCount)
	require.NotNil(t, state.CoveredThrough)
	assert.Equal(t, BillingPeriod{Month: 6, Year: 2026}, *state.CoveredThrough)
}

func TestDeriveAccountState_UpToDate(t *testing.T) {
	sub := createTestSubscription(t)
	now := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)

	// Paid through October: advance coverage beyond the current month
	charges := []*Charge{
		paidChargeForPeriod(t, sub, 500, 8, 2026),
		paidChargeForPeriod(t, sub, 500, 9, 2026),
		paidChargeForPeriod(t, sub, 500, 10, 2026),
	}

	state := DeriveAccountState(charges, 10, now)

	assert.Equal(t, AccountUpToDate, state.Classification)
	assert.True(t, state.PendingTotal.IsZero())
	assert.True(t, state.DisplayBalance.IsZero())
	require.NotNil(t, state.CoveredThrough)
	assert.Equal(t, BillingPeriod{Month: 10, Year: 2026}, *state.CoveredThrough)
	assert.Equal(t, time.Date(2026, 11, 10, 0, 0, 0, 0, time.UTC), state.NextDueDate)
}

func TestDeriveAccountState_CurrentFreshlySettled(t *testing.T) {
	sub := createTestSubscription(t)
	now := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)

	// Everything paid, nothing ahead of the current month
	charges := []*Charge{
		paidChargeForPeriod(t, sub, 500, 7, 2026),
		paidChargeForPeriod(t, sub, 500, 8, 2026),
	}

	state := DeriveAccountState(charges, 10, now)

	assert.Equal(t, AccountCurrent, state.Classification)
	assert.True(t, state.PendingTotal.IsZero())
	assert.Equal(t, time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC), state.NextDueDate)
}

// ============================================
// Next Due Date Tests
// ============================================

func TestDeriveAccountState_NoChargesFallsBackToNextBillingDay(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			name: "before billing day this month",
			now:  time.Date(2026, 8, 5, 15, 30, 0, 0, time.UTC),
			want: time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "on billing day rolls to next month",
			now:  time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC),
			want: time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "after billing day rolls to next month",
			now:  time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC),
			want: time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "december rolls across the year",
			now:  time.Date(2026, 12, 15, 0, 0, 0, 0, time.UTC),
			want: time.Date(2027, 1, 10, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := DeriveAccountState(nil, 10, tt.now)
			assert.Equal(t, AccountCurrent, state.Classification)
			assert.Nil(t, state.CoveredThrough)
			assert.Equal(t, tt.want, state.NextDueDate)
		})
	}
}

func TestDeriveAccountState_DueDateMonotonicity(t *testing.T) {
	sub := createTestSubscription(t)
	now := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)

	// Paid through P implies the next due date falls strictly after P's own
	// due date, for any P.
	for month := 1; month <= 12; month++ {
		charges := []*Charge{paidChargeForPeriod(t, sub, 500, month, 2026)}
		state := DeriveAccountState(charges, 10, now)

		pDue := BillingPeriod{Month: month, Year: 2026}.DueDate(10)
		assert.True(t, state.NextDueDate.After(pDue),
			"month %d: next due %s not after %s", month, state.NextDueDate, pDue)
	}
}

// ============================================
// Mixed Ledger Tests
// ============================================

func TestDeriveAccountState_AdHocChargesCountTowardDebtOnly(t *testing.T) {
	sub := createTestSubscription(t)
	now := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)

	// A paid ad-hoc charge has no period: it must not affect coverage
	paidAdhoc := adHocCharge(t, sub, 100, "Router replacement")
	require.NoError(t, paidAdhoc.MarkPaid(uuid.New(), now))
	pendingAdhoc := adHocCharge(t, sub, 75, "Late fee")

	state := DeriveAccountState([]*Charge{paidAdhoc, pendingAdhoc}, 10, now)

	assert.Equal(t, AccountInDebt, state.Classification)
	assert.True(t, state.PendingTotal.Equal(decimal.NewFromInt(75)))
	assert.Nil(t, state.CoveredThrough)
}

func TestDeriveAccountState_PendingWinsOverAdvance(t *testing.T) {
	sub := createTestSubscription(t)
	now := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)

	// Paid ahead but with an unpaid ad-hoc charge: still in debt
	charges := []*Charge{
		paidChargeForPeriod(t, sub, 500, 9, 2026),
		adHocCharge(t, sub, 50, "Late fee"),
	}

	state := DeriveAccountState(charges, 10, now)

	assert.Equal(t, AccountInDebt, state.Classification)
	assert.True(t, state.DisplayBalance.Equal(decimal.NewFromInt(50)))
}
