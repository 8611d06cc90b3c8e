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
// NewSubscription Tests
// ============================================

func TestNewSubscription(t *testing.T) {
	installDate := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		clientID   uuid.UUID
		fee        decimal.Decimal
		billingDay int
		install    time.Time
		instCost   decimal.Decimal
		additional decimal.Decimal
		wantErr    bool
	}{
		{"valid", uuid.New(), decimal.NewFromInt(500), 10, installDate, decimal.NewFromInt(150), decimal.Zero, false},
		{"nil client", uuid.Nil, decimal.NewFromInt(500), 10, installDate, decimal.Zero, decimal.Zero, true},
		{"negative fee", uuid.New(), decimal.NewFromInt(-1), 10, installDate, decimal.Zero, decimal.Zero, true},
		{"negative installation cost", uuid.New(), decimal.NewFromInt(500), 10, installDate, decimal.NewFromInt(-1), decimal.Zero, true},
		{"negative additional charges", uuid.New(), decimal.NewFromInt(500), 10, installDate, decimal.Zero, decimal.NewFromInt(-1), true},
		{"zero install date", uuid.New(), decimal.NewFromInt(500), 10, time.Time{}, decimal.Zero, decimal.Zero, true},
		{"zero fee allowed", uuid.New(), decimal.Zero, 10, installDate, decimal.Zero, decimal.Zero, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub, err := NewSubscription(tt.clientID, tt.fee, tt.billingDay, tt.install, tt.instCost, tt.additional)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, sub.Balance.IsZero())
			assert.True(t, sub.Active)
			assert.Equal(t, 1, sub.GetVersion())
			assert.Len(t, sub.GetDomainEvents(), 1)
		})
	}
}

func TestNewSubscription_ClampsBillingDay(t *testing.T) {
	installDate := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)

	sub, err := NewSubscription(uuid.New(), decimal.NewFromInt(500), 31, installDate, decimal.Zero, decimal.Zero)
	require.NoError(t, err)
	assert.Equal(t, 28, sub.BillingDay)

	sub, err = NewSubscription(uuid.New(), decimal.NewFromInt(500), 0, installDate, decimal.Zero, decimal.Zero)
	require.NoError(t, err)
	assert.Equal(t, 1, sub.BillingDay)
}

// ============================================
// Balance Tests
// ============================================

func TestSubscription_AdjustBalance(t *testing.T) {
	sub := createTestSubscription(t)
	v := sub.GetVersion()

	sub.AdjustBalance(decimal.NewFromInt(500))
	assert.True(t, sub.Balance.Equal(decimal.NewFromInt(500)))
	assert.Equal(t, v+1, sub.GetVersion())

	sub.AdjustBalance(decimal.RequireFromString("-83.33"))
	assert.True(t, sub.Balance.Equal(decimal.RequireFromString("416.67")))

	// A zero delta is a no-op: version unchanged
	v = sub.GetVersion()
	sub.AdjustBalance(decimal.Zero)
	assert.Equal(t, v, sub.GetVersion())
}

func TestSubscription_SetBalance(t *testing.T) {
	sub := createTestSubscription(t)
	sub.AdjustBalance(decimal.NewFromInt(900))

	sub.SetBalance(decimal.RequireFromString("716.67"))
	assert.True(t, sub.Balance.Equal(decimal.RequireFromString("716.67")))
}

func TestSubscription_PendingTotal(t *testing.T) {
	sub := createTestSubscription(t)
	other := createTestSubscription(t)

	c1 := *createTestMonthlyCharge(t, sub, 6, 2026)
	c2 := *createTestMonthlyCharge(t, sub, 7, 2026)
	paid := *createTestMonthlyCharge(t, sub, 5, 2026)
	require.NoError(t, paid.MarkPaid(uuid.New(), time.Now()))
	foreign := *createTestMonthlyCharge(t, other, 6, 2026)

	total := sub.PendingTotal([]Charge{c1, c2, paid, foreign})
	assert.True(t, total.Equal(decimal.NewFromInt(1000)))
}

// ============================================
// Lifecycle Tests
// ============================================

func TestSubscription_UpdateFee(t *testing.T) {
	sub := createTestSubscription(t)

	require.NoError(t, sub.UpdateFee(decimal.RequireFromString("549.99")))
	assert.True(t, sub.MonthlyFee.Equal(decimal.RequireFromString("549.99")))

	assert.Error(t, sub.UpdateFee(decimal.NewFromInt(-1)))
}

func TestSubscription_ActivateDeactivate(t *testing.T) {
	sub := createTestSubscription(t)
	require.True(t, sub.Active)

	v := sub.GetVersion()
	sub.Deactivate()
	assert.False(t, sub.Active)
	assert.Equal(t, v+1, sub.GetVersion())

	// Idempotent
	sub.Deactivate()
	assert.Equal(t, v+1, sub.GetVersion())

	sub.Activate()
	assert.True(t, sub.Active)
}
