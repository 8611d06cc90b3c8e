package billing

import (
	"time"

	"github.com/ispcrm/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// MinBillingDay and MaxBillingDay bound the billing day so the due date
// exists in every month (February included).
const (
	MinBillingDay = 1
	MaxBillingDay = 28
)

// ClampBillingDay forces the billing day into the 1-28 range
func ClampBillingDay(day int) int {
	if day < MinBillingDay {
		return MinBillingDay
	}
	if day > MaxBillingDay {
		return MaxBillingDay
	}
	return day
}

// ProrationResult holds the outcome of a first-invoice proration
type ProrationResult struct {
	DaysCharged      int             `json:"days_charged"`
	DaysInMonth      int             `json:"days_in_month"`
	ProratedAmount   decimal.Decimal `json:"prorated_amount"`
	FirstBillingDate time.Time       `json:"first_billing_date"`
}

// FirstBillingDate returns the first regular billing date for an
// installation on installDate with the given billing day: day billingDay of
// the same month when the installation lands on or before it, otherwise day
// billingDay of the following month. Installing exactly on the billing day
// yields a zero-length first cycle.
func FirstBillingDate(installDate time.Time, billingDay int) time.Time {
	billingDay = ClampBillingDay(billingDay)
	year, month, day := installDate.Date()
	first := time.Date(year, month, billingDay, 0, 0, 0, 0, installDate.Location())
	if day <= billingDay {
		return first
	}
	return first.AddDate(0, 1, 0)
}

// CalculateProration computes the prorated first-month amount for a
// subscription installed at installDate. The charge covers the calendar days
// from the installation date (inclusive) to the first billing date
// (exclusive), at the monthly fee scaled by the installation month's length,
// rounded half-up to two decimals.
func CalculateProration(installDate time.Time, billingDay int, monthlyFee decimal.Decimal) (*ProrationResult, error) {
	if monthlyFee.IsNegative() {
		return nil, shared.NewDomainError("INVALID_FEE", "Monthly fee cannot be negative")
	}

	billingDay = ClampBillingDay(billingDay)
	firstBilling := FirstBillingDate(installDate, billingDay)

	// Count civil days in UTC so DST transitions cannot skew the result
	installDay := time.Date(installDate.Year(), installDate.Month(), installDate.Day(), 0, 0, 0, 0, time.UTC)
	billingDayUTC := time.Date(firstBilling.Year(), firstBilling.Month(), firstBilling.Day(), 0, 0, 0, 0, time.UTC)
	daysCharged := int(billingDayUTC.Sub(installDay).Hours() / 24)
	daysInMonth := PeriodOf(installDate).DaysInMonth()

	prorated := decimal.Zero
	if daysCharged > 0 {
		prorated = monthlyFee.
			Mul(decimal.NewFromInt(int64(daysCharged))).
			Div(decimal.NewFromInt(int64(daysInMonth))).
			Round(2)
	}

	return &ProrationResult{
		DaysCharged:      daysCharged,
		DaysInMonth:      daysInMonth,
		ProratedAmount:   prorated,
		FirstBillingDate: firstBilling,
	}, nil
}
