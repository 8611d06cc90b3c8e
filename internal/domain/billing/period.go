package billing

import (
	"fmt"
	"time"

	"github.com/ispcrm/backend/internal/domain/shared"
)

// BillingPeriod identifies the calendar month a charge bills for.
// It is a value object: two periods with the same month and year are equal.
type BillingPeriod struct {
	Month int `json:"month"` // 1-12
	Year  int `json:"year"`
}

// NewBillingPeriod creates a billing period, validating the month range
func NewBillingPeriod(month, year int) (BillingPeriod, error) {
	if month < 1 || month > 12 {
		return BillingPeriod{}, shared.NewDomainError("INVALID_PERIOD", fmt.Sprintf("Month must be between 1 and 12, got %d", month))
	}
	if year < 2000 || year > 2200 {
		return BillingPeriod{}, shared.NewDomainError("INVALID_PERIOD", fmt.Sprintf("Year %d is out of range", year))
	}
	return BillingPeriod{Month: month, Year: year}, nil
}

// PeriodOf returns the billing period containing the given time
func PeriodOf(t time.Time) BillingPeriod {
	return BillingPeriod{Month: int(t.Month()), Year: t.Year()}
}

// Next returns the period immediately after this one
func (p BillingPeriod) Next() BillingPeriod {
	if p.Month == 12 {
		return BillingPeriod{Month: 1, Year: p.Year + 1}
	}
	return BillingPeriod{Month: p.Month + 1, Year: p.Year}
}

// Prev returns the period immediately before this one
func (p BillingPeriod) Prev() BillingPeriod {
	if p.Month == 1 {
		return BillingPeriod{Month: 12, Year: p.Year - 1}
	}
	return BillingPeriod{Month: p.Month - 1, Year: p.Year}
}

// Compare returns -1, 0 or 1 as p is before, equal to or after other
func (p BillingPeriod) Compare(other BillingPeriod) int {
	if p.Year != other.Year {
		if p.Year < other.Year {
			return -1
		}
		return 1
	}
	if p.Month != other.Month {
		if p.Month < other.Month {
			return -1
		}
		return 1
	}
	return 0
}

// Before returns true if p is strictly earlier than other
func (p BillingPeriod) Before(other BillingPeriod) bool {
	return p.Compare(other) < 0
}

// After returns true if p is strictly later than other
func (p BillingPeriod) After(other BillingPeriod) bool {
	return p.Compare(other) > 0
}

// Equals returns true if both periods identify the same calendar month
func (p BillingPeriod) Equals(other BillingPeriod) bool {
	return p.Month == other.Month && p.Year == other.Year
}

// Contains returns true if the given time falls inside this period's month
func (p BillingPeriod) Contains(t time.Time) bool {
	return int(t.Month()) == p.Month && t.Year() == p.Year
}

// Label returns the display text used for monthly charge descriptions,
// e.g. "Monthly service 3/2026"
func (p BillingPeriod) Label() string {
	return fmt.Sprintf("Monthly service %d/%d", p.Month, p.Year)
}

// String returns a compact representation, e.g. "2026-03"
func (p BillingPeriod) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

// Start returns midnight UTC on the first day of this period's month
func (p BillingPeriod) Start() time.Time {
	return time.Date(p.Year, time.Month(p.Month), 1, 0, 0, 0, 0, time.UTC)
}

// DaysInMonth returns the number of calendar days in this period's month
func (p BillingPeriod) DaysInMonth() int {
	return p.Start().AddDate(0, 1, -1).Day()
}

// DueDate returns day billingDay of this period's month.
// billingDay is expected to already be clamped to 1-28, so the date is
// always valid in any month.
func (p BillingPeriod) DueDate(billingDay int) time.Time {
	return time.Date(p.Year, time.Month(p.Month), billingDay, 0, 0, 0, 0, time.UTC)
}

// PeriodsBetween returns every period from the month of start to the month
// of asOf, inclusive on both ends, in ascending order with no gaps.
// Returns an empty slice when start is after asOf.
func PeriodsBetween(start, asOf time.Time) []BillingPeriod {
	from := PeriodOf(start)
	to := PeriodOf(asOf)
	if from.After(to) {
		return []BillingPeriod{}
	}

	periods := make([]BillingPeriod, 0, 12)
	for p := from; !p.After(to); p = p.Next() {
		periods = append(periods, p)
	}
	return periods
}

// MaxPeriod returns the latest of the given periods, or nil for an empty slice
func MaxPeriod(periods []BillingPeriod) *BillingPeriod {
	if len(periods) == 0 {
		return nil
	}
	max := periods[0]
	for _, p := range periods[1:] {
		if p.After(max) {
			max = p
		}
	}
	return &max
}
