package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountClassification buckets a subscription by where its ledger stands
type AccountClassification string

const (
	// AccountInDebt: at least one pending charge
	AccountInDebt AccountClassification = "IN_DEBT"
	// AccountUpToDate: nothing pending and paid past the current month
	AccountUpToDate AccountClassification = "UP_TO_DATE"
	// AccountCurrent: nothing pending, nothing paid ahead
	AccountCurrent AccountClassification = "CURRENT"
)

// String returns the string representation of AccountClassification
func (c AccountClassification) String() string {
	return string(c)
}

// AccountState is the full standing of a subscription, derived purely from
// its charge history. It holds no identity and is recomputed on every read.
type AccountState struct {
	Classification AccountClassification `json:"classification"`
	PendingTotal   decimal.Decimal       `json:"pending_total"`
	DisplayBalance decimal.Decimal       `json:"display_balance"`
	CoveredThrough *BillingPeriod        `json:"covered_through,omitempty"`
	NextDueDate    time.Time             `json:"next_due_date"`
	PendingCount   int                   `json:"pending_count"`
}

// DeriveAccountState computes the account state from the subscription's
// complete charge list. Side-effect free: it never touches the cached
// balance and takes no locks.
func DeriveAccountState(charges []*Charge, billingDay int, now time.Time) *AccountState {
	billingDay = ClampBillingDay(billingDay)
	currentPeriod := PeriodOf(now)

	pendingTotal := decimal.Zero
	pendingCount := 0
	hasAdvance := false
	var coveredThrough *BillingPeriod

	for _, c := range charges {
		if c.IsPending() {
			pendingTotal = pendingTotal.Add(c.Amount)
			pendingCount++
			continue
		}
		if c.Period == nil {
			continue
		}
		if coveredThrough == nil || c.Period.After(*coveredThrough) {
			p := *c.Period
			coveredThrough = &p
		}
		if c.Period.After(currentPeriod) {
			hasAdvance = true
		}
	}

	classification := AccountCurrent
	switch {
	case pendingTotal.IsPositive():
		classification = AccountInDebt
	case hasAdvance:
		classification = AccountUpToDate
	}

	displayBalance := pendingTotal
	if classification == AccountUpToDate {
		displayBalance = decimal.Zero
	}

	return &AccountState{
		Classification: classification,
		PendingTotal:   pendingTotal,
		DisplayBalance: displayBalance,
		CoveredThrough: coveredThrough,
		NextDueDate:    nextDueDate(coveredThrough, billingDay, now),
		PendingCount:   pendingCount,
	}
}

// nextDueDate is day billingDay of the month after the last paid period.
// A subscription that never paid a period charge owes on the next
// occurrence of its billing day strictly after now.
func nextDueDate(coveredThrough *BillingPeriod, billingDay int, now time.Time) time.Time {
	if coveredThrough != nil {
		return coveredThrough.Next().DueDate(billingDay)
	}

	candidate := time.Date(now.Year(), now.Month(), billingDay, 0, 0, 0, 0, time.UTC)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if candidate.After(today) {
		return candidate
	}
	return candidate.AddDate(0, 1, 0)
}
