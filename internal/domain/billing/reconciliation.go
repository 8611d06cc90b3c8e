package billing

import (
	"sort"
	"time"

	"github.com/ispcrm/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AdvanceCharge describes a future monthly charge an over-payment funds.
// The charge does not exist yet; the application layer creates it already
// settled by the payment.
type AdvanceCharge struct {
	Period BillingPeriod   `json:"period"`
	Amount decimal.Decimal `json:"amount"`
}

// AllocationPlan is the outcome of planning a payment against a
// subscription's ledger. It only describes what should happen; applying it
// is the application layer's job, inside one transaction.
type AllocationPlan struct {
	// ChargeIDs of previously-pending charges the payment settles in full,
	// oldest period first. No charge is ever partially settled.
	ChargesToPay []uuid.UUID
	// TotalAllocated is the sum of the settled charges' amounts. The cached
	// balance decreases by exactly this much.
	TotalAllocated decimal.Decimal
	// AdvanceCharges are future monthly periods the remainder funds at the
	// full monthly fee. They are created PAID and never touch the balance.
	AdvanceCharges []AdvanceCharge
	// Residual is what is left after full charges and full advance months:
	// always less than the monthly fee. Reported to the caller, not stored.
	Residual decimal.Decimal
}

// FullyConsumed returns true when the payment left no residual
func (p *AllocationPlan) FullyConsumed() bool {
	return p.Residual.IsZero()
}

// ReconciliationService plans how a payment settles a subscription's
// charges: greedy, oldest period first, whole charges only.
type ReconciliationService struct{}

// NewReconciliationService creates a reconciliation service
func NewReconciliationService() *ReconciliationService {
	return &ReconciliationService{}
}

// sortForAllocation orders charges for greedy settlement: period ascending
// with period-less charges last, created_at as tiebreaker.
func sortForAllocation(charges []*Charge) {
	sort.SliceStable(charges, func(i, j int) bool {
		pi, pj := charges[i].Period, charges[j].Period
		if pi != nil && pj != nil {
			if !pi.Equals(*pj) {
				return pi.Before(*pj)
			}
		} else if pi != nil {
			return true
		} else if pj != nil {
			return false
		}
		return charges[i].CreatedAt.Before(charges[j].CreatedAt)
	})
}

// latestPeriod returns the most recent billing period among all
// period-bearing charges, paid or pending
func latestPeriod(charges []*Charge) *BillingPeriod {
	var max *BillingPeriod
	for _, c := range charges {
		if c.Period == nil {
			continue
		}
		if max == nil || c.Period.After(*max) {
			p := *c.Period
			max = &p
		}
	}
	return max
}

// Allocate plans the settlement of a payment of the given amount against the
// subscription's charges (the full ledger: paid charges anchor the advance
// start period, pending ones are settlement candidates).
//
// Rules, in order:
//  1. Settle pending charges oldest-period-first, each in full or not at
//     all. Stop when the remainder no longer covers the next charge.
//  2. While the remainder covers a full monthly fee, fund the next future
//     period after the latest known period as an advance charge.
//  3. Whatever is left is the residual, always below the monthly fee.
func (s *ReconciliationService) Allocate(amount decimal.Decimal, charges []*Charge, sub *Subscription, now time.Time) (*AllocationPlan, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}

	pending := make([]*Charge, 0, len(charges))
	for _, c := range charges {
		if c.IsPending() {
			pending = append(pending, c)
		}
	}
	sortForAllocation(pending)

	plan := &AllocationPlan{
		ChargesToPay:   make([]uuid.UUID, 0, len(pending)),
		TotalAllocated: decimal.Zero,
		AdvanceCharges: make([]AdvanceCharge, 0),
	}

	remaining := amount
	for _, c := range pending {
		if remaining.LessThan(c.Amount) {
			break
		}
		plan.ChargesToPay = append(plan.ChargesToPay, c.ID)
		plan.TotalAllocated = plan.TotalAllocated.Add(c.Amount)
		remaining = remaining.Sub(c.Amount)
		if remaining.IsZero() {
			break
		}
	}

	// Over-payment funds whole future months at the current fee, starting
	// after the latest period ever billed; never-billed subscriptions start
	// at the current month.
	if sub.MonthlyFee.IsPositive() {
		next := PeriodOf(now)
		if latest := latestPeriod(charges); latest != nil {
			next = latest.Next()
		}
		for remaining.GreaterThanOrEqual(sub.MonthlyFee) {
			plan.AdvanceCharges = append(plan.AdvanceCharges, AdvanceCharge{
				Period: next,
				Amount: sub.MonthlyFee,
			})
			remaining = remaining.Sub(sub.MonthlyFee)
			next = next.Next()
		}
	}

	plan.Residual = remaining
	return plan, nil
}
