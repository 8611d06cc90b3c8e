package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/ispcrm/backend/internal/domain/billing"
	"github.com/ispcrm/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AccountService answers read-side questions about a client's standing.
// Everything here is derived from the charge history on each call; nothing
// is cached or written.
type AccountService struct {
	subscriptionRepo billing.SubscriptionRepository
	chargeRepo       billing.ChargeRepository
	paymentRepo      billing.PaymentRepository
	logger           *zap.Logger
}

// NewAccountService creates a new AccountService
func NewAccountService(
	subscriptionRepo billing.SubscriptionRepository,
	chargeRepo billing.ChargeRepository,
	paymentRepo billing.PaymentRepository,
	logger *zap.Logger,
) *AccountService {
	return &AccountService{
		subscriptionRepo: subscriptionRepo,
		chargeRepo:       chargeRepo,
		paymentRepo:      paymentRepo,
		logger:           logger,
	}
}

// AccountOverview combines the subscription profile with its derived state
type AccountOverview struct {
	Subscription *billing.Subscription `json:"subscription"`
	State        *billing.AccountState `json:"state"`
	Ledger       []billing.Charge      `json:"ledger,omitempty"`
}

// GetAccountState derives the client's current standing from the full
// charge history
func (s *AccountService) GetAccountState(ctx context.Context, clientID uuid.UUID) (*billing.AccountState, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "account", "get_state")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrClientID, clientID.String())

	sub, err := s.subscriptionRepo.FindByClient(ctx, clientID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	charges, err := s.chargeRepo.FindAllBySubscription(ctx, sub.ID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}

	ptrs := make([]*billing.Charge, len(charges))
	for i := range charges {
		ptrs[i] = &charges[i]
	}
	state := billing.DeriveAccountState(ptrs, sub.BillingDay, time.Now())

	// The cached balance should mirror the pending sum; drift is a bug
	// worth knowing about even on a read path.
	if !sub.Balance.Equal(state.PendingTotal) {
		s.logger.Warn("cached balance diverges from pending total",
			zap.String("client_id", clientID.String()),
			zap.String("cached_balance", sub.Balance.String()),
			zap.String("pending_total", state.PendingTotal.String()))
	}

	return state, nil
}

// GetAccountOverview returns the subscription, derived state and full ledger
// in one call, for the account detail screen
func (s *AccountService) GetAccountOverview(ctx context.Context, clientID uuid.UUID) (*AccountOverview, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "account", "get_overview")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrClientID, clientID.String())

	sub, err := s.subscriptionRepo.FindByClient(ctx, clientID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	charges, err := s.chargeRepo.FindAllBySubscription(ctx, sub.ID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}

	ptrs := make([]*billing.Charge, len(charges))
	for i := range charges {
		ptrs[i] = &charges[i]
	}

	return &AccountOverview{
		Subscription: sub,
		State:        billing.DeriveAccountState(ptrs, sub.BillingDay, time.Now()),
		Ledger:       charges,
	}, nil
}

// DebtorSummary is one row of the debtors report
type DebtorSummary struct {
	ClientID       uuid.UUID             `json:"client_id"`
	SubscriptionID uuid.UUID             `json:"subscription_id"`
	State          *billing.AccountState `json:"state"`
}

// ListDebtors returns every active subscription currently in debt, ordered
// as the repository returns them
func (s *AccountService) ListDebtors(ctx context.Context) ([]DebtorSummary, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "account", "list_debtors")
	defer span.End()

	subs, err := s.subscriptionRepo.FindActive(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to list active subscriptions: %w", err)
	}

	now := time.Now()
	debtors := make([]DebtorSummary, 0)
	for i := range subs {
		charges, err := s.chargeRepo.FindAllBySubscription(ctx, subs[i].ID)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, fmt.Errorf("failed to load ledger for %s: %w", subs[i].ID, err)
		}
		ptrs := make([]*billing.Charge, len(charges))
		for j := range charges {
			ptrs[j] = &charges[j]
		}
		state := billing.DeriveAccountState(ptrs, subs[i].BillingDay, now)
		if state.Classification != billing.AccountInDebt {
			continue
		}
		debtors = append(debtors, DebtorSummary{
			ClientID:       subs[i].ClientID,
			SubscriptionID: subs[i].ID,
			State:          state,
		})
	}
	return debtors, nil
}
