package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ispcrm/backend/internal/domain/audit"
	"github.com/ispcrm/backend/internal/domain/billing"
	"github.com/ispcrm/backend/internal/domain/catalog"
	"github.com/ispcrm/backend/internal/domain/shared"
	"github.com/ispcrm/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// idempotencyTTL bounds how long a batch-generation key blocks duplicates
const idempotencyTTL = 10 * time.Minute

// LedgerService owns the charge side of the ledger: subscription creation
// with its initial charges, monthly charge generation, ad-hoc charges and
// charge edits/deletions. Every mutation adjusts the cached balance inside
// the same transaction via SaveWithLock.
type LedgerService struct {
	scope            TransactionScope
	subscriptionRepo billing.SubscriptionRepository
	chargeRepo       billing.ChargeRepository
	templateRepo     catalog.ChargeTemplateRepository
	idempotency      shared.IdempotencyStore
	logger           *zap.Logger
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(
	scope TransactionScope,
	subscriptionRepo billing.SubscriptionRepository,
	chargeRepo billing.ChargeRepository,
	templateRepo catalog.ChargeTemplateRepository,
	idempotency shared.IdempotencyStore,
	logger *zap.Logger,
) *LedgerService {
	return &LedgerService{
		scope:            scope,
		subscriptionRepo: subscriptionRepo,
		chargeRepo:       chargeRepo,
		templateRepo:     templateRepo,
		idempotency:      idempotency,
		logger:           logger,
	}
}

// CreateSubscriptionRequest carries the onboarding data for a client
type CreateSubscriptionRequest struct {
	ClientID          uuid.UUID
	MonthlyFee        decimal.Decimal
	BillingDay        int
	InstallationDate  time.Time
	InstallationCost  decimal.Decimal
	AdditionalCharges decimal.Decimal
	AdditionalNotes   string
	ActorID           uuid.UUID
}

// CreateSubscriptionResult reports the created profile and initial charges
type CreateSubscriptionResult struct {
	Subscription *billing.Subscription    `json:"subscription"`
	Charges      []*billing.Charge        `json:"charges"`
	Proration    *billing.ProrationResult `json:"proration"`
	TotalInitial decimal.Decimal          `json:"total_initial"`
}

// CreateSubscription opens the billing profile and writes the initial
// charges (prorated first cycle, installation, additional one-time charges)
// in one transaction, with the balance initialised to their sum
func (s *LedgerService) CreateSubscription(ctx context.Context, req CreateSubscriptionRequest) (*CreateSubscriptionResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "create_subscription")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrClientID, req.ClientID.String())

	exists, err := s.subscriptionRepo.ExistsByClient(ctx, req.ClientID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to check existing subscription: %w", err)
	}
	if exists {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "Client already has a billing profile")
	}

	sub, err := billing.NewSubscription(req.ClientID, req.MonthlyFee, req.BillingDay,
		req.InstallationDate, req.InstallationCost, req.AdditionalCharges)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	sub.AdditionalNotes = req.AdditionalNotes

	proration, err := billing.CalculateProration(req.InstallationDate, sub.BillingDay, sub.MonthlyFee)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	charges := make([]*billing.Charge, 0, 3)

	if proration.DaysCharged > 0 && proration.ProratedAmount.IsPositive() {
		period := billing.PeriodOf(req.InstallationDate)
		desc := fmt.Sprintf("Prorated service %d/%d (%d days)", period.Month, period.Year, proration.DaysCharged)
		charge, err := billing.NewCharge(sub.ID, sub.ClientID, proration.ProratedAmount, desc, billing.ChargeKindProrated, &period)
		if err != nil {
			return nil, err
		}
		charges = append(charges, charge)
	}

	if sub.InstallationCost.IsPositive() {
		charge, err := billing.NewCharge(sub.ID, sub.ClientID, sub.InstallationCost, "Installation", billing.ChargeKindInstallation, nil)
		if err != nil {
			return nil, err
		}
		charges = append(charges, charge)
	}

	if sub.AdditionalCharges.IsPositive() {
		desc := "Additional installation charges"
		if req.AdditionalNotes != "" {
			desc = req.AdditionalNotes
		}
		charge, err := billing.NewCharge(sub.ID, sub.ClientID, sub.AdditionalCharges, desc, billing.ChargeKindAdHoc, nil)
		if err != nil {
			return nil, err
		}
		charges = append(charges, charge)
	}

	totalInitial := decimal.Zero
	for _, c := range charges {
		totalInitial = totalInitial.Add(c.Amount)
	}
	sub.AdjustBalance(totalInitial)

	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		if err := repos.Subscriptions().Save(ctx, sub); err != nil {
			return fmt.Errorf("failed to save subscription: %w", err)
		}
		if err := repos.Charges().SaveAll(ctx, charges); err != nil {
			return fmt.Errorf("failed to save initial charges: %w", err)
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	aggs := []shared.AggregateRoot{sub}
	for _, c := range charges {
		aggs = append(aggs, c)
	}
	drainEvents(s.logger, aggs...)

	s.logger.Info("subscription created",
		zap.String("client_id", req.ClientID.String()),
		zap.String("subscription_id", sub.ID.String()),
		zap.String("total_initial", totalInitial.String()),
		zap.Int("initial_charges", len(charges)))

	return &CreateSubscriptionResult{
		Subscription: sub,
		Charges:      charges,
		Proration:    proration,
		TotalInitial: totalInitial,
	}, nil
}

// PreviewProration computes the first-cycle proration without writing
// anything. Used by onboarding screens before the profile exists.
func (s *LedgerService) PreviewProration(installDate time.Time, billingDay int, monthlyFee decimal.Decimal) (*billing.ProrationResult, error) {
	return billing.CalculateProration(installDate, billingDay, monthlyFee)
}

// GenerateChargeResult reports one (client, period) generation outcome
type GenerateChargeResult struct {
	ClientID uuid.UUID       `json:"client_id"`
	Charge   *billing.Charge `json:"charge,omitempty"`
	// CaughtUp lists charges for months missed before the requested period,
	// billed in the same run
	CaughtUp []*billing.Charge `json:"caught_up,omitempty"`
	Created  bool              `json:"created"`
	Err      string            `json:"error,omitempty"`
}

// GenerateMonthlyCharge creates the MONTHLY charge for the given client and
// period at the current monthly fee. Months missed since the last billed
// period are billed in the same transaction so the ledger stays gap-free; a
// subscription that has never been billed gets only the requested period.
// Idempotent per (subscription, period): a duplicate request reports
// Created=false without touching the balance.
func (s *LedgerService) GenerateMonthlyCharge(ctx context.Context, clientID uuid.UUID, period billing.BillingPeriod) (*GenerateChargeResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "generate_monthly_charge")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrClientID, clientID.String(),
		telemetry.SpanAttrPeriod, period.String())

	// The DB uniqueness constraint is the real guard; the idempotency store
	// just short-circuits concurrent duplicate submissions cheaply.
	key := fmt.Sprintf("charge-gen:%s:%s", clientID, period)
	fresh, err := s.idempotency.MarkProcessed(ctx, key, idempotencyTTL)
	if err != nil {
		s.logger.Warn("idempotency store unavailable, relying on storage constraint",
			zap.String("key", key), zap.Error(err))
	} else if !fresh {
		return &GenerateChargeResult{ClientID: clientID, Created: false}, nil
	}

	var result *GenerateChargeResult
	var sub *billing.Subscription
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		sub, err = repos.Subscriptions().FindByClient(ctx, clientID)
		if err != nil {
			return err
		}

		exists, err := repos.Charges().ExistsForPeriod(ctx, sub.ID, period)
		if err != nil {
			return fmt.Errorf("failed to check period charge: %w", err)
		}
		if exists {
			result = &GenerateChargeResult{ClientID: clientID, Created: false}
			return nil
		}

		periods, err := s.periodsToBill(ctx, repos, sub.ID, period)
		if err != nil {
			return err
		}

		created := make([]*billing.Charge, 0, len(periods))
		for _, p := range periods {
			charge, err := billing.NewMonthlyCharge(sub, p)
			if err != nil {
				return err
			}
			if err := repos.Charges().Save(ctx, charge); err != nil {
				if errors.Is(err, shared.ErrAlreadyExists) {
					// Lost the race to a concurrent writer: skip this month
					continue
				}
				return fmt.Errorf("failed to save monthly charge: %w", err)
			}
			sub.AdjustBalance(charge.Amount)
			created = append(created, charge)
		}
		if len(created) == 0 {
			result = &GenerateChargeResult{ClientID: clientID, Created: false}
			return nil
		}

		if err := repos.Subscriptions().SaveWithLock(ctx, sub); err != nil {
			return err
		}

		result = &GenerateChargeResult{
			ClientID: clientID,
			Charge:   created[len(created)-1],
			CaughtUp: created[:len(created)-1],
			Created:  true,
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		// Free the key so a retry is not swallowed as a duplicate for the
		// rest of the TTL. The DB constraint still guards double inserts.
		if fresh {
			if relErr := s.idempotency.Release(ctx, key); relErr != nil {
				s.logger.Warn("failed to release idempotency key after error",
					zap.String("key", key), zap.Error(relErr))
			}
		}
		return nil, err
	}
	if result.Created {
		aggs := []shared.AggregateRoot{sub, result.Charge}
		for _, c := range result.CaughtUp {
			aggs = append(aggs, c)
		}
		drainEvents(s.logger, aggs...)
	}
	return result, nil
}

// periodsToBill returns the months to generate for the subscription, ending
// at the requested period. Billing resumes from the month after the latest
// period any existing charge covers, so a skipped batch run never leaves a
// hole in the ledger. A subscription with no period-bearing charges yet is
// billed for the requested period alone.
func (s *LedgerService) periodsToBill(ctx context.Context, repos TransactionalRepositories, subscriptionID uuid.UUID, requested billing.BillingPeriod) ([]billing.BillingPeriod, error) {
	charges, err := repos.Charges().FindAllBySubscription(ctx, subscriptionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}

	billed := make([]billing.BillingPeriod, 0, len(charges))
	for i := range charges {
		if charges[i].Period != nil {
			billed = append(billed, *charges[i].Period)
		}
	}

	latest := billing.MaxPeriod(billed)
	if latest == nil || !latest.Next().Before(requested) {
		return []billing.BillingPeriod{requested}, nil
	}
	return billing.PeriodsBetween(latest.Next().Start(), requested.Start()), nil
}

// BatchGenerateResult summarises a batch run across all active subscriptions
type BatchGenerateResult struct {
	Period   billing.BillingPeriod  `json:"period"`
	Total    int                    `json:"total"`
	Created  int                    `json:"created"`
	Skipped  int                    `json:"skipped"`
	Failed   int                    `json:"failed"`
	Outcomes []GenerateChargeResult `json:"outcomes"`
}

// GenerateMonthlyCharges runs GenerateMonthlyCharge for every active
// subscription. Each client is its own transaction: one failure is recorded
// in the outcome list and never blocks the rest of the batch.
func (s *LedgerService) GenerateMonthlyCharges(ctx context.Context, period billing.BillingPeriod) (*BatchGenerateResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "generate_monthly_charges")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrPeriod, period.String())

	subs, err := s.subscriptionRepo.FindActive(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to list active subscriptions: %w", err)
	}

	batch := &BatchGenerateResult{
		Period:   period,
		Total:    len(subs),
		Outcomes: make([]GenerateChargeResult, 0, len(subs)),
	}

	for i := range subs {
		outcome, err := s.GenerateMonthlyCharge(ctx, subs[i].ClientID, period)
		if err != nil {
			batch.Failed++
			batch.Outcomes = append(batch.Outcomes, GenerateChargeResult{
				ClientID: subs[i].ClientID,
				Err:      err.Error(),
			})
			s.logger.Error("monthly charge generation failed for client",
				zap.String("client_id", subs[i].ClientID.String()),
				zap.String("period", period.String()),
				zap.Error(err))
			continue
		}
		if outcome.Created {
			batch.Created++
		} else {
			batch.Skipped++
		}
		batch.Outcomes = append(batch.Outcomes, *outcome)
	}

	s.logger.Info("monthly charge batch finished",
		zap.String("period", period.String()),
		zap.Int("total", batch.Total),
		zap.Int("created", batch.Created),
		zap.Int("skipped", batch.Skipped),
		zap.Int("failed", batch.Failed))

	return batch, nil
}

// AddAdHocChargeRequest creates a one-time charge outside the monthly cycle
type AddAdHocChargeRequest struct {
	ClientID    uuid.UUID
	Amount      decimal.Decimal
	Description string
	TemplateID  *uuid.UUID
	ActorID     uuid.UUID
}

// AddAdHocCharge writes a pending ad-hoc charge and raises the balance.
// When a catalog template is referenced, it supplies defaults for whichever
// of amount/description the request leaves empty.
func (s *LedgerService) AddAdHocCharge(ctx context.Context, req AddAdHocChargeRequest) (*billing.Charge, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "add_adhoc_charge")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrClientID, req.ClientID.String())

	amount := req.Amount
	description := req.Description

	if req.TemplateID != nil {
		tmpl, err := s.templateRepo.FindByID(ctx, *req.TemplateID)
		if err != nil {
			return nil, fmt.Errorf("failed to load charge template: %w", err)
		}
		if !tmpl.Active {
			return nil, shared.NewDomainError("INVALID_STATE", "Charge template is inactive")
		}
		if amount.IsZero() {
			amount = tmpl.DefaultAmount
		}
		if description == "" {
			description = tmpl.Name
		}
	}

	var charge *billing.Charge
	var sub *billing.Subscription
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		sub, err = repos.Subscriptions().FindByClient(ctx, req.ClientID)
		if err != nil {
			return err
		}

		charge, err = billing.NewCharge(sub.ID, sub.ClientID, amount, description, billing.ChargeKindAdHoc, nil)
		if err != nil {
			return err
		}
		if err := repos.Charges().Save(ctx, charge); err != nil {
			return fmt.Errorf("failed to save charge: %w", err)
		}

		sub.AdjustBalance(charge.Amount)
		return repos.Subscriptions().SaveWithLock(ctx, sub)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	drainEvents(s.logger, sub, charge)

	s.logger.Info("ad-hoc charge added",
		zap.String("client_id", req.ClientID.String()),
		zap.String("charge_id", charge.ID.String()),
		zap.String("amount", charge.Amount.String()))

	return charge, nil
}

// EditChargeRequest changes a pending charge's amount and/or description
type EditChargeRequest struct {
	ChargeID       uuid.UUID
	NewAmount      decimal.Decimal
	NewDescription string
	ActorID        uuid.UUID
}

// EditCharge updates a pending charge, adjusting the balance by the amount
// delta inside the same transaction. Editing a paid charge is rejected:
// delete its payment first.
func (s *LedgerService) EditCharge(ctx context.Context, req EditChargeRequest) (*billing.Charge, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "edit_charge")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrChargeID, req.ChargeID.String())

	var charge *billing.Charge
	var sub *billing.Subscription
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		charge, err = repos.Charges().FindByID(ctx, req.ChargeID)
		if err != nil {
			return err
		}

		oldAmount := charge.Amount
		oldDescription := charge.Description
		delta, err := charge.UpdateAmount(req.NewAmount, req.NewDescription)
		if err != nil {
			return err
		}
		if err := repos.Charges().Save(ctx, charge); err != nil {
			return fmt.Errorf("failed to save charge: %w", err)
		}

		if !delta.IsZero() {
			sub, err = repos.Subscriptions().FindByID(ctx, charge.SubscriptionID)
			if err != nil {
				return err
			}
			sub.AdjustBalance(delta)
			if err := repos.Subscriptions().SaveWithLock(ctx, sub); err != nil {
				return err
			}
		}

		// Only fields that actually changed go on record
		changes := make([]audit.FieldChange, 0, 2)
		if !delta.IsZero() {
			changes = append(changes, audit.FieldChange{Field: "amount", Old: oldAmount.String(), New: charge.Amount.String()})
		}
		if charge.Description != oldDescription {
			changes = append(changes, audit.FieldChange{Field: "description", Old: oldDescription, New: charge.Description})
		}
		record, err := audit.NewChangeRecord("Charge", charge.ID, audit.ActionUpdate, req.ActorID, changes...)
		if err != nil {
			return err
		}
		return repos.Audit().Append(ctx, record)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if sub != nil {
		drainEvents(s.logger, sub)
	}
	return charge, nil
}

// DeleteChargeRequest removes a charge from the ledger
type DeleteChargeRequest struct {
	ChargeID uuid.UUID
	ActorID  uuid.UUID
}

// DeleteCharge removes a charge. A pending charge lowers the balance by its
// amount; a paid charge is rejected while its payment exists, so a dangling
// payment reference is never left behind. The audit entry captures the
// deleted charge's amount and status.
func (s *LedgerService) DeleteCharge(ctx context.Context, req DeleteChargeRequest) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "delete_charge")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrChargeID, req.ChargeID.String())

	var sub *billing.Subscription
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		charge, err := repos.Charges().FindByID(ctx, req.ChargeID)
		if err != nil {
			return err
		}
		if err := charge.CanDelete(); err != nil {
			return err
		}

		if charge.IsPending() {
			sub, err = repos.Subscriptions().FindByID(ctx, charge.SubscriptionID)
			if err != nil {
				return err
			}
			sub.AdjustBalance(charge.Amount.Neg())
			if err := repos.Subscriptions().SaveWithLock(ctx, sub); err != nil {
				return err
			}
		}

		if err := repos.Charges().Delete(ctx, charge.ID); err != nil {
			return fmt.Errorf("failed to delete charge: %w", err)
		}

		record, err := audit.NewChangeRecord("Charge", charge.ID, audit.ActionDelete, req.ActorID,
			audit.FieldChange{Field: "amount", Old: charge.Amount.String()},
			audit.FieldChange{Field: "status", Old: charge.Status.String()})
		if err != nil {
			return err
		}
		return repos.Audit().Append(ctx, record)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	if sub != nil {
		drainEvents(s.logger, sub)
	}
	return nil
}

// RecomputeBalanceResult reports a balance repair
type RecomputeBalanceResult struct {
	SubscriptionID uuid.UUID       `json:"subscription_id"`
	OldBalance     decimal.Decimal `json:"old_balance"`
	NewBalance     decimal.Decimal `json:"new_balance"`
	Drift          decimal.Decimal `json:"drift"`
}

// RecomputeBalance rewrites the cached balance from the authoritative sum
// of pending charges. The two only diverge after a bug or manual data edit;
// any drift found is logged.
func (s *LedgerService) RecomputeBalance(ctx context.Context, clientID uuid.UUID) (*RecomputeBalanceResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "recompute_balance")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrClientID, clientID.String())

	var result *RecomputeBalanceResult
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		sub, err := repos.Subscriptions().FindByClient(ctx, clientID)
		if err != nil {
			return err
		}

		pendingTotal, err := repos.Charges().SumPendingBySubscription(ctx, sub.ID)
		if err != nil {
			return fmt.Errorf("failed to sum pending charges: %w", err)
		}

		old := sub.Balance
		sub.SetBalance(pendingTotal)
		if err := repos.Subscriptions().SaveWithLock(ctx, sub); err != nil {
			return err
		}

		result = &RecomputeBalanceResult{
			SubscriptionID: sub.ID,
			OldBalance:     old,
			NewBalance:     pendingTotal,
			Drift:          pendingTotal.Sub(old),
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if !result.Drift.IsZero() {
		s.logger.Warn("balance drift repaired",
			zap.String("client_id", clientID.String()),
			zap.String("old_balance", result.OldBalance.String()),
			zap.String("new_balance", result.NewBalance.String()))
	}
	return result, nil
}

// GetSubscription loads a subscription by ID
func (s *LedgerService) GetSubscription(ctx context.Context, id uuid.UUID) (*billing.Subscription, error) {
	return s.subscriptionRepo.FindByID(ctx, id)
}

// GetSubscriptionByClient loads a client's subscription
func (s *LedgerService) GetSubscriptionByClient(ctx context.Context, clientID uuid.UUID) (*billing.Subscription, error) {
	return s.subscriptionRepo.FindByClient(ctx, clientID)
}

// ListCharges lists a subscription's charges with filtering
func (s *LedgerService) ListCharges(ctx context.Context, subscriptionID uuid.UUID, filter billing.ChargeFilter) ([]billing.Charge, error) {
	return s.chargeRepo.FindBySubscription(ctx, subscriptionID, filter)
}
