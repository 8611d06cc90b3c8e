package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/ispcrm/backend/internal/domain/audit"
	"github.com/ispcrm/backend/internal/domain/billing"
	"github.com/ispcrm/backend/internal/domain/shared"
	"github.com/ispcrm/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PaymentService records and deletes payments. Recording settles pending
// charges oldest-first through the reconciliation plan; deleting restores
// the ledger to the exact state it had before the payment.
type PaymentService struct {
	scope       TransactionScope
	paymentRepo billing.PaymentRepository
	chargeRepo  billing.ChargeRepository
	reconciler  *billing.ReconciliationService
	logger      *zap.Logger
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(
	scope TransactionScope,
	paymentRepo billing.PaymentRepository,
	chargeRepo billing.ChargeRepository,
	reconciler *billing.ReconciliationService,
	logger *zap.Logger,
) *PaymentService {
	return &PaymentService{
		scope:       scope,
		paymentRepo: paymentRepo,
		chargeRepo:  chargeRepo,
		reconciler:  reconciler,
		logger:      logger,
	}
}

// ApplyPaymentRequest records money received from a client
type ApplyPaymentRequest struct {
	ClientID      uuid.UUID
	Amount        decimal.Decimal
	PaymentDate   time.Time
	Method        billing.PaymentMethod
	BankReference string
	ReceiptNumber string
	Notes         string
	ActorID       uuid.UUID
}

// ApplyPaymentResult reports what the payment settled
type ApplyPaymentResult struct {
	Payment        *billing.Payment        `json:"payment"`
	SettledCharges []*billing.Charge       `json:"settled_charges"`
	AdvanceCharges []*billing.Charge       `json:"advance_charges,omitempty"`
	TotalAllocated decimal.Decimal         `json:"total_allocated"`
	Residual       decimal.Decimal         `json:"residual"`
	Plan           *billing.AllocationPlan `json:"-"`
}

// ApplyPayment records a payment and settles the client's ledger against it:
// pending charges oldest-first in full, then whole advance months from any
// remainder. The balance drops by exactly the allocated total; a residual
// below the monthly fee is reported back but never stored.
func (s *PaymentService) ApplyPayment(ctx context.Context, req ApplyPaymentRequest) (*ApplyPaymentResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "apply")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrClientID, req.ClientID.String(),
		telemetry.SpanAttrMethod, string(req.Method),
		telemetry.SpanAttrAmount, req.Amount.String())

	payment, err := billing.NewPayment(req.ClientID, req.Amount, req.PaymentDate, req.Method)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	payment.WithBankReference(req.BankReference).
		WithReceiptNumber(req.ReceiptNumber).
		WithNotes(req.Notes)

	var result *ApplyPaymentResult
	var sub *billing.Subscription
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		sub, err = repos.Subscriptions().FindByClient(ctx, req.ClientID)
		if err != nil {
			return err
		}

		ledger, err := repos.Charges().FindAllBySubscription(ctx, sub.ID)
		if err != nil {
			return fmt.Errorf("failed to load ledger: %w", err)
		}
		charges := make([]*billing.Charge, len(ledger))
		for i := range ledger {
			charges[i] = &ledger[i]
		}

		plan, err := s.reconciler.Allocate(payment.Amount, charges, sub, payment.PaymentDate)
		if err != nil {
			return err
		}

		if err := repos.Payments().Save(ctx, payment); err != nil {
			return fmt.Errorf("failed to save payment: %w", err)
		}

		byID := make(map[uuid.UUID]*billing.Charge, len(charges))
		for _, c := range charges {
			byID[c.ID] = c
		}

		settled := make([]*billing.Charge, 0, len(plan.ChargesToPay))
		for _, chargeID := range plan.ChargesToPay {
			charge, ok := byID[chargeID]
			if !ok {
				return fmt.Errorf("allocation plan references unknown charge %s", chargeID)
			}
			if err := charge.MarkPaid(payment.ID, payment.PaymentDate); err != nil {
				return err
			}
			if err := repos.Charges().Save(ctx, charge); err != nil {
				return fmt.Errorf("failed to settle charge %s: %w", chargeID, err)
			}
			settled = append(settled, charge)
		}

		// Advance months are born settled by this payment. They never pass
		// through PENDING, so the balance stays untouched.
		advances := make([]*billing.Charge, 0, len(plan.AdvanceCharges))
		for _, adv := range plan.AdvanceCharges {
			period := adv.Period
			charge, err := billing.NewCharge(sub.ID, sub.ClientID, adv.Amount, period.Label(), billing.ChargeKindMonthly, &period)
			if err != nil {
				return err
			}
			charge.Advance = true
			if err := charge.MarkPaid(payment.ID, payment.PaymentDate); err != nil {
				return err
			}
			if err := repos.Charges().Save(ctx, charge); err != nil {
				return fmt.Errorf("failed to save advance charge for %s: %w", period, err)
			}
			advances = append(advances, charge)
		}

		if !plan.TotalAllocated.IsZero() {
			sub.AdjustBalance(plan.TotalAllocated.Neg())
			if err := repos.Subscriptions().SaveWithLock(ctx, sub); err != nil {
				return err
			}
		}

		record, err := audit.NewChangeRecord("Payment", payment.ID, audit.ActionCreate, req.ActorID,
			audit.FieldChange{Field: "amount", New: payment.Amount.String()},
			audit.FieldChange{Field: "method", New: string(payment.Method)},
			audit.FieldChange{Field: "settled_charges", New: fmt.Sprintf("%d", len(settled))},
			audit.FieldChange{Field: "advance_charges", New: fmt.Sprintf("%d", len(advances))})
		if err != nil {
			return err
		}
		if err := repos.Audit().Append(ctx, record); err != nil {
			return err
		}

		result = &ApplyPaymentResult{
			Payment:        payment,
			SettledCharges: settled,
			AdvanceCharges: advances,
			TotalAllocated: plan.TotalAllocated,
			Residual:       plan.Residual,
			Plan:           plan,
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttributes(span, telemetry.SpanAttrPaymentID, payment.ID.String())

	aggs := []shared.AggregateRoot{payment, sub}
	for _, c := range result.SettledCharges {
		aggs = append(aggs, c)
	}
	for _, c := range result.AdvanceCharges {
		aggs = append(aggs, c)
	}
	drainEvents(s.logger, aggs...)

	if !result.Residual.IsZero() {
		s.logger.Warn("payment left an unallocated residual",
			zap.String("payment_id", payment.ID.String()),
			zap.String("client_id", req.ClientID.String()),
			zap.String("residual", result.Residual.String()))
	}
	s.logger.Info("payment applied",
		zap.String("payment_id", payment.ID.String()),
		zap.String("client_id", req.ClientID.String()),
		zap.String("amount", payment.Amount.String()),
		zap.Int("settled_charges", len(result.SettledCharges)),
		zap.Int("advance_charges", len(result.AdvanceCharges)))

	return result, nil
}

// DeletePaymentRequest removes a recorded payment
type DeletePaymentRequest struct {
	PaymentID uuid.UUID
	ActorID   uuid.UUID
}

// DeletePaymentResult reports the restored ledger state
type DeletePaymentResult struct {
	RestoredCharges int             `json:"restored_charges"`
	DeletedAdvances int             `json:"deleted_advances"`
	BalanceRestored decimal.Decimal `json:"balance_restored"`
}

// DeletePayment undoes a payment exactly: charges it settled return to
// pending (raising the balance by their sum) and advance charges it created
// are removed outright, since they never existed before the payment.
func (s *PaymentService) DeletePayment(ctx context.Context, req DeletePaymentRequest) (*DeletePaymentResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "delete")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrPaymentID, req.PaymentID.String())

	var result *DeletePaymentResult
	var payment *billing.Payment
	var sub *billing.Subscription
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		payment, err = repos.Payments().FindByID(ctx, req.PaymentID)
		if err != nil {
			return err
		}

		linked, err := repos.Charges().FindByPayment(ctx, payment.ID)
		if err != nil {
			return fmt.Errorf("failed to load settled charges: %w", err)
		}

		restored := 0
		deleted := 0
		restoreTotal := decimal.Zero
		var subscriptionID uuid.UUID

		for i := range linked {
			charge := &linked[i]
			subscriptionID = charge.SubscriptionID
			if charge.Advance {
				if err := repos.Charges().Delete(ctx, charge.ID); err != nil {
					return fmt.Errorf("failed to delete advance charge %s: %w", charge.ID, err)
				}
				deleted++
				continue
			}
			if err := charge.ResetToPending(); err != nil {
				return err
			}
			if err := repos.Charges().Save(ctx, charge); err != nil {
				return fmt.Errorf("failed to restore charge %s: %w", charge.ID, err)
			}
			restoreTotal = restoreTotal.Add(charge.Amount)
			restored++
		}

		if !restoreTotal.IsZero() {
			sub, err = repos.Subscriptions().FindByID(ctx, subscriptionID)
			if err != nil {
				return err
			}
			sub.AdjustBalance(restoreTotal)
			if err := repos.Subscriptions().SaveWithLock(ctx, sub); err != nil {
				return err
			}
		}

		if err := repos.Payments().Delete(ctx, payment.ID); err != nil {
			return fmt.Errorf("failed to delete payment: %w", err)
		}
		payment.AddDomainEvent(billing.NewPaymentDeletedEvent(payment, restored, deleted))

		record, err := audit.NewChangeRecord("Payment", payment.ID, audit.ActionDelete, req.ActorID,
			audit.FieldChange{Field: "amount", Old: payment.Amount.String()},
			audit.FieldChange{Field: "restored_charges", New: fmt.Sprintf("%d", restored)},
			audit.FieldChange{Field: "deleted_advances", New: fmt.Sprintf("%d", deleted)})
		if err != nil {
			return err
		}
		if err := repos.Audit().Append(ctx, record); err != nil {
			return err
		}

		result = &DeletePaymentResult{
			RestoredCharges: restored,
			DeletedAdvances: deleted,
			BalanceRestored: restoreTotal,
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if sub != nil {
		drainEvents(s.logger, payment, sub)
	} else {
		drainEvents(s.logger, payment)
	}

	s.logger.Info("payment deleted",
		zap.String("payment_id", req.PaymentID.String()),
		zap.Int("restored_charges", result.RestoredCharges),
		zap.Int("deleted_advances", result.DeletedAdvances),
		zap.String("balance_restored", result.BalanceRestored.String()))

	return result, nil
}

// GetPayment loads a payment by ID
func (s *PaymentService) GetPayment(ctx context.Context, id uuid.UUID) (*billing.Payment, error) {
	return s.paymentRepo.FindByID(ctx, id)
}

// ListPayments lists a client's payments with filtering
func (s *PaymentService) ListPayments(ctx context.Context, clientID uuid.UUID, filter billing.PaymentFilter) ([]billing.Payment, error) {
	return s.paymentRepo.FindByClient(ctx, clientID, filter)
}

// ListSettledCharges lists the charges a payment settled
func (s *PaymentService) ListSettledCharges(ctx context.Context, paymentID uuid.UUID) ([]billing.Charge, error) {
	return s.chargeRepo.FindByPayment(ctx, paymentID)
}
