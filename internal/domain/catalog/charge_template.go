package catalog

import (
	"time"

	"github.com/ispcrm/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ChargeTemplate is a catalog entry for a recurring kind of ad-hoc charge
// (reconnection fee, router replacement, late fee). It supplies a default
// amount and description; the ledger copies the values at charge time, so
// later template edits never rewrite history.
type ChargeTemplate struct {
	shared.BaseAggregateRoot
	Name          string          `json:"name"`
	Description   string          `json:"description,omitempty"`
	DefaultAmount decimal.Decimal `json:"default_amount"`
	Active        bool            `json:"active"`
}

// NewChargeTemplate creates a template after validating name and amount
func NewChargeTemplate(name, description string, defaultAmount decimal.Decimal) (*ChargeTemplate, error) {
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Template name cannot be empty")
	}
	if defaultAmount.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Template default amount must be positive")
	}

	return &ChargeTemplate{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              name,
		Description:       description,
		DefaultAmount:     defaultAmount.Round(2),
		Active:            true,
	}, nil
}

// Update changes the template's name, description and default amount
func (t *ChargeTemplate) Update(name, description string, defaultAmount decimal.Decimal) error {
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Template name cannot be empty")
	}
	if defaultAmount.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_AMOUNT", "Template default amount must be positive")
	}
	t.Name = name
	t.Description = description
	t.DefaultAmount = defaultAmount.Round(2)
	t.UpdatedAt = time.Now()
	t.IncrementVersion()
	return nil
}

// Deactivate hides the template from new charge creation
func (t *ChargeTemplate) Deactivate() {
	if !t.Active {
		return
	}
	t.Active = false
	t.UpdatedAt = time.Now()
	t.IncrementVersion()
}

// Activate makes the template available again
func (t *ChargeTemplate) Activate() {
	if t.Active {
		return
	}
	t.Active = true
	t.UpdatedAt = time.Now()
	t.IncrementVersion()
}
