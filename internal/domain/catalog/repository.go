package catalog

import (
	"context"

	"github.com/ispcrm/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// ChargeTemplateFilter defines filtering options for template queries
type ChargeTemplateFilter struct {
	shared.Filter
	Active *bool
}

// ChargeTemplateRepository defines the interface for template persistence
type ChargeTemplateRepository interface {
	// FindByID finds a template by ID
	FindByID(ctx context.Context, id uuid.UUID) (*ChargeTemplate, error)

	// FindAll finds templates with filtering
	FindAll(ctx context.Context, filter ChargeTemplateFilter) ([]ChargeTemplate, error)

	// FindActive finds every active template
	FindActive(ctx context.Context) ([]ChargeTemplate, error)

	// Save creates or updates a template
	Save(ctx context.Context, template *ChargeTemplate) error

	// Delete removes a template
	Delete(ctx context.Context, id uuid.UUID) error

	// Count counts templates matching the filter
	Count(ctx context.Context, filter ChargeTemplateFilter) (int64, error)

	// ExistsByName checks whether a template with the given name exists
	ExistsByName(ctx context.Context, name string) (bool, error)
}
