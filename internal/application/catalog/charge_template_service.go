package catalog

import (
	"context"

	"github.com/ispcrm/backend/internal/domain/catalog"
	"github.com/ispcrm/backend/internal/domain/shared"
	"github.com/ispcrm/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ChargeTemplateService manages the catalog of reusable ad-hoc charges
type ChargeTemplateService struct {
	templateRepo catalog.ChargeTemplateRepository
	logger       *zap.Logger
}

// NewChargeTemplateService creates a new ChargeTemplateService
func NewChargeTemplateService(templateRepo catalog.ChargeTemplateRepository, logger *zap.Logger) *ChargeTemplateService {
	return &ChargeTemplateService{
		templateRepo: templateRepo,
		logger:       logger,
	}
}

// CreateTemplateRequest creates a new catalog entry
type CreateTemplateRequest struct {
	Name          string
	Description   string
	DefaultAmount decimal.Decimal
}

// CreateTemplate adds a template to the catalog. Names are unique.
func (s *ChargeTemplateService) CreateTemplate(ctx context.Context, req CreateTemplateRequest) (*catalog.ChargeTemplate, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "charge_template", "create")
	defer span.End()

	exists, err := s.templateRepo.ExistsByName(ctx, req.Name)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "A charge template with this name already exists")
	}

	tmpl, err := catalog.NewChargeTemplate(req.Name, req.Description, req.DefaultAmount)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := s.templateRepo.Save(ctx, tmpl); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("charge template created",
		zap.String("template_id", tmpl.ID.String()),
		zap.String("name", tmpl.Name))
	return tmpl, nil
}

// UpdateTemplateRequest changes an existing catalog entry
type UpdateTemplateRequest struct {
	TemplateID    uuid.UUID
	Name          string
	Description   string
	DefaultAmount decimal.Decimal
}

// UpdateTemplate edits a template. Existing charges created from it keep
// their copied values.
func (s *ChargeTemplateService) UpdateTemplate(ctx context.Context, req UpdateTemplateRequest) (*catalog.ChargeTemplate, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "charge_template", "update")
	defer span.End()

	tmpl, err := s.templateRepo.FindByID(ctx, req.TemplateID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if req.Name != tmpl.Name {
		exists, err := s.templateRepo.ExistsByName(ctx, req.Name)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		if exists {
			return nil, shared.NewDomainError("ALREADY_EXISTS", "A charge template with this name already exists")
		}
	}

	if err := tmpl.Update(req.Name, req.Description, req.DefaultAmount); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := s.templateRepo.Save(ctx, tmpl); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return tmpl, nil
}

// SetTemplateActive toggles a template's availability for new charges
func (s *ChargeTemplateService) SetTemplateActive(ctx context.Context, templateID uuid.UUID, active bool) (*catalog.ChargeTemplate, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "charge_template", "set_active")
	defer span.End()

	tmpl, err := s.templateRepo.FindByID(ctx, templateID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if active {
		tmpl.Activate()
	} else {
		tmpl.Deactivate()
	}
	if err := s.templateRepo.Save(ctx, tmpl); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return tmpl, nil
}

// GetTemplate loads a template by ID
func (s *ChargeTemplateService) GetTemplate(ctx context.Context, id uuid.UUID) (*catalog.ChargeTemplate, error) {
	return s.templateRepo.FindByID(ctx, id)
}

// ListTemplates lists templates with filtering
func (s *ChargeTemplateService) ListTemplates(ctx context.Context, filter catalog.ChargeTemplateFilter) ([]catalog.ChargeTemplate, error) {
	return s.templateRepo.FindAll(ctx, filter)
}

// ListActiveTemplates lists the templates offered when adding a charge
func (s *ChargeTemplateService) ListActiveTemplates(ctx context.Context) ([]catalog.ChargeTemplate, error) {
	return s.templateRepo.FindActive(ctx)
}

// DeleteTemplate removes a template from the catalog
func (s *ChargeTemplateService) DeleteTemplate(ctx context.Context, id uuid.UUID) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "charge_template", "delete")
	defer span.End()

	if err := s.templateRepo.Delete(ctx, id); err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	return nil
}
