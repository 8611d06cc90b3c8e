package handler

import (
	catalogapp "github.com/ispcrm/backend/internal/application/catalog"
	"github.com/ispcrm/backend/internal/domain/catalog"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ChargeTemplateHandler handles charge template catalog API endpoints
type ChargeTemplateHandler struct {
	BaseHandler
	templateService *catalogapp.ChargeTemplateService
}

// NewChargeTemplateHandler creates a new ChargeTemplateHandler
func NewChargeTemplateHandler(templateService *catalogapp.ChargeTemplateService) *ChargeTemplateHandler {
	return &ChargeTemplateHandler{
		templateService: templateService,
	}
}

// CreateTemplateRequest represents a request to add a catalog entry
type CreateTemplateRequest struct {
	Name          string  `json:"name" binding:"required,min=1,max=100"`
	Description   string  `json:"description" binding:"max=500"`
	DefaultAmount float64 `json:"default_amount" binding:"required,gt=0"`
}

// Create adds a template to the catalog. Names are unique.
func (h *ChargeTemplateHandler) Create(c *gin.Context) {
	var req CreateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	tmpl, err := h.templateService.CreateTemplate(c.Request.Context(), catalogapp.CreateTemplateRequest{
		Name:          req.Name,
		Description:   req.Description,
		DefaultAmount: toDecimal(req.DefaultAmount),
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, tmpl)
}

// GetByID returns a template by its ID
func (h *ChargeTemplateHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid template ID")
		return
	}

	tmpl, err := h.templateService.GetTemplate(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, tmpl)
}

// List returns catalog templates, optionally filtered to active ones only
func (h *ChargeTemplateHandler) List(c *gin.Context) {
	var query struct {
		Active *bool `form:"active"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	templates, err := h.templateService.ListTemplates(c.Request.Context(), catalog.ChargeTemplateFilter{
		Active: query.Active,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, templates)
}

// UpdateTemplateRequest represents a request to edit a catalog entry
type UpdateTemplateRequest struct {
	Name          string  `json:"name" binding:"required,min=1,max=100"`
	Description   string  `json:"description" binding:"max=500"`
	DefaultAmount float64 `json:"default_amount" binding:"required,gt=0"`
}

// Update edits a template. Charges already created from it keep their
// copied values.
func (h *ChargeTemplateHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid template ID")
		return
	}

	var req UpdateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	tmpl, err := h.templateService.UpdateTemplate(c.Request.Context(), catalogapp.UpdateTemplateRequest{
		TemplateID:    id,
		Name:          req.Name,
		Description:   req.Description,
		DefaultAmount: toDecimal(req.DefaultAmount),
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, tmpl)
}

// Activate makes a template available for new charges
func (h *ChargeTemplateHandler) Activate(c *gin.Context) {
	h.setActive(c, true)
}

// Deactivate hides a template from new charges without deleting it
func (h *ChargeTemplateHandler) Deactivate(c *gin.Context) {
	h.setActive(c, false)
}

func (h *ChargeTemplateHandler) setActive(c *gin.Context, active bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid template ID")
		return
	}

	tmpl, err := h.templateService.SetTemplateActive(c.Request.Context(), id, active)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, tmpl)
}

// Delete removes a template from the catalog
func (h *ChargeTemplateHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid template ID")
		return
	}

	if err := h.templateService.DeleteTemplate(c.Request.Context(), id); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}
