package handler

import (
	billingapp "github.com/ispcrm/backend/internal/application/billing"
	"github.com/ispcrm/backend/internal/domain/billing"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ChargeHandler handles charge ledger API endpoints
type ChargeHandler struct {
	BaseHandler
	ledgerService *billingapp.LedgerService
}

// NewChargeHandler creates a new ChargeHandler
func NewChargeHandler(ledgerService *billingapp.LedgerService) *ChargeHandler {
	return &ChargeHandler{
		ledgerService: ledgerService,
	}
}

// GeneratePeriodRequest identifies the billing month for charge generation
type GeneratePeriodRequest struct {
	Month int `json:"month" binding:"required,min=1,max=12"`
	Year  int `json:"year" binding:"required,min=2000,max=2200"`
}

// GenerateBatch creates the monthly charge for every active subscription.
// Each client is an independent unit of work: per-client failures are
// reported in the outcome list without blocking the rest of the batch.
func (h *ChargeHandler) GenerateBatch(c *gin.Context) {
	var req GeneratePeriodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	period, err := billing.NewBillingPeriod(req.Month, req.Year)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	result, err := h.ledgerService.GenerateMonthlyCharges(c.Request.Context(), period)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// Generate creates the monthly charge for a single subscription and period.
// Idempotent: repeating the request reports created=false.
func (h *ChargeHandler) Generate(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid subscription ID")
		return
	}

	var req GeneratePeriodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	period, err := billing.NewBillingPeriod(req.Month, req.Year)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	sub, err := h.ledgerService.GetSubscription(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	result, err := h.ledgerService.GenerateMonthlyCharge(c.Request.Context(), sub.ClientID, period)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// AddAdHocChargeRequest represents a one-time charge outside the monthly cycle
type AddAdHocChargeRequest struct {
	Amount      float64 `json:"amount" binding:"gte=0"`
	Description string  `json:"description" binding:"max=500"`
	TemplateID  *string `json:"template_id" binding:"omitempty,uuid"`
}

// AddAdHoc writes a pending ad-hoc charge against the subscription. A catalog
// template supplies defaults for whichever of amount/description the request
// leaves empty.
func (h *ChargeHandler) AddAdHoc(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid subscription ID")
		return
	}

	var req AddAdHocChargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	sub, err := h.ledgerService.GetSubscription(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	actorID, _ := getUserID(c)

	appReq := billingapp.AddAdHocChargeRequest{
		ClientID:    sub.ClientID,
		Amount:      toDecimal(req.Amount),
		Description: req.Description,
		ActorID:     actorID,
	}
	if req.TemplateID != nil {
		templateID, err := uuid.Parse(*req.TemplateID)
		if err != nil {
			h.BadRequest(c, "Invalid template ID")
			return
		}
		appReq.TemplateID = &templateID
	}

	charge, err := h.ledgerService.AddAdHocCharge(c.Request.Context(), appReq)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, charge)
}

// UpdateChargeRequest changes a pending charge's amount and/or description
type UpdateChargeRequest struct {
	Amount      float64 `json:"amount" binding:"required,gt=0"`
	Description string  `json:"description" binding:"max=500"`
}

// Update edits a pending charge, adjusting the balance by the amount delta.
// Paid charges are rejected: delete their payment first.
func (h *ChargeHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid charge ID")
		return
	}

	var req UpdateChargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	actorID, _ := getUserID(c)

	charge, err := h.ledgerService.EditCharge(c.Request.Context(), billingapp.EditChargeRequest{
		ChargeID:       id,
		NewAmount:      toDecimal(req.Amount),
		NewDescription: req.Description,
		ActorID:        actorID,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, charge)
}

// Delete removes a charge from the ledger. Pending charges lower the balance;
// paid charges are rejected while their payment exists.
func (h *ChargeHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid charge ID")
		return
	}

	actorID, _ := getUserID(c)

	if err := h.ledgerService.DeleteCharge(c.Request.Context(), billingapp.DeleteChargeRequest{
		ChargeID: id,
		ActorID:  actorID,
	}); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}

// ListChargesQuery represents charge list filtering query parameters
type ListChargesQuery struct {
	Status string `form:"status" binding:"omitempty,oneof=PENDING PAID"`
	Kind   string `form:"kind" binding:"omitempty,oneof=MONTHLY PRORATED INSTALLATION ADHOC"`
}

// List returns a subscription's charges in ledger order, optionally filtered
// by status and kind.
func (h *ChargeHandler) List(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid subscription ID")
		return
	}

	var query ListChargesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	filter := billing.ChargeFilter{}
	if query.Status != "" {
		status := billing.ChargeStatus(query.Status)
		filter.Status = &status
	}
	if query.Kind != "" {
		kind := billing.ChargeKind(query.Kind)
		filter.Kind = &kind
	}

	charges, err := h.ledgerService.ListCharges(c.Request.Context(), id, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, charges)
}
