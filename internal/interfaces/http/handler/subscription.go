package handler

import (
	"time"

	billingapp "github.com/ispcrm/backend/internal/application/billing"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SubscriptionHandler handles billing subscription API endpoints
type SubscriptionHandler struct {
	BaseHandler
	ledgerService *billingapp.LedgerService
}

// NewSubscriptionHandler creates a new SubscriptionHandler
func NewSubscriptionHandler(ledgerService *billingapp.LedgerService) *SubscriptionHandler {
	return &SubscriptionHandler{
		ledgerService: ledgerService,
	}
}

// CreateSubscriptionRequest represents a request to open a billing profile
type CreateSubscriptionRequest struct {
	ClientID          string  `json:"client_id" binding:"required,uuid"`
	MonthlyFee        float64 `json:"monthly_fee" binding:"required,gt=0"`
	BillingDay        int     `json:"billing_day" binding:"required,min=1,max=31"`
	InstallationDate  string  `json:"installation_date" binding:"required"`
	InstallationCost  float64 `json:"installation_cost" binding:"gte=0"`
	AdditionalCharges float64 `json:"additional_charges" binding:"gte=0"`
	AdditionalNotes   string  `json:"additional_notes" binding:"max=500"`
}

// Create opens a billing profile for a client and writes the initial charges
// (prorated first cycle, installation, additional one-time charges).
func (h *SubscriptionHandler) Create(c *gin.Context) {
	var req CreateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	clientID, err := uuid.Parse(req.ClientID)
	if err != nil {
		h.BadRequest(c, "Invalid client ID")
		return
	}

	installDate, err := time.Parse("2006-01-02", req.InstallationDate)
	if err != nil {
		h.BadRequest(c, "Installation date must be in YYYY-MM-DD format")
		return
	}

	actorID, _ := getUserID(c)

	result, err := h.ledgerService.CreateSubscription(c.Request.Context(), billingapp.CreateSubscriptionRequest{
		ClientID:          clientID,
		MonthlyFee:        toDecimal(req.MonthlyFee),
		BillingDay:        req.BillingDay,
		InstallationDate:  installDate,
		InstallationCost:  toDecimal(req.InstallationCost),
		AdditionalCharges: toDecimal(req.AdditionalCharges),
		AdditionalNotes:   req.AdditionalNotes,
		ActorID:           actorID,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, result)
}

// GetByID returns a subscription by its ID
func (h *SubscriptionHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid subscription ID")
		return
	}

	sub, err := h.ledgerService.GetSubscription(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, sub)
}

// GetByClient returns the subscription belonging to a client
func (h *SubscriptionHandler) GetByClient(c *gin.Context) {
	clientID, err := uuid.Parse(c.Param("client_id"))
	if err != nil {
		h.BadRequest(c, "Invalid client ID")
		return
	}

	sub, err := h.ledgerService.GetSubscriptionByClient(c.Request.Context(), clientID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, sub)
}

// PreviewProration computes the first-cycle proration for a prospective
// subscription without writing anything. Query params: install_date
// (YYYY-MM-DD), billing_day, monthly_fee.
func (h *SubscriptionHandler) PreviewProration(c *gin.Context) {
	var query struct {
		InstallDate string  `form:"install_date" binding:"required"`
		BillingDay  int     `form:"billing_day" binding:"required,min=1,max=31"`
		MonthlyFee  float64 `form:"monthly_fee" binding:"required,gt=0"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	installDate, err := time.Parse("2006-01-02", query.InstallDate)
	if err != nil {
		h.BadRequest(c, "Install date must be in YYYY-MM-DD format")
		return
	}

	result, err := h.ledgerService.PreviewProration(installDate, query.BillingDay, toDecimal(query.MonthlyFee))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// RecomputeBalance rewrites the cached balance from the authoritative sum of
// pending charges and reports any drift that was repaired.
func (h *SubscriptionHandler) RecomputeBalance(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid subscription ID")
		return
	}

	sub, err := h.ledgerService.GetSubscription(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	result, err := h.ledgerService.RecomputeBalance(c.Request.Context(), sub.ClientID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}
