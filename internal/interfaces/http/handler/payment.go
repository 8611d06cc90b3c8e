package handler

import (
	"time"

	billingapp "github.com/ispcrm/backend/internal/application/billing"
	"github.com/ispcrm/backend/internal/domain/billing"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PaymentHandler handles payment API endpoints
type PaymentHandler struct {
	BaseHandler
	paymentService *billingapp.PaymentService
	ledgerService  *billingapp.LedgerService
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(paymentService *billingapp.PaymentService, ledgerService *billingapp.LedgerService) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		ledgerService:  ledgerService,
	}
}

// ApplyPaymentRequest records money received from a client
type ApplyPaymentRequest struct {
	Amount        float64 `json:"amount" binding:"required,gt=0"`
	PaymentDate   string  `json:"payment_date" binding:"omitempty"`
	Method        string  `json:"method" binding:"required,oneof=CASH TRANSFER CARD DEPOSIT"`
	BankReference string  `json:"bank_reference" binding:"max=100"`
	ReceiptNumber string  `json:"receipt_number" binding:"max=50"`
	Notes         string  `json:"notes" binding:"max=1000"`
}

// Apply records a payment against the subscription and settles the ledger:
// pending charges oldest-first in full, then whole advance months from any
// remainder.
func (h *PaymentHandler) Apply(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid subscription ID")
		return
	}

	var req ApplyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	paymentDate := time.Now()
	if req.PaymentDate != "" {
		paymentDate, err = time.Parse("2006-01-02", req.PaymentDate)
		if err != nil {
			h.BadRequest(c, "Payment date must be in YYYY-MM-DD format")
			return
		}
	}

	sub, err := h.ledgerService.GetSubscription(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	actorID, _ := getUserID(c)

	result, err := h.paymentService.ApplyPayment(c.Request.Context(), billingapp.ApplyPaymentRequest{
		ClientID:      sub.ClientID,
		Amount:        toDecimal(req.Amount),
		PaymentDate:   paymentDate,
		Method:        billing.PaymentMethod(req.Method),
		BankReference: req.BankReference,
		ReceiptNumber: req.ReceiptNumber,
		Notes:         req.Notes,
		ActorID:       actorID,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, result)
}

// Delete undoes a payment exactly: settled charges return to pending and
// advance charges it created are removed.
func (h *PaymentHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid payment ID")
		return
	}

	actorID, _ := getUserID(c)

	result, err := h.paymentService.DeletePayment(c.Request.Context(), billingapp.DeletePaymentRequest{
		PaymentID: id,
		ActorID:   actorID,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// GetByID returns a payment by its ID
func (h *PaymentHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid payment ID")
		return
	}

	payment, err := h.paymentService.GetPayment(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, payment)
}

// ListPaymentsQuery represents payment list filtering query parameters
type ListPaymentsQuery struct {
	Method string `form:"method" binding:"omitempty,oneof=CASH TRANSFER CARD DEPOSIT"`
	From   string `form:"from" binding:"omitempty"`
	To     string `form:"to" binding:"omitempty"`
}

// List returns the payments recorded against a subscription's client,
// optionally filtered by method and payment date range.
func (h *PaymentHandler) List(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid subscription ID")
		return
	}

	var query ListPaymentsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	filter := billing.PaymentFilter{}
	if query.Method != "" {
		method := billing.PaymentMethod(query.Method)
		filter.Method = &method
	}
	if query.From != "" {
		from, err := time.Parse("2006-01-02", query.From)
		if err != nil {
			h.BadRequest(c, "From date must be in YYYY-MM-DD format")
			return
		}
		filter.FromDate = &from
	}
	if query.To != "" {
		to, err := time.Parse("2006-01-02", query.To)
		if err != nil {
			h.BadRequest(c, "To date must be in YYYY-MM-DD format")
			return
		}
		filter.ToDate = &to
	}

	sub, err := h.ledgerService.GetSubscription(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	payments, err := h.paymentService.ListPayments(c.Request.Context(), sub.ClientID, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, payments)
}

// SettledCharges returns the charges a payment settled
func (h *PaymentHandler) SettledCharges(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid payment ID")
		return
	}

	charges, err := h.paymentService.ListSettledCharges(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, charges)
}
