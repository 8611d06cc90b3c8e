package handler

import (
	billingapp "github.com/ispcrm/backend/internal/application/billing"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AccountHandler handles derived account-state API endpoints
type AccountHandler struct {
	BaseHandler
	accountService *billingapp.AccountService
	ledgerService  *billingapp.LedgerService
}

// NewAccountHandler creates a new AccountHandler
func NewAccountHandler(accountService *billingapp.AccountService, ledgerService *billingapp.LedgerService) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
		ledgerService:  ledgerService,
	}
}

// GetState derives the client's current standing (classification, debt,
// months owed, next due date) from the subscription's full charge history.
func (h *AccountHandler) GetState(c *gin.Context) {
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

	state, err := h.accountService.GetAccountState(c.Request.Context(), sub.ClientID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, state)
}

// GetOverview returns the subscription, derived state and full ledger in one
// call, for the account detail screen.
func (h *AccountHandler) GetOverview(c *gin.Context) {
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

	overview, err := h.accountService.GetAccountOverview(c.Request.Context(), sub.ClientID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, overview)
}

// ListDebtors returns every active subscription currently in debt
func (h *AccountHandler) ListDebtors(c *gin.Context) {
	debtors, err := h.accountService.ListDebtors(c.Request.Context())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, debtors)
}
