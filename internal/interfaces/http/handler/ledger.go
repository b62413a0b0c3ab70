package handler

import (
	"github.com/astracore/gl-service/internal/domain/ledger"
	"github.com/astracore/gl-service/internal/interfaces/http/dto"
	"github.com/astracore/gl-service/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const defaultAccountPageSize = 100

// LedgerHandler serves read-only lookups of accounts and posted transactions
type LedgerHandler struct {
	BaseHandler
	accounts     ledger.AccountRepository
	transactions ledger.TransactionRepository
}

// NewLedgerHandler creates a LedgerHandler
func NewLedgerHandler(accounts ledger.AccountRepository, transactions ledger.TransactionRepository) *LedgerHandler {
	return &LedgerHandler{accounts: accounts, transactions: transactions}
}

// GetAccount handles GET /accounts/:code
func (h *LedgerHandler) GetAccount(c *gin.Context) {
	var req dto.AccountCodeRequest
	if err := c.ShouldBindUri(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	account, err := h.accounts.FindByCode(c.Request.Context(), req.Code)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.NewAccountResponse(account))
}

// ListAccounts handles GET /accounts?type=&limit=&offset=
func (h *LedgerHandler) ListAccounts(c *gin.Context) {
	var query dto.AccountListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	if query.Limit == 0 {
		query.Limit = defaultAccountPageSize
	}

	filter := ledger.AccountFilter{Limit: query.Limit, Offset: query.Offset}
	if query.Type != "" {
		typeID := ledger.AccountTypeID(query.Type)
		if !typeID.IsValid() {
			h.BadRequest(c, "unknown account type: "+query.Type)
			return
		}
		filter.TypeID = &typeID
	}

	accounts, err := h.accounts.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	items := make([]dto.AccountResponse, 0, len(accounts))
	for i := range accounts {
		items = append(items, dto.NewAccountResponse(&accounts[i]))
	}
	h.SuccessWithMeta(c, items, len(items), query.Limit, query.Offset)
}

// GetTransaction handles GET /transactions/:id
func (h *LedgerHandler) GetTransaction(c *gin.Context) {
	var req dto.TransactionIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	tx, err := h.transactions.FindByID(c.Request.Context(), uuid.MustParse(req.ID))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.NewTransactionResponse(tx))
}

// FindTransaction handles GET /transactions?invoice_id=
func (h *LedgerHandler) FindTransaction(c *gin.Context) {
	var query dto.TransactionLookupQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	tx, err := h.transactions.FindByDescription(c.Request.Context(),
		ledger.TransactionTypeSalesInvoice, ledger.InvoiceDescription(query.InvoiceID))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.NewTransactionResponse(tx))
}
