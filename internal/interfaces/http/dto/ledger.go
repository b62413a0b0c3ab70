package dto

import (
	"time"

	"github.com/astracore/gl-service/internal/domain/ledger"
	"github.com/astracore/gl-service/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// AccountCodeRequest binds the account code path parameter
type AccountCodeRequest struct {
	Code string `uri:"code" binding:"required,max=32"`
}

// TransactionIDRequest binds the transaction id path parameter
type TransactionIDRequest struct {
	ID string `uri:"id" binding:"required,uuid"`
}

// AccountListQuery binds GET /accounts query parameters
type AccountListQuery struct {
	Type   string `form:"type" binding:"omitempty,max=32"`
	Limit  int    `form:"limit" binding:"omitempty,min=1,max=500"`
	Offset int    `form:"offset" binding:"omitempty,min=0"`
}

// TransactionLookupQuery binds GET /transactions query parameters
type TransactionLookupQuery struct {
	InvoiceID string `form:"invoice_id" binding:"required,max=64"`
}

// AccountResponse is the API view of a GL account
type AccountResponse struct {
	ID         string `json:"id"`
	Code       string `json:"code"`
	Name       string `json:"name"`
	Type       string `json:"type"`
	RootType   string `json:"root_type"`
	NormalSide string `json:"normal_side"`
	ParentID   string `json:"parent_id,omitempty"`
}

// NewAccountResponse converts a domain account
func NewAccountResponse(a *ledger.GlAccount) AccountResponse {
	resp := AccountResponse{
		ID:         a.ID.String(),
		Code:       a.Code,
		Name:       a.Name,
		Type:       a.TypeID.String(),
		RootType:   a.TypeID.Root().String(),
		NormalSide: a.NormalSide().Label(),
	}
	if a.ParentID != nil {
		resp.ParentID = a.ParentID.String()
	}
	return resp
}

// EntryResponse is one line of a transaction
type EntryResponse struct {
	Sequence    int             `json:"sequence"`
	AccountCode string          `json:"account_code"`
	Side        string          `json:"side"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Description string          `json:"description,omitempty"`
}

// TotalResponse sums one currency of a transaction
type TotalResponse struct {
	Currency string          `json:"currency"`
	Debit    decimal.Decimal `json:"debit"`
	Credit   decimal.Decimal `json:"credit"`
	Balanced bool            `json:"balanced"`
}

// TransactionResponse is the API view of a posted ledger transaction
type TransactionResponse struct {
	ID              string          `json:"id"`
	Type            string          `json:"type"`
	Description     string          `json:"description"`
	TransactionDate time.Time       `json:"transaction_date"`
	EntryDate       time.Time       `json:"entry_date"`
	Posted          bool            `json:"posted"`
	Entries         []EntryResponse `json:"entries"`
	Totals          []TotalResponse `json:"totals"`
}

// NewTransactionResponse converts a domain transaction
func NewTransactionResponse(tx *ledger.LedgerTransaction) TransactionResponse {
	resp := TransactionResponse{
		ID:              tx.ID.String(),
		Type:            tx.TransactionType.String(),
		Description:     tx.Description,
		TransactionDate: tx.TransactionDate,
		EntryDate:       tx.EntryDate,
		Posted:          tx.Posted,
		Entries:         make([]EntryResponse, 0, len(tx.Entries)),
	}
	for _, e := range tx.Entries {
		resp.Entries = append(resp.Entries, EntryResponse{
			Sequence:    e.Sequence,
			AccountCode: e.AccountCode,
			Side:        e.Side.Label(),
			Amount:      e.Amount.Amount(),
			Currency:    e.Amount.Currency().String(),
			Description: e.Description,
		})
	}
	for _, t := range tx.Totals() {
		resp.Totals = append(resp.Totals, TotalResponse{
			Currency: t.Currency.String(),
			Debit:    t.Debit,
			Credit:   t.Credit,
			Balanced: t.IsBalanced(),
		})
	}
	return resp
}

// OutboxPageQuery binds offset pagination for outbox listings
type OutboxPageQuery struct {
	Page     int `form:"page" binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// OutboxEntryResponse is the API view of an outbox row
type OutboxEntryResponse struct {
	ID          string     `json:"id"`
	EventID     string     `json:"event_id"`
	EventType   string     `json:"event_type"`
	AggregateID string     `json:"aggregate_id"`
	Status      string     `json:"status"`
	RetryCount  int        `json:"retry_count"`
	LastError   string     `json:"last_error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	NextRetryAt *time.Time `json:"next_retry_at,omitempty"`
}

// NewOutboxEntryResponse converts an outbox entry
func NewOutboxEntryResponse(e *shared.OutboxEntry) OutboxEntryResponse {
	return OutboxEntryResponse{
		ID:          e.ID.String(),
		EventID:     e.EventID.String(),
		EventType:   e.EventType,
		AggregateID: e.AggregateID,
		Status:      string(e.Status),
		RetryCount:  e.RetryCount,
		LastError:   e.LastError,
		CreatedAt:   e.CreatedAt,
		NextRetryAt: e.NextRetryAt,
	}
}
