package ledger

import (
	"time"

	"github.com/astracore/gl-service/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	EventTypeLedgerTransactionPosted = "LedgerTransactionPosted"
	AggregateTypeLedgerTransaction   = "LedgerTransaction"
)

// PostedEntry summarizes one entry of a posted transaction
type PostedEntry struct {
	AccountCode string          `json:"account_code"`
	Side        Side            `json:"side"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Description string          `json:"description,omitempty"`
}

// LedgerTransactionPostedEvent is raised once a transaction is committed to the ledger
type LedgerTransactionPostedEvent struct {
	shared.BaseDomainEvent
	TransactionID   uuid.UUID       `json:"transaction_id"`
	SourceID        string          `json:"source_id"`
	TransactionType TransactionType `json:"transaction_type"`
	Description     string          `json:"description"`
	TransactionDate time.Time       `json:"transaction_date"`
	Entries         []PostedEntry   `json:"entries"`
	Totals          []CurrencyTotal `json:"totals"`
}

// EventType returns the event type name
func (e *LedgerTransactionPostedEvent) EventType() string {
	return EventTypeLedgerTransactionPosted
}

// NewLedgerTransactionPostedEvent creates the posted event for a built transaction
func NewLedgerTransactionPostedEvent(tx *LedgerTransaction, sourceID string) *LedgerTransactionPostedEvent {
	entries := make([]PostedEntry, 0, len(tx.Entries))
	for _, e := range tx.Entries {
		entries = append(entries, PostedEntry{
			AccountCode: e.AccountCode,
			Side:        e.Side,
			Amount:      e.Amount.Amount(),
			Currency:    e.Amount.Currency().String(),
			Description: e.Description,
		})
	}
	return &LedgerTransactionPostedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeLedgerTransactionPosted, AggregateTypeLedgerTransaction, tx.ID.String(), tx.TenantID),
		TransactionID:   tx.ID,
		SourceID:        sourceID,
		TransactionType: tx.TransactionType,
		Description:     tx.Description,
		TransactionDate: tx.TransactionDate,
		Entries:         entries,
		Totals:          tx.Totals(),
	}
}

// DebitTotal returns the debit sum for a currency
func (e *LedgerTransactionPostedEvent) DebitTotal(currency string) (decimal.Decimal, bool) {
	for _, t := range e.Totals {
		if t.Currency.String() == currency {
			return t.Debit, true
		}
	}
	return decimal.Zero, false
}
