package ledger

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/astracore/gl-service/internal/domain/shared"
	"github.com/shopspring/decimal"
)

const (
	// EventTypeInvoiceIssued is the event type of an inbound invoice fact
	EventTypeInvoiceIssued = "InvoiceIssued"
	// AggregateTypeInvoice names the upstream aggregate the fact belongs to
	AggregateTypeInvoice = "Invoice"

	// FactKindInvoiceIssued selects the posting rule for issued invoices
	FactKindInvoiceIssued = "invoice.issued"

	// MaxInvoiceIDLength keeps "Revenue for invoice <id>", the longest text
	// derived from the id, within the 255 character description columns
	MaxInvoiceIDLength = 235
)

// Fact is an external business fact the ledger may post
type Fact interface {
	// Kind selects the posting rule
	Kind() string
	// SourceID is the upstream identifier, e.g. the invoice id
	SourceID() string
	// Organization is the owning tenant
	Organization() string
	TransactionType() TransactionType
	// PostingDescription is unique per source and doubles as the dedup key
	PostingDescription() string
	// BusinessDate is the date the fact took effect, nil when unknown
	BusinessDate() *time.Time
}

// InvoiceIssued is the fact emitted by billing once an invoice is durably issued.
// TotalAmount is nullable upstream; a null total is not postable.
type InvoiceIssued struct {
	TenantID    string
	InvoiceID   string
	CustomerID  string
	TotalAmount decimal.NullDecimal
	Currency    string
	IssueDate   *time.Time
	DueDate     *time.Time
	OccurredOn  time.Time
}

// Validate checks the fields needed to identify the fact
func (f InvoiceIssued) Validate() error {
	if strings.TrimSpace(f.InvoiceID) == "" {
		return shared.ErrInvalidInput.WithMessage("invoice id is required")
	}
	if n := utf8.RuneCountInString(f.InvoiceID); n > MaxInvoiceIDLength {
		return shared.ErrInvalidInput.WithMessage(fmt.Sprintf("invoice id is %d characters, at most %d allowed", n, MaxInvoiceIDLength))
	}
	return nil
}

func (f InvoiceIssued) Kind() string {
	return FactKindInvoiceIssued
}

func (f InvoiceIssued) SourceID() string {
	return f.InvoiceID
}

func (f InvoiceIssued) Organization() string {
	return f.TenantID
}

func (f InvoiceIssued) TransactionType() TransactionType {
	return TransactionTypeSalesInvoice
}

// PostingDescription returns "Invoice <id>"
func (f InvoiceIssued) PostingDescription() string {
	return InvoiceDescription(f.InvoiceID)
}

// InvoiceDescription is the description, and the duplicate detection key, of
// the sales invoice transaction posted for invoiceID
func InvoiceDescription(invoiceID string) string {
	return "Invoice " + invoiceID
}

func (f InvoiceIssued) BusinessDate() *time.Time {
	return f.IssueDate
}

// IdempotencyKey is the key used by the processed-event cache
func (f InvoiceIssued) IdempotencyKey() string {
	return "invoice-issued:" + f.InvoiceID
}

// InvoiceIssuedEvent carries an inbound invoice fact through event handlers
type InvoiceIssuedEvent struct {
	shared.BaseDomainEvent
	Fact InvoiceIssued `json:"fact"`
}

// EventType returns the event type name
func (e *InvoiceIssuedEvent) EventType() string {
	return EventTypeInvoiceIssued
}

// IdempotencyKey deduplicates by invoice id, not by delivery
func (e *InvoiceIssuedEvent) IdempotencyKey() string {
	return e.Fact.IdempotencyKey()
}

// NewInvoiceIssuedEvent wraps a decoded fact
func NewInvoiceIssuedEvent(fact InvoiceIssued) *InvoiceIssuedEvent {
	occurred := fact.OccurredOn
	if occurred.IsZero() {
		occurred = time.Now()
	}
	return &InvoiceIssuedEvent{
		BaseDomainEvent: shared.NewBaseDomainEventAt(EventTypeInvoiceIssued, AggregateTypeInvoice, fact.InvoiceID, fact.TenantID, occurred),
		Fact:            fact,
	}
}

var _ shared.KeyedEvent = (*InvoiceIssuedEvent)(nil)
