package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/astracore/gl-service/internal/domain/shared"
	"github.com/google/uuid"
)

// AccountResolver maps an account code to a persisted account, creating it on first use
type AccountResolver interface {
	Resolve(ctx context.Context, code, name string, typeID AccountTypeID) (*GlAccount, error)
}

// TransactionBuilder assembles posted transactions from entry specs
type TransactionBuilder struct {
	resolver AccountResolver
	now      func() time.Time
}

// NewTransactionBuilder creates a builder resolving accounts through resolver
func NewTransactionBuilder(resolver AccountResolver) *TransactionBuilder {
	return &TransactionBuilder{resolver: resolver, now: time.Now}
}

// WithClock overrides the clock used for the entry date
func (b *TransactionBuilder) WithClock(now func() time.Time) *TransactionBuilder {
	b.now = now
	return b
}

// Build resolves accounts, creates the entries and validates the balance.
// The returned events describe the posting; nothing is buffered on the aggregate.
func (b *TransactionBuilder) Build(ctx context.Context, fact Fact, specs []EntrySpec) (*LedgerTransaction, []shared.DomainEvent, error) {
	now := b.now().UTC()
	tx := &LedgerTransaction{
		ID:              uuid.New(),
		TenantID:        fact.Organization(),
		TransactionType: fact.TransactionType(),
		Description:     fact.PostingDescription(),
		TransactionDate: transactionDate(fact.BusinessDate(), now),
		EntryDate:       now,
		Posted:          true,
		Entries:         make([]TransactionEntry, 0, len(specs)),
		CreatedAt:       now,
	}

	for i, spec := range specs {
		account, err := b.resolver.Resolve(ctx, spec.AccountCode, spec.AccountName, spec.AccountType)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to resolve account %s: %w", spec.AccountCode, err)
		}
		entry, err := newTransactionEntry(tx.ID, i+1, account, spec.Amount, spec.Side, spec.Description)
		if err != nil {
			return nil, nil, err
		}
		tx.Entries = append(tx.Entries, entry)
	}

	if err := tx.Validate(); err != nil {
		return nil, nil, err
	}

	return tx, []shared.DomainEvent{NewLedgerTransactionPostedEvent(tx, fact.SourceID())}, nil
}

// transactionDate is the business date at midnight UTC, or now when unknown
func transactionDate(businessDate *time.Time, now time.Time) time.Time {
	if businessDate == nil || businessDate.IsZero() {
		return now
	}
	y, m, d := businessDate.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
