package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/astracore/gl-service/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock() time.Time {
	return time.Date(2024, 3, 16, 14, 30, 0, 0, time.UTC)
}

func TestTransactionBuilder_Build(t *testing.T) {
	fact := testInvoice("inv-123", "150.00", "USD")
	specs, err := InvoiceIssuedRule{}.Derive(fact)
	require.NoError(t, err)

	resolver := newStubResolver()
	tx, events, err := NewTransactionBuilder(resolver).WithClock(fixedClock).Build(context.Background(), fact, specs)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, tx.ID)
	assert.Equal(t, "Invoice inv-123", tx.Description)
	assert.Equal(t, TransactionTypeSalesInvoice, tx.TransactionType)
	assert.Equal(t, "tenant-1", tx.TenantID)
	assert.True(t, tx.Posted)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), tx.TransactionDate)
	assert.Equal(t, fixedClock(), tx.EntryDate)

	require.Len(t, tx.Entries, 2)
	ar := tx.EntriesFor("AR")
	require.Len(t, ar, 1)
	assert.Equal(t, SideDebit, ar[0].Side)
	assert.Equal(t, "150.00 USD", ar[0].Amount.String())
	assert.Equal(t, resolver.accounts["AR"].ID, ar[0].AccountID)
	assert.Equal(t, tx.ID, ar[0].TransactionID)
	assert.Equal(t, 1, ar[0].Sequence)

	rev := tx.EntriesFor("REV")
	require.Len(t, rev, 1)
	assert.Equal(t, SideCredit, rev[0].Side)
	assert.Equal(t, 2, rev[0].Sequence)

	require.Len(t, events, 1)
	posted, ok := events[0].(*LedgerTransactionPostedEvent)
	require.True(t, ok)
	assert.Equal(t, EventTypeLedgerTransactionPosted, posted.EventType())
	assert.Equal(t, tx.ID.String(), posted.AggregateID())
	assert.Equal(t, "inv-123", posted.SourceID)
	assert.Len(t, posted.Entries, 2)
	debit, ok := posted.DebitTotal("USD")
	require.True(t, ok)
	assert.Equal(t, "150", debit.String())
}

func TestTransactionBuilder_FallsBackToNowWithoutIssueDate(t *testing.T) {
	fact := testInvoice("inv-1", "10", "USD")
	fact.IssueDate = nil
	specs, _ := InvoiceIssuedRule{}.Derive(fact)

	tx, _, err := NewTransactionBuilder(newStubResolver()).WithClock(fixedClock).Build(context.Background(), fact, specs)
	require.NoError(t, err)
	assert.Equal(t, fixedClock(), tx.TransactionDate)
}

func TestTransactionBuilder_RejectsUnbalanced(t *testing.T) {
	fact := testInvoice("inv-1", "10", "USD")
	specs := []EntrySpec{
		{AccountCode: "AR", AccountName: "Accounts Receivable", AccountType: AccountTypeAsset, Side: SideDebit, Amount: money("10", "USD")},
		{AccountCode: "REV", AccountName: "Revenue", AccountType: AccountTypeRevenue, Side: SideCredit, Amount: money("9.99", "USD")},
	}

	tx, events, err := NewTransactionBuilder(newStubResolver()).Build(context.Background(), fact, specs)
	assert.Nil(t, tx)
	assert.Nil(t, events)
	assert.True(t, errors.Is(err, ErrUnbalancedTransaction))
}

func TestTransactionBuilder_RejectsEmpty(t *testing.T) {
	_, _, err := NewTransactionBuilder(newStubResolver()).Build(context.Background(), testInvoice("inv-1", "10", "USD"), nil)
	assert.True(t, errors.Is(err, ErrUnbalancedTransaction))
}

func TestTransactionBuilder_PropagatesResolverError(t *testing.T) {
	resolver := newStubResolver()
	resolver.err = errors.New("connection refused")
	fact := testInvoice("inv-1", "10", "USD")
	specs, _ := InvoiceIssuedRule{}.Derive(fact)

	_, _, err := NewTransactionBuilder(resolver).Build(context.Background(), fact, specs)
	assert.ErrorContains(t, err, "connection refused")
	assert.ErrorContains(t, err, "failed to resolve account AR")
}

func TestTransactionBuilder_RejectsNonPositiveEntry(t *testing.T) {
	specs := []EntrySpec{
		{AccountCode: "AR", AccountName: "Accounts Receivable", AccountType: AccountTypeAsset, Side: SideDebit, Amount: money("0", "USD")},
		{AccountCode: "REV", AccountName: "Revenue", AccountType: AccountTypeRevenue, Side: SideCredit, Amount: money("0", "USD")},
	}
	_, _, err := NewTransactionBuilder(newStubResolver()).Build(context.Background(), testInvoice("inv-1", "0", "USD"), specs)
	assert.True(t, errors.Is(err, shared.ErrInvalidInput))
}
