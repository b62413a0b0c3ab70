package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/astracore/gl-service/internal/domain/ledger"
	"github.com/astracore/gl-service/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func postedEvent() *ledger.LedgerTransactionPostedEvent {
	txID := uuid.New()
	return &ledger.LedgerTransactionPostedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(ledger.EventTypeLedgerTransactionPosted, ledger.AggregateTypeLedgerTransaction, txID.String(), "t-1"),
		TransactionID:   txID,
		SourceID:        "inv-9",
		TransactionType: ledger.TransactionTypeSalesInvoice,
		Description:     "Invoice inv-9",
		TransactionDate: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestKafkaEventRelay_WritesPostedEvents(t *testing.T) {
	w := &fakeWriter{}
	relay := NewKafkaEventRelay(w, zap.NewNop())
	event := postedEvent()

	require.NoError(t, relay.Handle(context.Background(), event))

	require.Len(t, w.Written(), 1)
	msg := w.Written()[0]
	assert.Equal(t, "inv-9", string(msg.Key))
	assert.Equal(t, ledger.EventTypeLedgerTransactionPosted, header(msg, "event-type"))
	assert.Equal(t, event.EventID().String(), header(msg, "event-id"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &body))
	assert.Equal(t, "Invoice inv-9", body["description"])
	assert.Equal(t, event.TransactionID.String(), body["transaction_id"])
}

func TestKafkaEventRelay_IgnoresOtherEvents(t *testing.T) {
	w := &fakeWriter{}
	relay := NewKafkaEventRelay(w, zap.NewNop())

	fact := ledger.InvoiceIssued{InvoiceID: "inv-1"}
	require.NoError(t, relay.Handle(context.Background(), ledger.NewInvoiceIssuedEvent(fact)))
	assert.Empty(t, w.Written())
	assert.Equal(t, []string{ledger.EventTypeLedgerTransactionPosted}, relay.EventTypes())
}

func TestKafkaEventRelay_WriteFailure(t *testing.T) {
	w := &fakeWriter{err: errors.New("leader not available")}
	relay := NewKafkaEventRelay(w, zap.NewNop())

	err := relay.Handle(context.Background(), postedEvent())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to relay transaction")

	require.NoError(t, relay.Close())
	assert.True(t, w.closed)
}
