package event

import (
	"testing"
	"time"

	"github.com/astracore/gl-service/internal/domain/ledger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventSerializer_RoundTripsRegisteredType(t *testing.T) {
	s := NewEventSerializer()
	RegisterEvent[testEvent](s, "TestEvent")

	original := newTestEvent("TestEvent")
	data, err := s.Serialize(original)
	require.NoError(t, err)

	decoded, err := s.Deserialize("TestEvent", data)
	require.NoError(t, err)

	got, ok := decoded.(*testEvent)
	require.True(t, ok)
	assert.Equal(t, original.EventID(), got.EventID())
	assert.Equal(t, original.AggregateID(), got.AggregateID())
	assert.Equal(t, "test data", got.Data)
}

func TestEventSerializer_UnknownType(t *testing.T) {
	s := NewEventSerializer()

	_, err := s.Deserialize("Nope", []byte(`{}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown event type")
}

func TestEventSerializer_MalformedPayload(t *testing.T) {
	s := NewEventSerializer()
	RegisterEvent[testEvent](s, "TestEvent")

	_, err := s.Deserialize("TestEvent", []byte(`{not json`))
	assert.Error(t, err)
}

func TestNewLedgerEventSerializer(t *testing.T) {
	s := NewLedgerEventSerializer()

	assert.Equal(t, []string{ledger.EventTypeInvoiceIssued, ledger.EventTypeLedgerTransactionPosted}, s.RegisteredTypes())

	event := &ledger.LedgerTransactionPostedEvent{
		SourceID:        "inv-1",
		TransactionType: ledger.TransactionTypeSalesInvoice,
		Description:     "Invoice inv-1",
		TransactionDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Entries: []ledger.PostedEntry{
			{AccountCode: "AR", Side: ledger.SideDebit, Amount: decimal.RequireFromString("100.50"), Currency: "USD"},
		},
	}
	data, err := s.Serialize(event)
	require.NoError(t, err)

	decoded, err := s.Deserialize(ledger.EventTypeLedgerTransactionPosted, data)
	require.NoError(t, err)
	posted := decoded.(*ledger.LedgerTransactionPostedEvent)
	assert.Equal(t, "inv-1", posted.SourceID)
	assert.True(t, posted.Entries[0].Amount.Equal(decimal.RequireFromString("100.50")))
}
