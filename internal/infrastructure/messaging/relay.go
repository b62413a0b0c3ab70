package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/astracore/gl-service/internal/domain/ledger"
	"github.com/astracore/gl-service/internal/domain/shared"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// KafkaEventRelay forwards posted ledger transactions to a Kafka topic.
// It subscribes to the bus fed by the outbox processor, so a failed write
// leaves the outbox entry to be retried.
type KafkaEventRelay struct {
	writer MessageWriter
	logger *zap.Logger
}

// NewKafkaEventRelay creates a relay writing through w
func NewKafkaEventRelay(w MessageWriter, logger *zap.Logger) *KafkaEventRelay {
	return &KafkaEventRelay{writer: w, logger: logger}
}

// EventTypes returns the relayed event types
func (r *KafkaEventRelay) EventTypes() []string {
	return []string{ledger.EventTypeLedgerTransactionPosted}
}

// Handle writes the event as JSON keyed by the source invoice id
func (r *KafkaEventRelay) Handle(ctx context.Context, event shared.DomainEvent) error {
	posted, ok := event.(*ledger.LedgerTransactionPostedEvent)
	if !ok {
		return nil
	}

	payload, err := json.Marshal(posted)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", posted.EventType(), err)
	}

	msg := kafka.Message{
		Key:   []byte(posted.SourceID),
		Value: payload,
		Time:  posted.OccurredAt(),
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(posted.EventType())},
			{Key: "event-id", Value: []byte(posted.EventID().String())},
			{Key: "tenant-id", Value: []byte(posted.TenantID())},
		},
	}
	if err := r.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to relay transaction %s: %w", posted.TransactionID, err)
	}

	r.logger.Debug("posted transaction relayed",
		zap.String("transaction_id", posted.TransactionID.String()),
		zap.String("invoice_id", posted.SourceID),
	)
	return nil
}

// Close closes the underlying writer
func (r *KafkaEventRelay) Close() error {
	return r.writer.Close()
}

var _ shared.EventHandler = (*KafkaEventRelay)(nil)
