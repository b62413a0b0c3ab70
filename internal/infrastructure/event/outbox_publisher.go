package event

import (
	"context"
	"fmt"

	"github.com/astracore/gl-service/internal/domain/shared"
	"gorm.io/gorm"
)

// OutboxPublisher is the write side of the outbox: it serializes events and
// inserts them through the posting transaction so they commit or roll back
// with the ledger rows.
type OutboxPublisher struct {
	serializer *EventSerializer
	maxRetries int
}

type OutboxPublisherOption func(*OutboxPublisher)

// WithMaxRetries sets the relay attempts allowed for new rows; n <= 0 keeps the default
func WithMaxRetries(n int) OutboxPublisherOption {
	return func(p *OutboxPublisher) {
		if n > 0 {
			p.maxRetries = n
		}
	}
}

func NewOutboxPublisher(serializer *EventSerializer, opts ...OutboxPublisherOption) *OutboxPublisher {
	p := &OutboxPublisher{serializer: serializer, maxRetries: shared.DefaultMaxRetries}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SaveEvents inserts events into the outbox through tx, which must be the
// *gorm.DB of the open transaction
func (p *OutboxPublisher) SaveEvents(ctx context.Context, tx any, events ...shared.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}
	db, ok := tx.(*gorm.DB)
	if !ok {
		return fmt.Errorf("outbox needs a *gorm.DB transaction, got %T", tx)
	}

	entries := make([]*shared.OutboxEntry, len(events))
	for i, event := range events {
		payload, err := p.serializer.Serialize(event)
		if err != nil {
			return err
		}
		entries[i] = shared.NewOutboxEntry(event, payload)
		entries[i].MaxRetries = p.maxRetries
	}
	return NewGormOutboxRepository(db).Save(ctx, entries...)
}

var _ shared.OutboxEventSaver = (*OutboxPublisher)(nil)
