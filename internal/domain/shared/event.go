package shared

import (
	"time"

	"github.com/google/uuid"
)

// DomainEvent is a fact raised or consumed by the ledger. Aggregate and tenant
// ids are opaque strings since inbound facts carry ids minted upstream.
type DomainEvent interface {
	EventID() uuid.UUID
	EventType() string
	OccurredAt() time.Time
	AggregateID() string
	AggregateType() string
	TenantID() string
}

// KeyedEvent is an event deduplicated on a business key instead of its
// per-delivery EventID.
type KeyedEvent interface {
	DomainEvent
	IdempotencyKey() string
}

// BaseDomainEvent implements the DomainEvent accessors; concrete events embed it
// and add their payload fields.
type BaseDomainEvent struct {
	ID            uuid.UUID `json:"id"`
	Type          string    `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggID         string    `json:"aggregate_id"`
	AggType       string    `json:"aggregate_type"`
	TenantIDValue string    `json:"tenant_id"`
}

func (e *BaseDomainEvent) EventID() uuid.UUID    { return e.ID }
func (e *BaseDomainEvent) EventType() string     { return e.Type }
func (e *BaseDomainEvent) OccurredAt() time.Time { return e.Timestamp }
func (e *BaseDomainEvent) AggregateID() string   { return e.AggID }
func (e *BaseDomainEvent) AggregateType() string { return e.AggType }
func (e *BaseDomainEvent) TenantID() string      { return e.TenantIDValue }

// NewBaseDomainEvent stamps a new event with the current time
func NewBaseDomainEvent(eventType, aggType, aggID, tenantID string) BaseDomainEvent {
	return NewBaseDomainEventAt(eventType, aggType, aggID, tenantID, time.Now())
}

// NewBaseDomainEventAt keeps the upstream occurrence time of a mirrored fact
func NewBaseDomainEventAt(eventType, aggType, aggID, tenantID string, occurredAt time.Time) BaseDomainEvent {
	return BaseDomainEvent{
		ID:            uuid.New(),
		Type:          eventType,
		Timestamp:     occurredAt,
		AggID:         aggID,
		AggType:       aggType,
		TenantIDValue: tenantID,
	}
}
