package event

import (
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"github.com/astracore/gl-service/internal/domain/ledger"
	"github.com/astracore/gl-service/internal/domain/shared"
)

// EventSerializer encodes events as JSON outbox payloads and decodes them
// back into concrete types. Decoding needs a factory registered for the
// event type; the outbox processor cannot relay anything else.
type EventSerializer struct {
	mu        sync.RWMutex
	factories map[string]func() shared.DomainEvent
}

func NewEventSerializer() *EventSerializer {
	return &EventSerializer{factories: make(map[string]func() shared.DomainEvent)}
}

// NewLedgerEventSerializer knows every event the ledger writes to its outbox
func NewLedgerEventSerializer() *EventSerializer {
	s := NewEventSerializer()
	RegisterEvent[ledger.InvoiceIssuedEvent](s, ledger.EventTypeInvoiceIssued)
	RegisterEvent[ledger.LedgerTransactionPostedEvent](s, ledger.EventTypeLedgerTransactionPosted)
	return s
}

// RegisterEvent makes payloads of eventType decode into a fresh *E
func RegisterEvent[E any, P interface {
	*E
	shared.DomainEvent
}](s *EventSerializer, eventType string) {
	s.RegisterFactory(eventType, func() shared.DomainEvent { return P(new(E)) })
}

// RegisterFactory registers the constructor used to decode eventType
func (s *EventSerializer) RegisterFactory(eventType string, factory func() shared.DomainEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.factories[eventType] = factory
}

func (s *EventSerializer) Serialize(event shared.DomainEvent) ([]byte, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal %s event: %w", event.EventType(), err)
	}
	return payload, nil
}

func (s *EventSerializer) Deserialize(eventType string, data []byte) (shared.DomainEvent, error) {
	s.mu.RLock()
	factory, ok := s.factories[eventType]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown event type: %s", eventType)
	}

	event := factory()
	if err := json.Unmarshal(data, event); err != nil {
		return nil, fmt.Errorf("unmarshal %s event: %w", eventType, err)
	}
	return event, nil
}

func (s *EventSerializer) IsRegistered(eventType string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.factories[eventType]
	return ok
}

// RegisteredTypes lists registered event types, sorted
func (s *EventSerializer) RegisteredTypes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	types := make([]string, 0, len(s.factories))
	for t := range s.factories {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}
