package event

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/astracore/gl-service/internal/domain/shared"
	"go.uber.org/zap"
)

// ErrBusStopped is returned by Publish after Stop
var ErrBusStopped = errors.New("event bus is stopped")

// InMemoryEventBus delivers events to subscribers synchronously in the
// publishing goroutine. The outbox relay publishes through it: every handler
// gets every event even if another one fails, and the joined failures make
// the relay retry the row.
type InMemoryEventBus struct {
	handlers *HandlerRegistry
	log      *zap.Logger
	stopped  atomic.Bool
	inflight sync.WaitGroup
}

// NewInMemoryEventBus returns a bus that accepts events right away
func NewInMemoryEventBus(log *zap.Logger) *InMemoryEventBus {
	return &InMemoryEventBus{handlers: NewHandlerRegistry(), log: log}
}

func (b *InMemoryEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	if b.stopped.Load() {
		return ErrBusStopped
	}
	b.inflight.Add(1)
	defer b.inflight.Done()

	var errs []error
	for _, event := range events {
		for _, h := range b.handlers.GetHandlers(event.EventType()) {
			err := b.deliver(ctx, h, event)
			if err == nil {
				continue
			}
			b.log.Error("event handler failed",
				zap.String("handler", fmt.Sprintf("%T", h)),
				zap.String("event_type", event.EventType()),
				zap.String("event_id", event.EventID().String()),
				zap.String("aggregate_id", event.AggregateID()),
				zap.Error(err),
			)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// deliver converts a handler panic into an error
func (b *InMemoryEventBus) deliver(ctx context.Context, h shared.EventHandler, event shared.DomainEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("event handler panicked", zap.String("event_type", event.EventType()), zap.Any("panic", r))
			err = fmt.Errorf("handler %T panicked: %v", h, r)
		}
	}()
	return h.Handle(ctx, event)
}

func (b *InMemoryEventBus) Subscribe(h shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = h.EventTypes()
	}
	b.handlers.Register(h, eventTypes...)
	b.log.Debug("handler subscribed", zap.String("handler", fmt.Sprintf("%T", h)), zap.Strings("event_types", eventTypes))
}

func (b *InMemoryEventBus) Unsubscribe(h shared.EventHandler) {
	b.handlers.Unregister(h)
}

// Start reopens a stopped bus and logs the subscriptions
func (b *InMemoryEventBus) Start(context.Context) error {
	b.stopped.Store(false)
	b.log.Info("event bus started", zap.Strings("event_types", b.handlers.EventTypes()))
	return nil
}

// Stop rejects further events and waits for in-flight deliveries, bounded by ctx
func (b *InMemoryEventBus) Stop(ctx context.Context) error {
	b.stopped.Store(true)
	done := make(chan struct{})
	go func() {
		b.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		b.log.Info("event bus stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var _ shared.EventBus = (*InMemoryEventBus)(nil)
