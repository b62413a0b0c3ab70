package event

import (
	"context"

	"github.com/astracore/gl-service/internal/domain/shared"
	"go.uber.org/zap"
)

// Pre-filter results reported to a DedupRecorder
const (
	DedupHit        = "hit"
	DedupMiss       = "miss"
	DedupStoreError = "store_error"
)

// DedupRecorder observes pre-filter lookups.
// telemetry.PostingMetrics satisfies it.
type DedupRecorder interface {
	RecordDedup(ctx context.Context, result string)
}

type nopDedupRecorder struct{}

func (nopDedupRecorder) RecordDedup(context.Context, string) {}

// IdempotentHandler puts a processed-key store in front of another handler.
// Keys are recorded only after the inner handler succeeds, so failed attempts
// stay redeliverable. The store is advisory: when it errors the event is
// handled anyway and the ledger's unique constraint decides.
type IdempotentHandler struct {
	next     shared.EventHandler
	store    shared.IdempotencyStore
	config   shared.IdempotencyConfig
	recorder DedupRecorder
	logger   *zap.Logger
}

type IdempotentHandlerOption func(*IdempotentHandler)

func WithIdempotencyConfig(config shared.IdempotencyConfig) IdempotentHandlerOption {
	return func(h *IdempotentHandler) { h.config = config }
}

// WithDedupRecorder reports every lookup result to r
func WithDedupRecorder(r DedupRecorder) IdempotentHandlerOption {
	return func(h *IdempotentHandler) {
		if r != nil {
			h.recorder = r
		}
	}
}

func NewIdempotentHandler(
	next shared.EventHandler,
	store shared.IdempotencyStore,
	logger *zap.Logger,
	opts ...IdempotentHandlerOption,
) *IdempotentHandler {
	h := &IdempotentHandler{
		next:     next,
		store:    store,
		config:   shared.DefaultIdempotencyConfig(),
		recorder: nopDedupRecorder{},
		logger:   logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *IdempotentHandler) EventTypes() []string {
	return h.next.EventTypes()
}

func (h *IdempotentHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	if !h.config.Enabled || h.store == nil {
		return h.next.Handle(ctx, event)
	}

	key := IdempotencyKey(event)
	log := h.logger.With(zap.String("idempotency_key", key), zap.String("event_type", event.EventType()))

	seen, err := h.store.IsProcessed(ctx, key)
	switch {
	case err != nil:
		h.recorder.RecordDedup(ctx, DedupStoreError)
		log.Warn("idempotency lookup failed, handling event anyway", zap.Error(err))
	case seen:
		h.recorder.RecordDedup(ctx, DedupHit)
		log.Debug("key already processed, skipping event")
		return nil
	default:
		h.recorder.RecordDedup(ctx, DedupMiss)
	}

	if err := h.next.Handle(ctx, event); err != nil {
		return err
	}

	if _, err := h.store.MarkProcessed(ctx, key, h.config.TTL); err != nil {
		log.Warn("could not record processed key", zap.Error(err))
	}
	return nil
}

// IdempotencyKey is the business key of a KeyedEvent, falling back to the event id
func IdempotencyKey(event shared.DomainEvent) string {
	if keyed, ok := event.(shared.KeyedEvent); ok && keyed.IdempotencyKey() != "" {
		return keyed.IdempotencyKey()
	}
	return event.EventID().String()
}

var _ shared.EventHandler = (*IdempotentHandler)(nil)
