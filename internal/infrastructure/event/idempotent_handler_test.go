package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/astracore/gl-service/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeIdempotencyStore is a map-backed store that can be told to fail
type fakeIdempotencyStore struct {
	mu      sync.Mutex
	keys    map[string]time.Duration
	readErr error
	markErr error
}

func newFakeIdempotencyStore() *fakeIdempotencyStore {
	return &fakeIdempotencyStore{keys: make(map[string]time.Duration)}
}

func (s *fakeIdempotencyStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.markErr != nil {
		return false, s.markErr
	}
	if _, ok := s.keys[key]; ok {
		return false, nil
	}
	s.keys[key] = ttl
	return true, nil
}

func (s *fakeIdempotencyStore) IsProcessed(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readErr != nil {
		return false, s.readErr
	}
	_, ok := s.keys[key]
	return ok, nil
}

func (s *fakeIdempotencyStore) Close() error { return nil }

type dedupResults struct {
	mu      sync.Mutex
	results []string
}

func (r *dedupResults) RecordDedup(ctx context.Context, result string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, result)
}

func (r *dedupResults) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.results...)
}

func (s *fakeIdempotencyStore) has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.keys[key]
	return ok
}

func TestIdempotentHandler_SkipsRecordedKey(t *testing.T) {
	store := newFakeIdempotencyStore()
	inner := newTestHandler("TestEvent")
	recorder := &dedupResults{}
	h := NewIdempotentHandler(inner, store, zap.NewNop(), WithDedupRecorder(recorder))

	event := newTestEvent("TestEvent")
	require.NoError(t, h.Handle(context.Background(), event))
	require.NoError(t, h.Handle(context.Background(), event))

	assert.Len(t, inner.getHandled(), 1)
	assert.Equal(t, []string{DedupMiss, DedupHit}, recorder.all())
}

func TestIdempotentHandler_UsesBusinessKey(t *testing.T) {
	store := newFakeIdempotencyStore()
	inner := newTestHandler("TestEvent")
	h := NewIdempotentHandler(inner, store, zap.NewNop())

	first := &keyedTestEvent{testEvent: *newTestEvent("TestEvent"), Key: "invoice-issued:inv-1"}
	redelivery := &keyedTestEvent{testEvent: *newTestEvent("TestEvent"), Key: "invoice-issued:inv-1"}
	require.NotEqual(t, first.EventID(), redelivery.EventID())

	require.NoError(t, h.Handle(context.Background(), first))
	require.NoError(t, h.Handle(context.Background(), redelivery))

	assert.Len(t, inner.getHandled(), 1)
	assert.True(t, store.has("invoice-issued:inv-1"))
}

func TestIdempotentHandler_FailureDoesNotRecordKey(t *testing.T) {
	store := newFakeIdempotencyStore()
	inner := newTestHandler("TestEvent")
	inner.setError(errors.New("db down"))
	h := NewIdempotentHandler(inner, store, zap.NewNop())

	event := newTestEvent("TestEvent")
	require.Error(t, h.Handle(context.Background(), event))
	assert.False(t, store.has(event.EventID().String()))

	inner.setError(nil)
	require.NoError(t, h.Handle(context.Background(), event))
	assert.Len(t, inner.getHandled(), 2, "redelivery after failure is handled again")
}

func TestIdempotentHandler_StoreErrorsFallThrough(t *testing.T) {
	store := newFakeIdempotencyStore()
	store.readErr = errors.New("redis unavailable")
	store.markErr = errors.New("redis unavailable")
	inner := newTestHandler("TestEvent")
	recorder := &dedupResults{}
	h := NewIdempotentHandler(inner, store, zap.NewNop(), WithDedupRecorder(recorder))

	require.NoError(t, h.Handle(context.Background(), newTestEvent("TestEvent")))
	assert.Len(t, inner.getHandled(), 1)
	assert.Equal(t, []string{DedupStoreError}, recorder.all())
}

func TestIdempotentHandler_Disabled(t *testing.T) {
	store := newFakeIdempotencyStore()
	inner := newTestHandler("TestEvent")
	h := NewIdempotentHandler(inner, store, zap.NewNop(),
		WithIdempotencyConfig(shared.IdempotencyConfig{Enabled: false}))

	event := newTestEvent("TestEvent")
	require.NoError(t, h.Handle(context.Background(), event))
	require.NoError(t, h.Handle(context.Background(), event))

	assert.Len(t, inner.getHandled(), 2)
	assert.False(t, store.has(event.EventID().String()))
}

func TestIdempotentHandler_EventTypesDelegates(t *testing.T) {
	h := NewIdempotentHandler(newTestHandler("A", "B"), newFakeIdempotencyStore(), zap.NewNop())
	assert.Equal(t, []string{"A", "B"}, h.EventTypes())
}
