package cache

import (
	"context"
	"sync"
	"time"

	"github.com/astracore/gl-service/internal/domain/shared"
)

const sweepInterval = 5 * time.Minute

// InMemoryIdempotencyStore keeps processed keys and their expiry in a map.
// Keys are per process, so it only filters redeliveries that land on the same
// instance; the ledger's unique constraint covers the rest.
type InMemoryIdempotencyStore struct {
	mu      sync.Mutex
	expires map[string]time.Time
	now     func() time.Time

	stop context.CancelFunc
	done chan struct{}
}

// NewInMemoryIdempotencyStore starts a store that sweeps expired keys every few minutes
func NewInMemoryIdempotencyStore() *InMemoryIdempotencyStore {
	return newInMemoryIdempotencyStore(sweepInterval, time.Now)
}

func newInMemoryIdempotencyStore(every time.Duration, now func() time.Time) *InMemoryIdempotencyStore {
	ctx, cancel := context.WithCancel(context.Background())
	s := &InMemoryIdempotencyStore{
		expires: make(map[string]time.Time),
		now:     now,
		stop:    cancel,
		done:    make(chan struct{}),
	}
	go s.sweepLoop(ctx, every)
	return s
}

func (s *InMemoryIdempotencyStore) live(key string, at time.Time) bool {
	exp, ok := s.expires[key]
	return ok && at.Before(exp)
}

// MarkProcessed reports false when an unexpired record for key already exists
func (s *InMemoryIdempotencyStore) MarkProcessed(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.live(key, now) {
		return false, nil
	}
	s.expires[key] = now.Add(ttl)
	return true, nil
}

func (s *InMemoryIdempotencyStore) IsProcessed(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live(key, s.now()), nil
}

// Close stops the sweeper. Calling it again is a no-op.
func (s *InMemoryIdempotencyStore) Close() error {
	s.stop()
	<-s.done
	return nil
}

func (s *InMemoryIdempotencyStore) sweepLoop(ctx context.Context, every time.Duration) {
	defer close(s.done)
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *InMemoryIdempotencyStore) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for key := range s.expires {
		if !s.live(key, now) {
			delete(s.expires, key)
		}
	}
}

// Size counts stored keys, including expired ones not yet swept
func (s *InMemoryIdempotencyStore) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.expires)
}

var _ shared.IdempotencyStore = (*InMemoryIdempotencyStore)(nil)
