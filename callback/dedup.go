package callback

import (
	"context"
	"sync"
	"time"

	"github.com/intakehq/threadlink/internal/collection"
)

// DedupStore tracks seen delivery ids so redelivered callbacks do not race a
// later waiter generation for the same key. Implementations may be in-memory
// or shared (Redis) for multi-instance deployments.
type DedupStore interface {
	// Mark records deliveryID and reports whether this is its first sighting.
	Mark(ctx context.Context, deliveryID string) (bool, error)
	Close() error
}

// MemoryDedupStore is an in-memory DedupStore for single-process
// deployments and tests. Entries expire after a TTL; expired entries are
// swept opportunistically on Mark.
type MemoryDedupStore struct {
	seen *collection.SyncMap[string, time.Time]
	ttl  time.Duration
	now  func() time.Time

	sweepMu   sync.Mutex
	lastSweep time.Time
}

// MemoryDedupOption configures a MemoryDedupStore.
type MemoryDedupOption func(s *MemoryDedupStore)

// WithDedupTTL sets how long delivery ids are remembered.
func WithDedupTTL(ttl time.Duration) MemoryDedupOption {
	return func(s *MemoryDedupStore) { s.ttl = ttl }
}

// WithDedupClock overrides the time source, used by tests.
func WithDedupClock(now func() time.Time) MemoryDedupOption {
	return func(s *MemoryDedupStore) { s.now = now }
}

// NewMemoryDedupStore creates an in-memory store with a 24h default TTL.
func NewMemoryDedupStore(options ...MemoryDedupOption) *MemoryDedupStore {
	ret := &MemoryDedupStore{
		seen: collection.NewSyncMap[string, time.Time](),
		ttl:  24 * time.Hour,
		now:  time.Now,
	}
	for _, opt := range options {
		opt(ret)
	}
	ret.lastSweep = ret.now()
	return ret
}

func (s *MemoryDedupStore) Mark(_ context.Context, deliveryID string) (bool, error) {
	now := s.now()
	s.sweep(now)
	if !s.seen.PutIfAbsent(deliveryID, now) {
		recorded, ok := s.seen.Get(deliveryID)
		if ok && now.Sub(recorded) < s.ttl {
			return false, nil
		}
		// Stale entry; refresh it and treat as first sighting.
		s.seen.Put(deliveryID, now)
	}
	return true, nil
}

func (s *MemoryDedupStore) Close() error { return nil }

func (s *MemoryDedupStore) sweep(now time.Time) {
	s.sweepMu.Lock()
	if now.Sub(s.lastSweep) < s.ttl {
		s.sweepMu.Unlock()
		return
	}
	s.lastSweep = now
	s.sweepMu.Unlock()
	s.seen.DeleteFunc(func(_ string, recorded time.Time) bool {
		return now.Sub(recorded) >= s.ttl
	})
}
