package otp

import (
	"context"
	"sync"
	"time"

	"veritas/pkg/platform/sentinel"
)

type memoryEntry struct {
	code      string
	expiresAt time.Time
}

// MemoryStore keeps pending codes in process memory. Expiry is checked lazily
// on Consume; there is no background sweeper, which is fine for the volumes a
// single development instance sees.
type MemoryStore struct {
	mu    sync.Mutex
	codes map[string]memoryEntry
	now   func() time.Time
}

// MemoryStoreOption configures a MemoryStore.
type MemoryStoreOption func(*MemoryStore)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) MemoryStoreOption {
	return func(s *MemoryStore) {
		s.now = now
	}
}

func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	s := &MemoryStore{
		codes: make(map[string]memoryEntry),
		now:   time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *MemoryStore) Save(_ context.Context, key, code string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.codes[key] = memoryEntry{code: code, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemoryStore) Consume(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.codes[key]
	if !ok {
		return "", sentinel.ErrNotFound
	}
	delete(s.codes, key)
	if s.now().After(entry.expiresAt) {
		return "", sentinel.ErrNotFound
	}
	return entry.code, nil
}
