package lock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryEntry struct {
	token     string
	expiresAt time.Time
}

// MemoryLocker is the in-process Locker for single-instance deployments and
// tests. Expiry is checked on acquisition, so stale entries never block a new
// holder longer than their TTL.
type MemoryLocker struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{
		entries: make(map[string]memoryEntry),
	}
}

func (l *MemoryLocker) Acquire(_ context.Context, key string, ttl time.Duration) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if entry, exists := l.entries[key]; exists && time.Now().Before(entry.expiresAt) {
		return "", false, nil
	}

	token := uuid.NewString()
	l.entries[key] = memoryEntry{
		token:     token,
		expiresAt: time.Now().Add(ttl),
	}
	return token, true, nil
}

func (l *MemoryLocker) Release(_ context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if entry, exists := l.entries[key]; exists && entry.token == token {
		delete(l.entries, key)
	}
	return nil
}
