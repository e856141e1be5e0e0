package idempotency

import (
	"context"
	"sync"
	"time"
)

type memoryRecord struct {
	payload   []byte
	expiresAt time.Time
}

// MemoryStore is the in-process Store for single-instance deployments and
// tests. A janitor goroutine evicts expired records; call Stop when the
// store is no longer needed.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]memoryRecord
	done    chan struct{}
}

func NewMemoryStore(cleanupInterval time.Duration) *MemoryStore {
	s := &MemoryStore{
		records: make(map[string]memoryRecord),
		done:    make(chan struct{}),
	}
	go s.janitor(cleanupInterval)
	return s
}

func (s *MemoryStore) Get(_ context.Context, token string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, exists := s.records[token]
	if !exists || time.Now().After(record.expiresAt) {
		return nil, false, nil
	}
	return record.payload, true, nil
}

func (s *MemoryStore) SetNX(_ context.Context, token string, payload []byte, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if record, exists := s.records[token]; exists && time.Now().Before(record.expiresAt) {
		return false, nil
	}

	s.records[token] = memoryRecord{
		payload:   payload,
		expiresAt: time.Now().Add(ttl),
	}
	return true, nil
}

func (s *MemoryStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, token)
	return nil
}

// Stop terminates the janitor goroutine.
func (s *MemoryStore) Stop() {
	close(s.done)
}

func (s *MemoryStore) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.evictExpired()
		case <-s.done:
			return
		}
	}
}

func (s *MemoryStore) evictExpired() {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for token, record := range s.records {
		if now.After(record.expiresAt) {
			delete(s.records, token)
		}
	}
}
