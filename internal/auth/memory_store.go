package auth

import (
	"context"
	"sync"
	"time"
)

// MemoryNonceStore provides an in-memory NonceStore with expiry, intended for
// development and testing scenarios.
type MemoryNonceStore struct {
	mu      sync.Mutex
	entries map[string]nonceEntry
	now     func() time.Time
}

type nonceEntry struct {
	value     string
	expiresAt time.Time
}

// NewMemoryNonceStore 创建内存 nonce 存储。
func NewMemoryNonceStore() *MemoryNonceStore {
	return &MemoryNonceStore{entries: make(map[string]nonceEntry), now: time.Now}
}

// Set 写入 nonce，ttl 不大于 0 时永不过期。
func (s *MemoryNonceStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := nonceEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = s.now().Add(ttl)
	}
	s.entries[key] = entry
	return nil
}

// Get 读取未过期的 nonce。
func (s *MemoryNonceStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[key]
	if !ok {
		return "", ErrNonceMissing
	}
	if !entry.expiresAt.IsZero() && !s.now().Before(entry.expiresAt) {
		delete(s.entries, key)
		return "", ErrNonceMissing
	}
	return entry.value, nil
}

// Take 在同一把锁内读取并删除 nonce。
func (s *MemoryNonceStore) Take(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[key]
	if !ok {
		return "", ErrNonceMissing
	}
	delete(s.entries, key)
	if !entry.expiresAt.IsZero() && !s.now().Before(entry.expiresAt) {
		return "", ErrNonceMissing
	}
	return entry.value, nil
}

// Prune 清理已过期的条目，返回清理数量。
func (s *MemoryNonceStore) Prune() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	removed := 0
	for key, entry := range s.entries {
		if !entry.expiresAt.IsZero() && !now.Before(entry.expiresAt) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}
