// Package session keeps the dashboard session of every browser on the
// server. A Storage is the key/value medium (memory or Redis); a Store is
// one browser's view of it, addressed by the session cookie.
package session

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNotFound is returned by Storage.Get when the key is absent or expired.
var ErrNotFound = errors.New("session: key not found")

// Storage is the persistence medium behind Store. Implementations must be
// safe for concurrent use.
type Storage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}

type memEntry struct {
	value   string
	expires time.Time
}

// MemoryStorage is an in-process Storage with a per-entry TTL. It is used
// when Redis is not configured and in tests. Expired entries are invisible
// to Get immediately; Sweep reclaims their memory.
type MemoryStorage struct {
	mu      sync.RWMutex
	entries map[string]memEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryStorage returns an empty MemoryStorage. A ttl <= 0 keeps entries
// until they are deleted.
func NewMemoryStorage(ttl time.Duration) *MemoryStorage {
	return &MemoryStorage{
		entries: make(map[string]memEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (m *MemoryStorage) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok || m.expired(e) {
		return "", ErrNotFound
	}
	return e.value, nil
}

func (m *MemoryStorage) Set(_ context.Context, key, value string) error {
	e := memEntry{value: value}
	if m.ttl > 0 {
		e.expires = m.now().Add(m.ttl)
	}
	m.mu.Lock()
	m.entries[key] = e
	m.mu.Unlock()
	return nil
}

func (m *MemoryStorage) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	for _, k := range keys {
		delete(m.entries, k)
	}
	m.mu.Unlock()
	return nil
}

// Sweep removes expired entries and returns how many were dropped.
func (m *MemoryStorage) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for k, e := range m.entries {
		if m.expired(e) {
			delete(m.entries, k)
			removed++
		}
	}
	return removed
}

// Len reports the number of entries, expired ones included.
func (m *MemoryStorage) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func (m *MemoryStorage) expired(e memEntry) bool {
	return !e.expires.IsZero() && !m.now().Before(e.expires)
}
