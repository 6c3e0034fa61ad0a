// Package tokencache persists the last-known access token between runs.
//
// The cache is an optimization, never a source of truth: implementations
// report a miss for absent or unreadable data instead of failing, and the
// auth manager re-checks expiry on everything it loads.
package tokencache

import (
	"sync"
	"time"
)

// Record is a cached access token together with its absolute expiry.
type Record struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Cache stores a single token record. Load reports ok=false on a miss,
// which includes missing, corrupt, or otherwise unreadable storage.
type Cache interface {
	Load() (Record, bool)
	Store(Record) error
	Clear() error
}

// MemoryCache keeps the record in process memory. Useful in tests and for
// clients that should not touch the filesystem.
type MemoryCache struct {
	mu  sync.Mutex
	rec Record
	set bool
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{}
}

func (m *MemoryCache) Load() (Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rec, m.set
}

func (m *MemoryCache) Store(rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rec, m.set = rec, true
	return nil
}

func (m *MemoryCache) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rec, m.set = Record{}, false
	return nil
}
