// Package cache holds read-through caches of a patient's appointment list.
// A cache is never a source of truth; every entry may vanish at any time.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/vinaykumargajjela/care-link-appointments/pkg/interfaces"
	"github.com/vinaykumargajjela/care-link-appointments/pkg/types"
)

type memoryEntry struct {
	appointments []*types.Appointment
	expiresAt    time.Time
}

// MemoryCache is a process-local cache with per-entry expiry
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	// versions survive Sweep so an in-flight fill cannot match a reset counter
	versions map[string]int64
	now      func() time.Time
}

var _ interfaces.AppointmentCache = (*MemoryCache)(nil)

// NewMemoryCache creates an empty in-memory cache
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries:  make(map[string]memoryEntry),
		versions: make(map[string]int64),
		now:      time.Now,
	}
}

func cloneAll(apts []*types.Appointment) []*types.Appointment {
	out := make([]*types.Appointment, len(apts))
	for i, a := range apts {
		out[i] = a.Clone()
	}
	return out
}

// Get returns the cached list for key. Expired entries are dropped.
func (c *MemoryCache) Get(ctx context.Context, key string) ([]*types.Appointment, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !e.expiresAt.IsZero() && !c.now().Before(e.expiresAt) {
		delete(c.entries, key)
		return nil, false, nil
	}
	return cloneAll(e.appointments), true, nil
}

// Set stores a copy of apts under key. A zero ttl never expires.
func (c *MemoryCache) Set(ctx context.Context, key string, apts []*types.Appointment, ttl time.Duration) error {
	e := memoryEntry{appointments: cloneAll(apts)}
	if ttl > 0 {
		e.expiresAt = c.now().Add(ttl)
	}

	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()
	return nil
}

// Version returns the invalidation counter of key
func (c *MemoryCache) Version(ctx context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.versions[key], nil
}

// SetIfVersion stores a copy of apts under key unless key was invalidated
// after version was read
func (c *MemoryCache) SetIfVersion(ctx context.Context, key string, version int64, apts []*types.Appointment, ttl time.Duration) (bool, error) {
	e := memoryEntry{appointments: cloneAll(apts)}
	if ttl > 0 {
		e.expiresAt = c.now().Add(ttl)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.versions[key] != version {
		return false, nil
	}
	c.entries[key] = e
	return true, nil
}

// Invalidate drops the entry for key and advances its version
func (c *MemoryCache) Invalidate(ctx context.Context, key string) error {
	c.mu.Lock()
	delete(c.entries, key)
	c.versions[key]++
	c.mu.Unlock()
	return nil
}

// Sweep removes expired entries and returns how many were removed
func (c *MemoryCache) Sweep(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, e := range c.entries {
		if !e.expiresAt.IsZero() && !now.Before(e.expiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of entries, expired or not
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Noop is a cache that never stores anything
type Noop struct{}

var _ interfaces.AppointmentCache = Noop{}

func (Noop) Get(ctx context.Context, key string) ([]*types.Appointment, bool, error) {
	return nil, false, nil
}

func (Noop) Set(ctx context.Context, key string, apts []*types.Appointment, ttl time.Duration) error {
	return nil
}

func (Noop) Version(ctx context.Context, key string) (int64, error) {
	return 0, nil
}

func (Noop) SetIfVersion(ctx context.Context, key string, version int64, apts []*types.Appointment, ttl time.Duration) (bool, error) {
	return false, nil
}

func (Noop) Invalidate(ctx context.Context, key string) error {
	return nil
}
