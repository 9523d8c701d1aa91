package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

type memoryEntry struct {
	data   []byte
	expiry time.Time
}

// sweepInterval bounds how often Set scans the map for expired entries.
const sweepInterval = time.Minute

// Memory is an in-process cache with the same JSON semantics as Redis.
// Expired entries are dropped when read, and Set sweeps the rest at most
// once per sweepInterval so keys that are never read again do not pile up
// in a long-running server.
type Memory struct {
	mu        sync.RWMutex
	data      map[string]memoryEntry
	now       func() time.Time
	lastSweep time.Time
}

func NewMemory() *Memory {
	return &Memory{
		data: make(map[string]memoryEntry),
		now:  time.Now,
	}
}

func (c *Memory) Get(_ context.Context, key string, dest any) error {
	c.mu.RLock()
	entry, ok := c.data[key]
	c.mu.RUnlock()

	if !ok {
		return ErrMiss
	}
	if !entry.expiry.IsZero() && !c.now().Before(entry.expiry) {
		c.mu.Lock()
		delete(c.data, key)
		c.mu.Unlock()
		return ErrMiss
	}
	return json.Unmarshal(entry.data, dest)
}

// Set stores value. A non-positive expiration keeps the entry until Close.
func (c *Memory) Set(_ context.Context, key string, value any, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	now := c.now()
	entry := memoryEntry{data: data}
	if expiration > 0 {
		entry.expiry = now.Add(expiration)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if now.Sub(c.lastSweep) >= sweepInterval {
		c.sweepLocked(now)
	}
	c.data[key] = entry
	return nil
}

// sweepLocked removes expired entries. c.mu must be held for writing.
func (c *Memory) sweepLocked(now time.Time) {
	for k, e := range c.data {
		if !e.expiry.IsZero() && !now.Before(e.expiry) {
			delete(c.data, k)
		}
	}
	c.lastSweep = now
}

// Len reports the number of stored entries, expired ones included.
func (c *Memory) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

func (c *Memory) Close() error {
	c.mu.Lock()
	c.data = make(map[string]memoryEntry)
	c.mu.Unlock()
	return nil
}
