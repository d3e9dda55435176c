package service

import (
	"sync"
	"time"
)

type hostEntry struct {
	res       Resolution
	expiresAt time.Time
}

func (e *hostEntry) expired(now time.Time) bool {
	return now.After(e.expiresAt)
}

// hostCache memoises host → tenant lookups for the serving path.
// A zero ttl disables caching. Each invalidation bumps the host's
// generation so a lookup that started before it cannot store its result.
type hostCache struct {
	mu      sync.RWMutex
	entries map[string]*hostEntry
	gens    map[string]uint64
	ttl     time.Duration
	now     func() time.Time
}

func newHostCache(ttl time.Duration) *hostCache {
	return &hostCache{
		entries: make(map[string]*hostEntry),
		gens:    make(map[string]uint64),
		ttl:     ttl,
		now:     time.Now,
	}
}

// generation returns the host's current generation. Pass it to
// setIfCurrent after the backing lookup completes.
func (c *hostCache) generation(host string) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gens[host]
}

func (c *hostCache) get(host string) (Resolution, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[host]
	if !ok || e.expired(c.now()) {
		return Resolution{}, false
	}
	return e.res, true
}

// setIfCurrent stores res only when host has not been invalidated since
// gen was read. It reports whether the entry was stored.
func (c *hostCache) setIfCurrent(host string, gen uint64, res Resolution) bool {
	if c.ttl <= 0 {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[host] != gen {
		return false
	}
	c.entries[host] = &hostEntry{res: res, expiresAt: c.now().Add(c.ttl)}
	return true
}

func (c *hostCache) invalidate(hosts ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, h := range hosts {
		delete(c.entries, h)
		c.gens[h]++
	}
}

// evict drops expired entries and returns how many were removed.
func (c *hostCache) evict() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	n := 0
	for k, e := range c.entries {
		if e.expired(now) {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

func (c *hostCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
