package schema

import (
	"sync"
	"time"
)

// DefaultCacheTTL is how long introspected schema fragments stay fresh.
const DefaultCacheTTL = 5 * time.Minute

// fragmentCache holds one introspection result with a TTL so a chat session
// does not hit information_schema on every utterance. A non-positive TTL
// disables caching.
type fragmentCache struct {
	mu        sync.Mutex
	fragments []tableFragment
	loadedAt  time.Time
	ttl       time.Duration
}

func newFragmentCache(ttl time.Duration) *fragmentCache {
	return &fragmentCache{ttl: ttl}
}

func (c *fragmentCache) Get() ([]tableFragment, bool) {
	if c.ttl <= 0 {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fragments == nil || time.Since(c.loadedAt) > c.ttl {
		return nil, false
	}
	return c.fragments, true
}

func (c *fragmentCache) Put(fragments []tableFragment) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fragments = fragments
	c.loadedAt = time.Now()
}
