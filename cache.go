package mfs

import (
	"strings"
	"sync"
	"time"
)

// probeCache remembers the outcome of existence probes against the primary
// backend. It is disabled unless configured, because H may be changed by
// writers that do not go through this adapter.
type probeCache struct {
	present     map[string]*probeEntry
	absent      map[string]*probeEntry
	mu          sync.RWMutex
	ttl         time.Duration
	negativeTTL time.Duration
	maxEntries  int
	enabled     bool

	// gen counts invalidations; a probe started under an older generation
	// is not stored.
	gen uint64
}

type probeEntry struct {
	expires time.Time
}

func newProbeCache(enabled bool, ttl, negativeTTL time.Duration, maxEntries int) *probeCache {
	if !enabled {
		return &probeCache{enabled: false}
	}
	if maxEntries <= 0 {
		maxEntries = 1000
	}

	return &probeCache{
		present:     make(map[string]*probeEntry),
		absent:      make(map[string]*probeEntry),
		ttl:         ttl,
		negativeTTL: negativeTTL,
		maxEntries:  maxEntries,
		enabled:     true,
	}
}

// lookup returns the cached existence of key and whether the cache had a
// live answer.
func (c *probeCache) lookup(key string) (exists bool, ok bool) {
	if !c.enabled {
		return false, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	now := time.Now()
	if e, hit := c.present[key]; hit && now.Before(e.expires) {
		return true, true
	}
	if e, hit := c.absent[key]; hit && now.Before(e.expires) {
		return false, true
	}
	return false, false
}

// generation returns the current invalidation generation.
func (c *probeCache) generation() uint64 {
	if !c.enabled {
		return 0
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gen
}

// store records the outcome of a probe.
func (c *probeCache) store(key string, exists bool) {
	if !c.enabled {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.put(key, exists)
}

// storeAt records the outcome of a probe started at generation gen. The
// outcome is dropped when the cache was invalidated since.
func (c *probeCache) storeAt(key string, exists bool, gen uint64) {
	if !c.enabled {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return
	}
	c.put(key, exists)
}

func (c *probeCache) put(key string, exists bool) {
	if exists {
		delete(c.absent, key)
		if len(c.present) >= c.maxEntries {
			evictOldest(c.present)
		}
		c.present[key] = &probeEntry{expires: time.Now().Add(c.ttl)}
		return
	}

	delete(c.present, key)
	if len(c.absent) >= c.maxEntries {
		evictOldest(c.absent)
	}
	c.absent[key] = &probeEntry{expires: time.Now().Add(c.negativeTTL)}
}

func (c *probeCache) invalidate(key string) {
	if !c.enabled {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.gen++
	delete(c.present, key)
	delete(c.absent, key)
}

// invalidateTree drops key and every entry below it.
func (c *probeCache) invalidateTree(key string) {
	if !c.enabled {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.gen++
	for k := range c.present {
		if inTree(k, key) {
			delete(c.present, k)
		}
	}
	for k := range c.absent {
		if inTree(k, key) {
			delete(c.absent, k)
		}
	}
}

func (c *probeCache) clear() {
	if !c.enabled {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.gen++
	c.present = make(map[string]*probeEntry)
	c.absent = make(map[string]*probeEntry)
}

// inTree reports whether p equals root or lies below it.
func inTree(p, root string) bool {
	if p == root || root == "/" {
		return true
	}
	return strings.HasPrefix(p, strings.TrimSuffix(root, "/")+"/")
}

func evictOldest(m map[string]*probeEntry) {
	var oldestKey string
	var oldest time.Time

	for k, e := range m {
		if oldestKey == "" || e.expires.Before(oldest) {
			oldestKey = k
			oldest = e.expires
		}
	}

	if oldestKey != "" {
		delete(m, oldestKey)
	}
}

// Stats returns a snapshot of the cache occupancy.
func (c *probeCache) Stats() CacheStats {
	if !c.enabled {
		return CacheStats{Enabled: false}
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	return CacheStats{
		Enabled:     true,
		PresentSize: len(c.present),
		AbsentSize:  len(c.absent),
		MaxEntries:  c.maxEntries,
		TTL:         c.ttl,
		NegativeTTL: c.negativeTTL,
	}
}

// CacheStats describes the probe cache.
type CacheStats struct {
	Enabled     bool
	PresentSize int
	AbsentSize  int
	MaxEntries  int
	TTL         time.Duration
	NegativeTTL time.Duration
}
