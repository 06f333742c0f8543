package banner

import (
	"sync"
	"time"

	"mediadeck/config"
	"mediadeck/models"
)

// DefaultCacheTTL is how long an upstream banner list is served from memory.
const DefaultCacheTTL = 3 * time.Hour

// Cache keeps one banner list per data source for the lifetime of the
// process. Entries age out lazily when read.
type Cache struct {
	mu    sync.RWMutex
	ttl   time.Duration
	now   func() time.Time
	slots map[config.BannerSource]models.CacheEntry
}

// NewCache creates an empty cache. A nil clock uses time.Now and a
// non-positive ttl uses DefaultCacheTTL.
func NewCache(ttl time.Duration, now func() time.Time) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if now == nil {
		now = time.Now
	}
	return &Cache{
		ttl:   ttl,
		now:   now,
		slots: make(map[config.BannerSource]models.CacheEntry),
	}
}

// Get returns a copy of the source's entry while it is younger than the TTL.
func (c *Cache) Get(source config.BannerSource) (models.CacheEntry, bool) {
	c.mu.RLock()
	entry, ok := c.slots[source]
	c.mu.RUnlock()
	if !ok {
		return models.CacheEntry{}, false
	}
	if entry.Age(c.now()) >= c.ttl {
		return models.CacheEntry{}, false
	}
	return models.CacheEntry{
		Data:      models.CloneBannerItems(entry.Data),
		Timestamp: entry.Timestamp,
	}, true
}

// Put stores items for source stamped with the current time.
func (c *Cache) Put(source config.BannerSource, items []models.BannerItem) {
	entry := models.CacheEntry{
		Data:      models.CloneBannerItems(items),
		Timestamp: c.now(),
	}
	c.mu.Lock()
	c.slots[source] = entry
	c.mu.Unlock()
}

// Clear drops every slot.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.slots = make(map[config.BannerSource]models.CacheEntry)
	c.mu.Unlock()
}

// TTL returns the configured time-to-live.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}
