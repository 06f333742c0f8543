package client

import (
	"encoding/json"
	"errors"
	"log"
	"time"

	"mediadeck/internal/storage"
	"mediadeck/models"
)

const (
	BannerCacheKey = "homepage_banner_cache"
	BannerCacheTTL = 24 * time.Hour
)

type bannerCacheValue struct {
	Data      []models.BannerItem `json:"data"`
	Timestamp int64               `json:"timestamp"` // unix milliseconds
}

// BannerCache keeps the last good banner list in a persistent store so the
// homepage can render without a network round trip. Every failure is a miss.
type BannerCache struct {
	store storage.Store
	ttl   time.Duration
	now   func() time.Time
}

func NewBannerCache(store storage.Store) *BannerCache {
	return &BannerCache{store: store, ttl: BannerCacheTTL, now: time.Now}
}

// Load returns the cached list when present, well-formed and younger than the TTL.
func (c *BannerCache) Load() ([]models.BannerItem, bool) {
	if c == nil || c.store == nil {
		return nil, false
	}
	raw, err := c.store.Get(BannerCacheKey)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			log.Printf("[client] banner cache read failed: %v", err)
		}
		return nil, false
	}

	var value bannerCacheValue
	if err := json.Unmarshal([]byte(raw), &value); err != nil || value.Timestamp <= 0 {
		log.Printf("[client] discarding malformed banner cache entry")
		c.Clear()
		return nil, false
	}
	if c.now().Sub(time.UnixMilli(value.Timestamp)) >= c.ttl {
		c.Clear()
		return nil, false
	}
	if len(value.Data) == 0 {
		return nil, false
	}
	return value.Data, true
}

// Save writes items through to the store. Empty lists are not cached and
// write failures (quota, read-only disk) are logged and ignored.
func (c *BannerCache) Save(items []models.BannerItem) {
	if c == nil || c.store == nil || len(items) == 0 {
		return
	}
	raw, err := json.Marshal(bannerCacheValue{Data: items, Timestamp: c.now().UnixMilli()})
	if err != nil {
		log.Printf("[client] banner cache encode failed: %v", err)
		return
	}
	if err := c.store.Set(BannerCacheKey, string(raw)); err != nil {
		log.Printf("[client] banner cache write failed: %v", err)
	}
}

// Clear drops the cached entry.
func (c *BannerCache) Clear() {
	if c == nil || c.store == nil {
		return
	}
	if err := c.store.Remove(BannerCacheKey); err != nil && !errors.Is(err, storage.ErrNotFound) {
		log.Printf("[client] banner cache clear failed: %v", err)
	}
}
