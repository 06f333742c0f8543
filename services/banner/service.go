package banner

import (
	"context"
	"fmt"
	"log"
	"sync"

	"golang.org/x/sync/singleflight"

	"mediadeck/config"
	"mediadeck/models"
	"mediadeck/services/metadata"
)

// ErrAPIKeyMissing is returned for the TMDB source when no key is configured.
var ErrAPIKeyMissing = metadata.ErrAPIKeyMissing

type tmdbFetcher interface {
	IsConfigured() bool
	TrendingRaw(ctx context.Context) ([]byte, error)
}

type shelfFetcher interface {
	ShelfRaw(ctx context.Context) ([]byte, error)
}

type sourceSelector interface {
	BannerSource() config.BannerSource
}

// Service serves the homepage banner list from whichever source the
// configuration selects, backed by the in-memory TTL cache.
type Service struct {
	mu      sync.RWMutex
	tmdb    tmdbFetcher
	portal  shelfFetcher
	cache   *Cache
	sources sourceSelector
	group   singleflight.Group
}

// NewService wires the fetchers, the cache and the source selector.
func NewService(tmdb tmdbFetcher, portal shelfFetcher, cache *Cache, sources sourceSelector) *Service {
	if cache == nil {
		cache = NewCache(DefaultCacheTTL, nil)
	}
	return &Service{
		tmdb:    tmdb,
		portal:  portal,
		cache:   cache,
		sources: sources,
	}
}

// UpdateTMDB swaps the metadata-provider client (e.g. after an API key
// change) and drops cached lists so fresh data is fetched with it.
func (s *Service) UpdateTMDB(tmdb tmdbFetcher) {
	s.mu.Lock()
	s.tmdb = tmdb
	s.mu.Unlock()
	s.cache.Clear()
	log.Printf("[banner] metadata client replaced; cache cleared")
}

// ClearCache drops every cached source.
func (s *Service) ClearCache() {
	s.cache.Clear()
}

// Source returns the currently selected data source.
func (s *Service) Source() config.BannerSource {
	if s.sources == nil {
		return config.BannerSourceTMDB
	}
	return s.sources.BannerSource()
}

// Trending returns the banner list for the configured source. Concurrent
// misses for the same source share one upstream call. Empty results are
// returned but never cached.
func (s *Service) Trending(ctx context.Context) ([]models.BannerItem, error) {
	source := s.Source()
	if entry, ok := s.cache.Get(source); ok {
		return entry.Data, nil
	}

	s.mu.RLock()
	tmdb := s.tmdb
	s.mu.RUnlock()

	if source == config.BannerSourceTMDB && (tmdb == nil || !tmdb.IsConfigured()) {
		return nil, ErrAPIKeyMissing
	}

	v, err, _ := s.group.Do(string(source), func() (any, error) {
		if entry, ok := s.cache.Get(source); ok {
			return entry.Data, nil
		}
		items, err := s.fetch(context.WithoutCancel(ctx), source, tmdb)
		if err != nil {
			log.Printf("[banner] %s fetch failed: %v", source, err)
			return nil, err
		}
		if len(items) == 0 {
			log.Printf("[banner] %s returned no usable items; not caching", source)
			return items, nil
		}
		s.cache.Put(source, items)
		log.Printf("[banner] cached %d items from %s", len(items), source)
		return items, nil
	})
	if err != nil {
		return nil, err
	}
	return models.CloneBannerItems(v.([]models.BannerItem)), nil
}

func (s *Service) fetch(ctx context.Context, source config.BannerSource, tmdb tmdbFetcher) ([]models.BannerItem, error) {
	switch source {
	case config.BannerSourceTX:
		if s.portal == nil {
			return nil, fmt.Errorf("portal client not configured")
		}
		raw, err := s.portal.ShelfRaw(ctx)
		if err != nil {
			return nil, err
		}
		return AdaptShelf(raw), nil
	default:
		raw, err := tmdb.TrendingRaw(ctx)
		if err != nil {
			return nil, err
		}
		return AdaptTMDB(raw), nil
	}
}
