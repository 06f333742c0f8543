package banner

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"mediadeck/config"
	"mediadeck/internal/upstream"
)

type fakeTMDB struct {
	configured bool
	body       []byte
	err        error
	calls      atomic.Int32
	gate       chan struct{}
}

func (f *fakeTMDB) IsConfigured() bool { return f.configured }

func (f *fakeTMDB) TrendingRaw(context.Context) ([]byte, error) {
	f.calls.Add(1)
	if f.gate != nil {
		<-f.gate
	}
	return f.body, f.err
}

type fakePortal struct {
	body  []byte
	err   error
	calls int
}

func (f *fakePortal) ShelfRaw(context.Context) ([]byte, error) {
	f.calls++
	return f.body, f.err
}

type staticSource config.BannerSource

func (s staticSource) BannerSource() config.BannerSource { return config.BannerSource(s) }

func TestTrending_TMDBCachesResults(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)}
	tmdb := &fakeTMDB{configured: true, body: []byte(tmdbPayload)}
	svc := NewService(tmdb, &fakePortal{}, NewCache(0, clock.Now), staticSource(config.BannerSourceTMDB))

	items, err := svc.Trending(context.Background())
	if err != nil {
		t.Fatalf("Trending: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}

	if _, err := svc.Trending(context.Background()); err != nil {
		t.Fatalf("Trending (cached): %v", err)
	}
	if got := tmdb.calls.Load(); got != 1 {
		t.Fatalf("expected 1 upstream call within ttl, got %d", got)
	}

	clock.Advance(3 * time.Hour)
	if _, err := svc.Trending(context.Background()); err != nil {
		t.Fatalf("Trending (expired): %v", err)
	}
	if got := tmdb.calls.Load(); got != 2 {
		t.Fatalf("expected refetch after ttl, got %d calls", got)
	}
}

func TestTrending_MissingAPIKey(t *testing.T) {
	svc := NewService(&fakeTMDB{configured: false}, &fakePortal{}, nil, staticSource(config.BannerSourceTMDB))
	if _, err := svc.Trending(context.Background()); !errors.Is(err, ErrAPIKeyMissing) {
		t.Fatalf("expected ErrAPIKeyMissing, got %v", err)
	}
}

func TestTrending_PortalSourceIgnoresTMDBKey(t *testing.T) {
	portal := &fakePortal{body: []byte(shelfPayload)}
	svc := NewService(&fakeTMDB{configured: false}, portal, nil, staticSource(config.BannerSourceTX))

	items, err := svc.Trending(context.Background())
	if err != nil {
		t.Fatalf("Trending: %v", err)
	}
	if len(items) != 3 || items[0].Title != "繁花" {
		t.Fatalf("unexpected items: %+v", items)
	}
}

func TestTrending_UpstreamErrorAndEmptyNotCached(t *testing.T) {
	portal := &fakePortal{err: &upstream.StatusError{Provider: "portal", Status: 503}}
	svc := NewService(nil, portal, nil, staticSource(config.BannerSourceTX))

	_, err := svc.Trending(context.Background())
	if upstream.Status(err) != 503 {
		t.Fatalf("expected upstream 503, got %v", err)
	}

	portal.err = nil
	portal.body = []byte(`{"data":{"CardList":[]}}`)
	items, err := svc.Trending(context.Background())
	if err != nil || len(items) != 0 {
		t.Fatalf("expected empty list without error, got %v %v", items, err)
	}

	portal.body = []byte(shelfPayload)
	items, err = svc.Trending(context.Background())
	if err != nil || len(items) != 3 {
		t.Fatalf("expected fresh fetch after empty result, got %d items, err %v", len(items), err)
	}
	if portal.calls != 3 {
		t.Fatalf("expected 3 upstream calls, got %d", portal.calls)
	}
}

func TestTrending_ConcurrentMissesShareOneFetch(t *testing.T) {
	tmdb := &fakeTMDB{configured: true, body: []byte(tmdbPayload), gate: make(chan struct{})}
	svc := NewService(tmdb, nil, nil, staticSource(config.BannerSourceTMDB))

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Trending(context.Background()); err != nil {
				t.Errorf("Trending: %v", err)
			}
		}()
	}
	// give the goroutines a moment to join the in-flight call
	time.Sleep(50 * time.Millisecond)
	close(tmdb.gate)
	wg.Wait()

	if got := tmdb.calls.Load(); got != 1 {
		t.Fatalf("expected a single upstream call, got %d", got)
	}
}

func TestUpdateTMDB_ClearsCache(t *testing.T) {
	first := &fakeTMDB{configured: true, body: []byte(tmdbPayload)}
	svc := NewService(first, nil, nil, staticSource(config.BannerSourceTMDB))
	if _, err := svc.Trending(context.Background()); err != nil {
		t.Fatalf("Trending: %v", err)
	}

	second := &fakeTMDB{configured: true, body: []byte(tmdbPayload)}
	svc.UpdateTMDB(second)
	if _, err := svc.Trending(context.Background()); err != nil {
		t.Fatalf("Trending: %v", err)
	}
	if second.calls.Load() != 1 {
		t.Fatalf("expected new client to be used after update")
	}
}
