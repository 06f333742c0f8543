package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediadeck/internal/storage"
	"mediadeck/models"
	"mediadeck/services/banner"
)

var sampleBanners = []models.BannerItem{
	{ID: "1", Title: "Dune: Part Two", BackdropPath: "https://image.tmdb.org/t/p/w1280/a.jpg", MediaType: "movie"},
	{ID: "2", Title: "Shōgun", BackdropPath: "https://image.tmdb.org/t/p/w1280/b.jpg", MediaType: "tv"},
}

func bannerServer(t *testing.T, calls *atomic.Int32, resp models.BannerResponse, status int) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/banner/trending", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get(ClientIDHeader))
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(server.Close)
	return server
}

func newFileCache(t *testing.T, quota int) (*BannerCache, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	store, err := storage.NewFileStore(fs, "/data/client.json", quota)
	require.NoError(t, err)
	return NewBannerCache(store), fs
}

func TestClient_BannersUsesPersistentCache(t *testing.T) {
	var calls atomic.Int32
	server := bannerServer(t, &calls, models.BannerResponse{Code: 200, List: sampleBanners}, http.StatusOK)
	cache, fs := newFileCache(t, 0)

	c := New(server.URL, WithBannerCache(cache))
	defer c.Close()

	first, err := c.Banners(context.Background())
	require.NoError(t, err)
	assert.Equal(t, sampleBanners, first)

	second, err := c.Banners(context.Background())
	require.NoError(t, err)
	assert.Equal(t, sampleBanners, second)
	assert.Equal(t, int32(1), calls.Load())

	raw, err := afero.ReadFile(fs, "/data/client.json")
	require.NoError(t, err)
	assert.Contains(t, string(raw), BannerCacheKey)

	// A new client over the same file starts warm.
	store, err := storage.NewFileStore(fs, "/data/client.json", 0)
	require.NoError(t, err)
	warm, err := New(server.URL, WithBannerCache(NewBannerCache(store))).Banners(context.Background())
	require.NoError(t, err)
	assert.Len(t, warm, 2)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_DegradedResponseIsNotCached(t *testing.T) {
	var calls atomic.Int32
	server := bannerServer(t, &calls, models.BannerResponse{Code: 504, List: []models.BannerItem{}}, http.StatusOK)
	cache, _ := newFileCache(t, 0)

	c := New(server.URL, WithBannerCache(cache))
	items, err := c.Banners(context.Background())
	assert.Empty(t, items)
	assert.NotNil(t, items)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 504, apiErr.Status)

	_, ok := cache.Load()
	assert.False(t, ok)
}

func TestClient_MissingKeyError(t *testing.T) {
	var calls atomic.Int32
	server := bannerServer(t, &calls, models.BannerResponse{Code: 400, Message: "TMDB API key is not configured"}, http.StatusBadRequest)

	_, err := New(server.URL).Banners(context.Background())
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 400, apiErr.Status)
	assert.Contains(t, apiErr.Message, "API key")
}

func TestClient_CacheWriteFailureIsSwallowed(t *testing.T) {
	var calls atomic.Int32
	server := bannerServer(t, &calls, models.BannerResponse{Code: 200, List: sampleBanners}, http.StatusOK)
	cache, _ := newFileCache(t, 32)

	items, err := New(server.URL, WithBannerCache(cache)).Banners(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, 2)

	_, ok := cache.Load()
	assert.False(t, ok)
}

func TestBannerCache_Expiry(t *testing.T) {
	store := storage.NewMemoryStore(0)
	cache := NewBannerCache(store)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	cache.Save(sampleBanners)
	_, ok := cache.Load()
	require.True(t, ok)

	now = now.Add(BannerCacheTTL - time.Millisecond)
	_, ok = cache.Load()
	assert.True(t, ok)

	now = now.Add(time.Millisecond)
	_, ok = cache.Load()
	assert.False(t, ok)
	_, err := store.Get(BannerCacheKey)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestBannerCache_MalformedEntries(t *testing.T) {
	tests := []string{
		`not json`,
		`{"data":[{"id":"1","title":"x"}]}`,
		`{"data":[],"timestamp":1700000000000}`,
	}
	for _, raw := range tests {
		store := storage.NewMemoryStore(0)
		require.NoError(t, store.Set(BannerCacheKey, raw))
		cache := NewBannerCache(store)
		cache.now = func() time.Time { return time.UnixMilli(1700000000001) }

		items, ok := cache.Load()
		assert.False(t, ok, raw)
		assert.Nil(t, items, raw)
	}
}

func TestBannerCache_RoundTripsAdaptedItems(t *testing.T) {
	shelf := `{"data":{"CardList":[{"type":"pc_shelves","children_list":{"list":{"cards":[
		{"id":"c1","params":{"title":"繁花","image_url":"https://img/1.jpg","label":"剧情|年代"}},
		{"id":"c2","params":{"title":"长相思","image_url":"https://img/2.jpg"}},
		{"id":"c3","params":{"title":"漫长的季节","image_url":"https://img/3.jpg","label":" | "}}
	]}}}]}}`
	tmdb := `{"results":[
		{"id":1,"title":"Dune","backdrop_path":"/d.jpg","media_type":"movie","genre_ids":[878]},
		{"id":2,"name":"Shogun","backdrop_path":"/s.jpg","media_type":"tv","genre_ids":[]}
	]}`

	for name, items := range map[string][]models.BannerItem{
		"shelf": banner.AdaptShelf([]byte(shelf)),
		"tmdb":  banner.AdaptTMDB([]byte(tmdb)),
	} {
		cache := NewBannerCache(storage.NewMemoryStore(0))
		require.NotEmpty(t, items, name)
		cache.Save(items)

		loaded, ok := cache.Load()
		require.True(t, ok, name)
		assert.Equal(t, items, loaded, name)
	}
}

func TestBannerCache_StoredShape(t *testing.T) {
	store := storage.NewMemoryStore(0)
	cache := NewBannerCache(store)
	cache.now = func() time.Time { return time.UnixMilli(1700000000000) }
	cache.Save(sampleBanners[:1])

	raw, err := store.Get(BannerCacheKey)
	require.NoError(t, err)
	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(raw), &decoded))
	assert.JSONEq(t, `1700000000000`, string(decoded["timestamp"]))
	assert.Contains(t, string(decoded["data"]), `"backdrop_path"`)
}

func TestClient_DanmakuRoutes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "session-1", r.Header.Get(ClientIDHeader))
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/danmaku/auto":
			assert.Equal(t, "Frieren", r.URL.Query().Get("title"))
			assert.Equal(t, "3", r.URL.Query().Get("episode"))
			w.Write([]byte(`{"selection":{"animeId":1,"episodeId":10004,"animeTitle":"Frieren"}}`))
		case r.Method == http.MethodDelete && r.URL.Path == "/api/danmaku/memory":
			assert.Equal(t, "Frieren", r.URL.Query().Get("title"))
			w.Write([]byte(`{"memory":"ok"}`))
		case r.Method == http.MethodPut && r.URL.Path == "/api/danmaku/memory/source":
			var body models.SourceMemoryRequest
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, 2, body.SourceIndex)
			w.Write([]byte(`{"memory":"ok"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":"no danmaku match"}`))
		}
	}))
	defer server.Close()

	c := New(server.URL, WithClientID("session-1"))
	sel, err := c.AutoSelect(context.Background(), "Frieren", 3)
	require.NoError(t, err)
	assert.Equal(t, int64(10004), sel.EpisodeID)

	status, err := c.RememberSource(context.Background(), "Frieren", 2)
	require.NoError(t, err)
	assert.Equal(t, "ok", status)

	require.NoError(t, c.Forget(context.Background(), "Frieren"))

	_, err = c.SearchDanmaku(context.Background(), "nothing")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "no danmaku match", apiErr.Message)
}
