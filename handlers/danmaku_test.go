package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"

	"mediadeck/internal/auth"
	"mediadeck/internal/storage"
	"mediadeck/models"
	"mediadeck/services/danmaku"
)

type fakeDanmakuService struct {
	searchResp   []models.DanmakuAnime
	searchErr    error
	episodesResp []models.DanmakuEpisode
	commentsResp []models.DanmakuComment
	autoResp     models.DanmakuSelection
	autoErr      error

	lastKeyword   string
	lastAnimeID   int64
	lastAutoTitle string
	lastAutoEp    int
}

func (f *fakeDanmakuService) Search(_ context.Context, keyword string) ([]models.DanmakuAnime, error) {
	f.lastKeyword = keyword
	return f.searchResp, f.searchErr
}

func (f *fakeDanmakuService) Episodes(_ context.Context, animeID int64) ([]models.DanmakuEpisode, error) {
	f.lastAnimeID = animeID
	return f.episodesResp, nil
}

func (f *fakeDanmakuService) Comments(context.Context, int64) ([]models.DanmakuComment, error) {
	return f.commentsResp, nil
}

func (f *fakeDanmakuService) Select(mem *danmaku.Memory, req danmaku.SelectRequest) (models.DanmakuSelection, danmaku.Status) {
	return req.Selection, mem.SaveEpisode(req.VideoTitle, req.EpisodeIndex, req.Selection.EpisodeID)
}

func (f *fakeDanmakuService) RememberSource(mem *danmaku.Memory, title string, index int) danmaku.Status {
	return mem.SaveSource(title, index)
}

func (f *fakeDanmakuService) AutoSelect(_ context.Context, _ *danmaku.Memory, title string, episode int) (models.DanmakuSelection, error) {
	f.lastAutoTitle = title
	f.lastAutoEp = episode
	return f.autoResp, f.autoErr
}

func withClient(req *http.Request, id string) *http.Request {
	return req.WithContext(context.WithValue(req.Context(), auth.ContextKeyClientID, id))
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode payload %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestDanmakuHandler_Search(t *testing.T) {
	fake := &fakeDanmakuService{searchResp: []models.DanmakuAnime{{AnimeID: 1, AnimeTitle: "Mushishi"}}}
	handler := NewDanmakuHandler(fake, storage.NewSessionRegistry(0, 0, 0))

	rec := httptest.NewRecorder()
	handler.Search(rec, httptest.NewRequest(http.MethodGet, "/api/danmaku/search?keyword=+Mushishi+", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected %d, got %d", http.StatusOK, rec.Code)
	}
	if fake.lastKeyword != "Mushishi" {
		t.Fatalf("expected trimmed keyword, got %q", fake.lastKeyword)
	}
	payload := decodeBody[map[string][]models.DanmakuAnime](t, rec)
	if len(payload["animes"]) != 1 {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestDanmakuHandler_SearchErrors(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{danmaku.ErrKeywordRequired, http.StatusBadRequest},
		{danmaku.ErrNoMatch, http.StatusNotFound},
		{&danmaku.APIError{Code: 403, Message: "token invalid"}, http.StatusBadGateway},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
	}
	for _, tt := range tests {
		handler := NewDanmakuHandler(&fakeDanmakuService{searchErr: tt.err}, nil)
		rec := httptest.NewRecorder()
		handler.Search(rec, httptest.NewRequest(http.MethodGet, "/api/danmaku/search", nil))
		if rec.Code != tt.want {
			t.Fatalf("%v: expected %d, got %d", tt.err, tt.want, rec.Code)
		}
		if payload := decodeBody[map[string]string](t, rec); payload["error"] == "" {
			t.Fatalf("%v: expected error message", tt.err)
		}
	}
}

func TestDanmakuHandler_EpisodesRequiresNumericID(t *testing.T) {
	fake := &fakeDanmakuService{episodesResp: []models.DanmakuEpisode{{EpisodeID: 10001}}}
	handler := NewDanmakuHandler(fake, nil)

	req := mux.SetURLVars(httptest.NewRequest(http.MethodGet, "/api/danmaku/anime/abc/episodes", nil), map[string]string{"animeId": "abc"})
	rec := httptest.NewRecorder()
	handler.Episodes(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected %d, got %d", http.StatusBadRequest, rec.Code)
	}

	req = mux.SetURLVars(httptest.NewRequest(http.MethodGet, "/api/danmaku/anime/1/episodes", nil), map[string]string{"animeId": "1"})
	rec = httptest.NewRecorder()
	handler.Episodes(rec, req)
	if rec.Code != http.StatusOK || fake.lastAnimeID != 1 {
		t.Fatalf("expected 200 for anime 1, got %d (%d)", rec.Code, fake.lastAnimeID)
	}
}

func TestDanmakuHandler_SelectionIsRememberedPerClient(t *testing.T) {
	sessions := storage.NewSessionRegistry(0, 0, 0)
	handler := NewDanmakuHandler(&fakeDanmakuService{}, sessions)

	body := `{"videoTitle":"Mushishi","episodeIndex":2,"selection":{"animeId":1,"episodeId":10003,"animeTitle":"Mushishi"}}`
	req := withClient(httptest.NewRequest(http.MethodPost, "/api/danmaku/selection", strings.NewReader(body)), "client-a")
	rec := httptest.NewRecorder()
	handler.Select(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}
	payload := decodeBody[models.DanmakuSelectionResponse](t, rec)
	if payload.Memory != "ok" || payload.Selection.EpisodeID != 10003 {
		t.Fatalf("unexpected payload: %+v", payload)
	}

	mine := danmaku.NewMemory(sessions.Store("client-a")).Episode("Mushishi", 2)
	if !mine.Found() || mine.Value != 10003 {
		t.Fatalf("expected remembered episode for client-a, got %+v", mine)
	}
	theirs := danmaku.NewMemory(sessions.Store("client-b")).Episode("Mushishi", 2)
	if theirs.Found() {
		t.Fatal("memory leaked across client sessions")
	}
}

func TestDanmakuHandler_SelectValidation(t *testing.T) {
	handler := NewDanmakuHandler(&fakeDanmakuService{}, storage.NewSessionRegistry(0, 0, 0))

	tests := []string{
		`not json`,
		`{"videoTitle":"","episodeIndex":0,"selection":{"animeId":1,"episodeId":2,"animeTitle":"x"}}`,
		`{"videoTitle":"x","episodeIndex":-1,"selection":{"animeId":1,"episodeId":2,"animeTitle":"x"}}`,
		`{"videoTitle":"x","episodeIndex":0,"selection":{"animeId":0,"episodeId":2,"animeTitle":"x"}}`,
		`{"videoTitle":"x","episodeIndex":0,"selection":{"animeId":1,"episodeId":2}}`,
		`{"videoTitle":"x","episodeIndex":0,"selection":{"animeId":1,"animeTitle":"x"}}`,
		`{"videoTitle":"x","episodeIndex":0}`,
	}
	for _, body := range tests {
		req := withClient(httptest.NewRequest(http.MethodPost, "/api/danmaku/selection", strings.NewReader(body)), "c")
		rec := httptest.NewRecorder()
		handler.Select(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected %d, got %d", body, http.StatusBadRequest, rec.Code)
		}
	}
}

func TestDanmakuHandler_WithoutClientMemoryIsUnavailable(t *testing.T) {
	handler := NewDanmakuHandler(&fakeDanmakuService{}, storage.NewSessionRegistry(0, 0, 0))

	req := httptest.NewRequest(http.MethodPut, "/api/danmaku/memory/source", strings.NewReader(`{"title":"Mushishi","sourceIndex":1}`))
	rec := httptest.NewRecorder()
	handler.RememberSource(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected %d, got %d", http.StatusOK, rec.Code)
	}
	if payload := decodeBody[models.MemoryStatusResponse](t, rec); payload.Memory != danmaku.StatusUnavailable.String() {
		t.Fatalf("expected unavailable memory, got %q", payload.Memory)
	}
}

func TestDanmakuHandler_Auto(t *testing.T) {
	fake := &fakeDanmakuService{autoResp: models.DanmakuSelection{AnimeID: 1, EpisodeID: 10001, AnimeTitle: "Mushishi"}}
	handler := NewDanmakuHandler(fake, storage.NewSessionRegistry(0, 0, 0))

	rec := httptest.NewRecorder()
	handler.Auto(rec, withClient(httptest.NewRequest(http.MethodGet, "/api/danmaku/auto?title=Mushishi&episode=4", nil), "c"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected %d, got %d", http.StatusOK, rec.Code)
	}
	if fake.lastAutoTitle != "Mushishi" || fake.lastAutoEp != 4 {
		t.Fatalf("unexpected call: %q %d", fake.lastAutoTitle, fake.lastAutoEp)
	}

	rec = httptest.NewRecorder()
	handler.Auto(rec, httptest.NewRequest(http.MethodGet, "/api/danmaku/auto?title=x&episode=-2", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected %d, got %d", http.StatusBadRequest, rec.Code)
	}

	fake.autoErr = danmaku.ErrEpisodeNotFound
	rec = httptest.NewRecorder()
	handler.Auto(rec, httptest.NewRequest(http.MethodGet, "/api/danmaku/auto?title=x", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestDanmakuHandler_ForgetAndRecords(t *testing.T) {
	sessions := storage.NewSessionRegistry(0, 0, 0)
	handler := NewDanmakuHandler(&fakeDanmakuService{}, sessions)
	mem := danmaku.NewMemory(sessions.Store("c"))
	mem.SaveSource("Mushishi", 1)
	mem.SaveSource("Planetes", 0)
	mem.SaveEpisode("Planetes", 3, 20004)

	rec := httptest.NewRecorder()
	handler.ForgetMemory(rec, withClient(httptest.NewRequest(http.MethodDelete, "/api/danmaku/memory?title=Planetes", nil), "c"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected %d, got %d", http.StatusOK, rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.MemoryRecords(rec, withClient(httptest.NewRequest(http.MethodGet, "/api/danmaku/memory", nil), "c"))
	payload := decodeBody[struct {
		Records []models.SelectionMemoryRecord `json:"records"`
		Memory  string                         `json:"memory"`
	}](t, rec)
	if len(payload.Records) != 1 || payload.Records[0].Title != "Mushishi" {
		t.Fatalf("unexpected records: %+v", payload.Records)
	}

	rec = httptest.NewRecorder()
	handler.ForgetMemory(rec, withClient(httptest.NewRequest(http.MethodDelete, "/api/danmaku/memory", nil), "c"))
	records, _ := mem.Records()
	if len(records) != 0 {
		t.Fatalf("expected all memory cleared, got %+v", records)
	}
}

func TestDanmakuHandler_ReadsDoNotCreateSessions(t *testing.T) {
	sessions := storage.NewSessionRegistry(0, 0, 0)
	handler := NewDanmakuHandler(&fakeDanmakuService{}, sessions)

	rec := httptest.NewRecorder()
	handler.MemoryRecords(rec, withClient(httptest.NewRequest(http.MethodGet, "/api/danmaku/memory", nil), "fresh-1"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected %d, got %d", http.StatusOK, rec.Code)
	}
	if payload := decodeBody[map[string]any](t, rec); payload["memory"] != "ok" {
		t.Fatalf("unexpected payload: %+v", payload)
	}

	rec = httptest.NewRecorder()
	handler.Auto(rec, withClient(httptest.NewRequest(http.MethodGet, "/api/danmaku/auto?title=Mushishi", nil), "fresh-2"))
	rec = httptest.NewRecorder()
	handler.ForgetMemory(rec, withClient(httptest.NewRequest(http.MethodDelete, "/api/danmaku/memory", nil), "fresh-3"))

	if n := sessions.Len(); n != 0 {
		t.Fatalf("expected no sessions after reads, got %d", n)
	}

	rec = httptest.NewRecorder()
	handler.RememberSource(rec, withClient(httptest.NewRequest(http.MethodPut, "/api/danmaku/memory/source", strings.NewReader(`{"title":"Mushishi","sourceIndex":0}`)), "fresh-4"))
	if n := sessions.Len(); n != 1 {
		t.Fatalf("expected a session after a write, got %d", n)
	}
}
