package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"mediadeck/config"
	"mediadeck/internal/auth"
	"mediadeck/internal/storage"
	"mediadeck/internal/upstream"
	"mediadeck/models"
	"mediadeck/services/danmaku"
)

type danmakuService interface {
	Search(context.Context, string) ([]models.DanmakuAnime, error)
	Episodes(context.Context, int64) ([]models.DanmakuEpisode, error)
	Comments(context.Context, int64) ([]models.DanmakuComment, error)
	Select(*danmaku.Memory, danmaku.SelectRequest) (models.DanmakuSelection, danmaku.Status)
	RememberSource(*danmaku.Memory, string, int) danmaku.Status
	AutoSelect(context.Context, *danmaku.Memory, string, int) (models.DanmakuSelection, error)
}

var _ danmakuService = (*danmaku.Service)(nil)

// sessionStores resolves the session-scoped store of a client.
type sessionStores interface {
	Store(clientID string) storage.Store
	Lookup(clientID string) (storage.Store, bool)
}

// DanmakuHandler serves danmaku search, selection and selection memory.
type DanmakuHandler struct {
	Service  danmakuService
	Sessions sessionStores
}

func NewDanmakuHandler(service danmakuService, sessions sessionStores) *DanmakuHandler {
	return &DanmakuHandler{Service: service, Sessions: sessions}
}

// memory returns the caller's selection memory. Without a client id the
// memory has no backing store and every operation reports it as unavailable.
func (h *DanmakuHandler) memory(r *http.Request) *danmaku.Memory {
	clientID := auth.GetClientID(r)
	if clientID == "" || h.Sessions == nil {
		return danmaku.NewMemory(nil)
	}
	return danmaku.NewMemory(h.Sessions.Store(clientID))
}

// existingMemory is memory for read-only calls. A client without a session
// gets an empty scratch store so reads never allocate a session.
func (h *DanmakuHandler) existingMemory(r *http.Request) *danmaku.Memory {
	clientID := auth.GetClientID(r)
	if clientID == "" || h.Sessions == nil {
		return danmaku.NewMemory(nil)
	}
	if store, ok := h.Sessions.Lookup(clientID); ok {
		return danmaku.NewMemory(store)
	}
	return danmaku.NewMemory(storage.NewMemoryStore(0))
}

func (h *DanmakuHandler) Search(w http.ResponseWriter, r *http.Request) {
	keyword := strings.TrimSpace(r.URL.Query().Get("keyword"))
	animes, err := h.Service.Search(r.Context(), keyword)
	if err != nil {
		writeDanmakuError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"animes": animes})
}

func (h *DanmakuHandler) Episodes(w http.ResponseWriter, r *http.Request) {
	animeID, ok := pathID(w, r, "animeId")
	if !ok {
		return
	}
	episodes, err := h.Service.Episodes(r.Context(), animeID)
	if err != nil {
		writeDanmakuError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"episodes": episodes})
}

func (h *DanmakuHandler) Comments(w http.ResponseWriter, r *http.Request) {
	episodeID, ok := pathID(w, r, "episodeId")
	if !ok {
		return
	}
	comments, err := h.Service.Comments(r.Context(), episodeID)
	if err != nil {
		writeDanmakuError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.DanmakuCommentsResponse{Count: len(comments), Comments: comments})
}

// Select records a manual choice from the selection panel.
func (h *DanmakuHandler) Select(w http.ResponseWriter, r *http.Request) {
	var req danmaku.SelectRequest
	if !decodeValid(w, r, &req) {
		return
	}
	sel, status := h.Service.Select(h.memory(r), req)
	writeJSON(w, http.StatusOK, models.DanmakuSelectionResponse{Selection: sel, Memory: status.String()})
}

// Auto resolves a selection for ?title=&episode= without user input.
func (h *DanmakuHandler) Auto(w http.ResponseWriter, r *http.Request) {
	title := strings.TrimSpace(r.URL.Query().Get("title"))
	episode := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("episode")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "episode must be a non-negative integer")
			return
		}
		episode = parsed
	}

	sel, err := h.Service.AutoSelect(r.Context(), h.existingMemory(r), title, episode)
	if err != nil {
		writeDanmakuError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.DanmakuSelectionResponse{Selection: sel})
}

// RememberSource stores which search result to use for a title.
func (h *DanmakuHandler) RememberSource(w http.ResponseWriter, r *http.Request) {
	var req models.SourceMemoryRequest
	if !decodeValid(w, r, &req) {
		return
	}
	status := h.Service.RememberSource(h.memory(r), req.Title, req.SourceIndex)
	writeMemoryStatus(w, status)
}

// ForgetMemory clears remembered choices for ?title=, or all of them.
func (h *DanmakuHandler) ForgetMemory(w http.ResponseWriter, r *http.Request) {
	mem := h.existingMemory(r)
	title := strings.TrimSpace(r.URL.Query().Get("title"))
	var status danmaku.Status
	if title == "" {
		status = mem.ClearAll()
	} else {
		status = mem.ClearTitle(title)
	}
	writeMemoryStatus(w, status)
}

// MemoryRecords lists the caller's remembered choices.
func (h *DanmakuHandler) MemoryRecords(w http.ResponseWriter, r *http.Request) {
	records, status := h.existingMemory(r).Records()
	if records == nil {
		records = []models.SelectionMemoryRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": records, "memory": status.String()})
}

func writeMemoryStatus(w http.ResponseWriter, status danmaku.Status) {
	code := http.StatusOK
	if status == danmaku.StatusInvalid {
		code = http.StatusBadRequest
	}
	writeJSON(w, code, models.MemoryStatusResponse{Memory: status.String()})
}

func writeDanmakuError(w http.ResponseWriter, err error) {
	var apiErr *danmaku.APIError
	switch {
	case errors.Is(err, danmaku.ErrKeywordRequired), errors.Is(err, danmaku.ErrInvalidID):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, danmaku.ErrNoMatch), errors.Is(err, danmaku.ErrEpisodeNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &apiErr):
		log.Printf("[danmaku] provider rejected request: %v", err)
		writeError(w, http.StatusBadGateway, apiErr.Message)
	case upstream.IsTimeout(err):
		log.Printf("[danmaku] provider timeout: %v", err)
		writeError(w, http.StatusGatewayTimeout, "danmaku provider timed out")
	case upstream.IsUpstream(err):
		log.Printf("[danmaku] provider failure: %v", err)
		writeError(w, http.StatusBadGateway, "danmaku provider unavailable")
	default:
		log.Printf("[danmaku] request failed: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(mux.Vars(r)[name]), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, name+" must be a positive integer")
		return 0, false
	}
	return id, true
}

// decodeValid decodes the JSON body into dst and validates it, writing a
// 400 response and returning false on failure.
func decodeValid(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	if err := config.Validate(dst); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
