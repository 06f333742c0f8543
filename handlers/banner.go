package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"mediadeck/internal/upstream"
	"mediadeck/models"
	"mediadeck/services/banner"
)

type bannerService interface {
	Trending(context.Context) ([]models.BannerItem, error)
	ClearCache()
}

var _ bannerService = (*banner.Service)(nil)

// BannerHandler serves the homepage carousel endpoints.
type BannerHandler struct {
	Service bannerService
}

func NewBannerHandler(service bannerService) *BannerHandler {
	return &BannerHandler{Service: service}
}

// Trending returns the banner list. Provider failures are reported in the
// body code with HTTP 200 so the homepage can degrade to an empty carousel.
func (h *BannerHandler) Trending(w http.ResponseWriter, r *http.Request) {
	items, err := h.Service.Trending(r.Context())
	switch {
	case err == nil:
		if items == nil {
			items = []models.BannerItem{}
		}
		writeBanner(w, http.StatusOK, models.BannerResponse{Code: http.StatusOK, List: items})

	case errors.Is(err, banner.ErrAPIKeyMissing):
		writeBanner(w, http.StatusBadRequest, models.BannerResponse{
			Code:    http.StatusBadRequest,
			List:    []models.BannerItem{},
			Message: "TMDB API key is not configured",
		})

	case upstream.IsUpstream(err):
		status := upstream.Status(err)
		log.Printf("[banner] upstream failure (%d): %v", status, err)
		writeBanner(w, http.StatusOK, models.BannerResponse{Code: status, List: []models.BannerItem{}})

	default:
		log.Printf("[banner] trending failed: %v", err)
		writeBanner(w, http.StatusInternalServerError, models.BannerResponse{
			Code:    http.StatusInternalServerError,
			List:    []models.BannerItem{},
			Message: "internal server error",
		})
	}
}

// ClearCache drops the server-side banner cache.
func (h *BannerHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	h.Service.ClearCache()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "cleared"})
}

func writeBanner(w http.ResponseWriter, status int, resp models.BannerResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}
