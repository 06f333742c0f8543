package banner

import (
	"encoding/json"
	"strconv"
	"strings"

	"mediadeck/models"
	"mediadeck/services/metadata"
)

const (
	// shelfCardType marks the carousel card inside a video-portal page.
	shelfCardType = "pc_shelves"

	// promoMarker appears in the titles of paid placements on the portal shelf.
	promoMarker = "广告"
)

type portalPage struct {
	Data struct {
		CardList []json.RawMessage `json:"CardList"`
	} `json:"data"`
}

type portalCard struct {
	Type         string `json:"type"`
	ChildrenList struct {
		List struct {
			Cards []json.RawMessage `json:"cards"`
		} `json:"list"`
	} `json:"children_list"`
}

type shelfEntry struct {
	ID     json.RawMessage `json:"id"`
	Params json.RawMessage `json:"params"`
}

// AdaptShelf normalizes a video-portal page into banner items. It never
// fails: anything it cannot understand yields an empty list.
func AdaptShelf(raw []byte) []models.BannerItem {
	var page portalPage
	if err := json.Unmarshal(raw, &page); err != nil {
		return []models.BannerItem{}
	}

	var shelf *portalCard
	for _, rawCard := range page.Data.CardList {
		var card portalCard
		if err := json.Unmarshal(rawCard, &card); err != nil {
			continue
		}
		if card.Type == shelfCardType {
			shelf = &card
			break
		}
	}
	if shelf == nil {
		return []models.BannerItem{}
	}

	items := make([]models.BannerItem, 0, len(shelf.ChildrenList.List.Cards))
	for _, rawCard := range shelf.ChildrenList.List.Cards {
		var card shelfEntry
		if err := json.Unmarshal(rawCard, &card); err != nil {
			continue
		}
		params, ok := decodeParams(card.Params)
		if !ok {
			continue
		}
		title := paramString(params, "title")
		image := paramString(params, "image_url")
		if title == "" || image == "" {
			continue
		}
		if strings.Contains(title, promoMarker) {
			continue
		}

		id := paramString(params, "cid")
		if id == "" {
			id = rawID(card.ID)
		}
		items = append(items, models.BannerItem{
			ID:           id,
			Title:        title,
			Subtitle:     firstNonEmpty(paramString(params, "second_title"), paramString(params, "sub_title")),
			Tags:         splitLabels(paramString(params, "label")),
			BackdropPath: image,
			PosterPath:   image,
			ReleaseDate:  paramString(params, "publish_date"),
			Overview:     paramString(params, "desc"),
			VoteAverage:  paramFloat(params, "score"),
			MediaType:    "tv",
		})
	}
	return items
}

// decodeParams accepts only a JSON object; null, arrays and scalars are rejected.
func decodeParams(raw json.RawMessage) (map[string]any, bool) {
	if len(raw) == 0 {
		return nil, false
	}
	var params map[string]any
	if err := json.Unmarshal(raw, &params); err != nil || params == nil {
		return nil, false
	}
	return params, true
}

func paramString(params map[string]any, key string) string {
	switch v := params[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

func paramFloat(params map[string]any, key string) float64 {
	switch v := params[key].(type) {
	case float64:
		return v
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

func rawID(raw json.RawMessage) string {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return ""
	}
	return paramString(map[string]any{"id": v}, "id")
}

func splitLabels(label string) []string {
	parts := strings.Split(label, "|")
	tags := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			tags = append(tags, part)
		}
	}
	if len(tags) == 0 {
		return nil
	}
	return tags
}

type tmdbTrending struct {
	Results []tmdbResult `json:"results"`
}

type tmdbResult struct {
	ID           int64   `json:"id"`
	Title        string  `json:"title"`
	Name         string  `json:"name"`
	BackdropPath string  `json:"backdrop_path"`
	PosterPath   string  `json:"poster_path"`
	ReleaseDate  string  `json:"release_date"`
	FirstAirDate string  `json:"first_air_date"`
	Overview     string  `json:"overview"`
	VoteAverage  float64 `json:"vote_average"`
	MediaType    string  `json:"media_type"`
	GenreIDs     []int   `json:"genre_ids"`
}

// AdaptTMDB normalizes a TMDB trending payload into banner items. Malformed
// input yields an empty list.
func AdaptTMDB(raw []byte) []models.BannerItem {
	var payload tmdbTrending
	if err := json.Unmarshal(raw, &payload); err != nil {
		return []models.BannerItem{}
	}

	items := make([]models.BannerItem, 0, len(payload.Results))
	for _, r := range payload.Results {
		if r.MediaType == "person" {
			continue
		}
		title := strings.TrimSpace(firstNonEmpty(r.Title, r.Name))
		if title == "" || strings.TrimSpace(r.BackdropPath) == "" {
			continue
		}
		items = append(items, models.BannerItem{
			ID:           strconv.FormatInt(r.ID, 10),
			Title:        title,
			BackdropPath: metadata.ImageURL(r.BackdropPath, metadata.TMDBBackdropSize),
			PosterPath:   metadata.ImageURL(r.PosterPath, metadata.TMDBPosterSize),
			ReleaseDate:  firstNonEmpty(r.ReleaseDate, r.FirstAirDate),
			Overview:     r.Overview,
			VoteAverage:  r.VoteAverage,
			MediaType:    r.MediaType,
			GenreIDs:     genreIDs(r.GenreIDs),
		})
	}
	return items
}

// genreIDs copies ids, keeping nil for an empty list so items survive a
// JSON round trip unchanged.
func genreIDs(ids []int) []int {
	if len(ids) == 0 {
		return nil
	}
	return append([]int(nil), ids...)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
