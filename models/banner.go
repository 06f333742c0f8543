package models

import "time"

// BannerItem is the normalized record shown in the homepage carousel.
// Tags are only populated for the video-portal source, GenreIDs only for TMDB.
type BannerItem struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Subtitle     string   `json:"subtitle,omitempty"`
	Tags         []string `json:"tags,omitempty"`
	BackdropPath string   `json:"backdrop_path"`
	PosterPath   string   `json:"poster_path"`
	ReleaseDate  string   `json:"release_date"`
	Overview     string   `json:"overview"`
	VoteAverage  float64  `json:"vote_average"`
	MediaType    string   `json:"media_type"` // "movie" | "tv"
	GenreIDs     []int    `json:"genre_ids,omitempty"`
}

// CacheEntry holds one source's banner list and when it was stored.
type CacheEntry struct {
	Data      []BannerItem `json:"data"`
	Timestamp time.Time    `json:"-"`
}

// Age reports how old the entry is relative to now.
func (e CacheEntry) Age(now time.Time) time.Duration {
	return now.Sub(e.Timestamp)
}

// BannerResponse is the payload of the trending banner endpoint. On failure
// List is empty and Message may carry a diagnostic.
type BannerResponse struct {
	Code    int          `json:"code"`
	List    []BannerItem `json:"list"`
	Message string       `json:"message,omitempty"`
}

// CloneBannerItems returns a deep copy of items so cached slices are never shared.
func CloneBannerItems(items []BannerItem) []BannerItem {
	if items == nil {
		return nil
	}
	out := make([]BannerItem, len(items))
	for i, item := range items {
		out[i] = item
		if item.Tags != nil {
			out[i].Tags = append([]string(nil), item.Tags...)
		}
		if item.GenreIDs != nil {
			out[i].GenreIDs = append([]int(nil), item.GenreIDs...)
		}
	}
	return out
}
