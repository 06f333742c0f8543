package danmaku

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"sort"
	"strings"

	"github.com/sourcegraph/conc/pool"

	"mediadeck/models"
)

var (
	ErrKeywordRequired = errors.New("danmaku: keyword is required")
	ErrNoMatch         = errors.New("danmaku: no matching anime")
	ErrEpisodeNotFound = errors.New("danmaku: episode not found")
	ErrInvalidID       = errors.New("danmaku: id must be positive")
)

// episodeIDBase relates dandanplay ids: episodeId = animeId*10000 + n.
const episodeIDBase = 10000

var seasonSuffix = regexp.MustCompile(`(?i)\s*(第[一二三四五六七八九十百\d]+[季部]|season\s*\d+|s\d{1,2})\s*$`)

// Service implements danmaku search and selection on top of the provider API.
type Service struct {
	api API
}

func NewService(api API) *Service {
	return &Service{api: api}
}

// searchVariants returns the keyword plus, when it ends in a season marker,
// the keyword without it. Providers often list later seasons under the
// base title only.
func searchVariants(keyword string) []string {
	keyword = NormalizeTitle(keyword)
	if keyword == "" {
		return nil
	}
	variants := []string{keyword}
	if stripped := strings.TrimSpace(seasonSuffix.ReplaceAllString(keyword, "")); stripped != "" && stripped != keyword {
		variants = append(variants, stripped)
	}
	return variants
}

type variantHits struct {
	order  int
	ok     bool
	animes []models.DanmakuAnime
}

// Search looks the keyword up (and its season-less variant) concurrently and
// merges the hits, keeping the first occurrence of each anime.
func (s *Service) Search(ctx context.Context, keyword string) ([]models.DanmakuAnime, error) {
	variants := searchVariants(keyword)
	if len(variants) == 0 {
		return nil, ErrKeywordRequired
	}

	results := make([]variantHits, len(variants))
	p := pool.New().WithErrors().WithMaxGoroutines(len(variants)).WithContext(ctx)
	for i, variant := range variants {
		p.Go(func(ctx context.Context) error {
			animes, err := s.api.SearchAnime(ctx, variant)
			if err != nil {
				return fmt.Errorf("search %q: %w", variant, err)
			}
			results[i] = variantHits{order: i, ok: true, animes: animes}
			return nil
		})
	}
	err := p.Wait()
	hits := make([]variantHits, 0, len(results))
	for _, h := range results {
		if h.ok {
			hits = append(hits, h)
		}
	}
	if err != nil {
		if len(hits) == 0 {
			return nil, err
		}
		log.Printf("[danmaku] partial search failure for %q: %v", keyword, err)
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].order < hits[j].order })
	seen := make(map[int64]struct{})
	merged := make([]models.DanmakuAnime, 0)
	for _, h := range hits {
		for _, anime := range h.animes {
			if _, dup := seen[anime.AnimeID]; dup {
				continue
			}
			seen[anime.AnimeID] = struct{}{}
			merged = append(merged, anime)
		}
	}
	return merged, nil
}

// Episodes lists the episodes of an anime.
func (s *Service) Episodes(ctx context.Context, animeID int64) ([]models.DanmakuEpisode, error) {
	if animeID <= 0 {
		return nil, ErrInvalidID
	}
	return s.api.Episodes(ctx, animeID)
}

// Comments loads the overlay comments of an episode ordered by time.
func (s *Service) Comments(ctx context.Context, episodeID int64) ([]models.DanmakuComment, error) {
	if episodeID <= 0 {
		return nil, ErrInvalidID
	}
	comments, err := s.api.Comments(ctx, episodeID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(comments, func(i, j int) bool { return comments[i].Time < comments[j].Time })
	return comments, nil
}

// SelectRequest is a manual choice made in the selection panel while
// videoTitle's episode at EpisodeIndex is playing.
type SelectRequest struct {
	VideoTitle   string                  `json:"videoTitle" validate:"required"`
	EpisodeIndex int                     `json:"episodeIndex" validate:"min=0"`
	Selection    models.DanmakuSelection `json:"selection"`
}

// Select records a manual choice in mem and returns the selection for playback.
func (s *Service) Select(mem *Memory, req SelectRequest) (models.DanmakuSelection, Status) {
	status := mem.SaveEpisode(req.VideoTitle, req.EpisodeIndex, req.Selection.EpisodeID)
	if status != StatusOK {
		log.Printf("[danmaku] selection for %q ep %d not remembered: %s", req.VideoTitle, req.EpisodeIndex, status)
	}
	return req.Selection, status
}

// RememberSource stores which search result should be used for title from now on.
func (s *Service) RememberSource(mem *Memory, title string, index int) Status {
	return mem.SaveSource(title, index)
}

// AutoSelect resolves a selection for title's episode without user input.
// A manual choice remembered for that episode wins; otherwise the title is
// searched and the remembered source (or the first hit) is used.
func (s *Service) AutoSelect(ctx context.Context, mem *Memory, title string, episodeIndex int) (models.DanmakuSelection, error) {
	if NormalizeTitle(title) == "" {
		return models.DanmakuSelection{}, ErrKeywordRequired
	}
	if episodeIndex < 0 {
		return models.DanmakuSelection{}, ErrEpisodeNotFound
	}

	if remembered := mem.Episode(title, episodeIndex); remembered.Found() {
		return s.fromRememberedEpisode(ctx, title, remembered.Value), nil
	}

	animes, err := s.Search(ctx, title)
	if err != nil {
		return models.DanmakuSelection{}, err
	}
	if len(animes) == 0 {
		return models.DanmakuSelection{}, ErrNoMatch
	}

	sourceIndex := 0
	if src := mem.Source(title); src.Found() && src.Value < len(animes) {
		sourceIndex = src.Value
	}
	anime := animes[sourceIndex]

	episodes, err := s.api.Episodes(ctx, anime.AnimeID)
	if err != nil {
		return models.DanmakuSelection{}, err
	}
	if episodeIndex >= len(episodes) {
		return models.DanmakuSelection{}, ErrEpisodeNotFound
	}
	episode := episodes[episodeIndex]
	return models.DanmakuSelection{
		AnimeID:       anime.AnimeID,
		EpisodeID:     episode.EpisodeID,
		AnimeTitle:    anime.AnimeTitle,
		EpisodeTitle:  episode.EpisodeTitle,
		SearchKeyword: title,
	}, nil
}

// fromRememberedEpisode rebuilds a selection from a stored episode id. Titles
// are looked up best-effort; ids alone are enough for playback.
func (s *Service) fromRememberedEpisode(ctx context.Context, title string, episodeID int64) models.DanmakuSelection {
	sel := models.DanmakuSelection{
		AnimeID:       episodeID / episodeIDBase,
		EpisodeID:     episodeID,
		AnimeTitle:    title,
		SearchKeyword: title,
	}
	episodes, err := s.api.Episodes(ctx, sel.AnimeID)
	if err != nil {
		log.Printf("[danmaku] episode titles unavailable for anime %d: %v", sel.AnimeID, err)
		return sel
	}
	for _, ep := range episodes {
		if ep.EpisodeID == episodeID {
			sel.EpisodeTitle = ep.EpisodeTitle
			break
		}
	}
	return sel
}
