package models

// DanmakuAnime is a search hit from the danmaku provider.
type DanmakuAnime struct {
	AnimeID         int64  `json:"animeId"`
	AnimeTitle      string `json:"animeTitle"`
	Type            string `json:"type,omitempty"`
	TypeDescription string `json:"typeDescription,omitempty"`
	ImageURL        string `json:"imageUrl,omitempty"`
	EpisodeCount    int    `json:"episodeCount,omitempty"`
}

// DanmakuEpisode is one episode of an anime as listed by the danmaku provider.
type DanmakuEpisode struct {
	EpisodeID     int64  `json:"episodeId"`
	EpisodeTitle  string `json:"episodeTitle"`
	EpisodeNumber string `json:"episodeNumber,omitempty"`
}

// DanmakuComment is a single timed overlay comment.
type DanmakuComment struct {
	ID    int64   `json:"cid"`
	Time  float64 `json:"time"`  // seconds from the start of the episode
	Mode  int     `json:"mode"`  // 1 scroll, 4 bottom, 5 top
	Color int     `json:"color"` // decimal RGB
	Text  string  `json:"text"`
}

// DanmakuSelection is what the playback component receives once a source is chosen.
type DanmakuSelection struct {
	AnimeID       int64  `json:"animeId" validate:"required,gt=0"`
	EpisodeID     int64  `json:"episodeId" validate:"required,gt=0"`
	AnimeTitle    string `json:"animeTitle" validate:"required"`
	EpisodeTitle  string `json:"episodeTitle"`
	SearchKeyword string `json:"searchKeyword,omitempty"`
}

// SelectionMemoryRecord is a single remembered danmaku choice.
// EpisodeIndex is -1 for auto-search source records.
type SelectionMemoryRecord struct {
	Title        string `json:"title"`
	EpisodeIndex int    `json:"episodeIndex"`
	SourceIndex  int    `json:"sourceIndex"`
	EpisodeID    int64  `json:"episodeId,omitempty"`
}

// DanmakuSelectionResponse answers a manual or automatic selection. Memory
// reports whether the choice could be remembered ("ok", "storage_unavailable", ...).
type DanmakuSelectionResponse struct {
	Selection DanmakuSelection `json:"selection"`
	Memory    string           `json:"memory,omitempty"`
}

// DanmakuCommentsResponse carries an episode's comments ordered by time.
type DanmakuCommentsResponse struct {
	Count    int              `json:"count"`
	Comments []DanmakuComment `json:"comments"`
}

// SourceMemoryRequest remembers which search result to use for a title.
type SourceMemoryRequest struct {
	Title       string `json:"title" validate:"required"`
	SourceIndex int    `json:"sourceIndex" validate:"min=0"`
}

// MemoryStatusResponse reports the outcome of a selection memory write.
type MemoryStatusResponse struct {
	Memory string `json:"memory"`
}
