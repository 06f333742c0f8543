package danmaku

import (
	"errors"
	"log"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"

	"mediadeck/internal/storage"
	"mediadeck/models"
)

// MemoryPrefix namespaces every selection-memory key in the session store.
const MemoryPrefix = "danmaku_memory_"

const (
	autoNamespace    = MemoryPrefix + "auto:"
	episodeNamespace = MemoryPrefix + "episode:"
)

// Status describes the outcome of a memory operation.
type Status int

const (
	StatusOK Status = iota
	StatusNotFound
	StatusUnavailable
	StatusInvalid
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusNotFound:
		return "not_found"
	case StatusUnavailable:
		return "storage_unavailable"
	case StatusInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Result is a typed read from the memory.
type Result[T any] struct {
	Value  T
	Status Status
}

// Found reports whether a value was read.
func (r Result[T]) Found() bool {
	return r.Status == StatusOK
}

// Memory recalls a viewer's danmaku choices across episode changes. Storage
// failures are logged and reported through Status; nothing is returned as
// an error or panics.
type Memory struct {
	store storage.Store
}

// NewMemory wraps a session-scoped store. A nil store yields a memory whose
// every operation reports StatusUnavailable.
func NewMemory(store storage.Store) *Memory {
	return &Memory{store: store}
}

// NormalizeTitle folds width variants and compatibility forms so the same
// show typed differently maps onto the same key.
func NormalizeTitle(title string) string {
	return strings.TrimSpace(norm.NFKC.String(width.Fold.String(strings.TrimSpace(title))))
}

func titleKey(title string) (string, bool) {
	normalized := NormalizeTitle(title)
	if normalized == "" {
		return "", false
	}
	return url.QueryEscape(normalized), true
}

// SaveSource remembers which search result the viewer picked for title.
func (m *Memory) SaveSource(title string, index int) Status {
	key, ok := titleKey(title)
	if !ok || index < 0 {
		return StatusInvalid
	}
	return m.set(autoNamespace+key, strconv.Itoa(index))
}

// Source returns the remembered search result index for title.
func (m *Memory) Source(title string) Result[int] {
	key, ok := titleKey(title)
	if !ok {
		return Result[int]{Status: StatusInvalid}
	}
	raw, status := m.get(autoNamespace + key)
	if status != StatusOK {
		return Result[int]{Status: status}
	}
	index, err := strconv.Atoi(raw)
	if err != nil || index < 0 {
		log.Printf("[danmaku] discarding malformed source memory for %q: %q", title, raw)
		return Result[int]{Status: StatusNotFound}
	}
	return Result[int]{Value: index, Status: StatusOK}
}

// SaveEpisode remembers a manual episode choice for title at episodeIndex.
func (m *Memory) SaveEpisode(title string, episodeIndex int, episodeID int64) Status {
	key, ok := titleKey(title)
	if !ok || episodeIndex < 0 || episodeID <= 0 {
		return StatusInvalid
	}
	return m.set(episodeNamespace+key+":"+strconv.Itoa(episodeIndex), strconv.FormatInt(episodeID, 10))
}

// Episode returns the manually chosen episode id for title at episodeIndex.
func (m *Memory) Episode(title string, episodeIndex int) Result[int64] {
	key, ok := titleKey(title)
	if !ok || episodeIndex < 0 {
		return Result[int64]{Status: StatusInvalid}
	}
	raw, status := m.get(episodeNamespace + key + ":" + strconv.Itoa(episodeIndex))
	if status != StatusOK {
		return Result[int64]{Status: status}
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		log.Printf("[danmaku] discarding malformed episode memory for %q: %q", title, raw)
		return Result[int64]{Status: StatusNotFound}
	}
	return Result[int64]{Value: id, Status: StatusOK}
}

// ClearTitle forgets every choice made for title and nothing else.
func (m *Memory) ClearTitle(title string) Status {
	key, ok := titleKey(title)
	if !ok {
		return StatusInvalid
	}
	if m.store == nil {
		return StatusUnavailable
	}
	if err := m.store.Remove(autoNamespace + key); err != nil {
		log.Printf("[danmaku] clear source memory for %q: %v", title, err)
		return StatusUnavailable
	}
	if _, err := storage.RemovePrefix(m.store, episodeNamespace+key+":"); err != nil {
		log.Printf("[danmaku] clear episode memory for %q: %v", title, err)
		return StatusUnavailable
	}
	return StatusOK
}

// ClearAll forgets every remembered choice in the session.
func (m *Memory) ClearAll() Status {
	if m.store == nil {
		return StatusUnavailable
	}
	if _, err := storage.RemovePrefix(m.store, MemoryPrefix); err != nil {
		log.Printf("[danmaku] clear memory: %v", err)
		return StatusUnavailable
	}
	return StatusOK
}

// Records lists every remembered choice, sorted by title then episode.
func (m *Memory) Records() ([]models.SelectionMemoryRecord, Status) {
	if m.store == nil {
		return nil, StatusUnavailable
	}
	keys, err := m.store.Keys()
	if err != nil {
		log.Printf("[danmaku] list memory: %v", err)
		return nil, StatusUnavailable
	}

	records := make([]models.SelectionMemoryRecord, 0)
	for _, key := range keys {
		switch {
		case strings.HasPrefix(key, autoNamespace):
			title, err := url.QueryUnescape(strings.TrimPrefix(key, autoNamespace))
			if err != nil {
				continue
			}
			if r := m.Source(title); r.Found() {
				records = append(records, models.SelectionMemoryRecord{Title: title, EpisodeIndex: -1, SourceIndex: r.Value})
			}
		case strings.HasPrefix(key, episodeNamespace):
			rest := strings.TrimPrefix(key, episodeNamespace)
			sep := strings.LastIndex(rest, ":")
			if sep < 0 {
				continue
			}
			title, err := url.QueryUnescape(rest[:sep])
			if err != nil {
				continue
			}
			index, err := strconv.Atoi(rest[sep+1:])
			if err != nil {
				continue
			}
			if r := m.Episode(title, index); r.Found() {
				records = append(records, models.SelectionMemoryRecord{Title: title, EpisodeIndex: index, EpisodeID: r.Value})
			}
		}
	}
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Title != records[j].Title {
			return records[i].Title < records[j].Title
		}
		return records[i].EpisodeIndex < records[j].EpisodeIndex
	})
	return records, StatusOK
}

func (m *Memory) get(key string) (string, Status) {
	if m.store == nil {
		return "", StatusUnavailable
	}
	raw, err := m.store.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return "", StatusNotFound
	}
	if err != nil {
		log.Printf("[danmaku] read %s: %v", key, err)
		return "", StatusUnavailable
	}
	return raw, StatusOK
}

func (m *Memory) set(key, value string) Status {
	if m.store == nil {
		return StatusUnavailable
	}
	if err := m.store.Set(key, value); err != nil {
		log.Printf("[danmaku] write %s: %v", key, err)
		return StatusUnavailable
	}
	return StatusOK
}
