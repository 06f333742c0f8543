package storage

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"
)

const (
	// DefaultSessionIdle is how long an untouched session store survives.
	DefaultSessionIdle = 12 * time.Hour

	// DefaultSessionQuota bounds each session store.
	DefaultSessionQuota = 1 << 20

	// DefaultMaxSessions bounds how many session stores are kept at once.
	DefaultMaxSessions = 10000
)

type sessionEntry struct {
	store    *MemoryStore
	lastSeen time.Time
}

// SessionRegistry hands out one session-scoped MemoryStore per client id and
// forgets clients that stay idle for longer than the configured window.
type SessionRegistry struct {
	mu       sync.Mutex
	sessions map[string]*sessionEntry
	idle     time.Duration
	quota    int
	limit    int
	now      func() time.Time
}

// NewSessionRegistry creates a registry holding at most limit sessions.
// Zero values select the defaults.
func NewSessionRegistry(idle time.Duration, quota, limit int) *SessionRegistry {
	if limit <= 0 {
		limit = DefaultMaxSessions
	}
	if idle <= 0 {
		idle = DefaultSessionIdle
	}
	if quota <= 0 {
		quota = DefaultSessionQuota
	}
	return &SessionRegistry{
		sessions: make(map[string]*sessionEntry),
		idle:     idle,
		quota:    quota,
		limit:    limit,
		now:      time.Now,
	}
}

// Store returns the store for clientID, creating it on first use. When the
// registry is full the least recently used session is evicted.
func (r *SessionRegistry) Store(clientID string) Store {
	clientID = strings.TrimSpace(clientID)

	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.sessions[clientID]
	if !ok {
		if len(r.sessions) >= r.limit {
			r.evictOldestLocked()
		}
		entry = &sessionEntry{store: NewMemoryStore(r.quota)}
		r.sessions[clientID] = entry
	}
	entry.lastSeen = r.now()
	return entry.store
}

// Lookup returns the store for clientID without creating one.
func (r *SessionRegistry) Lookup(clientID string) (Store, bool) {
	clientID = strings.TrimSpace(clientID)

	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.sessions[clientID]
	if !ok {
		return nil, false
	}
	entry.lastSeen = r.now()
	return entry.store, true
}

func (r *SessionRegistry) evictOldestLocked() {
	var oldestID string
	var oldest time.Time
	for id, entry := range r.sessions {
		if oldestID == "" || entry.lastSeen.Before(oldest) {
			oldestID, oldest = id, entry.lastSeen
		}
	}
	if oldestID != "" {
		delete(r.sessions, oldestID)
		log.Printf("[sessions] registry full (%d), evicted least recently used session", r.limit)
	}
}

// Len returns the number of live sessions.
func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep evicts sessions idle for longer than the registry window.
func (r *SessionRegistry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	evicted := 0
	for id, entry := range r.sessions {
		if now.Sub(entry.lastSeen) > r.idle {
			delete(r.sessions, id)
			evicted++
		}
	}
	return evicted
}

// Janitor sweeps periodically until ctx is cancelled.
func (r *SessionRegistry) Janitor(ctx context.Context, every time.Duration) {
	if every <= 0 {
		every = time.Minute
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}
