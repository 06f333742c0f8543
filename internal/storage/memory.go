package storage

import (
	"sort"
	"sync"
)

// MemoryStore keeps entries in process memory. It backs session-scoped storage.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]string
	used    int
	quota   int // bytes; 0 means unlimited
}

// NewMemoryStore returns an empty store limited to quota bytes (0 = unlimited).
func NewMemoryStore(quota int) *MemoryStore {
	return &MemoryStore{entries: make(map[string]string), quota: quota}
}

func (m *MemoryStore) Get(key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.entries[key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

func (m *MemoryStore) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	used := m.used + entrySize(key, value)
	if old, ok := m.entries[key]; ok {
		used -= entrySize(key, old)
	}
	if m.quota > 0 && used > m.quota {
		return ErrQuotaExceeded
	}
	m.entries[key] = value
	m.used = used
	return nil
}

func (m *MemoryStore) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if old, ok := m.entries[key]; ok {
		m.used -= entrySize(key, old)
		delete(m.entries, key)
	}
	return nil
}

func (m *MemoryStore) Keys() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.entries))
	for key := range m.entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

// Len returns the number of stored keys.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
