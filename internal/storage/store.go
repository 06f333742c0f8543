// Package storage provides string key-value stores with the semantics of
// browser storage: flat keys, string values, key enumeration and a quota.
package storage

import (
	"errors"
	"strings"
)

var (
	ErrNotFound      = errors.New("storage: key not found")
	ErrQuotaExceeded = errors.New("storage: quota exceeded")
	ErrUnavailable   = errors.New("storage: unavailable")
)

// Store is a flat string key-value store.
type Store interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Remove(key string) error
	Keys() ([]string, error)
}

// RemovePrefix deletes every key starting with prefix and returns how many
// keys were removed. It stops at the first removal error.
func RemovePrefix(s Store, prefix string) (int, error) {
	keys, err := s.Keys()
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, key := range keys {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		if err := s.Remove(key); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

func entrySize(key, value string) int {
	return len(key) + len(value)
}
