package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/afero"
)

// DefaultFileQuota mirrors the usual 5MB browser localStorage allowance.
const DefaultFileQuota = 5 << 20

var ErrPathRequired = errors.New("storage: file path not provided")

// FileStore is a persistent store kept as a single JSON object on disk.
// Every mutation rewrites the file atomically (write temp, then rename).
type FileStore struct {
	mu      sync.RWMutex
	fs      afero.Fs
	path    string
	quota   int
	used    int
	entries map[string]string
}

// NewFileStore opens (or lazily creates) the store at path. A corrupt file
// is logged and treated as empty rather than failing the caller.
func NewFileStore(fs afero.Fs, path string, quota int) (*FileStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, ErrPathRequired
	}
	if fs == nil {
		fs = afero.NewOsFs()
	}
	s := &FileStore{
		fs:      fs,
		path:    path,
		quota:   quota,
		entries: make(map[string]string),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileStore) load() error {
	data, err := afero.ReadFile(s.fs, s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read store: %w", err)
	}
	if len(data) == 0 {
		return nil
	}
	var entries map[string]string
	if err := json.Unmarshal(data, &entries); err != nil {
		log.Printf("[storage] ignoring corrupt store %s: %v", s.path, err)
		return nil
	}
	for key, value := range entries {
		s.entries[key] = value
		s.used += entrySize(key, value)
	}
	return nil
}

func (s *FileStore) Get(key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.entries[key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

func (s *FileStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	used := s.used + entrySize(key, value)
	old, existed := s.entries[key]
	if existed {
		used -= entrySize(key, old)
	}
	if s.quota > 0 && used > s.quota {
		return ErrQuotaExceeded
	}

	s.entries[key] = value
	if err := s.saveLocked(); err != nil {
		if existed {
			s.entries[key] = old
		} else {
			delete(s.entries, key)
		}
		return err
	}
	s.used = used
	return nil
}

func (s *FileStore) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.entries[key]
	if !ok {
		return nil
	}
	delete(s.entries, key)
	if err := s.saveLocked(); err != nil {
		s.entries[key] = old
		return err
	}
	s.used -= entrySize(key, old)
	return nil
}

func (s *FileStore) Keys() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.entries))
	for key := range s.entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *FileStore) saveLocked() error {
	if err := s.fs.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("%w: create store dir: %v", ErrUnavailable, err)
	}
	tmp := s.path + ".tmp"
	f, err := s.fs.Create(tmp)
	if err != nil {
		return fmt.Errorf("%w: create temp file: %v", ErrUnavailable, err)
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s.entries); err != nil {
		f.Close()
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("encode store: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("%w: close temp file: %v", ErrUnavailable, err)
	}
	if err := s.fs.Rename(tmp, s.path); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("%w: rename temp file: %v", ErrUnavailable, err)
	}
	return nil
}
