// Package kvstore is a small string key/value store persisted as a YAML file.
// Operations never return errors: failures are logged and reads report the
// key as absent.
package kvstore

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

type Store struct {
	path   string
	logger *slog.Logger
	mu     sync.Mutex
}

func New(path string, logger *slog.Logger) *Store {
	return &Store{path: path, logger: logger}
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load()
	if err != nil {
		s.logger.Warn("failed to get item", "key", key, "error", err)
		return "", false
	}
	value, ok := items[key]
	return value, ok
}

func (s *Store) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load()
	if err != nil {
		s.logger.Warn("failed to set item", "key", key, "error", err)
		return
	}
	items[key] = value
	if err := s.save(items); err != nil {
		s.logger.Warn("failed to set item", "key", key, "error", err)
	}
}

func (s *Store) Remove(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load()
	if err != nil {
		s.logger.Warn("failed to remove item", "key", key, "error", err)
		return
	}
	if _, ok := items[key]; !ok {
		return
	}
	delete(items, key)
	if err := s.save(items); err != nil {
		s.logger.Warn("failed to remove item", "key", key, "error", err)
	}
}

// Keys returns the sorted keys starting with prefix.
func (s *Store) Keys(prefix string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load()
	if err != nil {
		s.logger.Warn("failed to list keys", "prefix", prefix, "error", err)
		return nil
	}

	var keys []string
	for key := range items {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

func (s *Store) load() (map[string]string, error) {
	items := make(map[string]string)

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return items, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading store: %w", err)
	}

	if err := yaml.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("parsing store: %w", err)
	}
	if items == nil {
		items = make(map[string]string)
	}
	return items, nil
}

// save writes items to a temp file in the same directory and renames it
// over the store.
func (s *Store) save(items map[string]string) (err error) {
	data, err := yaml.Marshal(items)
	if err != nil {
		return fmt.Errorf("encoding store: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating store dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".kvstore-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err = os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replacing store: %w", err)
	}
	return nil
}
