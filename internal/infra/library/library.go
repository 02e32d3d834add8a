// Package library stores finished recordings in a directory and keeps an
// index of them in a key/value store.
package library

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"voice-recorder/internal/audioutil"
	"voice-recorder/internal/domain"
	"voice-recorder/internal/infra"
	"voice-recorder/internal/infra/encoder"
	"voice-recorder/internal/infra/kvstore"
)

const keyPrefix = "recording:"

var (
	ErrNoArtifact = errors.New("no recording to save")
	ErrNotFound   = errors.New("recording not found")
)

type Entry struct {
	ID        string    `yaml:"id" json:"id"`
	Name      string    `yaml:"name" json:"name"`
	Color     string    `yaml:"color,omitempty" json:"color,omitempty"`
	File      string    `yaml:"file" json:"file"`
	MimeType  string    `yaml:"mime_type" json:"mime_type"`
	Size      int64     `yaml:"size" json:"size"`
	Duration  int       `yaml:"duration" json:"duration"`
	CreatedAt time.Time `yaml:"created_at" json:"created_at"`
}

// SaveOption sets optional metadata on a saved entry.
type SaveOption func(*Entry)

// WithColor labels the entry with a display color such as "#ff5722".
func WithColor(color string) SaveOption {
	return func(e *Entry) {
		e.Color = strings.TrimSpace(color)
	}
}

type Library struct {
	dir    string
	index  *kvstore.Store
	logger *slog.Logger
	retry  infra.RetryConfig
	now    func() time.Time
}

func New(dir string, index *kvstore.Store, logger *slog.Logger) *Library {
	logger.Debug("opening library", "dir", dir, "index", index.Path())
	return &Library{
		dir:    dir,
		index:  index,
		logger: logger,
		retry:  infra.DefaultRetryConfig(),
		now:    time.Now,
	}
}

func (l *Library) Dir() string {
	return l.dir
}

// Path returns the absolute location of an entry's audio file.
func (l *Library) Path(e Entry) string {
	return filepath.Join(l.dir, e.File)
}

// Save writes the artifact under a generated file name and indexes it.
func (l *Library) Save(ctx context.Context, name string, artifact *domain.Artifact, opts ...SaveOption) (Entry, error) {
	if artifact == nil || artifact.Size() == 0 {
		return Entry{}, ErrNoArtifact
	}
	if strings.TrimSpace(name) == "" {
		name = "recording"
	}

	if err := os.MkdirAll(l.dir, 0755); err != nil {
		return Entry{}, fmt.Errorf("creating library dir: %w", err)
	}

	data := artifact.Data
	if audioutil.FileExtension(artifact.MimeType) == "wav" {
		data = encoder.PatchWAVSizes(data)
	}

	createdAt := artifact.CreatedAt
	if createdAt.IsZero() {
		createdAt = l.now()
	}
	entry := Entry{
		ID:        uuid.NewString(),
		Name:      name,
		File:      audioutil.GenerateFilename(name, artifact.MimeType, createdAt),
		MimeType:  artifact.MimeType,
		Size:      int64(len(data)),
		Duration:  artifact.Duration,
		CreatedAt: createdAt,
	}
	for _, opt := range opts {
		opt(&entry)
	}

	path := l.Path(entry)
	err := infra.WithRetry(ctx, l.retry, func() error {
		return os.WriteFile(path, data, 0644)
	})
	if err != nil {
		return Entry{}, fmt.Errorf("writing %s: %w", entry.File, err)
	}

	encoded, err := yaml.Marshal(entry)
	if err != nil {
		return Entry{}, fmt.Errorf("encoding entry: %w", err)
	}
	l.index.Set(keyPrefix+entry.File, string(encoded))

	l.logger.Info("recording saved", "file", entry.File, "bytes", entry.Size, "seconds", entry.Duration)
	return entry, nil
}

// List returns indexed entries, oldest first.
func (l *Library) List() []Entry {
	var entries []Entry
	for _, key := range l.index.Keys(keyPrefix) {
		entry, ok := l.lookup(key)
		if !ok {
			continue
		}
		entries = append(entries, entry)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})
	return entries
}

// Get looks an entry up by its ID.
func (l *Library) Get(id string) (Entry, bool) {
	for _, entry := range l.List() {
		if entry.ID == id {
			return entry, true
		}
	}
	return Entry{}, false
}

// Delete removes an entry's file and its index record.
func (l *Library) Delete(id string) error {
	entry, ok := l.Get(id)
	if !ok {
		return ErrNotFound
	}

	if err := os.Remove(l.Path(entry)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing %s: %w", entry.File, err)
	}
	l.index.Remove(keyPrefix + entry.File)
	l.logger.Info("recording deleted", "file", entry.File)
	return nil
}

// Reconcile drops index entries whose files no longer exist and returns how
// many were dropped.
func (l *Library) Reconcile() int {
	dropped := 0
	for _, entry := range l.List() {
		if _, err := os.Stat(l.Path(entry)); errors.Is(err, fs.ErrNotExist) {
			l.forget(entry.File)
			dropped++
		}
	}
	return dropped
}

// Watch keeps the index in sync with files removed or renamed outside the
// library until ctx is cancelled.
func (l *Library) Watch(ctx context.Context) error {
	if err := os.MkdirAll(l.dir, 0755); err != nil {
		return fmt.Errorf("creating library dir: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(l.dir); err != nil {
		return fmt.Errorf("watching %s: %w", l.dir, err)
	}

	if dropped := l.Reconcile(); dropped > 0 {
		l.logger.Info("dropped missing recordings from index", "count", dropped)
	}
	l.logger.Debug("watching library", "dir", l.dir)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				l.forget(filepath.Base(event.Name))
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			l.logger.Warn("library watcher error", "error", err)
		}
	}
}

func (l *Library) forget(file string) {
	key := keyPrefix + file
	if _, ok := l.index.Get(key); !ok {
		return
	}
	l.index.Remove(key)
	l.logger.Info("recording removed outside library", "file", file)
}

func (l *Library) lookup(key string) (Entry, bool) {
	raw, ok := l.index.Get(key)
	if !ok {
		return Entry{}, false
	}

	var entry Entry
	if err := yaml.Unmarshal([]byte(raw), &entry); err != nil {
		l.logger.Warn("skipping unreadable index entry", "key", key, "error", err)
		return Entry{}, false
	}
	return entry, true
}
