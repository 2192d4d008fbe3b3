// Package solutioncache persists work-in-progress source code per
// (problem, language) pair with TTL-based expiry. The underlying storage
// is abstracted behind KeyValueStore so the expiry sweep is a pure
// function over ListKeys + Get, independent of the backend.
package solutioncache

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// KeyValueStore is the minimal storage contract the cache needs.
type KeyValueStore interface {
	// Get retrieves the value for key. The second return is false when
	// the key is absent.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores a key-value pair. A positive ttl lets backends with
	// native expiry (redis) drop the row on their own; the cache still
	// enforces the entry-level deadline itself.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Delete removes the given keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error

	// ListKeys returns all keys with the given prefix.
	ListKeys(ctx context.Context, prefix string) ([]string, error)
}

// fileEntry is one row of the file store's JSON document.
type fileEntry struct {
	Value     string `json:"value"`
	ExpiresAt int64  `json:"expires_at"` // epoch ms; 0 = no expiry
}

// FileStore keeps all rows in a single JSON file, the terminal-client
// equivalent of browser local storage. Concurrent writers within the
// process are serialized by a mutex; last-write-wins is acceptable for
// the cache's idempotent upserts.
type FileStore struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

// NewFileStore creates a store backed by the JSON file at path. The file
// is created lazily on first write.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, now: time.Now}
}

func (s *FileStore) load() (map[string]fileEntry, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]fileEntry{}, nil
		}
		return nil, err
	}
	if len(data) == 0 {
		return map[string]fileEntry{}, nil
	}
	rows := map[string]fileEntry{}
	if err := json.Unmarshal(data, &rows); err != nil {
		// A wrecked store file is unrecoverable; start fresh rather than
		// failing every subsequent operation.
		return map[string]fileEntry{}, nil
	}
	return rows, nil
}

func (s *FileStore) flush(rows map[string]fileEntry) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o600)
}

func (s *FileStore) expired(e fileEntry) bool {
	return e.ExpiresAt > 0 && s.now().UnixMilli() > e.ExpiresAt
}

func (s *FileStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.load()
	if err != nil {
		return "", false, err
	}
	row, ok := rows[key]
	if !ok || s.expired(row) {
		return "", false, nil
	}
	return row.Value, true, nil
}

func (s *FileStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.load()
	if err != nil {
		return err
	}
	row := fileEntry{Value: value}
	if ttl > 0 {
		row.ExpiresAt = s.now().Add(ttl).UnixMilli()
	}
	rows[key] = row
	return s.flush(rows)
}

func (s *FileStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.load()
	if err != nil {
		return err
	}
	changed := false
	for _, key := range keys {
		if _, ok := rows[key]; ok {
			delete(rows, key)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return s.flush(rows)
}

func (s *FileStore) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.load()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(rows))
	for key := range rows {
		if strings.HasPrefix(key, prefix) {
			out = append(out, key)
		}
	}
	return out, nil
}

var _ KeyValueStore = (*FileStore)(nil)
