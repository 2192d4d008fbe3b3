package solutioncache

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"

	"ojcli/internal/model"
	"ojcli/pkg/utils/logger"
)

const (
	// DefaultTTL is how long a saved solution survives without a refresh.
	DefaultTTL = 24 * time.Hour

	// KeyPrefix namespaces every cache row in the shared store.
	KeyPrefix = "ojcli:solution:"
)

// Entry is the persisted payload for one (problem, language) pair.
type Entry struct {
	Code         string `json:"code"`
	Expiry       int64  `json:"expiry"` // epoch ms
	LanguageID   string `json:"languageId"`
	LanguageName string `json:"languageName"`
	SavedAt      int64  `json:"savedAt"` // epoch ms
}

// Cache is the solution cache. All writers are idempotent upserts keyed
// by the same (problemId, languageId) pair, so no locking is needed
// beyond what the store provides.
type Cache struct {
	store KeyValueStore
	ttl   time.Duration
	now   func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithTTL overrides the default entry lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) { c.ttl = ttl }
}

// WithClock overrides the time source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New creates a Cache over the given store.
func New(store KeyValueStore, opts ...Option) *Cache {
	c := &Cache{store: store, ttl: DefaultTTL, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key builds the storage key for a (problem, language) pair. Switching
// language for the same problem addresses a different row.
func Key(problemID, languageID string) string {
	return KeyPrefix + problemID + ":" + languageID
}

// Save upserts the entry and refreshes its expiry. Callers debounce
// (periodic tick plus save-before-run), not every keystroke.
func (c *Cache) Save(ctx context.Context, problemID string, lang model.Language, code string) error {
	nowMs := c.now().UnixMilli()
	entry := Entry{
		Code:         code,
		Expiry:       c.now().Add(c.ttl).UnixMilli(),
		LanguageID:   lang.ID,
		LanguageName: lang.DisplayName,
		SavedAt:      nowMs,
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return c.store.Set(ctx, Key(problemID, lang.ID), string(data), c.ttl)
}

// Load returns the cached code for the pair, or ok=false on a miss.
// Expired, corrupted and language-mismatched entries are deleted as a
// side effect, so the store self-heals without a separate sweep. No error
// is ever surfaced for a bad entry; only the store's own failure would.
func (c *Cache) Load(ctx context.Context, problemID, languageID string) (string, bool) {
	key := Key(problemID, languageID)
	raw, ok, err := c.store.Get(ctx, key)
	if err != nil {
		logger.Warn(ctx, "solution cache read failed", zap.String("key", key), zap.Error(err))
		return "", false
	}
	if !ok {
		return "", false
	}

	var entry Entry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil || entry.LanguageID == "" {
		logger.Warn(ctx, "solution cache entry corrupted, deleting", zap.String("key", key))
		c.deleteQuietly(ctx, key)
		return "", false
	}
	if c.now().UnixMilli() > entry.Expiry {
		c.deleteQuietly(ctx, key)
		return "", false
	}
	if entry.LanguageID != languageID {
		// The key encodes the language, so a disagreeing payload is a
		// corrupt row, not another language's code.
		logger.Warn(ctx, "solution cache language mismatch, deleting",
			zap.String("key", key), zap.String("stored", entry.LanguageID), zap.String("requested", languageID))
		c.deleteQuietly(ctx, key)
		return "", false
	}
	return entry.Code, true
}

// Sweep walks every cache row and deletes expired or corrupted entries.
// Runs opportunistically at startup to bound growth for problems that are
// never revisited. Returns how many rows were removed.
func (c *Cache) Sweep(ctx context.Context) int {
	keys, err := c.store.ListKeys(ctx, KeyPrefix)
	if err != nil {
		logger.Warn(ctx, "solution cache sweep list failed", zap.Error(err))
		return 0
	}
	nowMs := c.now().UnixMilli()
	var stale []string
	for _, key := range keys {
		raw, ok, err := c.store.Get(ctx, key)
		if err != nil || !ok {
			continue
		}
		var entry Entry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil || entry.LanguageID == "" {
			stale = append(stale, key)
			continue
		}
		if nowMs > entry.Expiry {
			stale = append(stale, key)
		}
	}
	if len(stale) == 0 {
		return 0
	}
	c.deleteQuietly(ctx, stale...)
	logger.Info(ctx, "solution cache sweep removed stale entries",
		zap.Int("removed", len(stale)), zap.String("keys", strings.Join(stale, ",")))
	return len(stale)
}

func (c *Cache) deleteQuietly(ctx context.Context, keys ...string) {
	if err := c.store.Delete(ctx, keys...); err != nil {
		logger.Warn(ctx, "solution cache delete failed", zap.Error(err))
	}
}
