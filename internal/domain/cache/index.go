package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/agriconnect/agriclient/internal/port/outbound"
)

// indexKey is where the eviction index itself is persisted.
const indexKey = keyPrefix + "index"

// indexEntry records one cached key for eviction bookkeeping.
type indexEntry struct {
	// StorageKey is the namespaced key holding the payload.
	StorageKey string `json:"storage_key"`
	// WrittenAt is the last successful live write, epoch seconds.
	WrittenAt int64 `json:"written_at"`
}

// lruIndex bounds the entry count by evicting the least recently
// written entry. Only successful live writes update it; offline reads
// leave it untouched.
type lruIndex struct {
	kv     outbound.KeyValueStore
	max    int
	logger *slog.Logger

	mu      sync.Mutex
	loaded  bool
	entries map[string]indexEntry // logical key -> entry
}

func newLRUIndex(kv outbound.KeyValueStore, max int, logger *slog.Logger) *lruIndex {
	if max < 1 {
		max = 1
	}
	return &lruIndex{
		kv:      kv,
		max:     max,
		logger:  logger,
		entries: make(map[string]indexEntry),
	}
}

// touch records a write under the logical key, evicting the oldest
// entries when the bound is exceeded, and persists the index. A failed
// payload delete leaves its entry indexed for a later retry.
func (ix *lruIndex) touch(ctx context.Context, key, storageKey string, now time.Time) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	ix.loadLocked(ctx)
	ix.entries[key] = indexEntry{StorageKey: storageKey, WrittenAt: now.Unix()}

	for len(ix.entries) > ix.max {
		oldestKey := ""
		var oldest int64
		for k, e := range ix.entries {
			if oldestKey == "" || e.WrittenAt < oldest {
				oldestKey = k
				oldest = e.WrittenAt
			}
		}
		evicted := ix.entries[oldestKey]
		if err := ix.kv.Delete(ctx, evicted.StorageKey); err != nil {
			// Keep the entry so the payload is retried on the next
			// write instead of being orphaned in storage.
			ix.logger.Warn("failed to evict cache entry", "key", oldestKey, "error", err)
			break
		}
		delete(ix.entries, oldestKey)
		ix.logger.Debug("evicted cache entry", "key", oldestKey)
	}

	data, err := json.Marshal(ix.entries)
	if err != nil {
		ix.logger.Warn("failed to encode cache index", "error", err)
		return
	}
	if err := ix.kv.Set(ctx, indexKey, string(data)); err != nil {
		ix.logger.Warn("failed to persist cache index", "error", err)
	}
}

// loadLocked reads the persisted index once. A corrupt index is
// discarded; existing payload entries then age out naturally.
func (ix *lruIndex) loadLocked(ctx context.Context) {
	if ix.loaded {
		return
	}
	ix.loaded = true

	raw, ok, err := ix.kv.Get(ctx, indexKey)
	if err != nil || !ok {
		return
	}
	var entries map[string]indexEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		ix.logger.Warn("cache index is corrupt, starting fresh", "error", err)
		return
	}
	ix.entries = entries
}

// size returns the number of indexed entries. Useful for tests.
func (ix *lruIndex) size(ctx context.Context) int {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.loadLocked(ctx)
	return len(ix.entries)
}
