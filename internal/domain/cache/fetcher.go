// Package cache implements the cache-first fetch contract: every
// wrapped remote call transparently persists its last successful result
// and serves it back when the device is offline or the live call fails.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/agriconnect/agriclient/internal/metrics"
	"github.com/agriconnect/agriclient/internal/port/outbound"
)

// ErrNoCachedData is returned when the device is offline (or the live
// call failed) and no previous successful result exists for the key.
// Terminal for that single request only.
var ErrNoCachedData = errors.New("no cached data available")

// DefaultMaxEntries bounds the number of cache entries kept on device.
const DefaultMaxEntries = 128

// keyPrefix namespaces all fetcher-owned keys in the key-value store.
const keyPrefix = "agriconnect.cache."

// Probe reports whether the device currently has connectivity. It
// stands in for the browser online/offline signal on non-browser hosts.
type Probe interface {
	Online(ctx context.Context) bool
}

// StaticProbe is a fixed-answer Probe, useful for tests and for hosts
// that force offline mode explicitly.
type StaticProbe bool

// Online implements Probe.
func (p StaticProbe) Online(context.Context) bool { return bool(p) }

// Entry is a fetch result as handed to the caller. FromCache is true
// only when the payload was served from the store because the live call
// failed or was skipped; the persisted value always represents the last
// successful live result and never carries the flag.
type Entry[T any] struct {
	Payload   T
	FromCache bool
}

// Fetcher wraps arbitrary asynchronous producers with durable fallback.
// It owns every key under its prefix in the key-value store; no other
// component writes them. Entries are bounded by a least-recently-written
// index; reads never touch the index, so offline fallbacks stay
// write-free.
type Fetcher struct {
	kv      outbound.KeyValueStore
	probe   Probe
	logger  *slog.Logger
	metrics *metrics.Metrics
	max     int
	now     func() time.Time

	index *lruIndex
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithFetcherLogger sets the logger. Defaults to slog.Default().
func WithFetcherLogger(l *slog.Logger) FetcherOption {
	return func(f *Fetcher) { f.logger = l }
}

// WithFetcherMetrics attaches the metrics bundle. Nil records nothing.
func WithFetcherMetrics(m *metrics.Metrics) FetcherOption {
	return func(f *Fetcher) { f.metrics = m }
}

// WithMaxEntries bounds the number of persisted cache entries. Writes
// beyond the bound evict the least recently written entry.
func WithMaxEntries(n int) FetcherOption {
	return func(f *Fetcher) { f.max = n }
}

// WithFetcherClock overrides the wall clock. For tests.
func WithFetcherClock(now func() time.Time) FetcherOption {
	return func(f *Fetcher) { f.now = now }
}

// NewFetcher creates a cache-first fetcher over the given storage and
// connectivity probe.
func NewFetcher(kv outbound.KeyValueStore, probe Probe, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		kv:     kv,
		probe:  probe,
		logger: slog.Default(),
		max:    DefaultMaxEntries,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	f.index = newLRUIndex(kv, f.max, f.logger)
	return f
}

// WithCache invokes producer with a durable fallback under the given
// key:
//
//   - offline: serve the persisted entry tagged FromCache, or fail with
//     ErrNoCachedData when none exists;
//   - online, producer succeeds: persist the raw result (last write
//     wins) and return it untagged;
//   - online, producer fails: fall back to the persisted entry tagged
//     FromCache, or propagate the producer's failure.
//
// The producer is opaque: retries and timeouts, if any, are its own
// responsibility. Keys never interact with one another.
func WithCache[T any](ctx context.Context, f *Fetcher, key string, producer func(ctx context.Context) (T, error)) (Entry[T], error) {
	storageKey := storageKeyFor(key)

	if !f.probe.Online(ctx) {
		entry, ok := readEntry[T](ctx, f, storageKey)
		if ok {
			f.logger.Debug("offline, serving cached entry", "key", key)
			f.metrics.RecordCache(metrics.OutcomeStale)
			return entry, nil
		}
		f.metrics.RecordCache(metrics.OutcomeMiss)
		return Entry[T]{}, fmt.Errorf("%w: %s", ErrNoCachedData, key)
	}

	payload, err := producer(ctx)
	if err != nil {
		f.logger.Warn("live fetch failed, trying cache fallback", "key", key, "error", err)
		if entry, ok := readEntry[T](ctx, f, storageKey); ok {
			f.metrics.RecordCache(metrics.OutcomeStale)
			return entry, nil
		}
		f.metrics.RecordCache(metrics.OutcomeMiss)
		return Entry[T]{}, err
	}

	data, merr := json.Marshal(payload)
	if merr != nil {
		f.logger.Warn("cache entry not serializable, skipping persist", "key", key, "error", merr)
	} else if serr := f.kv.Set(ctx, storageKey, string(data)); serr != nil {
		f.logger.Warn("failed to persist cache entry", "key", key, "error", serr)
	} else {
		f.index.touch(ctx, key, storageKey, f.now())
	}

	f.metrics.RecordCache(metrics.OutcomeLive)
	return Entry[T]{Payload: payload}, nil
}

// readEntry loads and decodes the persisted entry for a storage key.
func readEntry[T any](ctx context.Context, f *Fetcher, storageKey string) (Entry[T], bool) {
	raw, ok, err := f.kv.Get(ctx, storageKey)
	if err != nil || !ok {
		if err != nil {
			f.logger.Warn("failed to read cache entry", "key", storageKey, "error", err)
		}
		return Entry[T]{}, false
	}
	var payload T
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		f.logger.Warn("cache entry is corrupt, ignoring", "key", storageKey, "error", err)
		return Entry[T]{}, false
	}
	return Entry[T]{Payload: payload, FromCache: true}, true
}

// storageKeyFor maps a logical cache key to its namespaced storage key.
// Logical keys embed locations and language codes and can get long;
// hashing keeps the stored key bounded and free of separator issues.
func storageKeyFor(key string) string {
	return fmt.Sprintf("%s%016x", keyPrefix, xxhash.Sum64String(key))
}
