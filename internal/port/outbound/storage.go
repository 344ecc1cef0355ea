// Package outbound defines the outbound port interfaces for the
// device-local persistence consumed by the session store and the
// cache-first fetcher.
package outbound

import "context"

// KeyValueStore is the outbound port for durable per-device storage.
// Adapters implement this over a JSON file, a SQLite database, or an
// in-memory map. Values survive process restarts (except for the
// memory adapter) and have no expiry of their own.
type KeyValueStore interface {
	// Get returns the value stored under key. The second return value
	// reports whether the key was present.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores value under key, overwriting any previous value.
	Set(ctx context.Context, key, value string) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}
