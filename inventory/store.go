/*
store.go - Key-value persistence interface

PURPOSE:
  Defines the boundary between the inventory core and durable storage.
  The core never talks to a database directly: it serializes each entity
  sequence to bytes and hands it to a KVStore under a per-user key.

KEY INTERFACE:
  KVStore: Get / Set / SetBatch / Delete over opaque byte values
  KeyLister: optional prefix listing, used to enumerate user scopes

ATOMIC BATCHES:
  SetBatch() writes all entries or none. A persistence checkpoint after a
  validate touches up to three namespaces (document kind, stock rows,
  movements); they land together.

IMPLEMENTATIONS:
  - inventory/store/memory.go: in-memory, for tests and dev
  - store/sqlite/sqlite.go: SQLite file or :memory:
  - store/redis/redis.go: Redis

SEE ALSO:
  - gateway.go: key layout and serialization on top of KVStore
*/
package inventory

import "context"

// KVStore is a byte store addressed by string keys.
type KVStore interface {
	// Get returns the value stored under key, or ErrKeyNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// SetBatch stores every entry atomically: all succeed or none do.
	SetBatch(ctx context.Context, entries map[string][]byte) error

	// Delete removes keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error
}

// KeyLister is implemented by stores that can enumerate their keys.
type KeyLister interface {
	// Keys returns the stored keys starting with prefix, sorted.
	Keys(ctx context.Context, prefix string) ([]string, error)
}
