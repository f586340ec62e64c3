package cache

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("cache: key not found")

// Separator joins a cache name and an entry key into the composite store
// key. It must stay stable for a deployment because Clear patterns are
// derived from it.
const Separator = "::"

// StoreKey builds the composite key an entry lives under in the backing store.
func StoreKey(name, key string) string { return name + Separator + key }

// ClearPattern matches every key belonging to the named cache.
func ClearPattern(name string) string { return name + Separator + "*" }

// Store is the backing key-value store command surface the cache layer
// relies on. Implementations must bound every command with a timeout and
// release the underlying connection on all exit paths.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	SetIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	// Delete issues the synchronous delete command (DEL); deletions become
	// visible immediately in store-level audit logs.
	Delete(ctx context.Context, keys ...string) (int64, error)
	// Unlink issues the asynchronous delete variant used where eager
	// visibility is not required.
	Unlink(ctx context.Context, keys ...string) (int64, error)
	Keys(ctx context.Context, pattern string) ([]string, error)
}
