package cache

import (
	"context"
	"errors"
	"time"
)

// Writer performs the physical store operations for named logical caches.
// Implementations compose: each decorator holds the next link and calls
// through, so statistics, deletion semantics, and logging stack without
// modifying one another. A Writer never originates values; it only
// transports them.
type Writer interface {
	// Get returns the entry bytes or ErrNotFound.
	Get(ctx context.Context, name, key string) ([]byte, error)
	// Put overwrites the entry. A ttl of zero means the entry never expires.
	Put(ctx context.Context, name, key string, value []byte, ttl time.Duration) error
	// PutIfAbsent stores the entry only when no value exists yet. It
	// returns nil when the value was stored, or the existing bytes when
	// the store was skipped.
	PutIfAbsent(ctx context.Context, name, key string, value []byte, ttl time.Duration) ([]byte, error)
	// Evict removes a single entry.
	Evict(ctx context.Context, name, key string) error
	// Clear removes every key matching pattern in one batched delete; it
	// issues no command when nothing matches.
	Clear(ctx context.Context, name, pattern string) error

	Statistics(name string) Statistics
	ClearStatistics(name string)
	// WithStatisticsCollector returns a new chain sharing the same backing
	// store but accumulating into the given collector. The receiver is
	// left untouched.
	WithStatisticsCollector(c StatisticsCollector) Writer
}

// storeWriter is the innermost link: raw commands against the backing
// store. Its deletes use the store's lazy variant; stack WithEagerDeletes
// on top where operators need deletions observable in real time.
type storeWriter struct {
	store Store
}

// NewWriter returns the base writer for the given store.
func NewWriter(store Store) Writer { return storeWriter{store: store} }

func (w storeWriter) Get(ctx context.Context, name, key string) ([]byte, error) {
	return w.store.Get(ctx, StoreKey(name, key))
}

func (w storeWriter) Put(ctx context.Context, name, key string, value []byte, ttl time.Duration) error {
	return w.store.Set(ctx, StoreKey(name, key), value, ttl)
}

func (w storeWriter) PutIfAbsent(ctx context.Context, name, key string, value []byte, ttl time.Duration) ([]byte, error) {
	stored, err := w.store.SetIfAbsent(ctx, StoreKey(name, key), value, ttl)
	if err != nil {
		return nil, err
	}
	if stored {
		return nil, nil
	}
	existing, err := w.store.Get(ctx, StoreKey(name, key))
	if errors.Is(err, ErrNotFound) {
		// Expired between the two commands; the caller only needs to know
		// its value was not stored.
		return nil, nil
	}
	return existing, err
}

func (w storeWriter) Evict(ctx context.Context, name, key string) error {
	_, err := w.store.Unlink(ctx, StoreKey(name, key))
	return err
}

func (w storeWriter) Clear(ctx context.Context, name, pattern string) error {
	keys, err := w.store.Keys(ctx, pattern)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	_, err = w.store.Unlink(ctx, keys...)
	return err
}

func (w storeWriter) Statistics(string) Statistics { return Statistics{} }

func (w storeWriter) ClearStatistics(string) {}

func (w storeWriter) WithStatisticsCollector(StatisticsCollector) Writer { return w }
