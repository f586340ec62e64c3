package cache

import (
	"context"
	"time"
)

// eagerDeleteWriter overrides Evict and Clear with the store's synchronous
// delete command. Operators watching store-level audit logs depend on
// deletions being observable the moment the call returns, so the lazy
// variant the base writer uses is not acceptable on these paths.
type eagerDeleteWriter struct {
	next  Writer
	store Store
}

// WithEagerDeletes replaces the deletion semantics of next with blocking
// DEL commands against store. All other operations delegate unchanged.
func WithEagerDeletes(next Writer, store Store) Writer {
	return eagerDeleteWriter{next: next, store: store}
}

func (w eagerDeleteWriter) Get(ctx context.Context, name, key string) ([]byte, error) {
	return w.next.Get(ctx, name, key)
}

func (w eagerDeleteWriter) Put(ctx context.Context, name, key string, value []byte, ttl time.Duration) error {
	return w.next.Put(ctx, name, key, value, ttl)
}

func (w eagerDeleteWriter) PutIfAbsent(ctx context.Context, name, key string, value []byte, ttl time.Duration) ([]byte, error) {
	return w.next.PutIfAbsent(ctx, name, key, value, ttl)
}

func (w eagerDeleteWriter) Evict(ctx context.Context, name, key string) error {
	_, err := w.store.Delete(ctx, StoreKey(name, key))
	return err
}

func (w eagerDeleteWriter) Clear(ctx context.Context, name, pattern string) error {
	keys, err := w.store.Keys(ctx, pattern)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	_, err = w.store.Delete(ctx, keys...)
	return err
}

func (w eagerDeleteWriter) Statistics(name string) Statistics { return w.next.Statistics(name) }

func (w eagerDeleteWriter) ClearStatistics(name string) { w.next.ClearStatistics(name) }

func (w eagerDeleteWriter) WithStatisticsCollector(c StatisticsCollector) Writer {
	return eagerDeleteWriter{next: w.next.WithStatisticsCollector(c), store: w.store}
}
