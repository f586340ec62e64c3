package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// loggingWriter emits structured hit/miss/put/evict/clear events for a
// selected set of cache names. Instrumentation wraps every operation but
// only the listed caches produce log lines.
type loggingWriter struct {
	next  Writer
	log   *slog.Logger
	names map[string]struct{}
}

// WithLogging wraps next so operations on the given cache names are logged.
func WithLogging(next Writer, logger *slog.Logger, cacheNames ...string) Writer {
	if logger == nil {
		logger = slog.Default()
	}
	names := make(map[string]struct{}, len(cacheNames))
	for _, n := range cacheNames {
		names[n] = struct{}{}
	}
	return loggingWriter{next: next, log: logger, names: names}
}

func (w loggingWriter) instrumented(name string) bool {
	_, ok := w.names[name]
	return ok
}

func (w loggingWriter) Get(ctx context.Context, name, key string) ([]byte, error) {
	value, err := w.next.Get(ctx, name, key)
	if w.instrumented(name) {
		switch {
		case err == nil:
			w.log.Info("cache hit", "cache", name, "key", key)
		case errors.Is(err, ErrNotFound):
			w.log.Info("cache miss", "cache", name, "key", key)
		}
	}
	return value, err
}

func (w loggingWriter) Put(ctx context.Context, name, key string, value []byte, ttl time.Duration) error {
	err := w.next.Put(ctx, name, key, value, ttl)
	if err == nil && w.instrumented(name) {
		w.log.Info("cache put", "cache", name, "key", key, "ttl", ttl)
	}
	return err
}

func (w loggingWriter) PutIfAbsent(ctx context.Context, name, key string, value []byte, ttl time.Duration) ([]byte, error) {
	existing, err := w.next.PutIfAbsent(ctx, name, key, value, ttl)
	if err == nil && w.instrumented(name) {
		if existing == nil {
			w.log.Info("cache put if absent", "cache", name, "key", key, "ttl", ttl)
		} else {
			w.log.Info("cache put skipped, entry exists", "cache", name, "key", key)
		}
	}
	return existing, err
}

func (w loggingWriter) Evict(ctx context.Context, name, key string) error {
	err := w.next.Evict(ctx, name, key)
	if err == nil && w.instrumented(name) {
		w.log.Info("cache evict", "cache", name, "key", key)
	}
	return err
}

func (w loggingWriter) Clear(ctx context.Context, name, pattern string) error {
	err := w.next.Clear(ctx, name, pattern)
	if err == nil && w.instrumented(name) {
		w.log.Info("cache clear", "cache", name, "pattern", pattern)
	}
	return err
}

func (w loggingWriter) Statistics(name string) Statistics { return w.next.Statistics(name) }

func (w loggingWriter) ClearStatistics(name string) { w.next.ClearStatistics(name) }

func (w loggingWriter) WithStatisticsCollector(c StatisticsCollector) Writer {
	return loggingWriter{next: w.next.WithStatisticsCollector(c), log: w.log, names: w.names}
}
