package cache

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Statistics is a point-in-time snapshot of one cache's counters.
type Statistics struct {
	Hits   uint64 `json:"hits"`
	Misses uint64 `json:"misses"`
	Puts   uint64 `json:"puts"`
}

// StatisticsCollector accumulates hit/miss/put counts per cache name.
type StatisticsCollector interface {
	Hit(name string)
	Miss(name string)
	Put(name string)
	Snapshot(name string) Statistics
	Reset(name string)
}

type memoryCollector struct {
	mu     sync.Mutex
	counts map[string]*Statistics
}

// NewStatisticsCollector returns an in-process collector safe for
// concurrent use.
func NewStatisticsCollector() StatisticsCollector {
	return &memoryCollector{counts: make(map[string]*Statistics)}
}

func (c *memoryCollector) entry(name string) *Statistics {
	s, ok := c.counts[name]
	if !ok {
		s = &Statistics{}
		c.counts[name] = s
	}
	return s
}

func (c *memoryCollector) Hit(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entry(name).Hits++
}

func (c *memoryCollector) Miss(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entry(name).Misses++
}

func (c *memoryCollector) Put(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entry(name).Puts++
}

func (c *memoryCollector) Snapshot(name string) Statistics {
	c.mu.Lock()
	defer c.mu.Unlock()
	return *c.entry(name)
}

func (c *memoryCollector) Reset(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[name] = &Statistics{}
}

// statsWriter counts hits, misses, and puts before delegating.
type statsWriter struct {
	next      Writer
	collector StatisticsCollector
}

// WithStatistics wraps next so that reads and writes are counted in the
// given collector.
func WithStatistics(next Writer, collector StatisticsCollector) Writer {
	if collector == nil {
		collector = NewStatisticsCollector()
	}
	return statsWriter{next: next, collector: collector}
}

func (w statsWriter) Get(ctx context.Context, name, key string) ([]byte, error) {
	value, err := w.next.Get(ctx, name, key)
	switch {
	case err == nil:
		w.collector.Hit(name)
	case errors.Is(err, ErrNotFound):
		w.collector.Miss(name)
	}
	return value, err
}

func (w statsWriter) Put(ctx context.Context, name, key string, value []byte, ttl time.Duration) error {
	if err := w.next.Put(ctx, name, key, value, ttl); err != nil {
		return err
	}
	w.collector.Put(name)
	return nil
}

func (w statsWriter) PutIfAbsent(ctx context.Context, name, key string, value []byte, ttl time.Duration) ([]byte, error) {
	existing, err := w.next.PutIfAbsent(ctx, name, key, value, ttl)
	if err == nil && existing == nil {
		w.collector.Put(name)
	}
	return existing, err
}

func (w statsWriter) Evict(ctx context.Context, name, key string) error {
	return w.next.Evict(ctx, name, key)
}

func (w statsWriter) Clear(ctx context.Context, name, pattern string) error {
	return w.next.Clear(ctx, name, pattern)
}

func (w statsWriter) Statistics(name string) Statistics { return w.collector.Snapshot(name) }

func (w statsWriter) ClearStatistics(name string) { w.collector.Reset(name) }

func (w statsWriter) WithStatisticsCollector(c StatisticsCollector) Writer {
	return statsWriter{next: w.next.WithStatisticsCollector(c), collector: c}
}
