package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Manager exposes named logical caches over a Writer chain. It is the
// only writer of entries: reads go through the chain, misses invoke a
// caller-supplied producer, and results are stored with the TTL the
// policy resolves at write time.
type Manager struct {
	writer Writer
	codec  Codec
	policy TTLPolicy
	now    func() time.Time
	log    *slog.Logger

	mu    sync.Mutex
	names map[string]struct{}
}

type ManagerOption func(*Manager)

// WithCodec overrides the value codec. The default stores JSON.
func WithCodec(c Codec) ManagerOption {
	return func(m *Manager) {
		if c != nil {
			m.codec = c
		}
	}
}

// WithPolicy installs the TTL policy consulted on every write.
func WithPolicy(p TTLPolicy) ManagerOption {
	return func(m *Manager) { m.policy = p }
}

// WithClock overrides the time source used for TTL resolution; tests pin
// arbitrary dates with it.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithLogger sets the logger used when cache reads or writes degrade.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.log = logger
		}
	}
}

func NewManager(w Writer, opts ...ManagerOption) *Manager {
	m := &Manager{
		writer: w,
		codec:  JSONCodec{},
		policy: DefaultPolicy(),
		now:    time.Now,
		log:    slog.Default(),
		names:  make(map[string]struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

func (m *Manager) register(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.names[name] = struct{}{}
}

// Names lists every cache name seen by this manager, sorted.
func (m *Manager) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.names))
	for n := range m.names {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// GetBytes returns the raw entry or ErrNotFound. Store errors propagate
// unchanged in kind.
func (m *Manager) GetBytes(ctx context.Context, name, key string) ([]byte, error) {
	m.register(name)
	return m.writer.Get(ctx, name, key)
}

// PutBytes overwrites the entry with the TTL the policy resolves now.
func (m *Manager) PutBytes(ctx context.Context, name, key string, value []byte) error {
	m.register(name)
	return m.writer.Put(ctx, name, key, value, m.policy.Resolve(name, m.now()))
}

// Evict removes one entry from the named cache.
func (m *Manager) Evict(ctx context.Context, name, key string) error {
	return m.writer.Evict(ctx, name, key)
}

// EvictAll invalidates every entry of the named caches. From the caller's
// point of view this is one logical invalidation even though the store
// may see several commands; all caches are attempted and the errors are
// joined.
func (m *Manager) EvictAll(ctx context.Context, names ...string) error {
	var errs []error
	for _, name := range names {
		if err := m.writer.Clear(ctx, name, ClearPattern(name)); err != nil {
			errs = append(errs, fmt.Errorf("cache: clear %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// Statistics returns the named cache's counters.
func (m *Manager) Statistics(name string) Statistics { return m.writer.Statistics(name) }

// ClearStatistics resets the named cache's counters.
func (m *Manager) ClearStatistics(name string) { m.writer.ClearStatistics(name) }

// View is a typed window onto one named cache of a Manager.
type View[T any] struct {
	m      *Manager
	name   string
	unless func(T) bool
}

type ViewOption[T any] func(*View[T])

// Unless skips storing produced values the predicate rejects; the value
// is still returned to the caller. Absent results are never cached.
func Unless[T any](pred func(T) bool) ViewOption[T] {
	return func(v *View[T]) { v.unless = pred }
}

// NewView registers the cache name and returns a typed view over it.
func NewView[T any](m *Manager, name string, opts ...ViewOption[T]) *View[T] {
	m.register(name)
	v := &View[T]{m: m, name: name}
	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}
	return v
}

// Name returns the underlying cache name.
func (v *View[T]) Name() string { return v.name }

// Get is the read-through operation. On a hit the decoded value returns
// without invoking producer. On a miss producer runs exactly once for
// this caller (concurrent callers missing the same key each run their
// own producer; last write wins) and the result is stored unless the
// view's predicate excludes it. A transient store failure on the read or
// write path degrades to live computation instead of failing the call;
// codec failures and producer errors propagate.
func (v *View[T]) Get(ctx context.Context, key string, producer func(context.Context) (T, error)) (T, error) {
	var zero T

	data, err := v.m.writer.Get(ctx, v.name, key)
	switch {
	case err == nil:
		var value T
		if err := v.m.codec.Decode(data, &value); err != nil {
			return zero, err
		}
		return value, nil
	case errors.Is(err, ErrNotFound):
		// fall through to the producer
	default:
		v.m.log.Warn("cache read failed, computing live", "cache", v.name, "key", key, "error", err)
	}

	value, err := producer(ctx)
	if err != nil {
		return zero, err
	}
	if v.unless != nil && v.unless(value) {
		return value, nil
	}
	data, err = v.m.codec.Encode(value)
	if err != nil {
		return zero, err
	}
	ttl := v.m.policy.Resolve(v.name, v.m.now())
	if err := v.m.writer.Put(ctx, v.name, key, data, ttl); err != nil {
		v.m.log.Warn("cache write failed", "cache", v.name, "key", key, "error", err)
	}
	return value, nil
}

// Put overwrites the entry with the produced value.
func (v *View[T]) Put(ctx context.Context, key string, value T) error {
	return v.put(ctx, key, value)
}

func (v *View[T]) put(ctx context.Context, key string, value T) error {
	data, err := v.m.codec.Encode(value)
	if err != nil {
		return err
	}
	ttl := v.m.policy.Resolve(v.name, v.m.now())
	return v.m.writer.Put(ctx, v.name, key, data, ttl)
}

// Evict removes one entry.
func (v *View[T]) Evict(ctx context.Context, key string) error {
	return v.m.Evict(ctx, v.name, key)
}
