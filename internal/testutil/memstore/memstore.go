// Package memstore provides an in-memory cache store double for service
// tests. It records the write commands it receives so tests can assert on
// invalidation traffic without a running Redis.
package memstore

import (
	"context"
	"fmt"
	"path"
	"sort"
	"sync"
	"time"

	"github.com/fatimetou23083/CacheFlow/cache"
)

type Store struct {
	mu       sync.Mutex
	data     map[string][]byte
	ttls     map[string]time.Duration
	commands []string

	// GetErr and SetErr, when set, fail the matching operations.
	GetErr error
	SetErr error
}

func New() *Store {
	return &Store{
		data: make(map[string][]byte),
		ttls: make(map[string]time.Duration),
	}
}

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.GetErr != nil {
		return nil, s.GetErr
	}
	v, ok := s.data[key]
	if !ok {
		return nil, cache.ErrNotFound
	}
	return v, nil
}

func (s *Store) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SetErr != nil {
		return s.SetErr
	}
	s.data[key] = value
	s.ttls[key] = ttl
	s.commands = append(s.commands, "SET "+key)
	return nil
}

func (s *Store) SetIfAbsent(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SetErr != nil {
		return false, s.SetErr
	}
	if _, ok := s.data[key]; ok {
		return false, nil
	}
	s.data[key] = value
	s.ttls[key] = ttl
	s.commands = append(s.commands, "SETNX "+key)
	return true, nil
}

func (s *Store) Delete(_ context.Context, keys ...string) (int64, error) {
	return s.remove("DEL", keys)
}

func (s *Store) Unlink(_ context.Context, keys ...string) (int64, error) {
	return s.remove("UNLINK", keys)
}

func (s *Store) remove(cmd string, keys []string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := s.data[k]; ok {
			delete(s.data, k)
			delete(s.ttls, k)
			n++
		}
	}
	s.commands = append(s.commands, fmt.Sprintf("%s %v", cmd, keys))
	return n, nil
}

func (s *Store) Keys(_ context.Context, pattern string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var keys []string
	for k := range s.data {
		if ok, _ := path.Match(pattern, k); ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Has reports whether the composite key is present.
func (s *Store) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.data[key]
	return ok
}

// TTL returns the TTL recorded for the composite key.
func (s *Store) TTL(key string) (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ttl, ok := s.ttls[key]
	return ttl, ok
}

// Commands returns the write commands seen so far, in order.
func (s *Store) Commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.commands...)
}
