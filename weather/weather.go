// Package weather serves per-city weather reports through the read-through
// cache. Reports come from OpenWeatherMap when an API key is configured and
// from a deterministic generator otherwise.
package weather

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fatimetou23083/CacheFlow/cache"
)

// CacheName is the logical cache holding weather entries. Its TTL follows
// the seasonal policy: short in summer, long in winter.
const CacheName = "weather"

var ErrEmptyCity = errors.New("weather: city name is empty")

// Fetcher produces a current report for one city.
type Fetcher interface {
	Fetch(ctx context.Context, city string) (Weather, error)
}

// Service answers weather lookups cache-first. Entries are keyed by the
// lowercased city name so "Paris" and "paris" share one entry.
type Service struct {
	fetcher Fetcher
	view    *cache.View[Weather]
	log     *slog.Logger
}

type ServiceOption func(*Service)

func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.log = logger
		}
	}
}

func NewService(m *cache.Manager, fetcher Fetcher, opts ...ServiceOption) *Service {
	s := &Service{
		fetcher: fetcher,
		view:    cache.NewView[Weather](m, CacheName),
		log:     slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Get returns the cached report for the city, fetching and storing a fresh
// one on a miss.
func (s *Service) Get(ctx context.Context, city string) (Weather, error) {
	key, err := cityKey(city)
	if err != nil {
		return Weather{}, err
	}
	return s.view.Get(ctx, key, func(ctx context.Context) (Weather, error) {
		s.log.Info("weather cache miss, fetching", "city", city)
		return s.fetcher.Fetch(ctx, city)
	})
}

// Refresh fetches a fresh report and overwrites the cached entry
// unconditionally, resetting its TTL to whatever the policy resolves now.
func (s *Service) Refresh(ctx context.Context, city string) (Weather, error) {
	key, err := cityKey(city)
	if err != nil {
		return Weather{}, err
	}
	s.log.Info("forcing weather refresh", "city", city)
	w, err := s.fetcher.Fetch(ctx, city)
	if err != nil {
		return Weather{}, err
	}
	if err := s.view.Put(ctx, key, w); err != nil {
		return Weather{}, fmt.Errorf("weather: store refresh: %w", err)
	}
	return w, nil
}

func cityKey(city string) (string, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return "", ErrEmptyCity
	}
	return strings.ToLower(city), nil
}
