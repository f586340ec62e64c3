package currency

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/fatimetou23083/CacheFlow/cache"
)

// seedRates are the bootstrap rates relative to USD. They also back
// lookups when a code is missing from the repository.
var seedRates = map[string]float64{
	"USD": 1,
	"EUR": 0.91,
	"GBP": 0.79,
	"JPY": 150.0,
	"CAD": 1.35,
	"AUD": 1.50,
	"CHF": 0.88,
	"CNY": 7.20,
}

// tableKey is the single entry key of the full-listing cache.
const tableKey = "all"

// Service resolves pair rates and conversions over the repository,
// caching resolved rates per ordered pair.
type Service struct {
	repo  Repository
	rates *cache.View[float64]
	table *cache.View[[]Currency]
	cache *cache.Manager
	now   func() time.Time
	randf func() float64
	log   *slog.Logger
}

type ServiceOption func(*Service)

func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.log = logger
		}
	}
}

func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithRand overrides the source of refresh jitter; tests pin it.
func WithRand(f func() float64) ServiceOption {
	return func(s *Service) {
		if f != nil {
			s.randf = f
		}
	}
}

func NewService(m *cache.Manager, repo Repository, opts ...ServiceOption) *Service {
	s := &Service{
		repo:  repo,
		rates: cache.NewView[float64](m, RateCache, cache.Unless[float64](func(r float64) bool { return r <= 0 })),
		table: cache.NewView[[]Currency](m, TableCache, cache.Unless[[]Currency](func(cs []Currency) bool { return len(cs) == 0 })),
		cache: m,
		now:   time.Now,
		randf: rand.Float64,
		log:   slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// SeedRates inserts the bootstrap rates for codes the repository does not
// hold yet. Persistence failures are logged and skipped so the service
// still starts with in-memory fallback rates.
func (s *Service) SeedRates(ctx context.Context) {
	for _, code := range s.Supported() {
		_, err := s.repo.FindByCode(ctx, code)
		switch {
		case err == nil:
			continue
		case errors.Is(err, ErrNotFound):
			c := Currency{Code: code, Rate: seedRates[code], LastUpdate: s.now()}
			if _, err := s.repo.Save(ctx, c); err != nil {
				s.log.Warn("could not seed currency", "code", code, "error", err)
				continue
			}
			s.log.Info("seeded currency", "code", code, "rate", c.Rate)
		default:
			s.log.Warn("could not check currency, falling back to in-memory rate", "code", code, "error", err)
		}
	}
}

// GetExchangeRate resolves the rate for converting from one currency into
// another. Codes are case-insensitive; "usd"→"eur" and "USD"→"EUR" share
// one cache entry. A currency converted into itself is always 1 and skips
// both cache and repository.
func (s *Service) GetExchangeRate(ctx context.Context, from, to string) (float64, error) {
	from, err := normalizeCode(from)
	if err != nil {
		return 0, err
	}
	to, err = normalizeCode(to)
	if err != nil {
		return 0, err
	}
	if from == to {
		return 1, nil
	}

	key := from + "+" + to
	return s.rates.Get(ctx, key, func(ctx context.Context) (float64, error) {
		s.log.Info("rate cache miss, resolving", "from", from, "to", to)
		fromRate, err := s.rateFor(ctx, from)
		if err != nil {
			return 0, err
		}
		toRate, err := s.rateFor(ctx, to)
		if err != nil {
			return 0, err
		}
		return round6(toRate / fromRate), nil
	})
}

// Convert exchanges amount from one currency into another, rounded to two
// decimal places.
func (s *Service) Convert(ctx context.Context, from, to string, amount float64) (float64, error) {
	if amount < 0 {
		return 0, ErrNegativeAmount
	}
	rate, err := s.GetExchangeRate(ctx, from, to)
	if err != nil {
		return 0, err
	}
	return round2(amount * rate), nil
}

// All returns the full rate table, served from cache when warm.
func (s *Service) All(ctx context.Context) ([]Currency, error) {
	return s.table.Get(ctx, tableKey, func(ctx context.Context) ([]Currency, error) {
		s.log.Info("rate table cache miss, loading")
		return s.repo.FindAll(ctx)
	})
}

// RefreshRates perturbs every persisted rate by up to ±1%, stores the new
// values and invalidates both currency caches as one logical operation.
func (s *Service) RefreshRates(ctx context.Context) error {
	currencies, err := s.repo.FindAll(ctx)
	if err != nil {
		return fmt.Errorf("currency: refresh: %w", err)
	}

	now := s.now()
	for _, c := range currencies {
		next := round2(c.Rate + (s.randf()*0.02 - 0.01))
		if next <= 0 {
			continue
		}
		old := c.Rate
		c.Rate = next
		c.LastUpdate = now
		if _, err := s.repo.Save(ctx, c); err != nil {
			return fmt.Errorf("currency: refresh %s: %w", c.Code, err)
		}
		s.log.Info("updated rate", "code", c.Code, "rate", next, "was", old)
	}

	if err := s.cache.EvictAll(ctx, RateCache, TableCache); err != nil {
		return err
	}
	s.log.Info("exchange rates refreshed", "count", len(currencies))
	return nil
}

// RunRefresher refreshes rates every interval until ctx is canceled.
// Individual refresh failures are logged and the loop continues.
func (s *Service) RunRefresher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.RefreshRates(ctx); err != nil {
				s.log.Error("scheduled rate refresh failed", "error", err)
			}
		}
	}
}

// Supported lists the currency codes the service understands, sorted.
func (s *Service) Supported() []string {
	codes := make([]string, 0, len(seedRates))
	for code := range seedRates {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// rateFor resolves one code's USD-relative rate, preferring the
// repository and falling back to the seed table.
func (s *Service) rateFor(ctx context.Context, code string) (float64, error) {
	c, err := s.repo.FindByCode(ctx, code)
	if err == nil {
		return c.Rate, nil
	}
	if !errors.Is(err, ErrNotFound) {
		s.log.Warn("rate lookup failed, trying in-memory rate", "code", code, "error", err)
	}
	if rate, ok := seedRates[code]; ok {
		return rate, nil
	}
	return 0, fmt.Errorf("%w: %s", ErrUnsupportedCode, code)
}

func normalizeCode(code string) (string, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", ErrEmptyCode
	}
	return strings.ToUpper(code), nil
}

func round6(v float64) float64 { return math.Round(v*1e6) / 1e6 }

func round2(v float64) float64 { return math.Round(v*100) / 100 }
