package product

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fatimetou23083/CacheFlow/cache"
)

// listKey is the single entry key of the catalog listing cache.
const listKey = "all"

type Service struct {
	repo  Repository
	list  *cache.View[[]Product]
	item  *cache.View[Product]
	cache *cache.Manager
	now   func() time.Time
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

func NewService(m *cache.Manager, repo Repository, opts ...ServiceOption) *Service {
	s := &Service{
		repo:  repo,
		list:  cache.NewView[[]Product](m, ListCache),
		item:  cache.NewView[Product](m, ItemCache),
		cache: m,
		now:   time.Now,
		log:   slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// All returns the whole catalog, cached.
func (s *Service) All(ctx context.Context) ([]Product, error) {
	return s.list.Get(ctx, listKey, func(ctx context.Context) ([]Product, error) {
		s.log.Info("catalog cache miss, loading")
		return s.repo.FindAll(ctx)
	})
}

// Get returns one product by id, cached per id.
func (s *Service) Get(ctx context.Context, id string) (Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Product{}, ErrEmptyID
	}
	return s.item.Get(ctx, id, func(ctx context.Context) (Product, error) {
		return s.repo.FindByID(ctx, id)
	})
}

// Create inserts a new product under a fresh id and invalidates both
// product caches.
func (s *Service) Create(ctx context.Context, p Product) (Product, error) {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return Product{}, ErrEmptyName
	}
	p.ID = uuid.NewString()
	p.CreatedAt = s.now()

	saved, err := s.repo.Insert(ctx, p)
	if err != nil {
		return Product{}, fmt.Errorf("product: create: %w", err)
	}
	s.invalidate(ctx, "create", saved.ID)
	return saved, nil
}

// Update overwrites an existing product and invalidates both caches.
func (s *Service) Update(ctx context.Context, id string, p Product) (Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Product{}, ErrEmptyID
	}
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return Product{}, ErrEmptyName
	}
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return Product{}, err
	}
	p.ID = id

	saved, err := s.repo.Update(ctx, p)
	if err != nil {
		return Product{}, fmt.Errorf("product: update %s: %w", id, err)
	}
	s.invalidate(ctx, "update", id)
	return saved, nil
}

// Delete removes a product and invalidates both caches.
func (s *Service) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrEmptyID
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, "delete", id)
	return nil
}

// invalidate clears both product caches after a successful mutation.
// Cache failures are logged, not surfaced: the durable write already
// happened and entries expire on their own.
func (s *Service) invalidate(ctx context.Context, op, id string) {
	if err := s.cache.EvictAll(ctx, ListCache, ItemCache); err != nil {
		s.log.Warn("product cache invalidation failed", "op", op, "id", id, "error", err)
	}
}
