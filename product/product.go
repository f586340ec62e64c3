// Package product manages the product catalog. Listings and single-item
// lookups are cached; every mutation invalidates both product caches so
// readers never see a stale catalog.
package product

import (
	"context"
	"errors"
	"time"
)

// Cache names used by the service. ListCache holds the full catalog,
// ItemCache one entry per product id.
const (
	ListCache = "products"
	ItemCache = "product"
)

var (
	ErrNotFound  = errors.New("product: not found")
	ErrEmptyID   = errors.New("product: id is empty")
	ErrEmptyName = errors.New("product: name is empty")
)

type Product struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Price     float64   `json:"price"`
	Category  string    `json:"category"`
	CreatedAt time.Time `json:"createdAt"`
}

// Repository persists the catalog. FindByID and Delete return ErrNotFound
// for unknown ids.
type Repository interface {
	FindAll(ctx context.Context) ([]Product, error)
	FindByID(ctx context.Context, id string) (Product, error)
	Insert(ctx context.Context, p Product) (Product, error)
	Update(ctx context.Context, p Product) (Product, error)
	Delete(ctx context.Context, id string) error
}
