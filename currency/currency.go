// Package currency converts amounts between currencies using rates held
// relative to USD. Resolved pair rates and the full rate table are cached;
// every rate refresh invalidates both caches.
package currency

import (
	"context"
	"errors"
	"time"
)

// Cache names used by the service. RateCache holds one entry per ordered
// currency pair, TableCache holds the full listing.
const (
	RateCache  = "currency"
	TableCache = "currencies"
)

var (
	ErrNotFound        = errors.New("currency: not found")
	ErrUnsupportedCode = errors.New("currency: unsupported currency code")
	ErrEmptyCode       = errors.New("currency: currency code is empty")
	ErrNegativeAmount  = errors.New("currency: amount must not be negative")
)

// Currency is one exchange rate relative to USD.
type Currency struct {
	ID         string    `json:"id"`
	Code       string    `json:"code"`
	Rate       float64   `json:"rate"`
	LastUpdate time.Time `json:"lastUpdate"`
}

// Repository persists the rate table. FindByCode returns ErrNotFound for
// unknown codes; Save upserts by code.
type Repository interface {
	FindByCode(ctx context.Context, code string) (Currency, error)
	FindAll(ctx context.Context) ([]Currency, error)
	Save(ctx context.Context, c Currency) (Currency, error)
}
