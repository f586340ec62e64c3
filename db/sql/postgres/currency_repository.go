package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/fatimetou23083/CacheFlow/currency"
)

// CurrencyRepository persists the exchange-rate table inside PostgreSQL.
type CurrencyRepository struct {
	db *sql.DB
}

// NewCurrencyRepository wraps an existing *sql.DB connection.
func NewCurrencyRepository(db *sql.DB) *CurrencyRepository {
	return &CurrencyRepository{db: db}
}

func (r *CurrencyRepository) FindByCode(ctx context.Context, code string) (currency.Currency, error) {
	const query = `SELECT id, code, rate, last_update FROM currencies WHERE code = $1`
	var c currency.Currency
	err := r.db.QueryRowContext(ctx, query, code).Scan(&c.ID, &c.Code, &c.Rate, &c.LastUpdate)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return currency.Currency{}, currency.ErrNotFound
		}
		return currency.Currency{}, fmt.Errorf("postgres: find currency %s: %w", code, err)
	}
	return c, nil
}

func (r *CurrencyRepository) FindAll(ctx context.Context) ([]currency.Currency, error) {
	const query = `SELECT id, code, rate, last_update FROM currencies ORDER BY code`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: list currencies: %w", err)
	}
	defer rows.Close()

	var out []currency.Currency
	for rows.Next() {
		var c currency.Currency
		if err := rows.Scan(&c.ID, &c.Code, &c.Rate, &c.LastUpdate); err != nil {
			return nil, fmt.Errorf("postgres: scan currency: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list currencies: %w", err)
	}
	return out, nil
}

// Save upserts by code, keeping the row id stable across rate updates.
func (r *CurrencyRepository) Save(ctx context.Context, c currency.Currency) (currency.Currency, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	const query = `INSERT INTO currencies (id, code, rate, last_update)
                   VALUES ($1, $2, $3, $4)
                   ON CONFLICT (code) DO UPDATE SET rate = EXCLUDED.rate, last_update = EXCLUDED.last_update
                   RETURNING id`
	if err := r.db.QueryRowContext(ctx, query, c.ID, c.Code, c.Rate, c.LastUpdate).Scan(&c.ID); err != nil {
		return currency.Currency{}, fmt.Errorf("postgres: save currency %s: %w", c.Code, err)
	}
	return c, nil
}
