package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fatimetou23083/CacheFlow/product"
)

// ProductRepository persists the catalog inside PostgreSQL.
type ProductRepository struct {
	db *sql.DB
}

// NewProductRepository wraps an existing *sql.DB connection.
func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

func (r *ProductRepository) FindAll(ctx context.Context) ([]product.Product, error) {
	const query = `SELECT id, name, price, category, created_at FROM products ORDER BY name`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: list products: %w", err)
	}
	defer rows.Close()

	var out []product.Product
	for rows.Next() {
		var p product.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Category, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan product: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list products: %w", err)
	}
	return out, nil
}

func (r *ProductRepository) FindByID(ctx context.Context, id string) (product.Product, error) {
	const query = `SELECT id, name, price, category, created_at FROM products WHERE id = $1`
	var p product.Product
	err := r.db.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.Name, &p.Price, &p.Category, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isInvalidUUID(err) {
			return product.Product{}, product.ErrNotFound
		}
		return product.Product{}, fmt.Errorf("postgres: find product %s: %w", id, err)
	}
	return p, nil
}

func (r *ProductRepository) Insert(ctx context.Context, p product.Product) (product.Product, error) {
	const query = `INSERT INTO products (id, name, price, category, created_at) VALUES ($1, $2, $3, $4, $5)`
	if _, err := r.db.ExecContext(ctx, query, p.ID, p.Name, p.Price, p.Category, p.CreatedAt); err != nil {
		return product.Product{}, fmt.Errorf("postgres: insert product: %w", err)
	}
	return p, nil
}

func (r *ProductRepository) Update(ctx context.Context, p product.Product) (product.Product, error) {
	const query = `UPDATE products SET name = $2, price = $3, category = $4 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, p.ID, p.Name, p.Price, p.Category)
	if err != nil {
		if isInvalidUUID(err) {
			return product.Product{}, product.ErrNotFound
		}
		return product.Product{}, fmt.Errorf("postgres: update product %s: %w", p.ID, err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return product.Product{}, product.ErrNotFound
	}
	return p, nil
}

func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM products WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		if isInvalidUUID(err) {
			return product.ErrNotFound
		}
		return fmt.Errorf("postgres: delete product %s: %w", id, err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return product.ErrNotFound
	}
	return nil
}
