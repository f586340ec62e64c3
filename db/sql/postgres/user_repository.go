package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"github.com/fatimetou23083/CacheFlow/auth"
)

// UserRepository persists auth.User records inside PostgreSQL.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository wraps an existing *sql.DB connection.
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Insert(ctx context.Context, u auth.User) (auth.User, error) {
	const query = `INSERT INTO users (id, username, email, password_hash, role, created_at)
                   VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := r.db.ExecContext(ctx, query, u.ID, u.Username, u.Email, u.PasswordHash, u.Role, u.CreatedAt); err != nil {
		return auth.User{}, translateUserError(err)
	}
	return u, nil
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (auth.User, error) {
	const query = `SELECT id, username, email, password_hash, role, created_at FROM users WHERE username = $1`
	return r.scanUser(r.db.QueryRowContext(ctx, query, username))
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (auth.User, error) {
	const query = `SELECT id, username, email, password_hash, role, created_at FROM users WHERE id = $1`
	return r.scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *UserRepository) scanUser(row *sql.Row) (auth.User, error) {
	var u auth.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return auth.User{}, auth.ErrUserNotFound
		}
		return auth.User{}, translateUserError(err)
	}
	return u, nil
}

func translateUserError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505":
			if pqErr.Constraint == "users_email_key" {
				return auth.ErrEmailInUse
			}
			return auth.ErrUsernameTaken
		case "22P02":
			return auth.ErrUserNotFound
		}
	}
	return err
}
