// Package auth manages user accounts and bearer tokens. Passwords are
// stored as bcrypt hashes; tokens are HMAC-SHA256 signed and carry the
// user id and username.
package auth

import (
	"context"
	"errors"
	"time"
)

var (
	ErrUserNotFound       = errors.New("auth: user not found")
	ErrUsernameTaken      = errors.New("auth: username already taken")
	ErrEmailInUse         = errors.New("auth: email already in use")
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
)

// User is one account. PasswordHash holds the bcrypt digest and never
// leaves the server.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash []byte    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Repository persists accounts. Lookups return ErrUserNotFound for
// unknown users; Insert returns ErrUsernameTaken or ErrEmailInUse on
// unique-constraint conflicts.
type Repository interface {
	Insert(ctx context.Context, u User) (User, error)
	FindByUsername(ctx context.Context, username string) (User, error)
	FindByID(ctx context.Context, id string) (User, error)
}
