package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidUsername = errors.New("auth: username must be 3-50 characters of letters, digits, _ or -")
	ErrInvalidEmail    = errors.New("auth: invalid email address")
)

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,50}$`)
	emailPattern    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// DefaultRole is assigned to accounts that register without one.
const DefaultRole = "USER"

// Service registers accounts and exchanges credentials for bearer
// tokens.
type Service struct {
	repo   Repository
	signer *Signer
	now    func() time.Time
	log    *slog.Logger
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

func NewService(repo Repository, signer *Signer, opts ...ServiceOption) *Service {
	s := &Service{
		repo:   repo,
		signer: signer,
		now:    time.Now,
		log:    slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Register creates an account with a hashed password.
func (s *Service) Register(ctx context.Context, username, email, password string) (User, error) {
	username = strings.TrimSpace(username)
	if !usernamePattern.MatchString(username) {
		return User{}, ErrInvalidUsername
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if !emailPattern.MatchString(email) {
		return User{}, ErrInvalidEmail
	}
	hash, err := HashPassword(password)
	if err != nil {
		return User{}, err
	}

	u := User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         DefaultRole,
		CreatedAt:    s.now(),
	}
	saved, err := s.repo.Insert(ctx, u)
	if err != nil {
		return User{}, err
	}
	s.log.Info("user registered", "username", saved.Username)
	return saved, nil
}

// Login verifies credentials and returns the account with a signed
// token. Unknown users and wrong passwords both come back as
// ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, username, password string) (User, string, error) {
	u, err := s.repo.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return User{}, "", ErrInvalidCredentials
		}
		return User{}, "", fmt.Errorf("auth: login: %w", err)
	}
	if err := CheckPassword(u.PasswordHash, password); err != nil {
		s.log.Warn("failed login attempt", "username", username)
		return User{}, "", err
	}
	token, err := s.signer.Issue(u.ID, u.Username)
	if err != nil {
		return User{}, "", err
	}
	s.log.Info("user logged in", "username", u.Username)
	return u, token, nil
}

// UserByID loads the account behind a verified token.
func (s *Service) UserByID(ctx context.Context, id string) (User, error) {
	return s.repo.FindByID(ctx, id)
}

// Verify validates a bearer token.
func (s *Service) Verify(token string) (Claims, error) {
	return s.signer.Verify(token)
}
