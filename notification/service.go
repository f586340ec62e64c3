package notification

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Publisher announces stored notifications; *relay.Relay satisfies it.
type Publisher interface {
	PublishJSON(ctx context.Context, event any) error
}

type Service struct {
	repo      Repository
	publisher Publisher
	now       func() time.Time
	log       *slog.Logger
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

func NewService(repo Repository, publisher Publisher, opts ...ServiceOption) *Service {
	s := &Service{
		repo:      repo,
		publisher: publisher,
		now:       time.Now,
		log:       slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// CreateAndPublish stores the notification and then announces it. The
// stored record is returned even when the announcement fails; delivery is
// fire and forget.
func (s *Service) CreateAndPublish(ctx context.Context, message, kind, userID string) (Notification, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return Notification{}, ErrEmptyMessage
	}
	if kind == "" {
		kind = KindInfo
	}
	if !validKind(kind) {
		return Notification{}, fmt.Errorf("%w: %s", ErrInvalidKind, kind)
	}

	n := Notification{
		ID:        uuid.NewString(),
		Message:   message,
		Kind:      kind,
		UserID:    strings.TrimSpace(userID),
		Timestamp: s.now(),
	}
	saved, err := s.repo.Insert(ctx, n)
	if err != nil {
		return Notification{}, fmt.Errorf("notification: store: %w", err)
	}

	if err := s.publisher.PublishJSON(ctx, saved); err != nil {
		s.log.Warn("notification stored but not announced", "id", saved.ID, "error", err)
	}
	return saved, nil
}

// All returns every stored notification.
func (s *Service) All(ctx context.Context) ([]Notification, error) {
	return s.repo.FindAll(ctx)
}

// ForUser returns one user's notifications, newest first.
func (s *Service) ForUser(ctx context.Context, userID string) ([]Notification, error) {
	return s.repo.FindByUser(ctx, userID)
}

// Broadcasts returns notifications addressed to everyone, newest first.
func (s *Service) Broadcasts(ctx context.Context) ([]Notification, error) {
	return s.repo.FindBroadcasts(ctx)
}
