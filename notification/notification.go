// Package notification records notifications durably and announces them
// over the relay. The durable record is the source of truth: a failed
// announcement is logged and dropped, never rolled back, and subscribers
// that were offline simply miss it.
package notification

import (
	"context"
	"errors"
	"time"
)

// Kinds a notification can carry.
const (
	KindInfo    = "INFO"
	KindAlert   = "ALERT"
	KindSuccess = "SUCCESS"
)

var (
	ErrEmptyMessage = errors.New("notification: message is empty")
	ErrInvalidKind  = errors.New("notification: invalid kind")
)

// Notification is one stored notification. UserID is empty for
// broadcasts.
type Notification struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Kind      string    `json:"type"`
	UserID    string    `json:"userId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Read      bool      `json:"read"`
}

// Repository persists notifications. The ordered queries return newest
// first.
type Repository interface {
	Insert(ctx context.Context, n Notification) (Notification, error)
	FindAll(ctx context.Context) ([]Notification, error)
	FindByUser(ctx context.Context, userID string) ([]Notification, error)
	FindBroadcasts(ctx context.Context) ([]Notification, error)
}

func validKind(kind string) bool {
	switch kind {
	case KindInfo, KindAlert, KindSuccess:
		return true
	}
	return false
}
