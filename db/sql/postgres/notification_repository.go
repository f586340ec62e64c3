package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fatimetou23083/CacheFlow/notification"
)

// NotificationRepository persists notifications inside PostgreSQL.
type NotificationRepository struct {
	db *sql.DB
}

// NewNotificationRepository wraps an existing *sql.DB connection.
func NewNotificationRepository(db *sql.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Insert(ctx context.Context, n notification.Notification) (notification.Notification, error) {
	const query = `INSERT INTO notifications (id, message, kind, user_id, created_at, read)
                   VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := r.db.ExecContext(ctx, query, n.ID, n.Message, n.Kind, n.UserID, n.Timestamp, n.Read); err != nil {
		return notification.Notification{}, fmt.Errorf("postgres: insert notification: %w", err)
	}
	return n, nil
}

func (r *NotificationRepository) FindAll(ctx context.Context) ([]notification.Notification, error) {
	const query = `SELECT id, message, kind, user_id, created_at, read FROM notifications ORDER BY created_at DESC`
	return r.query(ctx, query)
}

func (r *NotificationRepository) FindByUser(ctx context.Context, userID string) ([]notification.Notification, error) {
	const query = `SELECT id, message, kind, user_id, created_at, read FROM notifications
                   WHERE user_id = $1 ORDER BY created_at DESC`
	return r.query(ctx, query, userID)
}

func (r *NotificationRepository) FindBroadcasts(ctx context.Context) ([]notification.Notification, error) {
	const query = `SELECT id, message, kind, user_id, created_at, read FROM notifications
                   WHERE user_id = '' ORDER BY created_at DESC`
	return r.query(ctx, query)
}

func (r *NotificationRepository) query(ctx context.Context, query string, args ...any) ([]notification.Notification, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list notifications: %w", err)
	}
	defer rows.Close()

	var out []notification.Notification
	for rows.Next() {
		var n notification.Notification
		if err := rows.Scan(&n.ID, &n.Message, &n.Kind, &n.UserID, &n.Timestamp, &n.Read); err != nil {
			return nil, fmt.Errorf("postgres: scan notification: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list notifications: %w", err)
	}
	return out, nil
}
