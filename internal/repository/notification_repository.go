package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"task-notify/internal/domain"
)

type NotificationRepository interface {
	Create(ctx context.Context, notif *domain.Notification) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Notification, error)
	ListByUser(ctx context.Context, userID uuid.UUID, filter domain.NotificationFilter) ([]domain.Notification, int64, error)
	ListCreatedAfter(ctx context.Context, userID uuid.UUID, channel domain.Channel, after time.Time, limit int) ([]domain.Notification, error)
	CountByTypeSince(ctx context.Context, userID uuid.UUID, eventType domain.EventType, since time.Time) (int64, error)
	MarkAsRead(ctx context.Context, id, userID uuid.UUID) (bool, error)
	MarkAllAsRead(ctx context.Context, userID uuid.UUID) (int64, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int64, error)
	DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type notificationRepository struct {
	db *sqlx.DB
}

func NewNotificationRepository(db *sqlx.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, notif *domain.Notification) error {
	query := `
		INSERT INTO notifications (id, user_id, task_id, type, channel, title, message, icon, priority, action_url, data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at`

	var data interface{}
	if len(notif.Data) > 0 {
		data = []byte(notif.Data)
	}

	return r.db.QueryRowxContext(ctx, query,
		notif.ID, notif.UserID, notif.TaskID, notif.Type, notif.Channel, notif.Title,
		notif.Message, notif.Icon, notif.Priority, notif.ActionURL, data,
	).Scan(&notif.CreatedAt)
}

func (r *notificationRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Notification, error) {
	var notif domain.Notification
	query := `SELECT * FROM notifications WHERE id = $1`
	err := r.db.GetContext(ctx, &notif, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &notif, nil
}

func (r *notificationRepository) ListByUser(ctx context.Context, userID uuid.UUID, filter domain.NotificationFilter) ([]domain.Notification, int64, error) {
	filter.Validate()

	where := `WHERE user_id = $1`
	args := []interface{}{userID}
	if filter.UnreadOnly {
		where += ` AND is_read = false`
	}
	if filter.Type != "" {
		args = append(args, filter.Type)
		where += ` AND type = $2`
	}

	var total int64
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM notifications `+where, args...); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT * FROM notifications %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`, where, len(args)+1, len(args)+2)

	var notifications []domain.Notification
	err := r.db.SelectContext(ctx, &notifications, query, append(args, filter.PageSize, filter.Offset())...)
	return notifications, total, err
}

func (r *notificationRepository) ListCreatedAfter(ctx context.Context, userID uuid.UUID, channel domain.Channel, after time.Time, limit int) ([]domain.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT * FROM notifications
		WHERE user_id = $1 AND channel = $2 AND created_at > $3
		ORDER BY created_at ASC
		LIMIT $4`

	var notifications []domain.Notification
	err := r.db.SelectContext(ctx, &notifications, query, userID, channel, after, limit)
	return notifications, err
}

func (r *notificationRepository) CountByTypeSince(ctx context.Context, userID uuid.UUID, eventType domain.EventType, since time.Time) (int64, error) {
	var count int64
	query := `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND type = $2 AND created_at >= $3`
	err := r.db.GetContext(ctx, &count, query, userID, eventType, since)
	return count, err
}

// MarkAsRead reports false when the notification does not exist, belongs to
// another user or was already read.
func (r *notificationRepository) MarkAsRead(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	query := `UPDATE notifications SET is_read = true, read_at = NOW() WHERE id = $1 AND user_id = $2 AND is_read = false`
	res, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *notificationRepository) MarkAllAsRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	query := `UPDATE notifications SET is_read = true, read_at = NOW() WHERE user_id = $1 AND is_read = false`
	res, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *notificationRepository) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	query := `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = false`
	err := r.db.GetContext(ctx, &count, query, userID)
	return count, err
}

func (r *notificationRepository) DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM notifications WHERE is_read = true AND created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
