package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"task-notify/internal/domain"
)

type ReminderRepository interface {
	CreateBatch(ctx context.Context, reminders []domain.Reminder) error
	ListByTask(ctx context.Context, taskID uuid.UUID) ([]domain.Reminder, error)
	ListByTaskAndUser(ctx context.Context, taskID, userID uuid.UUID) ([]domain.Reminder, error)
	// ClaimDue marks up to limit due reminders as sent and returns them. Rows
	// locked by a concurrent sweep, or already attempted at now, are skipped.
	ClaimDue(ctx context.Context, now time.Time, limit, maxAttempts int) ([]domain.Reminder, error)
	// Release returns a claimed reminder to the unsent pool after a failed dispatch.
	Release(ctx context.Context, id uuid.UUID, reason string) error
	// Skip leaves a claimed reminder out of every later sweep without a
	// delivery: is_sent stays true and sent_at is cleared.
	Skip(ctx context.Context, id uuid.UUID, reason string) error
	DeleteUnsentByTask(ctx context.Context, taskID uuid.UUID) (int64, error)
	CountPending(ctx context.Context) (int64, error)
}

type reminderRepository struct {
	db *sqlx.DB
}

func NewReminderRepository(db *sqlx.DB) ReminderRepository {
	return &reminderRepository{db: db}
}

func (r *reminderRepository) CreateBatch(ctx context.Context, reminders []domain.Reminder) error {
	if len(reminders) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO reminders (id, task_id, user_id, scheduled_for, type, message)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	for i := range reminders {
		rem := &reminders[i]
		if err := tx.QueryRowxContext(ctx, query,
			rem.ID, rem.TaskID, rem.UserID, rem.ScheduledFor, rem.Type, rem.Message,
		).Scan(&rem.CreatedAt); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *reminderRepository) ListByTask(ctx context.Context, taskID uuid.UUID) ([]domain.Reminder, error) {
	var reminders []domain.Reminder
	query := `SELECT * FROM reminders WHERE task_id = $1 ORDER BY scheduled_for ASC`
	err := r.db.SelectContext(ctx, &reminders, query, taskID)
	return reminders, err
}

func (r *reminderRepository) ListByTaskAndUser(ctx context.Context, taskID, userID uuid.UUID) ([]domain.Reminder, error) {
	var reminders []domain.Reminder
	query := `SELECT * FROM reminders WHERE task_id = $1 AND user_id = $2 ORDER BY scheduled_for ASC`
	err := r.db.SelectContext(ctx, &reminders, query, taskID, userID)
	return reminders, err
}

func (r *reminderRepository) ClaimDue(ctx context.Context, now time.Time, limit, maxAttempts int) ([]domain.Reminder, error) {
	query := `
		UPDATE reminders
		SET is_sent = true, sent_at = $1, attempt_count = attempt_count + 1, last_attempt_at = $1
		WHERE id IN (
			SELECT id FROM reminders
			WHERE is_sent = false AND scheduled_for <= $1 AND attempt_count < $3
				AND (last_attempt_at IS NULL OR last_attempt_at < $1)
			ORDER BY scheduled_for ASC
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		RETURNING *`

	var reminders []domain.Reminder
	err := r.db.SelectContext(ctx, &reminders, query, now, limit, maxAttempts)
	return reminders, err
}

func (r *reminderRepository) Release(ctx context.Context, id uuid.UUID, reason string) error {
	query := `UPDATE reminders SET is_sent = false, sent_at = NULL, last_error = $2 WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id, reason)
	return err
}

func (r *reminderRepository) Skip(ctx context.Context, id uuid.UUID, reason string) error {
	query := `UPDATE reminders SET is_sent = true, sent_at = NULL, last_error = $2 WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id, reason)
	return err
}

func (r *reminderRepository) DeleteUnsentByTask(ctx context.Context, taskID uuid.UUID) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM reminders WHERE task_id = $1 AND is_sent = false`, taskID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *reminderRepository) CountPending(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM reminders WHERE is_sent = false`)
	return count, err
}
