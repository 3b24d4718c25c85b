// Package reminder schedules deadline reminders and sends them when due.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"task-notify/internal/domain"
	apperrors "task-notify/internal/pkg/errors"
	"task-notify/internal/pkg/logger"
	"task-notify/internal/pkg/metrics"
	"task-notify/internal/repository"
	"task-notify/internal/service/channel"
	"task-notify/internal/service/message"
)

var validate = validator.New()

// Deliverer sends a built notification over the user's channels.
type Deliverer interface {
	Deliver(ctx context.Context, userID uuid.UUID, built domain.BuiltNotification, meta channel.Meta) (channel.Result, error)
}

type Service interface {
	// ScheduleForDeadline persists the lead-time reminders of task for userID.
	// A task without a deadline gets none.
	ScheduleForDeadline(ctx context.Context, task *domain.Task, userID uuid.UUID) ([]domain.Reminder, error)
	// Reschedule drops the unsent reminders of task and schedules new ones.
	Reschedule(ctx context.Context, task *domain.Task, userID uuid.UUID) ([]domain.Reminder, error)
	// ScheduleTask reschedules a stored task. userID defaults to the assignee.
	ScheduleTask(ctx context.Context, taskID uuid.UUID, userID *uuid.UUID) ([]domain.Reminder, error)
	// CreateCustom adds a reminder for userID, who must be the task assignee.
	CreateCustom(ctx context.Context, taskID, userID uuid.UUID, input domain.CreateReminderInput) (*domain.Reminder, error)
	ListForTask(ctx context.Context, taskID uuid.UUID) ([]domain.Reminder, error)
	ListForTaskAndUser(ctx context.Context, taskID, userID uuid.UUID) ([]domain.Reminder, error)
	CancelForTask(ctx context.Context, taskID uuid.UUID) (int64, error)
	// SweepDue sends every reminder due at now and returns how many reached at
	// least one channel. Failed reminders are released for the next sweep;
	// reminders of inactive users are skipped for good.
	SweepDue(ctx context.Context, now time.Time) (int, error)
}

type Config struct {
	BatchSize   int
	MaxAttempts int
}

type Option func(*service)

func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

type service struct {
	reminderRepo repository.ReminderRepository
	taskRepo     repository.TaskRepository
	deliverer    Deliverer
	builder      *message.Builder
	cfg          Config
	now          func() time.Time
}

func NewService(
	reminderRepo repository.ReminderRepository,
	taskRepo repository.TaskRepository,
	deliverer Deliverer,
	builder *message.Builder,
	cfg Config,
	opts ...Option,
) Service {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	s := &service{
		reminderRepo: reminderRepo,
		taskRepo:     taskRepo,
		deliverer:    deliverer,
		builder:      builder,
		cfg:          cfg,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) ScheduleForDeadline(ctx context.Context, task *domain.Task, userID uuid.UUID) ([]domain.Reminder, error) {
	if task.Deadline == nil {
		return []domain.Reminder{}, nil
	}

	payload := taskPayload(task)
	planned := Plan(*task.Deadline, s.now())
	reminders := make([]domain.Reminder, 0, len(planned))
	for _, p := range planned {
		reminders = append(reminders, domain.Reminder{
			ID:           uuid.New(),
			TaskID:       task.ID,
			UserID:       userID,
			ScheduledFor: p.At,
			Type:         p.Type,
			Message:      s.builder.BuildReminder(p.Type, payload).Message,
		})
	}

	if err := s.reminderRepo.CreateBatch(ctx, reminders); err != nil {
		return nil, fmt.Errorf("failed to create reminders: %w", err)
	}
	for _, r := range reminders {
		metrics.RemindersScheduled.WithLabelValues(string(r.Type)).Inc()
	}
	return reminders, nil
}

func (s *service) Reschedule(ctx context.Context, task *domain.Task, userID uuid.UUID) ([]domain.Reminder, error) {
	removed, err := s.CancelForTask(ctx, task.ID)
	if err != nil {
		return nil, err
	}
	if removed > 0 {
		logger.Debug("cancelled pending reminders",
			zap.String("task_id", task.ID.String()),
			zap.Int64("count", removed),
		)
	}
	return s.ScheduleForDeadline(ctx, task, userID)
}

func (s *service) ScheduleTask(ctx context.Context, taskID uuid.UUID, userID *uuid.UUID) ([]domain.Reminder, error) {
	task, err := s.getTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	target := userID
	if target == nil {
		target = task.AssigneeID
	}
	if target == nil {
		return nil, apperrors.BadRequest(apperrors.CodeValidationFailed, "task has no assignee and no user was given")
	}
	return s.Reschedule(ctx, task, *target)
}

func (s *service) CreateCustom(ctx context.Context, taskID, userID uuid.UUID, input domain.CreateReminderInput) (*domain.Reminder, error) {
	if err := validate.Struct(input); err != nil {
		return nil, apperrors.BadRequest(apperrors.CodeValidationFailed, err.Error())
	}

	task, err := s.getTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.AssigneeID == nil || *task.AssigneeID != userID {
		return nil, apperrors.Forbidden("only the task assignee can add reminders")
	}

	msg := input.Message
	if msg == "" {
		msg = s.builder.BuildReminder(input.Type, taskPayload(task)).Message
	}

	rem := domain.Reminder{
		ID:           uuid.New(),
		TaskID:       task.ID,
		UserID:       userID,
		ScheduledFor: input.ScheduledFor,
		Type:         input.Type,
		Message:      msg,
	}
	reminders := []domain.Reminder{rem}
	if err := s.reminderRepo.CreateBatch(ctx, reminders); err != nil {
		return nil, fmt.Errorf("failed to create reminder: %w", err)
	}
	metrics.RemindersScheduled.WithLabelValues(string(rem.Type)).Inc()
	return &reminders[0], nil
}

func (s *service) ListForTask(ctx context.Context, taskID uuid.UUID) ([]domain.Reminder, error) {
	reminders, err := s.reminderRepo.ListByTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if reminders == nil {
		reminders = []domain.Reminder{}
	}
	return reminders, nil
}

func (s *service) ListForTaskAndUser(ctx context.Context, taskID, userID uuid.UUID) ([]domain.Reminder, error) {
	reminders, err := s.reminderRepo.ListByTaskAndUser(ctx, taskID, userID)
	if err != nil {
		return nil, err
	}
	if reminders == nil {
		reminders = []domain.Reminder{}
	}
	return reminders, nil
}

func (s *service) CancelForTask(ctx context.Context, taskID uuid.UUID) (int64, error) {
	removed, err := s.reminderRepo.DeleteUnsentByTask(ctx, taskID)
	if err != nil {
		return 0, fmt.Errorf("failed to cancel reminders: %w", err)
	}
	return removed, nil
}

func (s *service) SweepDue(ctx context.Context, now time.Time) (int, error) {
	start := time.Now()
	defer func() {
		metrics.SweepDuration.Observe(time.Since(start).Seconds())
	}()

	sent := 0
	for {
		batch, err := s.reminderRepo.ClaimDue(ctx, now, s.cfg.BatchSize, s.cfg.MaxAttempts)
		if err != nil {
			return sent, fmt.Errorf("failed to claim due reminders: %w", err)
		}

		for _, rem := range batch {
			err := s.send(ctx, rem)
			if errors.Is(err, channel.ErrRecipientInactive) {
				metrics.RemindersSwept.WithLabelValues("skipped").Inc()
				s.skip(ctx, rem, err)
				continue
			}
			if err != nil {
				metrics.RemindersSwept.WithLabelValues("failed").Inc()
				logger.Warn("reminder delivery failed",
					zap.String("reminder_id", rem.ID.String()),
					zap.String("task_id", rem.TaskID.String()),
					zap.Int("attempt", rem.AttemptCount),
					zap.Error(err),
				)
				s.release(ctx, rem, err)
				continue
			}
			metrics.RemindersSwept.WithLabelValues("sent").Inc()
			sent++
		}

		if len(batch) < s.cfg.BatchSize || ctx.Err() != nil {
			break
		}
	}

	return sent, nil
}

func (s *service) send(ctx context.Context, rem domain.Reminder) error {
	payload := domain.Payload{"task_id": rem.TaskID.String()}
	task, err := s.taskRepo.GetByID(ctx, rem.TaskID)
	if err != nil {
		return fmt.Errorf("failed to get task: %w", err)
	}
	if task != nil {
		payload["task_title"] = task.Title
	}

	built := s.builder.BuildReminder(rem.Type, payload)
	if rem.Message != "" {
		built.Message = rem.Message
	}

	taskID := rem.TaskID
	res, err := s.deliverer.Deliver(ctx, rem.UserID, built, channel.Meta{
		EventType: domain.EventReminder,
		TaskID:    &taskID,
		Payload:   payload,
	})
	if err != nil {
		return err
	}
	return res.Err()
}

// release keeps the attempt count but makes the reminder claimable again.
func (s *service) release(ctx context.Context, rem domain.Reminder, cause error) {
	ctx = context.WithoutCancel(ctx)
	if err := s.reminderRepo.Release(ctx, rem.ID, cause.Error()); err != nil {
		logger.Error("failed to release reminder",
			zap.String("reminder_id", rem.ID.String()),
			zap.Error(err),
		)
		return
	}
	if rem.AttemptCount >= s.cfg.MaxAttempts {
		logger.Warn("reminder gave up after max attempts",
			zap.String("reminder_id", rem.ID.String()),
			zap.Int("attempts", rem.AttemptCount),
		)
	}
}

func (s *service) skip(ctx context.Context, rem domain.Reminder, cause error) {
	ctx = context.WithoutCancel(ctx)
	if err := s.reminderRepo.Skip(ctx, rem.ID, cause.Error()); err != nil {
		logger.Error("failed to skip reminder",
			zap.String("reminder_id", rem.ID.String()),
			zap.Error(err),
		)
		return
	}
	logger.Info("reminder skipped",
		zap.String("reminder_id", rem.ID.String()),
		zap.String("user_id", rem.UserID.String()),
		zap.Error(cause),
	)
}

func (s *service) getTask(ctx context.Context, taskID uuid.UUID) (*domain.Task, error) {
	task, err := s.taskRepo.GetByID(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	if task == nil {
		return nil, apperrors.NotFound(apperrors.CodeTaskNotFound, "task not found")
	}
	return task, nil
}

func taskPayload(task *domain.Task) domain.Payload {
	return domain.Payload{"task_id": task.ID.String(), "task_title": task.Title}
}
