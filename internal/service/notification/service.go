package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"task-notify/internal/domain"
	apperrors "task-notify/internal/pkg/errors"
	"task-notify/internal/pkg/logger"
	"task-notify/internal/pkg/worker"
	"task-notify/internal/repository"
	"task-notify/internal/service/channel"
	"task-notify/internal/service/gate"
	"task-notify/internal/service/message"
	"task-notify/internal/service/preference"
)

var validate = validator.New()

const ReasonUserInactive gate.Reason = "user_inactive"

// Outcome reports what happened to one request. A suppressed request is not
// an error.
type Outcome struct {
	Suppressed bool                      `json:"suppressed"`
	Reason     gate.Reason               `json:"reason,omitempty"`
	Delivered  []domain.Channel          `json:"delivered"`
	Failed     map[domain.Channel]string `json:"failed,omitempty"`
}

func outcomeFrom(res channel.Result) *Outcome {
	out := &Outcome{Delivered: res.Delivered}
	if out.Delivered == nil {
		out.Delivered = []domain.Channel{}
	}
	if len(res.Failed) > 0 {
		out.Failed = make(map[domain.Channel]string, len(res.Failed))
		for ch, err := range res.Failed {
			out.Failed[ch] = err.Error()
		}
	}
	return out
}

// Submitter runs work in the background.
type Submitter interface {
	Submit(task worker.Task) error
}

type Service interface {
	// Notify runs the full decision path: preference, gate, build, dispatch.
	Notify(ctx context.Context, req domain.NotificationRequest) (*Outcome, error)
	// NotifyAsync validates req and queues Notify on the worker pool.
	NotifyAsync(req domain.NotificationRequest) error
	// Deliver dispatches an already built notification without consulting the
	// gate. An inactive user yields channel.ErrRecipientInactive.
	Deliver(ctx context.Context, userID uuid.UUID, built domain.BuiltNotification, meta channel.Meta) (channel.Result, error)

	List(ctx context.Context, userID uuid.UUID, filter domain.NotificationFilter) (domain.PaginatedResponse[domain.Notification], error)
	GetUnreadCount(ctx context.Context, userID uuid.UUID) (int64, error)
	MarkAsRead(ctx context.Context, id, userID uuid.UUID) error
	MarkAllAsRead(ctx context.Context, userID uuid.UUID) (int64, error)
}

type Option func(*service)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

type service struct {
	notifRepo  repository.NotificationRepository
	userRepo   repository.UserRepository
	prefs      preference.Service
	gate       gate.Service
	builder    *message.Builder
	dispatcher channel.Dispatcher
	pool       Submitter
	now        func() time.Time
}

func NewService(
	notifRepo repository.NotificationRepository,
	userRepo repository.UserRepository,
	prefs preference.Service,
	gateSvc gate.Service,
	builder *message.Builder,
	dispatcher channel.Dispatcher,
	pool Submitter,
	opts ...Option,
) Service {
	s := &service{
		notifRepo:  notifRepo,
		userRepo:   userRepo,
		prefs:      prefs,
		gate:       gateSvc,
		builder:    builder,
		dispatcher: dispatcher,
		pool:       pool,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) Notify(ctx context.Context, req domain.NotificationRequest) (*Outcome, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByID(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, apperrors.NotFound(apperrors.CodeUserNotFound, "user not found")
	}
	if !user.IsActive {
		return &Outcome{Suppressed: true, Reason: ReasonUserInactive, Delivered: []domain.Channel{}}, nil
	}

	pref, err := s.prefs.Resolve(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve preference: %w", err)
	}

	now := s.now()
	decision := s.gate.Check(ctx, pref, req.EventType, now)
	if !decision.Allowed {
		logger.Debug("notification suppressed",
			zap.String("user_id", user.ID.String()),
			zap.String("event_type", string(req.EventType)),
			zap.String("reason", string(decision.Reason)),
		)
		return &Outcome{Suppressed: true, Reason: decision.Reason, Delivered: []domain.Channel{}}, nil
	}

	payload := withTaskID(req.Payload, req.TaskID)
	built := s.builder.Build(req.EventType, payload)
	meta := channel.Meta{EventType: req.EventType, TaskID: req.TaskID, Payload: payload}

	res := s.dispatcher.Dispatch(ctx, user, built, pref, meta)
	if len(res.Delivered) > 0 {
		s.gate.RecordDelivery(ctx, user.ID, req.EventType, now)
	}
	return outcomeFrom(res), nil
}

func (s *service) NotifyAsync(req domain.NotificationRequest) error {
	if err := validateRequest(req); err != nil {
		return err
	}
	return s.pool.Submit(func(ctx context.Context) {
		out, err := s.Notify(ctx, req)
		if err != nil {
			logger.Error("async notification failed",
				zap.String("user_id", req.UserID.String()),
				zap.String("event_type", string(req.EventType)),
				zap.Error(err),
			)
			return
		}
		if !out.Suppressed && len(out.Delivered) == 0 && len(out.Failed) > 0 {
			logger.Warn("notification reached no channel",
				zap.String("user_id", req.UserID.String()),
				zap.String("event_type", string(req.EventType)),
			)
		}
	})
}

func (s *service) Deliver(ctx context.Context, userID uuid.UUID, built domain.BuiltNotification, meta channel.Meta) (channel.Result, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return channel.Result{}, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return channel.Result{}, apperrors.NotFound(apperrors.CodeUserNotFound, "user not found")
	}
	if !user.IsActive {
		return channel.Result{}, channel.ErrRecipientInactive
	}

	pref, err := s.prefs.Resolve(ctx, userID)
	if err != nil {
		return channel.Result{}, fmt.Errorf("failed to resolve preference: %w", err)
	}

	res := s.dispatcher.Dispatch(ctx, user, built, pref, meta)
	if len(res.Delivered) > 0 {
		s.gate.RecordDelivery(ctx, userID, meta.EventType, s.now())
	}
	return res, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID, filter domain.NotificationFilter) (domain.PaginatedResponse[domain.Notification], error) {
	filter.Validate()
	notifications, total, err := s.notifRepo.ListByUser(ctx, userID, filter)
	if err != nil {
		return domain.PaginatedResponse[domain.Notification]{}, err
	}

	return domain.NewPaginatedResponse(notifications, filter.PaginationParams, total), nil
}

func (s *service) GetUnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.notifRepo.CountUnread(ctx, userID)
}

// MarkAsRead is idempotent for the owner and reports not found to anyone else.
func (s *service) MarkAsRead(ctx context.Context, id, userID uuid.UUID) error {
	updated, err := s.notifRepo.MarkAsRead(ctx, id, userID)
	if err != nil {
		return err
	}
	if updated {
		return nil
	}

	notif, err := s.notifRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if notif == nil || notif.UserID != userID {
		return apperrors.NotFound(apperrors.CodeNotificationNotFound, "notification not found")
	}
	return nil
}

func (s *service) MarkAllAsRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.notifRepo.MarkAllAsRead(ctx, userID)
}

func validateRequest(req domain.NotificationRequest) error {
	if err := validate.Struct(req); err != nil {
		return apperrors.BadRequest(apperrors.CodeValidationFailed, err.Error())
	}
	return nil
}

// withTaskID exposes the request's task id to templates without mutating the
// caller's payload.
func withTaskID(payload domain.Payload, taskID *uuid.UUID) domain.Payload {
	if taskID == nil {
		return payload
	}
	if _, ok := payload["task_id"]; ok {
		return payload
	}
	out := make(domain.Payload, len(payload)+1)
	for k, v := range payload {
		out[k] = v
	}
	out["task_id"] = taskID.String()
	return out
}
