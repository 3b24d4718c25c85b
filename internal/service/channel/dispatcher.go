// Package channel fans a built notification out over a user's channels.
package channel

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"task-notify/internal/domain"
	apperrors "task-notify/internal/pkg/errors"
	"task-notify/internal/pkg/logger"
	"task-notify/internal/pkg/metrics"
)

// ErrRecipientInactive means the user is deactivated and must not be
// contacted. Retrying does not help.
var ErrRecipientInactive = errors.New("recipient is inactive")

// Meta describes the event a notification was built from.
type Meta struct {
	EventType domain.EventType
	TaskID    *uuid.UUID
	Payload   domain.Payload
}

// Sender delivers to one channel. Implementations must not retry.
type Sender interface {
	Channel() domain.Channel
	Send(ctx context.Context, user *domain.User, built domain.BuiltNotification, meta Meta) error
}

type Result struct {
	Delivered []domain.Channel
	Failed    map[domain.Channel]error
}

func (r Result) Attempted() int {
	return len(r.Delivered) + len(r.Failed)
}

// Err is non-nil only when channels were attempted and none delivered.
func (r Result) Err() error {
	if len(r.Delivered) > 0 || len(r.Failed) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(r.Failed))
	for ch, err := range r.Failed {
		msgs = append(msgs, fmt.Sprintf("%s: %v", ch, err))
	}
	return fmt.Errorf("all channels failed: %s", strings.Join(msgs, "; "))
}

type Dispatcher interface {
	Dispatch(ctx context.Context, user *domain.User, built domain.BuiltNotification, pref *domain.Preference, meta Meta) Result
}

type dispatcher struct {
	senders map[domain.Channel]Sender
}

func NewDispatcher(senders ...Sender) Dispatcher {
	m := make(map[domain.Channel]Sender, len(senders))
	for _, s := range senders {
		m[s.Channel()] = s
	}
	return &dispatcher{senders: m}
}

// Dispatch attempts each preferred channel once. A failing channel never
// prevents the others from being tried.
func (d *dispatcher) Dispatch(ctx context.Context, user *domain.User, built domain.BuiltNotification, pref *domain.Preference, meta Meta) Result {
	res := Result{Failed: make(map[domain.Channel]error)}

	for _, ch := range pref.Channels {
		err := d.send(ctx, ch, user, built, meta)
		if err != nil {
			res.Failed[ch] = err
			metrics.DispatchTotal.WithLabelValues(string(ch), "error").Inc()

			log := logger.Warn
			if errors.Is(err, apperrors.ErrChannelUnavailable) {
				log = logger.Debug
			}
			log("channel delivery failed",
				zap.String("channel", string(ch)),
				zap.String("user_id", user.ID.String()),
				zap.String("event_type", string(meta.EventType)),
				zap.Error(err),
			)
			continue
		}
		res.Delivered = append(res.Delivered, ch)
		metrics.DispatchTotal.WithLabelValues(string(ch), "ok").Inc()
	}

	return res
}

func (d *dispatcher) send(ctx context.Context, ch domain.Channel, user *domain.User, built domain.BuiltNotification, meta Meta) (err error) {
	sender, ok := d.senders[ch]
	if !ok {
		return fmt.Errorf("%w: %s", apperrors.ErrChannelUnavailable, ch)
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("channel %s panicked: %v", ch, r)
		}
	}()
	return sender.Send(ctx, user, built, meta)
}
