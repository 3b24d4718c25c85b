// Package livefeed streams new in-app notifications to a connected client.
package livefeed

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"task-notify/internal/domain"
	"task-notify/internal/pkg/logger"
	"task-notify/internal/pkg/metrics"
)

const (
	pollLimit = 100
	seenLimit = 512
)

// NotificationSource lists in-app notifications created after a point in time.
type NotificationSource interface {
	ListCreatedAfter(ctx context.Context, userID uuid.UUID, channel domain.Channel, after time.Time, limit int) ([]domain.Notification, error)
}

type Config struct {
	PollInterval      time.Duration
	HeartbeatInterval time.Duration
	MaxDuration       time.Duration
	// PollOverlap moves the first poll window back to tolerate an app clock
	// ahead of the database clock that stamps created_at.
	PollOverlap time.Duration
}

type Streamer struct {
	source NotificationSource
	broker Broker
	cfg    Config
	now    func() time.Time
}

// NewStreamer builds a streamer. broker may be nil, in which case streams
// rely on polling alone.
func NewStreamer(source NotificationSource, broker Broker, cfg Config) *Streamer {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 10 * time.Second
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = 30 * time.Second
	}
	if cfg.MaxDuration <= 0 {
		cfg.MaxDuration = 30 * time.Minute
	}
	if cfg.PollOverlap <= 0 {
		cfg.PollOverlap = 5 * time.Second
	}
	return &Streamer{source: source, broker: broker, cfg: cfg, now: time.Now}
}

type connectedEvent struct {
	UserID       uuid.UUID `json:"user_id"`
	Time         time.Time `json:"time"`
	PollInterval int       `json:"poll_interval_seconds"`
}

type heartbeatEvent struct {
	Time time.Time `json:"time"`
}

type disconnectedEvent struct {
	Reason string    `json:"reason"`
	Time   time.Time `json:"time"`
}

// Stream blocks until ctx is done, the session reaches its maximum duration
// or the writer fails. Every end emits disconnected on a best-effort basis.
// A clean end returns nil; a writer failure is returned.
func (s *Streamer) Stream(ctx context.Context, userID uuid.UUID, w EventWriter) error {
	metrics.LiveFeedConnections.Inc()
	defer metrics.LiveFeedConnections.Dec()

	session, cancel := context.WithTimeout(ctx, s.cfg.MaxDuration)
	defer cancel()

	connectedAt := s.now()
	lastCheck := connectedAt.Add(-s.cfg.PollOverlap)
	if err := w.WriteEvent(EventConnected, connectedEvent{
		UserID:       userID,
		Time:         connectedAt,
		PollInterval: int(s.cfg.PollInterval / time.Second),
	}); err != nil {
		return err
	}

	var pushed <-chan domain.Notification
	if s.broker != nil {
		sub, err := s.broker.Subscribe(session, userID)
		if err != nil {
			logger.Warn("live feed subscribe failed, polling only", zap.String("user_id", userID.String()), zap.Error(err))
		} else {
			defer sub.Close()
			pushed = sub.C()
		}
	}

	poll := time.NewTicker(s.cfg.PollInterval)
	defer poll.Stop()
	heartbeat := time.NewTicker(s.cfg.HeartbeatInterval)
	defer heartbeat.Stop()

	seen := newSeenSet(seenLimit)
	emit := func(n domain.Notification) error {
		if !seen.add(n.ID) {
			return nil
		}
		return w.WriteEvent(EventNotification, n)
	}
	// fail tries to tell the client before giving up on the connection.
	fail := func(err error) error {
		_ = w.WriteEvent(EventDisconnected, disconnectedEvent{Reason: "error", Time: s.now()})
		return err
	}

	for {
		select {
		case <-session.Done():
			reason := "timeout"
			if ctx.Err() != nil {
				reason = "closed"
			}
			_ = w.WriteEvent(EventDisconnected, disconnectedEvent{Reason: reason, Time: s.now()})
			return nil

		case <-poll.C:
			rows, err := s.source.ListCreatedAfter(session, userID, domain.ChannelInApp, lastCheck, pollLimit)
			if err != nil {
				if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
					logger.Warn("live feed poll failed", zap.String("user_id", userID.String()), zap.Error(err))
				}
				continue
			}
			for _, n := range rows {
				if err := emit(n); err != nil {
					return fail(err)
				}
				if n.CreatedAt.After(lastCheck) {
					lastCheck = n.CreatedAt
				}
			}

		case n, ok := <-pushed:
			if !ok {
				pushed = nil
				continue
			}
			if err := emit(n); err != nil {
				return fail(err)
			}

		case <-heartbeat.C:
			if err := w.WriteEvent(EventHeartbeat, heartbeatEvent{Time: s.now()}); err != nil {
				return fail(err)
			}
		}
	}
}

// seenSet remembers the most recent IDs so a notification delivered by push
// is not emitted again by the poll.
type seenSet struct {
	ids   map[uuid.UUID]struct{}
	order []uuid.UUID
	limit int
}

func newSeenSet(limit int) *seenSet {
	return &seenSet{ids: make(map[uuid.UUID]struct{}, limit), limit: limit}
}

// add reports whether id was new.
func (s *seenSet) add(id uuid.UUID) bool {
	if _, ok := s.ids[id]; ok {
		return false
	}
	if len(s.order) == s.limit {
		delete(s.ids, s.order[0])
		s.order = s.order[1:]
	}
	s.ids[id] = struct{}{}
	s.order = append(s.order, id)
	return true
}
