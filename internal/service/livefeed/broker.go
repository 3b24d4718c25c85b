package livefeed

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"task-notify/internal/domain"
	"task-notify/internal/pkg/logger"
)

const subscriptionBuffer = 16

// Broker carries new in-app notifications to open streams of their user.
// Delivery is best effort; streams still poll the store.
type Broker interface {
	Publish(ctx context.Context, notif *domain.Notification) error
	Subscribe(ctx context.Context, userID uuid.UUID) (Subscription, error)
}

type Subscription interface {
	C() <-chan domain.Notification
	Close() error
}

func channelName(userID uuid.UUID) string {
	return "notifications:" + userID.String()
}

// MemoryBroker serves a single process.
type MemoryBroker struct {
	mu   sync.RWMutex
	subs map[uuid.UUID]map[*memorySub]struct{}
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{subs: make(map[uuid.UUID]map[*memorySub]struct{})}
}

type memorySub struct {
	broker *MemoryBroker
	userID uuid.UUID
	ch     chan domain.Notification
	once   sync.Once
}

func (s *memorySub) C() <-chan domain.Notification { return s.ch }

func (s *memorySub) Close() error {
	s.once.Do(func() {
		s.broker.mu.Lock()
		delete(s.broker.subs[s.userID], s)
		if len(s.broker.subs[s.userID]) == 0 {
			delete(s.broker.subs, s.userID)
		}
		s.broker.mu.Unlock()
		close(s.ch)
	})
	return nil
}

func (b *MemoryBroker) Publish(_ context.Context, notif *domain.Notification) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subs[notif.UserID] {
		select {
		case sub.ch <- *notif:
		default:
			// Slow subscriber; the next poll delivers it.
		}
	}
	return nil
}

func (b *MemoryBroker) Subscribe(_ context.Context, userID uuid.UUID) (Subscription, error) {
	sub := &memorySub{broker: b, userID: userID, ch: make(chan domain.Notification, subscriptionBuffer)}

	b.mu.Lock()
	if b.subs[userID] == nil {
		b.subs[userID] = make(map[*memorySub]struct{})
	}
	b.subs[userID][sub] = struct{}{}
	b.mu.Unlock()

	return sub, nil
}

// RedisBroker fans out across API instances over Redis pub/sub.
type RedisBroker struct {
	client *redis.Client
}

func NewRedisBroker(client *redis.Client) *RedisBroker {
	return &RedisBroker{client: client}
}

func (b *RedisBroker) Publish(ctx context.Context, notif *domain.Notification) error {
	data, err := json.Marshal(notif)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, channelName(notif.UserID), data).Err()
}

func (b *RedisBroker) Subscribe(ctx context.Context, userID uuid.UUID) (Subscription, error) {
	ps := b.client.Subscribe(ctx, channelName(userID))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}

	sub := &redisSub{ps: ps, ch: make(chan domain.Notification, subscriptionBuffer), done: make(chan struct{})}
	go sub.forward()
	return sub, nil
}

type redisSub struct {
	ps   *redis.PubSub
	ch   chan domain.Notification
	done chan struct{}
	once sync.Once
}

func (s *redisSub) forward() {
	defer close(s.ch)
	for msg := range s.ps.Channel() {
		var notif domain.Notification
		if err := json.Unmarshal([]byte(msg.Payload), &notif); err != nil {
			logger.Warn("dropping malformed live feed message", zap.String("channel", msg.Channel), zap.Error(err))
			continue
		}
		select {
		case s.ch <- notif:
		case <-s.done:
			return
		default:
		}
	}
}

func (s *redisSub) C() <-chan domain.Notification { return s.ch }

func (s *redisSub) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.ps.Close()
	})
	return err
}
