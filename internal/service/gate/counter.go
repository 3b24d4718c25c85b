package gate

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"task-notify/internal/domain"
)

// FrequencyCounter reports how many notifications of a type a user received
// since a point in time.
type FrequencyCounter interface {
	Count(ctx context.Context, userID uuid.UUID, eventType domain.EventType, since time.Time) (int64, error)
	Record(ctx context.Context, userID uuid.UUID, eventType domain.EventType, at time.Time) error
}

// NotificationCounter is the subset of the notification repository used by
// RepositoryCounter.
type NotificationCounter interface {
	CountByTypeSince(ctx context.Context, userID uuid.UUID, eventType domain.EventType, since time.Time) (int64, error)
}

// RepositoryCounter counts stored in-app notifications. Record is a no-op
// because the in-app channel already wrote the row.
type RepositoryCounter struct {
	repo NotificationCounter
}

func NewRepositoryCounter(repo NotificationCounter) *RepositoryCounter {
	return &RepositoryCounter{repo: repo}
}

func (c *RepositoryCounter) Count(ctx context.Context, userID uuid.UUID, eventType domain.EventType, since time.Time) (int64, error) {
	return c.repo.CountByTypeSince(ctx, userID, eventType, since)
}

func (c *RepositoryCounter) Record(context.Context, uuid.UUID, domain.EventType, time.Time) error {
	return nil
}

// windowRetention bounds the lifetime of a sorted set; it covers the longest
// frequency period.
const windowRetention = 25 * time.Hour

// RedisCounter keeps a sliding window per user and type in a sorted set
// scored by delivery time, so every channel counts, not only in-app.
type RedisCounter struct {
	client *redis.Client
}

func NewRedisCounter(client *redis.Client) *RedisCounter {
	return &RedisCounter{client: client}
}

func windowKey(userID uuid.UUID, eventType domain.EventType) string {
	return fmt.Sprintf("freq:%s:%s", userID, eventType)
}

func (c *RedisCounter) Count(ctx context.Context, userID uuid.UUID, eventType domain.EventType, since time.Time) (int64, error) {
	key := windowKey(userID, eventType)
	from := strconv.FormatInt(since.UnixMilli(), 10)

	var count *redis.IntCmd
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRemRangeByScore(ctx, key, "-inf", "("+from)
		count = pipe.ZCount(ctx, key, from, "+inf")
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count.Val(), nil
}

func (c *RedisCounter) Record(ctx context.Context, userID uuid.UUID, eventType domain.EventType, at time.Time) error {
	key := windowKey(userID, eventType)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, key, redis.Z{Score: float64(at.UnixMilli()), Member: uuid.NewString()})
		pipe.Expire(ctx, key, windowRetention)
		return nil
	})
	return err
}
