package taskqueue

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisQueue implements the Queue interface using Redis.
//
// It uses a single Redis list with key:
//
//	<prefix>tasks
//
// Values are gob-encoded Task structs. Delayed tasks (NotBefore in the
// future) are held by the consumer rather than re-queued, which keeps the
// implementation to one list at the cost of blocking one worker slot.
type RedisQueue struct {
	client *redis.Client
	key    string
}

// NewRedisQueue constructs a Redis-backed Queue.
// prefix is optional but recommended (e.g. "statusflow:").
func NewRedisQueue(client *redis.Client, prefix string) *RedisQueue {
	if prefix == "" {
		prefix = "statusflow:"
	}
	return &RedisQueue{
		client: client,
		key:    prefix + "tasks",
	}
}

// Ensure RedisQueue implements Queue.
var _ Queue = (*RedisQueue)(nil)

// Enqueue pushes a task onto the Redis list (LPUSH).
func (q *RedisQueue) Enqueue(ctx context.Context, t Task) error {
	data, err := EncodeTask(t)
	if err != nil {
		return err
	}
	return q.client.LPush(ctx, q.key, data).Err()
}

// Dequeue blocks on BRPOP until a task is available or ctx is cancelled.
func (q *RedisQueue) Dequeue(ctx context.Context) (*Task, error) {
	res, err := q.client.BRPop(ctx, 0, q.key).Result()
	if err != nil {
		return nil, err
	}
	if len(res) != 2 {
		// Unexpected shape; log and report nothing dequeued.
		slog.Warn("redis queue: BRPOP returned unexpected result", slog.Int("len", len(res)))
		return nil, nil
	}

	t, err := DecodeTask([]byte(res[1]))
	if err != nil {
		return nil, err
	}
	if wait := time.Until(t.NotBefore); wait > 0 {
		select {
		case <-ctx.Done():
			// Push back so the delayed task survives shutdown.
			_ = q.client.LPush(context.Background(), q.key, []byte(res[1])).Err()
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
	return t, nil
}

// Len returns the approximate number of tasks queued (LLEN).
func (q *RedisQueue) Len() int {
	n, err := q.client.LLen(context.Background(), q.key).Result()
	if err != nil {
		slog.Warn("redis queue: LLEN failed", slog.Any("error", err))
		return 0
	}
	return int(n)
}
