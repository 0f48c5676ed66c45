package queue

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisUpdateQueue реализует сигнальную очередь обработчика на базе Redis lists.
// Сигнал несёт только tg_update_id: сами события обработчик читает из инбокса.
type RedisUpdateQueue struct {
	client *redis.Client
	key    string
}

// NewRedisUpdateQueue создаёт очередь по указанному ключу.
func NewRedisUpdateQueue(client *redis.Client, key string) *RedisUpdateQueue {
	return &RedisUpdateQueue{client: client, key: key}
}

// Signal сообщает обработчику о новом событии.
func (q *RedisUpdateQueue) Signal(ctx context.Context, tgUpdateID int64) error {
	if err := q.client.LPush(ctx, q.key, strconv.FormatInt(tgUpdateID, 10)).Err(); err != nil {
		return fmt.Errorf("push signal: %w", err)
	}
	return nil
}

// PopWait ждёт сигнал не дольше timeout.
func (q *RedisUpdateQueue) PopWait(ctx context.Context, timeout time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	res, err := q.client.BRPop(ctx, timeout, q.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			if ctx.Err() != nil {
				return false, ctx.Err()
			}
			return false, nil
		}
		return false, err
	}
	if len(res) != 2 {
		return false, errors.New("redis queue: unexpected response")
	}
	return true, nil
}
