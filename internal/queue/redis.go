package queue

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// RedisBackend stores ids in a Redis list: RPUSH at the tail, LPOP at the head.
type RedisBackend struct {
	client redis.Cmdable
	key    string
}

func NewRedisBackend(client redis.Cmdable, key string) *RedisBackend {
	return &RedisBackend{client: client, key: key}
}

func (b *RedisBackend) Push(ctx context.Context, value string) error {
	return b.client.RPush(ctx, b.key, value).Err()
}

func (b *RedisBackend) Pop(ctx context.Context) (string, bool, error) {
	v, err := b.client.LPop(ctx, b.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (b *RedisBackend) Len(ctx context.Context) (int64, error) {
	return b.client.LLen(ctx, b.key).Result()
}

// Contains uses LPOS, so it scans the list.
func (b *RedisBackend) Contains(ctx context.Context, value string) (bool, error) {
	err := b.client.LPos(ctx, b.key, value, redis.LPosArgs{}).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

var _ Backend = (*RedisBackend)(nil)
