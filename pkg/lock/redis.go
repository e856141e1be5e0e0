package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const lockKeyPrefix = "admission:lock:"

// Compare-and-delete: only the holder that set the token may remove the key.
const releaseScript = `if redis.call("get", KEYS[1]) == ARGV[1] then return redis.call("del", KEYS[1]) else return 0 end`

// RedisLocker implements Locker on a shared redis instance. SET NX PX gives
// the atomic set-if-absent with expiry; the TTL bounds how long a crashed
// holder can wedge the key.
type RedisLocker struct {
	client *redis.Client
}

func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{client: client}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, lockKeyPrefix+key, token, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("redis setnx failed: %w", err)
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

func (l *RedisLocker) Release(ctx context.Context, key, token string) error {
	err := l.client.Eval(ctx, releaseScript, []string{lockKeyPrefix + key}, token).Err()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("redis release failed: %w", err)
	}
	return nil
}
