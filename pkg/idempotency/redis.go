package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const idemKeyPrefix = "admission:idem:"

// RedisStore shares idempotency state across service instances. Expiry is
// delegated to redis key TTLs.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, token string) ([]byte, bool, error) {
	payload, err := s.client.Get(ctx, idemKeyPrefix+token).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}
	return payload, true, nil
}

func (s *RedisStore) SetNX(ctx context.Context, token string, payload []byte, ttl time.Duration) (bool, error) {
	won, err := s.client.SetNX(ctx, idemKeyPrefix+token, payload, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx failed: %w", err)
	}
	return won, nil
}

func (s *RedisStore) Delete(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, idemKeyPrefix+token).Err(); err != nil {
		return fmt.Errorf("redis del failed: %w", err)
	}
	return nil
}
