package otp

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"veritas/pkg/platform/sentinel"
)

const codeKeyPrefix = "otp:email:"

// RedisStore is the production code store. Expiry is delegated to Redis TTLs
// and Consume uses GETDEL so two concurrent verification attempts can never
// both succeed with the same code.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Save(ctx context.Context, key, code string, ttl time.Duration) error {
	return s.client.Set(ctx, codeKeyPrefix+key, code, ttl).Err()
}

func (s *RedisStore) Consume(ctx context.Context, key string) (string, error) {
	code, err := s.client.GetDel(ctx, codeKeyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", sentinel.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return code, nil
}
