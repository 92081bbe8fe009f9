package cache

import (
	"context"
	"time"

	pkgredis "github.com/Adithya-Monish-Kumar-K/textsearch/pkg/redis"
)

type redisStore struct {
	client *pkgredis.Client
}

// NewRedisStore adapts a Redis client to Store, mapping missing keys to
// ErrMiss.
func NewRedisStore(client *pkgredis.Client) Store {
	return &redisStore{client: client}
}

func (s *redisStore) Get(ctx context.Context, key string) (string, error) {
	v, err := s.client.Get(ctx, key)
	if pkgredis.IsNilError(err) {
		return "", ErrMiss
	}
	return v, err
}

func (s *redisStore) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl)
}

func (s *redisStore) FlushByPattern(ctx context.Context, pattern string) (int64, error) {
	return s.client.FlushByPattern(ctx, pattern)
}
