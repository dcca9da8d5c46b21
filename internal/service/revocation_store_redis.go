package service

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRevocationStore keeps live refresh tokens in a TTL key-value store.
// Expiry in redis and expiry in the token signature are set to the same
// window, so a token that outlives its entry is treated as revoked.
type RedisRevocationStore struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisRevocationStore(client redis.UniversalClient, prefix string) *RedisRevocationStore {
	if prefix == "" {
		prefix = "refresh_token"
	}
	return &RedisRevocationStore{client: client, prefix: prefix}
}

func (s *RedisRevocationStore) Put(ctx context.Context, token, username string, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.key(token), username, ttl).Err(); err != nil {
		return fmt.Errorf("revocation store put: %w", err)
	}
	return nil
}

func (s *RedisRevocationStore) Get(ctx context.Context, token string) (string, bool, error) {
	username, err := s.client.Get(ctx, s.key(token)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("revocation store get: %w", err)
	}
	return username, true, nil
}

func (s *RedisRevocationStore) Delete(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, s.key(token)).Err(); err != nil {
		return fmt.Errorf("revocation store delete: %w", err)
	}
	return nil
}

func (s *RedisRevocationStore) key(token string) string {
	return s.prefix + ":" + token
}
