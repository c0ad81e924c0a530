package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisNegativeTokenCacheStore struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisNegativeTokenCacheStore(client redis.UniversalClient, prefix string) *RedisNegativeTokenCacheStore {
	if prefix == "" {
		prefix = "negative_token_cache"
	}
	return &RedisNegativeTokenCacheStore{
		client: client,
		prefix: prefix,
	}
}

func (s *RedisNegativeTokenCacheStore) Get(ctx context.Context, namespace, token string) (bool, error) {
	if s.client == nil {
		return false, nil
	}
	_, err := s.client.Get(ctx, s.dataKey(namespace, token)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *RedisNegativeTokenCacheStore) Set(ctx context.Context, namespace, token string, ttl time.Duration) error {
	if s.client == nil || ttl <= 0 {
		return nil
	}
	dataKey := s.dataKey(namespace, token)
	namespaceIndex := s.namespaceIndexKey(namespace)
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, dataKey, "1", ttl)
	pipe.SAdd(ctx, namespaceIndex, dataKey)
	pipe.Expire(ctx, namespaceIndex, ttl+time.Minute)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisNegativeTokenCacheStore) InvalidateNamespace(ctx context.Context, namespace string) error {
	if s.client == nil {
		return nil
	}
	namespaceIndex := s.namespaceIndexKey(namespace)
	keys, err := s.client.SMembers(ctx, namespaceIndex).Result()
	if err != nil && err != redis.Nil {
		return err
	}
	pipe := s.client.TxPipeline()
	if len(keys) > 0 {
		pipe.Del(ctx, keys...)
	}
	pipe.Del(ctx, namespaceIndex)
	_, err = pipe.Exec(ctx)
	return err
}

// Raw tokens are credentials; only their hash ever reaches redis key space.
func (s *RedisNegativeTokenCacheStore) dataKey(namespace, token string) string {
	return fmt.Sprintf("%s:data:%s:%s", s.prefix, normalizeNamespace(namespace), hashToken(token))
}

func (s *RedisNegativeTokenCacheStore) namespaceIndexKey(namespace string) string {
	return fmt.Sprintf("%s:index:%s", s.prefix, normalizeNamespace(namespace))
}

func normalizeNamespace(namespace string) string {
	v := strings.TrimSpace(strings.ToLower(namespace))
	if v == "" {
		return "default"
	}
	return v
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
