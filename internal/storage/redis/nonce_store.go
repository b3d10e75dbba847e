package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"DeFi-Agent/internal/auth"
)

// NonceStore 使用 SET EX / GET / GETDEL 保存钱包登录 nonce。
type NonceStore struct {
	client redis.Cmdable
}

// NewNonceStore 创建 nonce 存储。
func NewNonceStore(client redis.Cmdable) *NonceStore {
	return &NonceStore{client: client}
}

// Set 写入带过期时间的 nonce。
func (s *NonceStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("Redis 写入 nonce 失败: %w", err)
	}
	return nil
}

// Get 读取 nonce，不存在时返回 auth.ErrNonceMissing。
func (s *NonceStore) Get(ctx context.Context, key string) (string, error) {
	value, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", auth.ErrNonceMissing
	}
	if err != nil {
		return "", fmt.Errorf("Redis 读取 nonce 失败: %w", err)
	}
	return value, nil
}

// Take 使用 GETDEL 原子地读取并删除 nonce。
func (s *NonceStore) Take(ctx context.Context, key string) (string, error) {
	value, err := s.client.GetDel(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", auth.ErrNonceMissing
	}
	if err != nil {
		return "", fmt.Errorf("Redis 取出 nonce 失败: %w", err)
	}
	return value, nil
}

var _ auth.NonceStore = (*NonceStore)(nil)
