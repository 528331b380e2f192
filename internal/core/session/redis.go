package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client RedisStore 用到的命令，*redis.Client 即满足
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Ping(ctx context.Context) *redis.StatusCmd
	Close() error
}

// RedisStore 多实例部署时共享 tab 登录标记；TTL 每次读取续期
type RedisStore struct {
	RDB    Client
	Prefix string
	TTL    time.Duration
}

func NewRedisStore(addr, pass string, db int, ttl time.Duration) *RedisStore {
	return &RedisStore{
		RDB:    redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db}),
		Prefix: "console:tab:",
		TTL:    ttl,
	}
}

func (s *RedisStore) key(tabID string) string { return s.Prefix + tabID + ":" + FlagKey }

func (s *RedisStore) Get(ctx context.Context, tabID string) (bool, error) {
	k := s.key(tabID)
	v, err := s.RDB.Get(ctx, k).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("session get: %w", err)
	}
	if s.TTL > 0 {
		_ = s.RDB.Expire(ctx, k, s.TTL).Err()
	}
	return v == "true", nil
}

func (s *RedisStore) Set(ctx context.Context, tabID string, v bool) error {
	val := "false"
	if v {
		val = "true"
	}
	if err := s.RDB.Set(ctx, s.key(tabID), val, s.TTL).Err(); err != nil {
		return fmt.Errorf("session set: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context, tabID string) error {
	if err := s.RDB.Del(ctx, s.key(tabID)).Err(); err != nil {
		return fmt.Errorf("session clear: %w", err)
	}
	return nil
}

func (s *RedisStore) Ping(ctx context.Context) error { return s.RDB.Ping(ctx).Err() }

func (s *RedisStore) Close() error { return s.RDB.Close() }
