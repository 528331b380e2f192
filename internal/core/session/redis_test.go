package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRedis 内存版 Client，记录 TTL 设置
type fakeRedis struct {
	mu   sync.Mutex
	kv   map[string]string
	ttl  map[string]time.Duration
	fail error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{kv: map[string]string{}, ttl: map[string]time.Duration{}}
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return redis.NewStringResult("", f.fail)
	}
	v, ok := f.kv[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value interface{}, exp time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return redis.NewStatusResult("", f.fail)
	}
	f.kv[key] = value.(string)
	f.ttl[key] = exp
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Expire(_ context.Context, key string, exp time.Duration) *redis.BoolCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.kv[key]
	if ok {
		f.ttl[key] = exp
	}
	return redis.NewBoolResult(ok, nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return redis.NewIntResult(0, f.fail)
	}
	var n int64
	for _, k := range keys {
		if _, ok := f.kv[k]; ok {
			delete(f.kv, k)
			delete(f.ttl, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func (f *fakeRedis) Ping(context.Context) *redis.StatusCmd { return redis.NewStatusResult("PONG", f.fail) }

func (f *fakeRedis) Close() error { return nil }

func newTestRedisStore(ttl time.Duration) (*RedisStore, *fakeRedis) {
	f := newFakeRedis()
	return &RedisStore{RDB: f, Prefix: "console:tab:", TTL: ttl}, f
}

func TestRedisStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	s, f := newTestRedisStore(time.Hour)
	const key = "console:tab:tab-a:isAuthenticated"

	v, err := s.Get(ctx, "tab-a")
	require.NoError(t, err)
	assert.False(t, v, "absent flag reads as false")

	require.NoError(t, s.Set(ctx, "tab-a", true))
	assert.Equal(t, "true", f.kv[key])
	assert.Equal(t, time.Hour, f.ttl[key])

	// 读取时续期
	f.ttl[key] = time.Minute
	v, err = s.Get(ctx, "tab-a")
	require.NoError(t, err)
	assert.True(t, v)
	assert.Equal(t, time.Hour, f.ttl[key])

	v, _ = s.Get(ctx, "tab-b")
	assert.False(t, v, "other tabs do not see the flag")

	require.NoError(t, s.Clear(ctx, "tab-a"))
	require.NoError(t, s.Clear(ctx, "tab-a"))
	v, _ = s.Get(ctx, "tab-a")
	assert.False(t, v)
	require.NoError(t, s.Ping(ctx))
}

func TestRedisStore_Errors(t *testing.T) {
	ctx := context.Background()
	s, f := newTestRedisStore(time.Hour)
	down := errors.New("connection refused")
	f.fail = down

	_, err := s.Get(ctx, "tab-a")
	require.ErrorIs(t, err, down)
	require.ErrorIs(t, s.Set(ctx, "tab-a", true), down)
	require.ErrorIs(t, s.Clear(ctx, "tab-a"), down)
	require.ErrorIs(t, s.Ping(ctx), down)
}
