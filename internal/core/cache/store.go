package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ErrStaleResponse 较早发起的请求晚于较新的请求返回，结果被丢弃（仅内部使用）
var ErrStaleResponse = errors.New("cache: stale response discarded")

// Loader 回源函数
type Loader[T any] func(ctx context.Context) (T, error)

type Options struct {
	Stale        time.Duration // 新鲜期，过后下一次访问会回源
	Retain       time.Duration // 闲置超过该时长可被 Sweep 清理
	FetchTimeout time.Duration // 单次回源超时；回源不随调用方取消
	Now          func() time.Time
	Logger       *zap.Logger
}

// Entry 缓存条目快照
type Entry[T any] struct {
	Data      T
	FetchedAt time.Time
	Fresh     bool
	Fetching  bool
}

type entry[T any] struct {
	data      T
	has       bool
	fetchedAt time.Time
	usedAt    time.Time
	gen       uint64 // 已写入数据对应的请求代数
	inflight  int
}

// Store 按 key 缓存回源结果：新鲜期内直接命中，同 key 并发回源合并为一次，
// 乱序返回的旧结果不会覆盖新数据。
type Store[T any] struct {
	name string
	opt  Options
	log  *zap.Logger

	mu      sync.Mutex
	entries map[string]*entry[T]
	sf      singleflight.Group
	gen     atomic.Uint64
}

func NewStore[T any](name string, opt Options) *Store[T] {
	if opt.Now == nil {
		opt.Now = time.Now
	}
	if opt.Retain < opt.Stale {
		opt.Retain = opt.Stale
	}
	l := opt.Logger
	if l == nil {
		l = zap.NewNop()
	}
	return &Store[T]{
		name:    name,
		opt:     opt,
		log:     l.With(zap.String("cache", name)),
		entries: make(map[string]*entry[T]),
	}
}

func (s *Store[T]) entryLocked(key string) *entry[T] {
	e, ok := s.entries[key]
	if !ok {
		e = &entry[T]{}
		s.entries[key] = e
	}
	return e
}

func (s *Store[T]) freshLocked(e *entry[T], now time.Time) bool {
	return e.has && now.Sub(e.fetchedAt) < s.opt.Stale
}

// Peek 读取当前条目，不触发回源
func (s *Store[T]) Peek(key string) (Entry[T], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return Entry[T]{}, false
	}
	now := s.opt.Now()
	e.usedAt = now
	return Entry[T]{
		Data:      e.data,
		FetchedAt: e.fetchedAt,
		Fresh:     s.freshLocked(e, now),
		Fetching:  e.inflight > 0,
	}, e.has
}

// Get 新鲜则命中，否则（合并）回源
func (s *Store[T]) Get(ctx context.Context, key string, load Loader[T]) (T, error) {
	s.mu.Lock()
	e := s.entryLocked(key)
	now := s.opt.Now()
	e.usedAt = now
	if s.freshLocked(e, now) {
		v := e.data
		s.mu.Unlock()
		cacheHits.WithLabelValues(s.name).Inc()
		return v, nil
	}
	s.mu.Unlock()
	return s.fetch(ctx, key, load, false)
}

// Prefetch 后台执行 Get；已有进行中的回源时复用它
func (s *Store[T]) Prefetch(key string, load Loader[T]) <-chan error {
	done := make(chan error, 1)
	go func() {
		_, err := s.Get(context.Background(), key, load)
		done <- err
	}()
	return done
}

// Refresh 无视新鲜期强制回源。不与之前的回源合并，之后的 Get 会合并到本次
func (s *Store[T]) Refresh(ctx context.Context, key string, load Loader[T]) (T, error) {
	return s.fetch(ctx, key, load, true)
}

// RefreshAsync 后台执行 Refresh，结果通过 channel 返回
func (s *Store[T]) RefreshAsync(key string, load Loader[T]) <-chan error {
	done := make(chan error, 1)
	go func() {
		_, err := s.Refresh(context.Background(), key, load)
		done <- err
	}()
	return done
}

func (s *Store[T]) fetch(ctx context.Context, key string, load Loader[T], force bool) (T, error) {
	var zero T
	if force {
		s.sf.Forget(key)
	}
	ch := s.sf.DoChan(key, func() (any, error) {
		return s.run(ctx, key, load)
	})
	select {
	case r := <-ch:
		if r.Err != nil {
			return zero, r.Err
		}
		return r.Val.(T), nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func (s *Store[T]) run(ctx context.Context, key string, load Loader[T]) (T, error) {
	gen := s.gen.Add(1)

	s.mu.Lock()
	e := s.entryLocked(key)
	e.inflight++
	s.mu.Unlock()

	fctx := context.WithoutCancel(ctx)
	if s.opt.FetchTimeout > 0 {
		var cancel context.CancelFunc
		fctx, cancel = context.WithTimeout(fctx, s.opt.FetchTimeout)
		defer cancel()
	}
	v, err := load(fctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	e.inflight--
	if err != nil {
		cacheFetches.WithLabelValues(s.name, "error").Inc()
		var zero T
		return zero, err
	}
	if gen < e.gen {
		cacheFetches.WithLabelValues(s.name, "discarded").Inc()
		s.log.Debug("drop out-of-order response",
			zap.String("key", key), zap.Uint64("gen", gen), zap.Uint64("current", e.gen),
			zap.Error(ErrStaleResponse))
		return e.data, nil
	}
	now := s.opt.Now()
	e.data, e.has, e.gen = v, true, gen
	e.fetchedAt, e.usedAt = now, now
	cacheFetches.WithLabelValues(s.name, "ok").Inc()
	return v, nil
}

// Sweep 清理闲置超过保留期且没有进行中回源的条目
func (s *Store[T]) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.opt.Now()
	n := 0
	for k, e := range s.entries {
		if e.inflight == 0 && now.Sub(e.usedAt) > s.opt.Retain {
			delete(s.entries, k)
			n++
		}
	}
	if n > 0 {
		cacheEvictions.WithLabelValues(s.name).Add(float64(n))
	}
	return n
}

func (s *Store[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
