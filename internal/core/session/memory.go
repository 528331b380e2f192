package session

import (
	"context"
	"sync"
	"time"
)

type memEntry struct {
	v      bool
	seenAt time.Time
}

// MemoryStore 单实例部署使用；闲置超过 ttl 的 tab 视为已关闭
type MemoryStore struct {
	mu  sync.Mutex
	m   map[string]memEntry
	ttl time.Duration
	now func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{m: make(map[string]memEntry), ttl: ttl, now: time.Now}
}

func (s *MemoryStore) expired(e memEntry, now time.Time) bool {
	return s.ttl > 0 && now.Sub(e.seenAt) > s.ttl
}

func (s *MemoryStore) Get(_ context.Context, tabID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	e, ok := s.m[tabID]
	if !ok {
		return false, nil
	}
	if s.expired(e, now) {
		delete(s.m, tabID)
		return false, nil
	}
	e.seenAt = now
	s.m[tabID] = e
	return e.v, nil
}

func (s *MemoryStore) Set(_ context.Context, tabID string, v bool) error {
	s.mu.Lock()
	s.m[tabID] = memEntry{v: v, seenAt: s.now()}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Clear(_ context.Context, tabID string) error {
	s.mu.Lock()
	delete(s.m, tabID)
	s.mu.Unlock()
	return nil
}

// Sweep 清理过期 tab，返回清理数量
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	n := 0
	for id, e := range s.m {
		if s.expired(e, now) {
			delete(s.m, id)
			n++
		}
	}
	return n
}

func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.m)
}
