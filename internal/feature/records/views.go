package records

import (
	"sync"
	"time"
)

type viewSlot struct {
	v      *View
	usedAt time.Time
}

// Views 每个 tab 一个 View；闲置超过 idle 后由 janitor 清理
type Views struct {
	repo   *Repository
	sorter Sorter
	idle   time.Duration
	now    func() time.Time

	mu sync.Mutex
	m  map[string]*viewSlot
}

func NewViews(repo *Repository, sorter Sorter, idle time.Duration) *Views {
	return &Views{repo: repo, sorter: sorter, idle: idle, now: time.Now, m: make(map[string]*viewSlot)}
}

func (vs *Views) For(tabID string) *View {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	s, ok := vs.m[tabID]
	if !ok {
		s = &viewSlot{v: NewView(vs.repo, vs.sorter)}
		vs.m[tabID] = s
	}
	s.usedAt = vs.now()
	return s.v
}

func (vs *Views) Drop(tabID string) {
	vs.mu.Lock()
	delete(vs.m, tabID)
	vs.mu.Unlock()
}

func (vs *Views) Sweep() int {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	now := vs.now()
	n := 0
	for id, s := range vs.m {
		if now.Sub(s.usedAt) > vs.idle {
			delete(vs.m, id)
			n++
		}
	}
	return n
}

func (vs *Views) Len() int {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	return len(vs.m)
}
