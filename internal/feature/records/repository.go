package records

import (
	"context"

	"console-gate/internal/core/cache"
)

// QueryKey 唯一的查询：全部记录
const QueryKey = "records:all"

// Repository 所有 tab 共享的远端数据 + 缓存
type Repository struct {
	src   Source
	cache *cache.Store[[]Record]
}

func NewRepository(src Source, opt cache.Options) *Repository {
	return &Repository{src: src, cache: cache.NewStore[[]Record]("records", opt)}
}

func (r *Repository) load(ctx context.Context) ([]Record, error) { return r.src.FetchAll(ctx) }

func (r *Repository) Peek() (cache.Entry[[]Record], bool) { return r.cache.Peek(QueryKey) }

// Prefetch 后台回源（新鲜则直接命中），与进行中的回源合并
func (r *Repository) Prefetch() <-chan error { return r.cache.Prefetch(QueryKey, r.load) }

// RefreshAsync 后台强制回源
func (r *Repository) RefreshAsync() <-chan error { return r.cache.RefreshAsync(QueryKey, r.load) }

func (r *Repository) Sweep() int { return r.cache.Sweep() }
