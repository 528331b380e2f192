package records

import (
	"context"
	"sync"
	"time"

	"console-gate/internal/core/cache"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusReady   Status = "ready"
	StatusFailed  Status = "failed"
)

const RefreshNotice = "Data refreshed successfully!"

// Snapshot 某一时刻的表格渲染数据
type Snapshot struct {
	Status          Status     `json:"status"`
	Rows            []Row      `json:"rows"`
	Total           int        `json:"total"`
	Page            int        `json:"page"`
	PageSize        int        `json:"pageSize"`
	Pages           int        `json:"pages"`
	PageSizeOptions []int      `json:"pageSizeOptions"`
	Range           string     `json:"range"`
	Sort            Sort       `json:"sort"`
	FetchedAt       *time.Time `json:"fetchedAt,omitempty"`
	Error           string     `json:"error,omitempty"`
	Notice          string     `json:"notice,omitempty"`
}

// View 单个 tab 的列表视图：排序、分页和本 tab 最近一次回源的结果。
// 数据本身来自共享的 Repository。
type View struct {
	repo   *Repository
	sorter Sorter

	mu      sync.Mutex
	sort    Sort
	page    int
	size    int
	pending int
	seq     uint64
	err     error
	errAt   time.Time // 失败时缓存数据的 FetchedAt
}

func NewView(repo *Repository, sorter Sorter) *View {
	return &View{repo: repo, sorter: sorter, page: 1, size: DefaultPageSize, sort: Sort{Direction: Ascending}}
}

// Load 不阻塞：缓存新鲜直接返回；否则后台回源并返回 pending
func (v *View) Load(ctx context.Context) Snapshot {
	e, has := v.repo.Peek()

	v.mu.Lock()
	defer v.mu.Unlock()
	switch {
	case has && e.Fresh && (v.err == nil || e.FetchedAt.After(v.errAt)):
		// 其它 tab 刷新成功后，本 tab 的失败状态随之解除
		v.err = nil
	case v.err != nil || v.pending > 0:
		// 失败后等待用户重试；已有请求在途则不重复发起
	default:
		v.pending++
		v.seq++
		seq := v.seq
		done := v.repo.Prefetch()
		go func() { v.finish(seq, <-done) }()
	}
	return v.snapshotLocked(e, has)
}

// Wait 阻塞版 Load，ctx 到期时返回当前（pending）快照
func (v *View) Wait(ctx context.Context) Snapshot {
	v.mu.Lock()
	v.pending++
	v.seq++
	seq := v.seq
	v.mu.Unlock()

	v.await(ctx, seq, v.repo.Prefetch())

	e, has := v.repo.Peek()
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snapshotLocked(e, has)
}

// Refresh 强制回源。失败时缓存保持不变，视图进入 failed
func (v *View) Refresh(ctx context.Context) (Snapshot, error) {
	v.mu.Lock()
	v.pending++
	v.seq++
	seq := v.seq
	v.mu.Unlock()

	err := v.await(ctx, seq, v.repo.RefreshAsync())

	e, has := v.repo.Peek()
	v.mu.Lock()
	defer v.mu.Unlock()
	snap := v.snapshotLocked(e, has)
	if err == nil {
		snap.Notice = RefreshNotice
	}
	return snap, err
}

// Retry 失败后的重试，与 Refresh 走同一路径
func (v *View) Retry(ctx context.Context) (Snapshot, error) { return v.Refresh(ctx) }

// await 等待回源结果；调用方先放弃时立即返回，pending 保留到回源结束
func (v *View) await(ctx context.Context, seq uint64, done <-chan error) error {
	select {
	case err := <-done:
		v.finish(seq, err)
		return err
	case <-ctx.Done():
		go func() { v.finish(seq, <-done) }()
		return ctx.Err()
	}
}

func (v *View) finish(seq uint64, err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.pending--
	if seq != v.seq {
		return
	}
	v.err = err
	if err != nil {
		e, _ := v.repo.Peek()
		v.errAt = e.FetchedAt
	}
}

func (v *View) SetSort(col Column, dir Direction) error {
	switch col {
	case ColumnNone, ColumnID, ColumnName:
	default:
		return ErrUnknownColumn
	}
	switch dir {
	case Ascending, Descending:
	default:
		return ErrUnknownDirection
	}
	v.mu.Lock()
	v.sort = Sort{Column: col, Direction: dir}
	v.mu.Unlock()
	return nil
}

func (v *View) SetPage(n int) error {
	if n < 1 {
		return ErrInvalidPage
	}
	v.mu.Lock()
	v.page = n
	v.mu.Unlock()
	return nil
}

// SetPageSize 修改每页条数并回到第一页
func (v *View) SetPageSize(n int) error {
	if !ValidPageSize(n) {
		return ErrInvalidPageSize
	}
	v.mu.Lock()
	v.size = n
	v.page = 1
	v.mu.Unlock()
	return nil
}

// Current 当前快照，不触发回源
func (v *View) Current() Snapshot {
	e, has := v.repo.Peek()
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snapshotLocked(e, has)
}

func (v *View) snapshotLocked(e cache.Entry[[]Record], has bool) Snapshot {
	snap := Snapshot{
		Status:          StatusReady,
		Rows:            []Row{},
		Page:            v.page,
		PageSize:        v.size,
		PageSizeOptions: PageSizeOptions,
		Sort:            v.sort,
	}
	switch {
	case v.err != nil:
		snap.Status = StatusFailed
		snap.Error = v.err.Error()
	case v.pending > 0 || !has:
		snap.Status = StatusPending
	}
	if !has {
		snap.Range = RangeLabel(0, 0, 0)
		return snap
	}

	sorted := v.sorter.Apply(e.Data, v.sort)
	total := len(sorted)
	cur, start, end := Window(total, v.page, v.size)
	v.page = cur

	snap.Total = total
	snap.Page = cur
	snap.Pages = PageCount(total, v.size)
	snap.Range = RangeLabel(start, end, total)
	for _, r := range sorted[start:end] {
		snap.Rows = append(snap.Rows, toRow(r))
	}
	fetchedAt := e.FetchedAt
	snap.FetchedAt = &fetchedAt
	return snap
}
