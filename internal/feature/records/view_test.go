package records

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"console-gate/internal/core/cache"
)

// fakeSource 可控的远端
type fakeSource struct {
	mu    sync.Mutex
	data  []Record
	err   error
	gate  chan struct{} // 非 nil 时阻塞到关闭
	calls atomic.Int32
}

func (f *fakeSource) FetchAll(ctx context.Context) ([]Record, error) {
	f.calls.Add(1)
	f.mu.Lock()
	g := f.gate
	f.mu.Unlock()
	if g != nil {
		<-g
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return append([]Record(nil), f.data...), nil
}

func (f *fakeSource) set(data []Record, err error) {
	f.mu.Lock()
	f.data, f.err = data, err
	f.mu.Unlock()
}

func makeRecords(n int) []Record {
	out := make([]Record, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, Record{ID: i, Name: fmt.Sprintf("User %02d", i)})
	}
	return out
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestView(src Source) (*View, *testClock) {
	clk := &testClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	repo := NewRepository(src, cache.Options{Stale: 5 * time.Minute, Retain: 10 * time.Minute, Now: clk.Now})
	return NewView(repo, NewSorter("en")), clk
}

func TestView_LoadPendingThenReady(t *testing.T) {
	src := &fakeSource{data: makeRecords(23)}
	v, _ := newTestView(src)

	first := v.Load(context.Background())
	assert.Equal(t, StatusPending, first.Status)
	assert.Empty(t, first.Rows, "no prior cache, no rows")

	require.Eventually(t, func() bool { return v.Current().Status == StatusReady }, time.Second, time.Millisecond)

	snap := v.Load(context.Background())
	assert.Equal(t, StatusReady, snap.Status)
	assert.Len(t, snap.Rows, 10)
	assert.Equal(t, 23, snap.Total)
	assert.Equal(t, 3, snap.Pages)
	assert.Equal(t, "1-10 of 23", snap.Range)
	assert.EqualValues(t, 1, src.calls.Load())
}

func TestView_WaitUsesCacheWithinStaleWindow(t *testing.T) {
	src := &fakeSource{data: makeRecords(3)}
	v, clk := newTestView(src)

	assert.Equal(t, StatusReady, v.Wait(context.Background()).Status)
	clk.Advance(time.Minute)
	assert.Equal(t, StatusReady, v.Load(context.Background()).Status)
	assert.EqualValues(t, 1, src.calls.Load())

	// 过了新鲜期：pending，但保留旧行
	clk.Advance(5 * time.Minute)
	src.set(makeRecords(4), nil)
	snap := v.Load(context.Background())
	assert.Equal(t, StatusPending, snap.Status)
	assert.Len(t, snap.Rows, 3)

	require.Eventually(t, func() bool { return v.Current().Total == 4 }, time.Second, time.Millisecond)
	assert.EqualValues(t, 2, src.calls.Load())
}

func TestView_WaitGivesUpButStaysPending(t *testing.T) {
	src := &fakeSource{data: makeRecords(3)}
	v, clk := newTestView(src)
	require.Equal(t, StatusReady, v.Wait(context.Background()).Status)

	clk.Advance(6 * time.Minute)
	gate := make(chan struct{})
	src.mu.Lock()
	src.gate = gate
	src.data = makeRecords(4)
	src.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	snap := v.Wait(ctx)
	assert.Equal(t, StatusPending, snap.Status)
	assert.Len(t, snap.Rows, 3, "stale rows still shown")

	// 回源仍在进行，不能报告 ready
	assert.Equal(t, StatusPending, v.Current().Status)
	assert.Equal(t, StatusPending, v.Load(context.Background()).Status)
	assert.EqualValues(t, 2, src.calls.Load(), "no second fetch while one is in flight")

	close(gate)
	require.Eventually(t, func() bool {
		cur := v.Current()
		return cur.Status == StatusReady && cur.Total == 4
	}, time.Second, time.Millisecond)
}

func TestView_RefreshCallerGivesUp(t *testing.T) {
	src := &fakeSource{data: makeRecords(3)}
	v, _ := newTestView(src)
	v.Wait(context.Background())

	gate := make(chan struct{})
	src.mu.Lock()
	src.gate = gate
	src.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	snap, err := v.Refresh(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StatusPending, snap.Status)
	assert.Empty(t, snap.Notice)

	close(gate)
	require.Eventually(t, func() bool { return v.Current().Status == StatusReady }, time.Second, time.Millisecond)
	assert.Empty(t, v.Current().Error, "caller cancel is not a failure")
}

func TestView_ConcurrentLoadsShareOneFetch(t *testing.T) {
	src := &fakeSource{data: makeRecords(5), gate: make(chan struct{})}
	v, _ := newTestView(src)
	other := NewView(v.repo, v.sorter)

	assert.Equal(t, StatusPending, v.Load(context.Background()).Status)
	assert.Equal(t, StatusPending, other.Load(context.Background()).Status)
	assert.Equal(t, StatusPending, v.Load(context.Background()).Status)

	close(src.gate)
	require.Eventually(t, func() bool {
		return v.Current().Status == StatusReady && other.Current().Status == StatusReady
	}, time.Second, time.Millisecond)
	assert.EqualValues(t, 1, src.calls.Load())
	assert.Equal(t, 5, other.Current().Total)
}

func TestView_RefreshNotifiesAndReplaces(t *testing.T) {
	src := &fakeSource{data: makeRecords(3)}
	v, _ := newTestView(src)
	v.Wait(context.Background())

	src.set(makeRecords(7), nil)
	snap, err := v.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusReady, snap.Status)
	assert.Equal(t, RefreshNotice, snap.Notice)
	assert.Equal(t, 7, snap.Total)
	assert.EqualValues(t, 2, src.calls.Load())
}

func TestView_FailureKeepsRowsAndRetryRefetches(t *testing.T) {
	src := &fakeSource{data: makeRecords(12)}
	v, _ := newTestView(src)
	before := v.Wait(context.Background())
	require.Equal(t, StatusReady, before.Status)

	src.set(nil, &FetchError{Status: 500})
	snap, err := v.Refresh(context.Background())
	require.Error(t, err)
	assert.Equal(t, StatusFailed, snap.Status)
	assert.Contains(t, snap.Error, "500")
	assert.Equal(t, before.Rows, snap.Rows, "displayed rows unchanged")
	assert.Empty(t, snap.Notice)

	// 失败状态下 Load 不会自动重试
	calls := src.calls.Load()
	assert.Equal(t, StatusFailed, v.Load(context.Background()).Status)
	assert.Equal(t, calls, src.calls.Load())

	src.set(makeRecords(12), nil)
	snap, err = v.Retry(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusReady, snap.Status)
	assert.Equal(t, calls+1, src.calls.Load())
}

func TestView_FirstLoadFailure(t *testing.T) {
	src := &fakeSource{}
	src.set(nil, &FetchError{Err: errors.New("dial tcp: refused")})
	v, _ := newTestView(src)

	v.Load(context.Background())
	require.Eventually(t, func() bool { return v.Current().Status == StatusFailed }, time.Second, time.Millisecond)
	snap := v.Current()
	assert.Empty(t, snap.Rows)
	assert.Contains(t, snap.Error, "refused")
}

func TestView_SortThenPaginate(t *testing.T) {
	src := &fakeSource{data: makeRecords(23)}
	v, _ := newTestView(src)
	v.Wait(context.Background())

	require.NoError(t, v.SetSort(ColumnID, Descending))
	require.NoError(t, v.SetPage(3))
	snap := v.Current()
	require.Len(t, snap.Rows, 3)
	assert.Equal(t, []int{3, 2, 1}, []int{snap.Rows[0].ID, snap.Rows[1].ID, snap.Rows[2].ID})
	assert.Equal(t, "21-23 of 23", snap.Range)

	require.NoError(t, v.SetPageSize(20))
	snap = v.Current()
	assert.Equal(t, 1, snap.Page, "page size change resets to first page")
	assert.Len(t, snap.Rows, 20)
	assert.Equal(t, 23, snap.Rows[0].ID)
}

func TestView_PagePastEndClamps(t *testing.T) {
	src := &fakeSource{data: makeRecords(23)}
	v, _ := newTestView(src)
	v.Wait(context.Background())

	require.NoError(t, v.SetPage(10))
	snap := v.Current()
	assert.Equal(t, 3, snap.Page)
	assert.Len(t, snap.Rows, 3)
}

func TestView_InvalidInput(t *testing.T) {
	v, _ := newTestView(&fakeSource{})
	require.ErrorIs(t, v.SetPage(0), ErrInvalidPage)
	require.ErrorIs(t, v.SetPageSize(15), ErrInvalidPageSize)
	require.ErrorIs(t, v.SetSort("email", Ascending), ErrUnknownColumn)
	require.ErrorIs(t, v.SetSort(ColumnID, "up"), ErrUnknownDirection)
}

func TestViews_PerTabAndSweep(t *testing.T) {
	repo := NewRepository(&fakeSource{}, cache.Options{Stale: time.Minute, Retain: time.Minute})
	vs := NewViews(repo, NewSorter("en"), time.Hour)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	vs.now = func() time.Time { return now }

	a := vs.For("a")
	assert.Same(t, a, vs.For("a"))
	assert.NotSame(t, a, vs.For("b"))

	now = now.Add(2 * time.Hour)
	vs.For("b")
	assert.Equal(t, 1, vs.Sweep())
	assert.Equal(t, 1, vs.Len())

	vs.Drop("b")
	assert.Equal(t, 0, vs.Len())
}
