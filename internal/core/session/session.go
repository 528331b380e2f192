// Package session keeps the per-tab authenticated flag.
//
// A tab session mirrors browser sessionStorage: one flag under a fixed key,
// visible only to the tab that owns the id, gone when the tab goes away
// (modelled as an idle TTL on the server side).
package session

import "context"

// FlagKey 登录态在存储中的固定 key
const FlagKey = "isAuthenticated"

// Store 按 tab id 存取登录标记
type Store interface {
	Get(ctx context.Context, tabID string) (bool, error)
	Set(ctx context.Context, tabID string, v bool) error
	Clear(ctx context.Context, tabID string) error
}

// State 绑定到单个 tab 的登录标记，供 gate 和路由守卫注入使用
type State interface {
	Get(ctx context.Context) (bool, error)
	Set(ctx context.Context, v bool) error
	Clear(ctx context.Context) error
}

type bound struct {
	store Store
	tabID string
}

func Bind(s Store, tabID string) State { return bound{store: s, tabID: tabID} }

func (b bound) Get(ctx context.Context) (bool, error) { return b.store.Get(ctx, b.tabID) }
func (b bound) Set(ctx context.Context, v bool) error { return b.store.Set(ctx, b.tabID, v) }
func (b bound) Clear(ctx context.Context) error       { return b.store.Clear(ctx, b.tabID) }
