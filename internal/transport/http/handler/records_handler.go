package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"console-gate/internal/feature/records"
	httpez "console-gate/internal/transport/http/ez"
	mdw "console-gate/internal/transport/http/middleware"
)

const RetryPath = "/api/v1/records/retry"

type listQ struct {
	Page int  `form:"page"`
	Size int  `form:"size"`
	Wait bool `form:"wait"`
}

type listOut struct {
	records.Snapshot
	Retry string `json:"retry,omitempty"`
}

type sortIn struct {
	Column    string `json:"column"`
	Direction string `json:"direction"`
}

type pageIn struct {
	Page int `json:"page" binding:"required"`
}

type pageSizeIn struct {
	Size int `json:"size" binding:"required"`
}

func withRetry(s records.Snapshot) listOut {
	out := listOut{Snapshot: s}
	if s.Status == records.StatusFailed {
		out.Retry = RetryPath
	}
	return out
}

// MountRecords 列表视图接口（需登录）；refreshLimit 限制同时回源的强制刷新数
func MountRecords(authed *gin.RouterGroup, views *records.Views, refreshLimit gin.HandlerFunc) {
	view := func(c *gin.Context) *records.View { return views.For(mdw.TabID(c)) }

	httpez.RegisterAction(authed, httpez.Action[listQ, listOut]{
		Method: http.MethodGet,
		Path:   "/records",
		Binder: httpez.BindQuery,
		Handler: func(c *gin.Context, in *listQ) (listOut, error) {
			v := view(c)
			if err := applyQuery(c, v, in); err != nil {
				return listOut{}, err
			}
			if in.Wait {
				return withRetry(v.Wait(c.Request.Context())), nil
			}
			return withRetry(v.Load(c.Request.Context())), nil
		},
	})

	refresh := authed.Group("")
	if refreshLimit != nil {
		refresh.Use(refreshLimit)
	}
	forced := func(retry bool) func(c *gin.Context, _ *struct{}) (listOut, error) {
		return func(c *gin.Context, _ *struct{}) (listOut, error) {
			v := view(c)
			run := v.Refresh
			if retry {
				run = v.Retry
			}
			snap, err := run(c.Request.Context())
			var fe *records.FetchError
			if err != nil && !errors.As(err, &fe) {
				_ = c.Error(err)
			}
			return withRetry(snap), nil
		}
	}
	httpez.RegisterAction(refresh, httpez.Action[struct{}, listOut]{
		Method: http.MethodPost, Path: "/records/refresh", Binder: httpez.BindNone, Handler: forced(false),
	})
	httpez.RegisterAction(refresh, httpez.Action[struct{}, listOut]{
		Method: http.MethodPost, Path: "/records/retry", Binder: httpez.BindNone, Handler: forced(true),
	})

	httpez.RegisterAction(authed, httpez.Action[sortIn, listOut]{
		Method: http.MethodPut,
		Path:   "/records/sort",
		Binder: httpez.BindJSON,
		Handler: func(c *gin.Context, in *sortIn) (listOut, error) {
			v := view(c)
			if err := setSort(v, in.Column, in.Direction); err != nil {
				return listOut{}, err
			}
			return withRetry(v.Load(c.Request.Context())), nil
		},
	})

	httpez.RegisterAction(authed, httpez.Action[pageIn, listOut]{
		Method: http.MethodPut,
		Path:   "/records/page",
		Binder: httpez.BindJSON,
		Handler: func(c *gin.Context, in *pageIn) (listOut, error) {
			v := view(c)
			if err := v.SetPage(in.Page); err != nil {
				return listOut{}, httpez.BadRequest(err.Error())
			}
			return withRetry(v.Load(c.Request.Context())), nil
		},
	})

	httpez.RegisterAction(authed, httpez.Action[pageSizeIn, listOut]{
		Method: http.MethodPut,
		Path:   "/records/page-size",
		Binder: httpez.BindJSON,
		Handler: func(c *gin.Context, in *pageSizeIn) (listOut, error) {
			v := view(c)
			if err := v.SetPageSize(in.Size); err != nil {
				return listOut{}, httpez.BadRequest(err.Error())
			}
			return withRetry(v.Load(c.Request.Context())), nil
		},
	})
}

// applyQuery 查询参数里带了 sort/order/page/size 时先更新视图状态
func applyQuery(c *gin.Context, v *records.View, in *listQ) error {
	col, hasCol := c.GetQuery("sort")
	dir, hasDir := c.GetQuery("order")
	if hasCol || hasDir {
		if err := setSort(v, col, dir); err != nil {
			return err
		}
	}
	if in.Size != 0 {
		if err := v.SetPageSize(in.Size); err != nil {
			return httpez.BadRequest(err.Error())
		}
	}
	if in.Page != 0 {
		if err := v.SetPage(in.Page); err != nil {
			return httpez.BadRequest(err.Error())
		}
	}
	return nil
}

func setSort(v *records.View, column, direction string) error {
	col, err := records.ParseColumn(column)
	if err != nil {
		return httpez.BadRequest(err.Error())
	}
	dir, err := records.ParseDirection(direction)
	if err != nil {
		return httpez.BadRequest(err.Error())
	}
	return v.SetSort(col, dir)
}
