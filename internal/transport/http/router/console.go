package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"console-gate/internal/core/auth"
	"console-gate/internal/core/server"
	"console-gate/internal/core/session"
	"console-gate/internal/feature/audit"
	"console-gate/internal/feature/gate"
	"console-gate/internal/feature/records"
	"console-gate/internal/transport/http/handler"
	mdw "console-gate/internal/transport/http/middleware"
)

type Deps struct {
	Logger   *zap.Logger
	JWT      *auth.JWTer
	Sessions session.Store
	Gate     *gate.Gate
	Views    *records.Views
	Audit    audit.Log

	CORSOrigins    []string
	LoginLimiter   *mdw.IPLimiter // nil 表示不限流
	RefreshLimit   int64
	RequestTimeout time.Duration
}

func NewConsoleEngine(d Deps) *gin.Engine {
	if d.Audit == nil {
		d.Audit = audit.Disabled{}
	}
	if d.RequestTimeout <= 0 {
		d.RequestTimeout = 10 * time.Second
	}
	if d.RefreshLimit <= 0 {
		d.RefreshLimit = 8
	}

	r := server.NewRouter(d.Logger, server.Options{CORSOrigins: d.CORSOrigins})

	// 中间件
	r.Use(
		mdw.RequestID(),
		mdw.RateLimit(200, 400),
		mdw.ConcurrencyLimit("console", 300),
		mdw.MaxBodyBytes(1<<20),
		mdw.Timeout(d.RequestTimeout),
		mdw.Metrics(),
		mdw.AccessLog(d.Logger),
	)

	// 健康检查与指标不需要 tab 会话
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": 1}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	tabOpts := mdw.TabOptions{JWT: d.JWT, Store: d.Sessions, Logger: d.Logger}

	// 页面：tab 令牌走 ?tab=
	screens := r.Group("", mdw.TabScreen(tabOpts))
	handler.MountScreens(r, screens, d.Gate, d.Views)

	// 前缀：tab 令牌走 X-Tab-Token
	api := r.Group("/api/v1", mdw.TabSession(tabOpts))

	var loginLimit gin.HandlerFunc
	if d.LoginLimiter != nil {
		loginLimit = d.LoginLimiter.Middleware()
	}
	handler.MountAuth(api, d.Gate, d.Views, loginLimit)

	// 鉴权分组
	authed := api.Group("", mdw.RequireAuth(d.Gate, gate.LoginPath))
	handler.MountRecords(authed, d.Views, mdw.ConcurrencyLimit("refresh", d.RefreshLimit))
	handler.MountAudit(authed, d.Audit)

	return r
}
