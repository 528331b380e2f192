package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/time/rate"

	"console-gate/internal/core/auth"
	"console-gate/internal/core/cache"
	"console-gate/internal/core/config"
	"console-gate/internal/core/database"
	"console-gate/internal/core/logger"
	"console-gate/internal/core/server"
	"console-gate/internal/core/session"
	"console-gate/internal/feature/audit"
	"console-gate/internal/feature/gate"
	"console-gate/internal/feature/records"
	mdw "console-gate/internal/transport/http/middleware"
	"console-gate/internal/transport/http/router"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log, cleanup := logger.FromConfig(cfg.Log)
	defer cleanup()
	defer logger.RedirectStdLog(log, zapcore.InfoLevel)()

	janitor := cache.NewJanitor(log)
	sweep := cfg.Records.SweepSpec

	// tab 会话
	sessions, closeSessions := mustSessionStore(cfg, log)
	defer closeSessions()
	if mem, ok := sessions.(*session.MemoryStore); ok {
		mustAdd(log, janitor.Add(sweep, "sessions", mem.Sweep))
	}
	jwter := &auth.JWTer{
		Secret: []byte(cfg.Session.Secret),
		Issuer: cfg.Session.Issuer,
	}

	// 登录审计（未配置数据库时关闭）
	auditLog := mustAuditLog(cfg, log)

	g, err := gate.New(gate.Options{
		Username: cfg.Auth.Username,
		Password: cfg.Auth.Password,
		Recorder: auditLog,
		Logger:   log.Named("gate"),
	})
	if err != nil {
		log.Fatal("gate init", zap.Error(err))
	}

	// 远端记录 + 缓存
	repo := records.NewRepository(
		records.NewHTTPSource(cfg.Records.URL, cfg.Records.FetchTimeout()),
		cache.Options{
			Stale:        cfg.Records.StaleWindow(),
			Retain:       cfg.Records.RetainWindow(),
			FetchTimeout: cfg.Records.FetchTimeout(),
			Logger:       log.Named("cache"),
		},
	)
	views := records.NewViews(repo, records.NewSorter(cfg.Records.Locale), cfg.Session.IdleTTL())
	mustAdd(log, janitor.Add(sweep, "records-cache", repo.Sweep))
	mustAdd(log, janitor.Add(sweep, "records-views", views.Sweep))

	loginLimiter := mdw.NewIPLimiter(rate.Limit(cfg.Auth.LoginRPS), cfg.Auth.LoginBurst, 10*time.Minute)
	mustAdd(log, janitor.Add(sweep, "login-limiter", loginLimiter.Sweep))

	r := router.NewConsoleEngine(router.Deps{
		Logger:         log,
		JWT:            jwter,
		Sessions:       sessions,
		Gate:           g,
		Views:          views,
		Audit:          auditLog,
		CORSOrigins:    cfg.App.HTTP.CORSOrigins,
		LoginLimiter:   loginLimiter,
		RefreshLimit:   cfg.Records.RefreshLimit,
		RequestTimeout: time.Duration(cfg.App.HTTP.RequestTimeoutSec) * time.Second,
	})

	// HTTP Server
	addr := server.Addr(cfg.App.HTTP.Host, cfg.App.HTTP.Port)
	srv := server.BuildServer(
		addr, r,
		time.Duration(cfg.App.HTTP.ReadTimeoutSec)*time.Second,
		time.Duration(cfg.App.HTTP.WriteTimeoutSec)*time.Second,
		time.Duration(cfg.App.HTTP.IdleTimeoutSec)*time.Second,
	)

	// 启动日志
	host4human := cfg.App.HTTP.Host
	if host4human == "" || host4human == "0.0.0.0" {
		host4human = "127.0.0.1"
	}
	baseURL := "http://" + host4human + ":" + fmt.Sprint(cfg.App.HTTP.Port)
	log.Info("console starting",
		zap.String("addr", addr),
		zap.String("open", baseURL+gate.LoginPath),
		zap.String("health", baseURL+"/health"),
		zap.String("records", cfg.Records.URL),
		zap.String("session_backend", cfg.Session.Backend),
		zap.Bool("audit", auditLog.Enabled()),
	)

	janitor.Start()
	// 异步启动
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("console start FAILED", zap.Error(err))
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	janitor.Stop(ctx)
	log.Info("console stopped gracefully")
}

func mustAdd(l *zap.Logger, err error) {
	if err != nil {
		l.Fatal("janitor job", zap.Error(err))
	}
}

func mustSessionStore(cfg *config.Config, l *zap.Logger) (session.Store, func()) {
	if cfg.Session.Backend != "redis" {
		return session.NewMemoryStore(cfg.Session.IdleTTL()), func() {}
	}
	rs := session.NewRedisStore(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Session.IdleTTL())
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rs.Ping(ctx); err != nil {
		l.Fatal("redis ping", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
	}
	l.Info("redis connected", zap.String("addr", cfg.Redis.Addr))
	return rs, func() { _ = rs.Close() }
}

func mustAuditLog(cfg *config.Config, l *zap.Logger) audit.Log {
	if cfg.DB.Driver == "" {
		return audit.Disabled{}
	}
	db, err := database.NewGorm(database.Opts{
		Driver:             cfg.DB.Driver,
		DSN:                cfg.DB.DSN,
		Username:           cfg.DB.Username,
		Password:           cfg.DB.Password,
		MaxOpenConns:       cfg.DB.MaxOpenConns,
		MaxIdleConns:       cfg.DB.MaxIdleConns,
		ConnMaxLifetimeMin: cfg.DB.ConnMaxLifetimeMin,
		LogLevel:           cfg.DB.LogLevel,
		Logger:             l.Named("gorm"),
	})
	if err != nil {
		l.Fatal("db open", zap.String("dsn", database.MaskDSN(cfg.DB.DSN)), zap.Error(err))
	}
	l.Info("database connected", zap.String("driver", cfg.DB.Driver))

	repo := audit.NewRepo(db)
	if cfg.DB.AutoMigrate {
		if err := repo.Migrate(); err != nil {
			l.Fatal("automigrate failed", zap.Error(err))
		}
		l.Info("automigrate done")
	}
	return repo
}
