package cache

import (
	"context"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Janitor 周期性清理任务（缓存条目、闲置 tab 视图、过期会话）
type Janitor struct {
	c   *cron.Cron
	log *zap.Logger
}

func NewJanitor(l *zap.Logger) *Janitor {
	cl := cronLogger{l: l.Named("janitor")}
	return &Janitor{
		c:   cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl))),
		log: l,
	}
}

// cronLogger 把 cron 内部日志（含任务 panic）接到 zap
type cronLogger struct{ l *zap.Logger }

func (c cronLogger) Info(msg string, kv ...interface{}) {
	c.l.Debug(msg, zap.Any("kv", kv))
}

func (c cronLogger) Error(err error, msg string, kv ...interface{}) {
	c.l.Error(msg, zap.Error(err), zap.Any("kv", kv))
}

// Add 注册任务；expr 为 cron 表达式，如 "@every 1m"
func (j *Janitor) Add(expr, name string, sweep func() int) error {
	_, err := j.c.AddFunc(expr, func() {
		if n := sweep(); n > 0 {
			j.log.Debug("janitor sweep", zap.String("job", name), zap.Int("removed", n))
		}
	})
	return err
}

func (j *Janitor) Start() { j.c.Start() }

// Stop 等待正在执行的任务结束或 ctx 到期
func (j *Janitor) Stop(ctx context.Context) {
	done := j.c.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}
