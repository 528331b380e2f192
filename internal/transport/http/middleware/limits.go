package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/semaphore"

	resp "console-gate/internal/transport/http/response"
)

// 拒绝原因（rejected_total 的 reason 标签）
const (
	rejectTimeout = "timeout"
	rejectBusy    = "busy"
	rejectBody    = "body_too_large"
	rejectRate    = "rate"
	rejectLogin   = "login_rate"
)

func reject(c *gin.Context, reason string, r resp.Resp) {
	httpRejected.WithLabelValues(reason).Inc()
	c.AbortWithStatusJSON(http.StatusOK, r)
}

// Timeout 给请求 ctx 设截止时间；handler 未写响应就超时时返回 504。
// ?wait=true 的列表请求靠这个截止时间返回 pending 快照。
func Timeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
		if ctx.Err() == context.DeadlineExceeded && !c.Writer.Written() {
			reject(c, rejectTimeout, resp.Error(resp.CodeTimeout, ""))
		}
	}
}

// ConcurrencyLimit 同一 scope 内同时处理的请求上限，满了直接 429，不排队
func ConcurrencyLimit(scope string, max int64) gin.HandlerFunc {
	sem := semaphore.NewWeighted(max)
	msg := "too many concurrent " + scope + " requests"
	return func(c *gin.Context) {
		if !sem.TryAcquire(1) {
			reject(c, rejectBusy, resp.Error(resp.CodeTooManyRequests, msg))
			return
		}
		defer sem.Release(1)
		c.Next()
	}
}

// MaxBodyBytes 声明长度超限直接 400；未声明长度的由 MaxBytesReader 截断，绑定时报错
func MaxBodyBytes(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > n {
			reject(c, rejectBody, resp.Error(resp.CodeBadRequest, "request body too large"))
			return
		}
		if c.Request.Body != nil && c.Request.Body != http.NoBody {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		}
		c.Next()
	}
}
