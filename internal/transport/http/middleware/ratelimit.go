package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	resp "console-gate/internal/transport/http/response"
)

// RateLimit 全局令牌桶
func RateLimit(rps rate.Limit, burst int) gin.HandlerFunc {
	lim := rate.NewLimiter(rps, burst)
	return func(c *gin.Context) {
		if lim.Allow() {
			c.Next()
			return
		}
		reject(c, rejectRate, resp.Error(resp.CodeTooManyRequests, ""))
	}
}

type ipBucket struct {
	lim    *rate.Limiter
	seenAt time.Time
}

// IPLimiter 每 IP 令牌桶；闲置桶由 Sweep 回收
type IPLimiter struct {
	rps   rate.Limit
	burst int
	idle  time.Duration
	now   func() time.Time

	mu      sync.Mutex
	buckets map[string]*ipBucket
}

func NewIPLimiter(rps rate.Limit, burst int, idle time.Duration) *IPLimiter {
	return &IPLimiter{rps: rps, burst: burst, idle: idle, now: time.Now, buckets: make(map[string]*ipBucket)}
}

func (l *IPLimiter) Allow(ip string) bool {
	l.mu.Lock()
	b, ok := l.buckets[ip]
	if !ok {
		b = &ipBucket{lim: rate.NewLimiter(l.rps, l.burst)}
		l.buckets[ip] = b
	}
	b.seenAt = l.now()
	l.mu.Unlock()
	return b.lim.Allow()
}

func (l *IPLimiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	n := 0
	for ip, b := range l.buckets {
		if now.Sub(b.seenAt) > l.idle {
			delete(l.buckets, ip)
			n++
		}
	}
	return n
}

func (l *IPLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if l.Allow(c.ClientIP()) {
			c.Next()
			return
		}
		reject(c, rejectLogin, resp.Error(resp.CodeTooManyRequests, "too many login attempts, try again later"))
	}
}
