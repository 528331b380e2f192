package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// 请求面：api（/api/v1 下的 JSON 接口）、screen（页面）、system（探活与指标）
const (
	surfaceAPI    = "api"
	surfaceScreen = "screen"
	surfaceSystem = "system"
)

var (
	httpReqTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "console", Name: "http_requests_total",
			Help: "Console requests by surface, route and envelope outcome",
		},
		[]string{"surface", "route", "method", "status"},
	)
	httpLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "console", Name: "http_request_duration_seconds",
			Help:    "Console request latency by surface",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"surface", "method"},
	)
	httpRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "console", Name: "http_rejected_total",
			Help: "Requests refused by a limit middleware before reaching a handler",
		},
		[]string{"reason"},
	)
)

func init() { prometheus.MustRegister(httpReqTotal, httpLatency, httpRejected) }

func surfaceOf(route string) string {
	switch {
	case strings.HasPrefix(route, "/api/"):
		return surfaceAPI
	case route == "/health" || route == "/metrics":
		return surfaceSystem
	default:
		return surfaceScreen
	}
}

// Metrics 未匹配路由记为 "unmatched"，避免标签基数失控
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		surface := surfaceOf(c.Request.URL.Path)
		if route == "" {
			route = "unmatched"
		}
		httpReqTotal.WithLabelValues(surface, route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		httpLatency.WithLabelValues(surface, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}
