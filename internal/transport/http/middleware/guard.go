package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"console-gate/internal/core/session"
	resp "console-gate/internal/transport/http/response"
)

// Authorizer 路由守卫读取登录标记
type Authorizer interface {
	Authorized(ctx context.Context, st session.State) (bool, error)
}

// RequireAuth API 守卫：未登录返回 401，data 带登录页地址（含 ?tab=）
func RequireAuth(a Authorizer, loginPath string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, err := authorized(c, a)
		if err != nil {
			_ = c.Error(err)
			c.AbortWithStatusJSON(http.StatusOK, resp.Error(resp.CodeServerError, ""))
			return
		}
		if !ok {
			c.AbortWithStatusJSON(http.StatusOK, resp.NeedLogin(WithTab(loginPath, TabToken(c))))
			return
		}
		c.Next()
	}
}

// RequireAuthPage 页面守卫：未登录 302 到登录页（保留 ?tab=）
func RequireAuthPage(a Authorizer, loginPath string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, err := authorized(c, a)
		if err != nil {
			_ = c.Error(err)
		}
		if !ok {
			c.Redirect(http.StatusFound, WithTab(loginPath, TabToken(c)))
			c.Abort()
			return
		}
		c.Next()
	}
}

func authorized(c *gin.Context, a Authorizer) (bool, error) {
	st := TabState(c)
	if st == nil {
		return false, nil
	}
	return a.Authorized(c.Request.Context(), st)
}
