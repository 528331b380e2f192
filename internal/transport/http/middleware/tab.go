package middleware

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"console-gate/internal/core/auth"
	"console-gate/internal/core/session"
	resp "console-gate/internal/transport/http/response"
	"console-gate/pkg/utils"
)

const (
	HeaderTabToken = "X-Tab-Token"
	QueryTabToken  = "tab"
	KeyTabID       = "tabID"
	KeyTabToken    = "tabToken"
	KeyTabState    = "tabState"
)

type TabOptions struct {
	JWT    *auth.JWTer
	Store  session.Store
	Logger *zap.Logger
}

// TabSession API 用：令牌只来自 X-Tab-Token 请求头，不读写 cookie
func TabSession(o TabOptions) gin.HandlerFunc {
	return tabFrom(o, func(c *gin.Context) string { return c.GetHeader(HeaderTabToken) })
}

// TabScreen 页面用：令牌放在 ?tab= 上，由页面链接和跳转逐次传递
func TabScreen(o TabOptions) gin.HandlerFunc {
	return tabFrom(o, func(c *gin.Context) string { return c.Query(QueryTabToken) })
}

func tabFrom(o TabOptions, carrier func(c *gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := carrier(c)

		var tabID string
		if raw != "" {
			if claims, err := o.JWT.Parse(raw); err == nil {
				tabID = claims.TabID
			} else if o.Logger != nil {
				o.Logger.Debug("tab token rejected", zap.Error(err))
			}
		}
		if tabID == "" {
			tabID = utils.NewID()
			tok, err := o.JWT.Issue(tabID)
			if err != nil {
				_ = c.Error(err)
				c.AbortWithStatusJSON(http.StatusOK, resp.Error(resp.CodeServerError, ""))
				return
			}
			raw = tok
		}

		c.Writer.Header().Set(HeaderTabToken, raw)
		c.Set(KeyTabID, tabID)
		c.Set(KeyTabToken, raw)
		c.Set(KeyTabState, session.Bind(o.Store, tabID))
		c.Next()
	}
}

func TabID(c *gin.Context) string { return c.GetString(KeyTabID) }

func TabToken(c *gin.Context) string { return c.GetString(KeyTabToken) }

func TabState(c *gin.Context) session.State {
	if v, ok := c.Get(KeyTabState); ok {
		if st, ok := v.(session.State); ok {
			return st
		}
	}
	return nil
}

// WithTab 给页面路径带上当前 tab 的令牌
func WithTab(path, token string) string {
	if token == "" {
		return path
	}
	return path + "?" + url.Values{QueryTabToken: {token}}.Encode()
}
