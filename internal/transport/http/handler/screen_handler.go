package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"console-gate/internal/feature/gate"
	"console-gate/internal/feature/records"
	mdw "console-gate/internal/transport/http/middleware"
	resp "console-gate/internal/transport/http/response"
)

type loginScreen struct {
	Screen        string            `json:"screen"`
	TabID         string            `json:"tabId"`
	TabToken      string            `json:"tabToken"`
	Authenticated bool              `json:"authenticated"`
	Rules         []gate.RuleResult `json:"rules"`
	Symbols       string            `json:"symbols"`
	Home          string            `json:"home"`
}

type homeScreen struct {
	Screen   string  `json:"screen"`
	TabID    string  `json:"tabId"`
	TabToken string  `json:"tabToken"`
	Records  listOut `json:"records"`
	Logout   string  `json:"logout"`
}

// MountScreens 页面路由：/login、/home（守卫）、/logout，其余路径回到登录页。
// 页面间的链接和跳转都带上 ?tab=，使登录态只属于当前 tab。
func MountScreens(r *gin.Engine, screens *gin.RouterGroup, g *gate.Gate, views *records.Views) {
	screens.GET(gate.LoginPath, func(c *gin.Context) {
		ok, err := g.Authorized(c.Request.Context(), mdw.TabState(c))
		if err != nil {
			_ = c.Error(err)
		}
		c.JSON(http.StatusOK, resp.OK(loginScreen{
			Screen:        "login",
			TabID:         mdw.TabID(c),
			TabToken:      mdw.TabToken(c),
			Authenticated: ok,
			Rules:         g.Evaluate(""),
			Symbols:       gate.Symbols,
			Home:          mdw.WithTab(gate.HomePath, mdw.TabToken(c)),
		}))
	})

	screens.GET(gate.HomePath, mdw.RequireAuthPage(g, gate.LoginPath), func(c *gin.Context) {
		v := views.For(mdw.TabID(c))
		c.JSON(http.StatusOK, resp.OK(homeScreen{
			Screen:   "home",
			TabID:    mdw.TabID(c),
			TabToken: mdw.TabToken(c),
			Records:  withRetry(v.Load(c.Request.Context())),
			Logout:   mdw.WithTab("/logout", mdw.TabToken(c)),
		}))
	})

	// 顶栏的退出按钮
	screens.GET("/logout", func(c *gin.Context) {
		out, err := g.Logout(c.Request.Context(), mdw.TabState(c))
		if err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusOK, resp.Error(resp.CodeServerError, ""))
			return
		}
		views.Drop(mdw.TabID(c))
		c.Redirect(http.StatusFound, mdw.WithTab(out.Redirect, mdw.TabToken(c)))
	})

	r.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.JSON(http.StatusOK, resp.Error(resp.CodeNotFound, ""))
			return
		}
		c.Redirect(http.StatusFound, mdw.WithTab(gate.LoginPath, c.Query(mdw.QueryTabToken)))
	})
}
