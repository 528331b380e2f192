package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"console-gate/internal/feature/audit"
	"console-gate/internal/feature/gate"
	"console-gate/internal/feature/records"
	httpez "console-gate/internal/transport/http/ez"
	mdw "console-gate/internal/transport/http/middleware"
	resp "console-gate/internal/transport/http/response"
)

type sessionOut struct {
	TabID         string `json:"tabId"`
	Authenticated bool   `json:"authenticated"`
	Redirect      string `json:"redirect"`
}

type passwordIn struct {
	Password string `json:"password"`
}

type passwordOut struct {
	Rules    []gate.RuleResult `json:"rules"`
	Accepted bool              `json:"accepted"`
}

// MountAuth 登录相关接口；loginLimit 只挂在提交登录上。
// 返回的 redirect 都带 ?tab=，页面跳转后仍是同一个 tab。
func MountAuth(api *gin.RouterGroup, g *gate.Gate, views *records.Views, loginLimit gin.HandlerFunc) {
	httpez.RegisterAction(api, httpez.Action[struct{}, sessionOut]{
		Method: http.MethodGet,
		Path:   "/session",
		Binder: httpez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (sessionOut, error) {
			ok, err := g.Authorized(c.Request.Context(), mdw.TabState(c))
			if err != nil {
				return sessionOut{}, httpez.Internal("read session failed", err)
			}
			out := sessionOut{TabID: mdw.TabID(c), Authenticated: ok, Redirect: gate.LoginPath}
			if ok {
				out.Redirect = gate.HomePath
			}
			out.Redirect = mdw.WithTab(out.Redirect, mdw.TabToken(c))
			return out, nil
		},
	})

	// 输入过程中的实时规则提示
	httpez.RegisterAction(api, httpez.Action[passwordIn, passwordOut]{
		Method: http.MethodPost,
		Path:   "/auth/password/check",
		Binder: httpez.BindJSON,
		Handler: func(_ *gin.Context, in *passwordIn) (passwordOut, error) {
			return passwordOut{
				Rules:    g.Evaluate(in.Password),
				Accepted: g.Policy().Accepts(in.Password),
			}, nil
		},
	})

	submit := api.Group("")
	if loginLimit != nil {
		submit.Use(loginLimit)
	}
	httpez.RegisterAction(submit, httpez.Action[gate.Credentials, gate.Outcome]{
		Method: http.MethodPost,
		Path:   "/auth/login",
		Binder: httpez.BindJSON,
		Handler: func(c *gin.Context, in *gate.Credentials) (gate.Outcome, error) {
			ctx := audit.WithOrigin(c.Request.Context(), audit.Origin{
				TabID:    mdw.TabID(c),
				ClientIP: c.ClientIP(),
			})
			out, err := g.Submit(ctx, mdw.TabState(c), *in)
			var ve *gate.ValidationError
			switch {
			case err == nil:
				out.Redirect = mdw.WithTab(out.Redirect, mdw.TabToken(c))
				return out, nil
			case errors.As(err, &ve):
				return out, httpez.WithData(resp.CodeBadRequest, firstMessage(ve), ve)
			case errors.Is(err, gate.ErrAuthentication):
				return out, httpez.Unauthorized(err.Error())
			}
			return out, httpez.Internal("login failed", err)
		},
	})

	httpez.RegisterAction(api, httpez.Action[struct{}, gate.Outcome]{
		Method: http.MethodPost,
		Path:   "/auth/logout",
		Binder: httpez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (gate.Outcome, error) {
			out, err := g.Logout(c.Request.Context(), mdw.TabState(c))
			if err != nil {
				return out, httpez.Internal("logout failed", err)
			}
			views.Drop(mdw.TabID(c))
			out.Redirect = mdw.WithTab(out.Redirect, mdw.TabToken(c))
			return out, nil
		},
	})
}

func firstMessage(ve *gate.ValidationError) string {
	if len(ve.Fields) == 0 {
		return ""
	}
	return ve.Fields[0].Message
}
