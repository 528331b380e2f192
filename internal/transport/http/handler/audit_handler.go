package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"console-gate/internal/feature/audit"
	httpez "console-gate/internal/transport/http/ez"
)

type auditQ struct {
	Limit int `form:"limit,default=50"`
}

type auditOut struct {
	Enabled bool                 `json:"enabled"`
	Items   []audit.LoginAttempt `json:"items"`
}

// MountAudit 最近的登录提交记录（需登录）
func MountAudit(authed *gin.RouterGroup, log audit.Log) {
	httpez.RegisterAction(authed, httpez.Action[auditQ, auditOut]{
		Method: http.MethodGet,
		Path:   "/audit/logins",
		Binder: httpez.BindQuery,
		Handler: func(c *gin.Context, in *auditQ) (auditOut, error) {
			items, err := log.Recent(c.Request.Context(), audit.ClampLimit(in.Limit))
			if err != nil {
				return auditOut{}, httpez.Internal("list login attempts failed", err)
			}
			return auditOut{Enabled: log.Enabled(), Items: items}, nil
		},
	})
}
