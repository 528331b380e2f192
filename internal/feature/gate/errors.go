package gate

import (
	"errors"
	"strings"
)

// ErrAuthentication 账号或密码不匹配；不会修改登录标记
var ErrAuthentication = errors.New("incorrect username or password")

type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// ValidationError 本地校验失败，不会进行凭证比对
type ValidationError struct {
	Fields      []FieldError `json:"fields"`
	Rules       []RuleResult `json:"rules"`
	FailedRules []string     `json:"failedRules,omitempty"`
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Message)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func (e *ValidationError) Has(field, rule string) bool {
	for _, f := range e.Fields {
		if f.Field == field && f.Rule == rule {
			return true
		}
	}
	return false
}
