// Package gate implements the login screen logic: credential validation
// against the password policy, the single accepted account, and the per-tab
// authenticated flag that guards the dashboard.
package gate

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"console-gate/internal/core/session"
	"console-gate/pkg/utils"
)

const (
	LoginPath = "/login"
	HomePath  = "/home"
)

// Result 登录尝试结果（审计用）
type Result string

const (
	ResultInvalid  Result = "validation_failed"
	ResultRejected Result = "rejected"
	ResultAccepted Result = "accepted"
)

// AttemptRecorder 记录每次提交；失败只记日志，不影响登录结果
type AttemptRecorder interface {
	RecordAttempt(ctx context.Context, username string, result Result) error
}

type nopRecorder struct{}

func (nopRecorder) RecordAttempt(context.Context, string, Result) error { return nil }

// Credentials 表单原始输入
type Credentials struct {
	Username string `json:"username" validate:"required,min=4"`
	Password string `json:"password" validate:"required,password_policy"`
}

type Outcome struct {
	Redirect string `json:"redirect"`
}

type Options struct {
	Username string
	Password string // 明文，启动时转 bcrypt
	Policy   Policy
	Recorder AttemptRecorder
	Logger   *zap.Logger
}

type Gate struct {
	username     string
	passwordHash string
	policy       Policy
	validate     *validator.Validate
	rec          AttemptRecorder
	log          *zap.Logger
}

func New(o Options) (*Gate, error) {
	if o.Username == "" || o.Password == "" {
		return nil, errors.New("gate: accepted username and password are required")
	}
	hash, err := utils.HashPassword(o.Password)
	if err != nil {
		return nil, fmt.Errorf("gate: hash password: %w", err)
	}
	g := &Gate{
		username:     o.Username,
		passwordHash: hash,
		policy:       o.Policy,
		rec:          o.Recorder,
		log:          o.Logger,
	}
	if g.policy == nil {
		g.policy = DefaultPolicy
	}
	if g.rec == nil {
		g.rec = nopRecorder{}
	}
	if g.log == nil {
		g.log = zap.NewNop()
	}

	g.validate = validator.New(validator.WithRequiredStructEnabled())
	g.validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	if err := g.validate.RegisterValidation("password_policy", func(fl validator.FieldLevel) bool {
		return g.policy.Accepts(fl.Field().String())
	}); err != nil {
		return nil, fmt.Errorf("gate: register validation: %w", err)
	}
	return g, nil
}

func (g *Gate) Policy() Policy { return g.policy }

// Evaluate 实时规则反馈：纯函数，无副作用
func (g *Gate) Evaluate(password string) []RuleResult { return g.policy.Evaluate(password) }

// Validate 只做本地校验
func (g *Gate) Validate(c Credentials) error {
	err := g.validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	ve := &ValidationError{Rules: g.policy.Evaluate(c.Password)}
	for _, fe := range verrs {
		ve.Fields = append(ve.Fields, FieldError{
			Field:   fe.Field(),
			Rule:    fe.Tag(),
			Message: fieldMessage(fe.Field(), fe.Tag(), fe.Param()),
		})
		if fe.Field() == "password" {
			ve.FailedRules = g.policy.Failed(c.Password)
		}
	}
	return ve
}

func fieldMessage(field, tag, param string) string {
	label := strings.ToUpper(field[:1]) + field[1:]
	switch tag {
	case "required":
		return label + " is required"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", label, param)
	case "password_policy":
		return "Password does not meet requirements."
	}
	return label + " is invalid"
}

// Submit 校验 → 比对唯一账号 → 设置登录标记
func (g *Gate) Submit(ctx context.Context, st session.State, c Credentials) (Outcome, error) {
	if err := g.Validate(c); err != nil {
		g.record(ctx, c.Username, ResultInvalid)
		return Outcome{}, err
	}
	if !g.matches(c) {
		g.record(ctx, c.Username, ResultRejected)
		g.log.Info("login rejected", zap.String("username", c.Username))
		return Outcome{}, ErrAuthentication
	}
	if err := st.Set(ctx, true); err != nil {
		return Outcome{}, fmt.Errorf("set session flag: %w", err)
	}
	g.record(ctx, c.Username, ResultAccepted)
	g.log.Info("login accepted", zap.String("username", c.Username))
	return Outcome{Redirect: HomePath}, nil
}

func (g *Gate) matches(c Credentials) bool {
	userOK := subtle.ConstantTimeCompare([]byte(c.Username), []byte(g.username)) == 1
	// 用户名不匹配时也照常比对哈希
	passOK := utils.CheckPassword(c.Password, g.passwordHash)
	return userOK && passOK
}

func (g *Gate) record(ctx context.Context, username string, r Result) {
	if err := g.rec.RecordAttempt(ctx, username, r); err != nil {
		g.log.Warn("record login attempt failed", zap.String("result", string(r)), zap.Error(err))
	}
}

// Logout 清除登录标记；重复调用无副作用
func (g *Gate) Logout(ctx context.Context, st session.State) (Outcome, error) {
	if err := st.Clear(ctx); err != nil {
		return Outcome{}, fmt.Errorf("clear session flag: %w", err)
	}
	return Outcome{Redirect: LoginPath}, nil
}

// Authorized 路由守卫：每次导航同步读取登录标记
func (g *Gate) Authorized(ctx context.Context, st session.State) (bool, error) {
	ok, err := st.Get(ctx)
	if err != nil {
		return false, fmt.Errorf("read session flag: %w", err)
	}
	return ok, nil
}
