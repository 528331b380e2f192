package audit

import (
	"context"
	"time"

	"gorm.io/gorm"

	"console-gate/internal/feature/gate"
	"console-gate/pkg/utils"
)

const MaxListLimit = 200

// Log 审计读写；未配置数据库时使用 Disabled
type Log interface {
	gate.AttemptRecorder
	Recent(ctx context.Context, limit int) ([]LoginAttempt, error)
	Enabled() bool
}

type Repo struct {
	db  *gorm.DB
	now func() time.Time
}

func NewRepo(db *gorm.DB) *Repo { return &Repo{db: db, now: time.Now} }

func (r *Repo) Migrate() error { return r.db.AutoMigrate(&LoginAttempt{}) }

func (r *Repo) Enabled() bool { return true }

func (r *Repo) RecordAttempt(ctx context.Context, username string, res gate.Result) error {
	o := OriginFrom(ctx)
	a := &LoginAttempt{
		ID:        utils.NewID(),
		TabID:     o.TabID,
		Username:  truncate(username, 64),
		Result:    string(res),
		ClientIP:  o.ClientIP,
		CreatedAt: r.now(),
	}
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *Repo) Recent(ctx context.Context, limit int) ([]LoginAttempt, error) {
	limit = ClampLimit(limit)
	var out []LoginAttempt
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

type Disabled struct{}

func (Disabled) Enabled() bool { return false }

func (Disabled) RecordAttempt(context.Context, string, gate.Result) error { return nil }

func (Disabled) Recent(context.Context, int) ([]LoginAttempt, error) { return []LoginAttempt{}, nil }

func ClampLimit(n int) int {
	if n <= 0 {
		return 50
	}
	return min(n, MaxListLimit)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
