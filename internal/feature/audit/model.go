package audit

import "time"

// LoginAttempt 登录提交记录（不含密码）
type LoginAttempt struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	TabID     string    `gorm:"size:36;index" json:"tabId"`
	Username  string    `gorm:"size:64;not null" json:"username"`
	Result    string    `gorm:"size:32;not null;index" json:"result"`
	ClientIP  string    `gorm:"size:64" json:"clientIp"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"createdAt"`
}

func (LoginAttempt) TableName() string { return "login_attempts" }
