package utils

import "github.com/google/uuid"

// NewID 随机 ID（tab id、请求 id、审计记录主键）
func NewID() string { return uuid.NewString() }
