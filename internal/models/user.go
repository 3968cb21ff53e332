package models

import (
	"time"
)

type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"uniqueIndex;size:50;not null" json:"username"`
	Password     string    `gorm:"not null" json:"-"` // bcrypt hash，永不序列化
	NewsAPIKey   *string   `json:"newsApiKey"`        // 个人 NewsAPI key，为空时使用默认 key
	GeminiAPIKey *string   `json:"geminiApiKey"`      // 个人摘要服务 key
	CreatedAt    time.Time `json:"createdAt"`
	// 用户名和密码注册后不可修改
}
