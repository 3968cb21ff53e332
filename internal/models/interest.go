package models

import (
	"time"
)

// Interest 用户关注的话题，用于拼接个性化新闻查询
type Interest struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"userId"`
	User      User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Name      string    `gorm:"size:50;not null" json:"name"` // 允许重名
	Active    bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt time.Time `json:"createdAt"`
}

const (
	InterestNameMinLen = 2
	InterestNameMaxLen = 50
)
