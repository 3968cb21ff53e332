package models

import (
	"time"
)

// UserArticle 用户与文章的阅读/收藏关系，目前只建表，没有接口使用
type UserArticle struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"userId"`
	User      User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	ArticleID uint      `gorm:"not null;index" json:"articleId"`
	Article   Article   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Read      bool      `gorm:"not null;default:false" json:"read"`
	Saved     bool      `gorm:"not null;default:false" json:"saved"`
	CreatedAt time.Time `json:"createdAt"`
}
