package models

import (
	"time"
)

// Article 新闻文章缓存，所有用户共享，以 SourceID 去重
type Article struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Title       string     `gorm:"type:text;not null" json:"title"`
	Description *string    `gorm:"type:text" json:"description"`
	Content     *string    `gorm:"type:text" json:"content"`
	Source      *string    `json:"source"`                // 来源名称，仅用于展示
	SourceID    *string    `gorm:"index" json:"sourceId"` // 外部 API 的 source id，缺失时为文章 URL
	URL         *string    `gorm:"type:text" json:"url"`
	URLToImage  *string    `gorm:"type:text" json:"urlToImage"`
	PublishedAt *time.Time `json:"publishedAt"`
	Category    *string    `json:"category"`
	Summary     *string    `gorm:"type:text" json:"summary"`
}
