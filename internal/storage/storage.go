// Package storage 定义数据访问网关。持久化后端（gorm）和内存后端实现同一套约定，
// 调用方只依赖 Storage 接口，不关心具体后端。
package storage

import (
	"context"
	"errors"
	"time"

	"newsfeed/internal/models"
)

var (
	// ErrNotFound 记录不存在
	ErrNotFound = errors.New("storage: record not found")
	// ErrDuplicate 违反唯一约束（目前只有 username）
	ErrDuplicate = errors.New("storage: unique constraint violation")
)

// NewUser 注册时写入的数据，Password 必须已经是哈希
type NewUser struct {
	Username     string
	Password     string
	NewsAPIKey   *string
	GeminiAPIKey *string
}

// UserUpdate 只包含允许修改的字段。nil 表示保持不变，指向空串表示清空。
type UserUpdate struct {
	NewsAPIKey   *string
	GeminiAPIKey *string
}

type NewInterest struct {
	UserID uint
	Name   string
	Active *bool // nil 时默认为 true
}

type InterestUpdate struct {
	Name   *string
	Active *bool
}

// NewArticle 保存文章的输入；空字符串字段按 nil 处理
type NewArticle struct {
	Title       string
	Description *string
	Content     *string
	Source      *string
	SourceID    *string
	URL         *string
	URLToImage  *string
	PublishedAt *time.Time
	Category    *string
	Summary     *string
}

// Storage 用户、兴趣和文章的存储网关
type Storage interface {
	GetUser(ctx context.Context, id uint) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	CreateUser(ctx context.Context, in NewUser) (*models.User, error)
	UpdateUser(ctx context.Context, id uint, in UserUpdate) (*models.User, error)
	// DeleteUser 会级联删除该用户的兴趣和文章关系
	DeleteUser(ctx context.Context, id uint) (bool, error)

	// GetInterests 按 name 升序返回
	GetInterests(ctx context.Context, userID uint) ([]models.Interest, error)
	CreateInterest(ctx context.Context, in NewInterest) (*models.Interest, error)
	UpdateInterest(ctx context.Context, id uint, in InterestUpdate) (*models.Interest, error)
	// DeleteInterest 没有删除任何记录时返回 false
	DeleteInterest(ctx context.Context, id uint) (bool, error)

	GetArticleByID(ctx context.Context, id uint) (*models.Article, error)
	GetArticleBySourceID(ctx context.Context, sourceID string) (*models.Article, error)
	// SaveArticle 先按 SourceID 查重：已存在则原样返回旧记录（忽略新数据），否则插入。
	// 查重和插入不是原子操作，并发保存同一个 SourceID 可能产生重复行。
	SaveArticle(ctx context.Context, in NewArticle) (*models.Article, error)
	UpdateArticleSummary(ctx context.Context, id uint, summary string) (*models.Article, error)
}

// Normalize 把空字符串转换为 nil
func Normalize(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	v := *s
	return &v
}

// Normalized 返回一份所有可选字段都经过 Normalize 的副本
func (a NewArticle) Normalized() NewArticle {
	a.Description = Normalize(a.Description)
	a.Content = Normalize(a.Content)
	a.Source = Normalize(a.Source)
	a.SourceID = Normalize(a.SourceID)
	a.URL = Normalize(a.URL)
	a.URLToImage = Normalize(a.URLToImage)
	a.Category = Normalize(a.Category)
	a.Summary = Normalize(a.Summary)
	return a
}

// ToModel 构造待插入的模型
func (a NewArticle) ToModel() models.Article {
	a = a.Normalized()
	return models.Article{
		Title:       a.Title,
		Description: a.Description,
		Content:     a.Content,
		Source:      a.Source,
		SourceID:    a.SourceID,
		URL:         a.URL,
		URLToImage:  a.URLToImage,
		PublishedAt: a.PublishedAt,
		Category:    a.Category,
		Summary:     a.Summary,
	}
}
