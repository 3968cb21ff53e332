package handlers

import (
	"net/http"
	"strings"
	"time"

	"newsfeed/internal/storage"
	"newsfeed/internal/xerr"

	"github.com/araddon/dateparse"
	"github.com/gin-gonic/gin"
)

type ArticleHandler struct {
	store storage.Storage
}

func NewArticleHandler(store storage.Storage) *ArticleHandler {
	return &ArticleHandler{store: store}
}

type articleRequest struct {
	Title       string      `json:"title"`
	Description *string     `json:"description"`
	Content     *string     `json:"content"`
	Source      interface{} `json:"source"` // 字符串，或 NewsAPI 原始的 {id, name}
	SourceID    *string     `json:"sourceId"`
	URL         *string     `json:"url"`
	URLToImage  *string     `json:"urlToImage"`
	PublishedAt interface{} `json:"publishedAt"`
	Category    *string     `json:"category"`
	Summary     *string     `json:"summary"`
}

// Save - 保存文章，sourceId 已存在时返回已有记录
func (h *ArticleHandler) Save(c *gin.Context) {
	var req articleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, xerr.Validation("Article title is required").Wrap(err))
		return
	}
	if req.Title == "" {
		abortWithError(c, xerr.Validation("Article title is required"))
		return
	}

	in := storage.NewArticle{
		Title:       req.Title,
		Description: req.Description,
		Content:     req.Content,
		Source:      sourceName(req.Source),
		SourceID:    req.SourceID,
		URL:         req.URL,
		URLToImage:  req.URLToImage,
		PublishedAt: parsePublishedAt(req.PublishedAt),
		Category:    req.Category,
		Summary:     req.Summary,
	}
	// 没有 sourceId 时用文章链接去重
	if storage.Normalize(in.SourceID) == nil {
		in.SourceID = storage.Normalize(in.URL)
	}

	article, err := h.store.SaveArticle(c.Request.Context(), in)
	if err != nil {
		abortWithError(c, xerr.Internal("Failed to save article", err))
		return
	}
	c.JSON(http.StatusCreated, article)
}

// parsePublishedAt 无法识别的日期返回 nil，不报错
func parsePublishedAt(v interface{}) *time.Time {
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return nil
	}
	t, err := dateparse.ParseAny(strings.TrimSpace(s))
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}

func sourceName(v interface{}) *string {
	switch s := v.(type) {
	case string:
		return storage.Normalize(&s)
	case map[string]interface{}:
		if name, ok := s["name"].(string); ok {
			return storage.Normalize(&name)
		}
	}
	return nil
}
