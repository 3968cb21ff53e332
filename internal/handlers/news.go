package handlers

import (
	"errors"
	"net/http"

	"newsfeed/internal/logger"
	"newsfeed/internal/middleware"
	"newsfeed/internal/services"
	"newsfeed/internal/storage"
	"newsfeed/internal/utils"
	"newsfeed/internal/xerr"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var errArticleNotFound = xerr.NotFound("Article not found")

type NewsHandler struct {
	news       *services.NewsService
	summarizer *services.SummaryService
	keys       services.KeyResolver
	store      storage.Storage
}

func NewNewsHandler(news *services.NewsService, summarizer *services.SummaryService, keys services.KeyResolver, store storage.Storage) *NewsHandler {
	return &NewsHandler{news: news, summarizer: summarizer, keys: keys, store: store}
}

func pageParams(c *gin.Context) (int, int) {
	return utils.PositiveIntOr(c.Query("page"), services.DefaultPage),
		utils.PositiveIntOr(c.Query("pageSize"), services.DefaultPageSize)
}

// TopHeadlines - 头条，不需要登录；登录用户优先使用自己的 key
func (h *NewsHandler) TopHeadlines(c *gin.Context) {
	page, pageSize := pageParams(c)
	apiKey := h.keys.NewsKey(middleware.CurrentUser(c))

	data, err := h.news.TopHeadlines(c.Request.Context(), apiKey, c.Query("category"), page, pageSize)
	if err != nil {
		abortWithError(c, err)
		return
	}
	rawJSON(c, http.StatusOK, data)
}

// Search - 关键词搜索
func (h *NewsHandler) Search(c *gin.Context) {
	page, pageSize := pageParams(c)
	apiKey := h.keys.NewsKey(middleware.CurrentUser(c))

	data, err := h.news.Search(c.Request.Context(), apiKey, c.Query("q"), page, pageSize)
	if err != nil {
		abortWithError(c, err)
		return
	}
	rawJSON(c, http.StatusOK, data)
}

// Custom - 按用户兴趣定制的新闻
func (h *NewsHandler) Custom(c *gin.Context) {
	page, pageSize := pageParams(c)
	user := currentUser(c)

	data, err := h.news.CustomNews(c.Request.Context(), user, h.keys.NewsKey(user), page, pageSize)
	if err != nil {
		abortWithError(c, err)
		return
	}
	rawJSON(c, http.StatusOK, data)
}

// Summary - 文章摘要，生成后写回文章
func (h *NewsHandler) Summary(c *gin.Context) {
	id, ok := utils.ParseID(c.Param("id"))
	if !ok {
		abortWithError(c, errArticleNotFound)
		return
	}

	ctx := c.Request.Context()
	article, err := h.store.GetArticleByID(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		abortWithError(c, errArticleNotFound)
		return
	}
	if err != nil {
		abortWithError(c, xerr.Internal("Failed to get article summary", err))
		return
	}

	if article.Summary != nil && *article.Summary != "" {
		c.JSON(http.StatusOK, gin.H{
			"summary":     *article.Summary,
			"summaryHtml": h.summarizer.RenderHTML(*article.Summary),
		})
		return
	}

	logger.Debug("summarizing article",
		zap.Uint("article_id", article.ID),
		zap.String("key", logger.Mask(h.keys.GeminiKey(currentUser(c)))),
	)
	summary, ok := h.summarizer.SummarizeArticle(article)
	if !ok {
		abortWithError(c, xerr.Internal("Failed to generate summary", nil))
		return
	}

	if _, err := h.store.UpdateArticleSummary(ctx, article.ID, summary); err != nil {
		// 写回失败不影响本次返回
		logger.Error("save article summary failed", zap.Uint("article_id", article.ID), zap.Error(err))
	}

	c.JSON(http.StatusOK, gin.H{
		"summary":     summary,
		"summaryHtml": h.summarizer.RenderHTML(summary),
	})
}
