package router

import (
	"context"
	"net/http"
	"time"

	"newsfeed/internal/config"
	"newsfeed/internal/handlers"
	"newsfeed/internal/middleware"
	"newsfeed/internal/services"
	"newsfeed/internal/storage"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const sessionName = "newsfeed_session"

// New 组装 gin engine。ctx 结束时后台清理任务退出
func New(ctx context.Context, cfg config.Config, store storage.Storage, sessionStore sessions.Store) (*gin.Engine, error) {
	summarizer := services.NewSummaryService()
	news, err := services.NewNewsService(services.NewsOptions{
		BaseURL:   cfg.NewsAPIBaseURL,
		Timeout:   cfg.NewsAPITimeout,
		CacheTTL:  cfg.NewsCacheTTL,
		CacheSize: cfg.NewsCacheSize,
	}, store, summarizer)
	if err != nil {
		return nil, err
	}
	keys := services.KeyResolver{
		DefaultNewsKey:   cfg.DefaultNewsAPIKey,
		DefaultGeminiKey: cfg.DefaultGeminiAPIKey,
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.AccessLog())
	r.Use(sessions.Sessions(sessionName, sessionStore))
	r.Use(middleware.LoadUser(store))

	var newsLimit gin.HandlerFunc
	if cfg.RateLimitRPS > 0 {
		limiter := middleware.NewIPRateLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
		limiter.StartCleanup(ctx, 10*time.Minute)
		newsLimit = middleware.RateLimit(limiter)
	}

	RegisterRoutes(r, Handlers{
		Auth:     handlers.NewAuthHandler(services.NewAuthService(store)),
		User:     handlers.NewUserHandler(store),
		Interest: handlers.NewInterestHandler(store),
		Article:  handlers.NewArticleHandler(store),
		News:     handlers.NewNewsHandler(news, summarizer, keys, store),
	}, newsLimit)
	return r, nil
}

type Handlers struct {
	Auth     *handlers.AuthHandler
	User     *handlers.UserHandler
	Interest *handlers.InterestHandler
	Article  *handlers.ArticleHandler
	News     *handlers.NewsHandler
}

// RegisterRoutes newsLimit 为 nil 时新闻接口不限流
func RegisterRoutes(r *gin.Engine, h Handlers, newsLimit gin.HandlerFunc) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	api := r.Group("/api")

	// 公共路由
	api.POST("/register", h.Auth.Register) // 注册并登录
	api.POST("/login", h.Auth.Login)       // 登录
	api.POST("/logout", h.Auth.Logout)     // 退出登录，未登录时也返回 200

	// 受保护路由
	authorized := api.Group("")
	authorized.Use(middleware.AuthRequired())
	{
		authorized.GET("/user", h.Auth.Me)                     // 当前用户
		authorized.PUT("/user/api-keys", h.User.UpdateAPIKeys) // 个人 API key
		authorized.GET("/interests", h.Interest.List)          // 兴趣列表
		authorized.POST("/interests", h.Interest.Create)       // 新建兴趣
		authorized.PUT("/interests/:id", h.Interest.Update)    // 修改兴趣
		authorized.DELETE("/interests/:id", h.Interest.Delete) // 删除兴趣
		authorized.POST("/articles", h.Article.Save)           // 保存文章
	}

	// 新闻路由
	news := api.Group("/news")
	if newsLimit != nil {
		news.Use(newsLimit)
	}
	{
		news.GET("/top-headlines", h.News.TopHeadlines) // 头条
		news.GET("/search", h.News.Search)              // 搜索

		news.GET("/article/:id/summary", middleware.AuthRequired(), h.News.Summary) // 文章摘要
		news.GET("/custom", middleware.AuthRequired(), h.News.Custom)               // 兴趣定制
	}
}
