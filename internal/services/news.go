package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"newsfeed/internal/logger"
	"newsfeed/internal/models"
	"newsfeed/internal/storage"
	"newsfeed/internal/utils"
	"newsfeed/internal/xerr"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

const (
	DefaultNewsAPIBaseURL = "https://newsapi.org/v2"
	DefaultPage           = 1
	DefaultPageSize       = 10

	// 上游错误响应体最多读取的字节数
	maxErrorBody = 64 << 10
)

type NewsOptions struct {
	BaseURL   string
	Timeout   time.Duration
	CacheTTL  time.Duration // 0 关闭缓存
	CacheSize int
	Client    *http.Client // 测试时注入
}

// NewsService NewsAPI 代理。成功的响应体原样返回给客户端
type NewsService struct {
	client   *http.Client
	baseURL  string
	cache    *utils.Cache
	cacheTTL time.Duration

	store      storage.Storage
	summarizer *SummaryService
}

func NewNewsService(opts NewsOptions, store storage.Storage, summarizer *SummaryService) (*NewsService, error) {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultNewsAPIBaseURL
	}
	client := opts.Client
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}

	s := &NewsService{
		client:     client,
		baseURL:    strings.TrimSuffix(opts.BaseURL, "/"),
		cacheTTL:   opts.CacheTTL,
		store:      store,
		summarizer: summarizer,
	}
	if opts.CacheTTL > 0 {
		cache, err := utils.NewCache(opts.CacheSize)
		if err != nil {
			return nil, err
		}
		s.cache = cache
	}
	return s, nil
}

// TopHeadlines 美国头条，category 为空时不过滤
func (s *NewsService) TopHeadlines(ctx context.Context, apiKey, category string, page, pageSize int) (json.RawMessage, error) {
	q := pageQuery(page, pageSize)
	q.Set("country", "us")
	if category != "" {
		q.Set("category", category)
	}
	return s.fetch(ctx, "top-headlines", q, apiKey, "Failed to fetch news")
}

func (s *NewsService) Search(ctx context.Context, apiKey, query string, page, pageSize int) (json.RawMessage, error) {
	if query == "" {
		return nil, xerr.Validation("Search query is required")
	}
	return s.fetch(ctx, "everything", everythingQuery(query, page, pageSize), apiKey, "Failed to search news")
}

// CustomNews 用用户启用的兴趣拼出查询，响应里附加 interests 和 generatedQuery
func (s *NewsService) CustomNews(ctx context.Context, user *models.User, apiKey string, page, pageSize int) (json.RawMessage, error) {
	if user == nil {
		return nil, xerr.ErrAuthRequired
	}

	interests, err := s.store.GetInterests(ctx, user.ID)
	if err != nil {
		return nil, xerr.Internal("Failed to fetch custom news", err)
	}

	names := make([]string, 0, len(interests))
	for _, in := range interests {
		if in.Active {
			names = append(names, in.Name)
		}
	}
	if len(names) == 0 {
		return nil, xerr.NotFound("No active interests found. Add interests to see personalized news.")
	}

	query, ok := s.summarizer.GenerateNewsForInterests(names)
	if !ok {
		return nil, xerr.Internal("Failed to generate news for interests", nil)
	}

	payload, err := s.fetch(ctx, "everything", everythingQuery(query, page, pageSize), apiKey, "Failed to fetch custom news")
	if err != nil {
		return nil, err
	}

	var merged map[string]json.RawMessage
	if err := json.Unmarshal(payload, &merged); err != nil {
		return nil, xerr.Internal("Failed to fetch custom news", err)
	}
	if merged["interests"], err = json.Marshal(names); err != nil {
		return nil, xerr.Internal("Failed to fetch custom news", err)
	}
	if merged["generatedQuery"], err = json.Marshal(query); err != nil {
		return nil, xerr.Internal("Failed to fetch custom news", err)
	}

	out, err := json.Marshal(merged)
	if err != nil {
		return nil, xerr.Internal("Failed to fetch custom news", err)
	}
	return out, nil
}

func (s *NewsService) fetch(ctx context.Context, endpoint string, q url.Values, apiKey, failMsg string) (json.RawMessage, error) {
	reqURL := s.baseURL + "/" + endpoint + "?" + q.Encode()
	cacheKey := endpoint + "|" + apiKey + "|" + q.Encode()

	if s.cache != nil {
		if data, ok := s.cache.Get(cacheKey); ok {
			return data, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, xerr.Internal(failMsg, err)
	}
	req.Header.Set("X-Api-Key", apiKey)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, xerr.Internal(failMsg, fmt.Errorf("news api %s: %w", endpoint, err))
	}
	defer resp.Body.Close()

	logger.Debug("news api request",
		zap.String("endpoint", endpoint),
		zap.Int("status", resp.StatusCode),
		zap.String("key", logger.Mask(apiKey)),
		zap.Duration("latency", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, xerr.Upstream(resp.StatusCode, "News API error: "+string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, xerr.Internal(failMsg, err)
	}
	if !gjson.ValidBytes(body) || !gjson.ParseBytes(body).IsObject() {
		return nil, xerr.Internal(failMsg, fmt.Errorf("news api %s: response is not a JSON object", endpoint))
	}

	if s.cache != nil {
		s.cache.Set(cacheKey, body, s.cacheTTL)
	}
	return body, nil
}

func pageQuery(page, pageSize int) url.Values {
	if page <= 0 {
		page = DefaultPage
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("pageSize", strconv.Itoa(pageSize))
	return q
}

func everythingQuery(query string, page, pageSize int) url.Values {
	q := pageQuery(page, pageSize)
	q.Set("q", query)
	q.Set("language", "en")
	q.Set("sortBy", "relevancy")
	return q
}
