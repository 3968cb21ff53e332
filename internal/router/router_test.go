package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"newsfeed/internal/config"
	"newsfeed/internal/db"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeNewsAPI 记录最近一次请求。category=fail 时返回 429
type fakeNewsAPI struct {
	*httptest.Server
	mu      sync.Mutex
	lastKey string
	lastURL string
}

func newFakeNewsAPI(t *testing.T) *fakeNewsAPI {
	f := &fakeNewsAPI{}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.lastKey = r.Header.Get("X-Api-Key")
		f.lastURL = r.URL.String()
		f.mu.Unlock()

		if r.URL.Query().Get("category") == "fail" {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"status":"error","code":"rateLimited"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok","totalResults":1,"articles":[{"title":"Hello","url":"https://example.com/hello"}]}`))
	}))
	t.Cleanup(f.Close)
	return f
}

func (f *fakeNewsAPI) last() (key, url string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastKey, f.lastURL
}

// client 在请求之间保留 session cookie
type client struct {
	t       *testing.T
	handler http.Handler
	cookies map[string]*http.Cookie
}

func newClient(t *testing.T, h http.Handler) *client {
	return &client{t: t, handler: h, cookies: map[string]*http.Cookie{}}
}

func (c *client) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(c.t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	c.handler.ServeHTTP(w, req)

	for _, ck := range w.Result().Cookies() {
		if ck.MaxAge < 0 {
			delete(c.cookies, ck.Name)
			continue
		}
		c.cookies[ck.Name] = ck
	}
	return w
}

func message(w *httptest.ResponseRecorder) string {
	return gjson.Get(w.Body.String(), "message").String()
}

func testConfig(newsURL string) config.Config {
	return config.Config{
		SessionSecret:       "test-secret",
		SessionMaxAge:       3600,
		DefaultNewsAPIKey:   "default-news",
		DefaultGeminiAPIKey: "default-gemini",
		NewsAPIBaseURL:      newsURL,
	}
}

func setupRouter(t *testing.T, cfg config.Config) http.Handler {
	backend, err := db.NewBackend(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	r, err := New(ctx, cfg, backend.Storage, backend.Sessions)
	require.NoError(t, err)
	return r
}

func register(t *testing.T, c *client, username string) {
	w := c.do(http.MethodPost, "/api/register", gin.H{"username": username, "password": "secret1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestHealth(t *testing.T) {
	r := setupRouter(t, testConfig("http://127.0.0.1:1"))
	w := newClient(t, r).do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, w.Body.String())
}

func TestAuthFlow(t *testing.T) {
	for _, tc := range []struct {
		name string
		dsn  string
	}{
		{"Memory", ""},
		{"SQLite", "sqlite://:memory:"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig("http://127.0.0.1:1")
			cfg.DatabaseURL = tc.dsn
			r := setupRouter(t, cfg)
			c := newClient(t, r)

			w := c.do(http.MethodGet, "/api/user", nil)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, "Authentication required", message(w))

			w = c.do(http.MethodPost, "/api/register", gin.H{"username": "alice", "password": "secret1"})
			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, "alice", gjson.Get(w.Body.String(), "username").String())
			assert.False(t, gjson.Get(w.Body.String(), "password").Exists())
			assert.True(t, gjson.Get(w.Body.String(), "newsApiKey").Exists())

			// 注册后已登录
			w = c.do(http.MethodGet, "/api/user", nil)
			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, "alice", gjson.Get(w.Body.String(), "username").String())

			other := newClient(t, r)
			w = other.do(http.MethodPost, "/api/register", gin.H{"username": "alice", "password": "another1"})
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "Username already exists", message(w))

			w = other.do(http.MethodPost, "/api/login", gin.H{"username": "alice", "password": "wrong-pass"})
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, "Invalid username or password", message(w))

			w = other.do(http.MethodPost, "/api/login", gin.H{"username": "alice", "password": "secret1"})
			require.Equal(t, http.StatusOK, w.Code)
			w = other.do(http.MethodGet, "/api/user", nil)
			assert.Equal(t, http.StatusOK, w.Code)

			w = c.do(http.MethodPost, "/api/logout", nil)
			assert.Equal(t, http.StatusOK, w.Code)
			w = c.do(http.MethodGet, "/api/user", nil)
			assert.Equal(t, http.StatusUnauthorized, w.Code)

			// 另一个会话不受影响
			w = other.do(http.MethodGet, "/api/user", nil)
			assert.Equal(t, http.StatusOK, w.Code)
		})
	}
}

func TestLogoutIdempotent(t *testing.T) {
	r := setupRouter(t, testConfig("http://127.0.0.1:1"))
	c := newClient(t, r)
	register(t, c, "alice")

	for i := 0; i < 2; i++ {
		w := c.do(http.MethodPost, "/api/logout", nil)
		assert.Equal(t, http.StatusOK, w.Code, "logout #%d", i+1)
	}
	w := c.do(http.MethodGet, "/api/user", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// 从未登录过
	w = newClient(t, r).do(http.MethodPost, "/api/logout", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLoginRenewsSession(t *testing.T) {
	for _, tc := range []struct {
		name string
		dsn  string
	}{
		{"Memory", ""},
		{"SQLite", "sqlite://:memory:"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig("http://127.0.0.1:1")
			cfg.DatabaseURL = tc.dsn
			r := setupRouter(t, cfg)

			register(t, newClient(t, r), "bob")

			c := newClient(t, r)
			register(t, c, "alice")

			// 复制 alice 的 cookie，模拟被固定的会话
			stale := newClient(t, r)
			for name, ck := range c.cookies {
				stale.cookies[name] = ck
			}
			w := stale.do(http.MethodGet, "/api/user", nil)
			require.Equal(t, http.StatusOK, w.Code)

			w = c.do(http.MethodPost, "/api/login", gin.H{"username": "bob", "password": "secret1"})
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())

			w = c.do(http.MethodGet, "/api/user", nil)
			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, "bob", gjson.Get(w.Body.String(), "username").String())

			// 旧 session id 已作废，既不是 alice 也不是 bob
			w = stale.do(http.MethodGet, "/api/user", nil)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestRegisterValidation(t *testing.T) {
	r := setupRouter(t, testConfig("http://127.0.0.1:1"))
	c := newClient(t, r)

	for _, body := range []interface{}{
		"not json",
		gin.H{"username": "alice"},
		gin.H{"username": "al", "password": "secret1"},
		gin.H{"username": "alice", "password": "123"},
	} {
		w := c.do(http.MethodPost, "/api/register", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, "%v", body)
		assert.NotEmpty(t, message(w))
	}

	w := c.do(http.MethodPost, "/api/login", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProtectedRoutes(t *testing.T) {
	r := setupRouter(t, testConfig("http://127.0.0.1:1"))
	c := newClient(t, r)

	for _, route := range []struct{ method, path string }{
		{http.MethodPut, "/api/user/api-keys"},
		{http.MethodGet, "/api/interests"},
		{http.MethodPost, "/api/interests"},
		{http.MethodPut, "/api/interests/1"},
		{http.MethodDelete, "/api/interests/1"},
		{http.MethodPost, "/api/articles"},
		{http.MethodGet, "/api/news/article/1/summary"},
		{http.MethodGet, "/api/news/custom"},
	} {
		w := c.do(route.method, route.path, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, route.path)
		assert.Equal(t, "Authentication required", message(w))
	}
}

func TestInterests(t *testing.T) {
	r := setupRouter(t, testConfig("http://127.0.0.1:1"))
	c := newClient(t, r)
	register(t, c, "alice")

	w := c.do(http.MethodGet, "/api/interests", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = c.do(http.MethodPost, "/api/interests", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Interest name is required", message(w))

	w = c.do(http.MethodPost, "/api/interests", gin.H{"name": "A"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = c.do(http.MethodPost, "/api/interests", gin.H{"name": strings.Repeat("x", 51)})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var ids []int64
	for _, name := range []string{"Technology", "AI", " Climate "} {
		w = c.do(http.MethodPost, "/api/interests", gin.H{"name": name})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		assert.True(t, gjson.Get(w.Body.String(), "active").Bool())
		ids = append(ids, gjson.Get(w.Body.String(), "id").Int())
	}

	w = c.do(http.MethodGet, "/api/interests", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `["AI","Climate","Technology"]`, gjson.Get(w.Body.String(), "#.name").Raw)

	tech := "/api/interests/" + gjson.Get(w.Body.String(), "2.id").String()

	w = c.do(http.MethodPut, tech, gin.H{"active": false})
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, gjson.Get(w.Body.String(), "active").Bool())
	assert.Equal(t, "Technology", gjson.Get(w.Body.String(), "name").String())

	w = c.do(http.MethodPut, tech, gin.H{"name": "", "active": true})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Technology", gjson.Get(w.Body.String(), "name").String(), "空名称不修改")

	w = c.do(http.MethodPut, tech, gin.H{"name": "X"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = c.do(http.MethodPut, "/api/interests/9999", gin.H{"active": false})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Interest not found", message(w))

	w = c.do(http.MethodPut, "/api/interests/abc", gin.H{"active": false})
	assert.Equal(t, http.StatusNotFound, w.Code)

	// 其他用户看不到也改不了
	bob := newClient(t, r)
	register(t, bob, "bob")
	w = bob.do(http.MethodPut, tech, gin.H{"name": "Hijacked"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = bob.do(http.MethodDelete, tech, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = bob.do(http.MethodGet, "/api/interests", nil)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = c.do(http.MethodDelete, tech, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = c.do(http.MethodDelete, tech, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = c.do(http.MethodGet, "/api/interests", nil)
	assert.Equal(t, `["AI","Climate"]`, gjson.Get(w.Body.String(), "#.name").Raw)
	assert.Len(t, ids, 3)
}

func TestArticlesAndSummary(t *testing.T) {
	r := setupRouter(t, testConfig("http://127.0.0.1:1"))
	c := newClient(t, r)
	register(t, c, "alice")

	w := c.do(http.MethodPost, "/api/articles", gin.H{"description": "no title"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Article title is required", message(w))
	w = c.do(http.MethodPost, "/api/articles", gin.H{"title": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// 只有空字符串被拒绝，空白标题照常保存
	w = c.do(http.MethodPost, "/api/articles", gin.H{"title": "   "})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "   ", gjson.Get(w.Body.String(), "title").String())

	w = c.do(http.MethodPost, "/api/articles", gin.H{
		"title":       "Rates hold steady",
		"description": "The central bank kept rates unchanged.",
		"content":     "Officials signalled patience on Wednesday.",
		"source":      gin.H{"id": "reuters", "name": "Reuters"},
		"url":         "https://example.com/rates",
		"publishedAt": "2024-05-01T10:00:00Z",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := w.Body.String()
	id := gjson.Get(body, "id").String()
	assert.Equal(t, "Reuters", gjson.Get(body, "source").String())
	assert.Equal(t, "https://example.com/rates", gjson.Get(body, "sourceId").String())
	assert.Equal(t, "2024-05-01T10:00:00Z", gjson.Get(body, "publishedAt").String())
	assert.Equal(t, gjson.Null, gjson.Get(body, "summary").Type)

	// 相同 sourceId 返回已有记录
	w = c.do(http.MethodPost, "/api/articles", gin.H{
		"title":       "Different title",
		"sourceId":    "https://example.com/rates",
		"publishedAt": "definitely not a date",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, id, gjson.Get(w.Body.String(), "id").String())
	assert.Equal(t, "Rates hold steady", gjson.Get(w.Body.String(), "title").String())

	w = c.do(http.MethodPost, "/api/articles", gin.H{"title": "Bad date", "publishedAt": "definitely not a date"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, gjson.Null, gjson.Get(w.Body.String(), "publishedAt").Type)

	w = c.do(http.MethodGet, "/api/news/article/"+id+"/summary", nil)
	require.Equal(t, http.StatusOK, w.Code)
	summary := gjson.Get(w.Body.String(), "summary").String()
	assert.Equal(t, "The central bank kept rates unchanged.\n\nOfficials signalled patience on Wednesday.\n\nSource: Reuters", summary)
	assert.Contains(t, gjson.Get(w.Body.String(), "summaryHtml").String(), "<p>")

	// 摘要已写回，再次请求结果相同
	w = c.do(http.MethodGet, "/api/news/article/"+id+"/summary", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, summary, gjson.Get(w.Body.String(), "summary").String())

	w = c.do(http.MethodPost, "/api/articles", gin.H{"title": "Rates hold steady", "sourceId": "https://example.com/rates"})
	assert.Equal(t, summary, gjson.Get(w.Body.String(), "summary").String())

	w = c.do(http.MethodGet, "/api/news/article/9999/summary", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Article not found", message(w))
	w = c.do(http.MethodGet, "/api/news/article/abc/summary", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestNewsRoutes(t *testing.T) {
	api := newFakeNewsAPI(t)
	r := setupRouter(t, testConfig(api.URL))
	c := newClient(t, r)

	// 未登录使用默认 key
	w := c.do(http.MethodGet, "/api/news/top-headlines?category=technology&page=2", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Hello", gjson.Get(w.Body.String(), "articles.0.title").String())
	key, url := api.last()
	assert.Equal(t, "default-news", key)
	assert.Contains(t, url, "category=technology")
	assert.Contains(t, url, "page=2")
	assert.Contains(t, url, "pageSize=10")

	w = c.do(http.MethodGet, "/api/news/top-headlines?category=fail", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, `News API error: {"status":"error","code":"rateLimited"}`, message(w))

	w = c.do(http.MethodGet, "/api/news/search", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Search query is required", message(w))

	w = c.do(http.MethodGet, "/api/news/search?q=golang", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	_, url = api.last()
	assert.Contains(t, url, "/everything?")
	assert.Contains(t, url, "sortBy=relevancy")

	register(t, c, "alice")
	w = c.do(http.MethodPut, "/api/user/api-keys", gin.H{"newsApiKey": "personal-news"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "personal-news", gjson.Get(w.Body.String(), "newsApiKey").String())
	assert.Equal(t, gjson.Null, gjson.Get(w.Body.String(), "geminiApiKey").Type)

	w = c.do(http.MethodGet, "/api/news/top-headlines", nil)
	require.Equal(t, http.StatusOK, w.Code)
	key, _ = api.last()
	assert.Equal(t, "personal-news", key)

	// 清空后回到默认 key
	w = c.do(http.MethodPut, "/api/user/api-keys", gin.H{"newsApiKey": ""})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, gjson.Null, gjson.Get(w.Body.String(), "newsApiKey").Type)
	c.do(http.MethodGet, "/api/news/top-headlines", nil)
	key, _ = api.last()
	assert.Equal(t, "default-news", key)

	w = c.do(http.MethodPut, "/api/user/api-keys", "oops")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCustomNews(t *testing.T) {
	api := newFakeNewsAPI(t)
	r := setupRouter(t, testConfig(api.URL))
	c := newClient(t, r)
	register(t, c, "alice")

	w := c.do(http.MethodGet, "/api/news/custom", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "No active interests found. Add interests to see personalized news.", message(w))

	w = c.do(http.MethodPost, "/api/interests", gin.H{"name": "Space"})
	require.Equal(t, http.StatusCreated, w.Code)
	space := "/api/interests/" + gjson.Get(w.Body.String(), "id").String()
	w = c.do(http.MethodPost, "/api/interests", gin.H{"name": "Energy"})
	require.Equal(t, http.StatusCreated, w.Code)
	w = c.do(http.MethodPost, "/api/interests", gin.H{"name": "Sports", "active": false})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.False(t, gjson.Get(w.Body.String(), "active").Bool())

	w = c.do(http.MethodGet, "/api/news/custom?pageSize=5", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := w.Body.String()
	assert.Equal(t, "ok", gjson.Get(body, "status").String())
	assert.Equal(t, `["Energy","Space"]`, gjson.Get(body, "interests").Raw)
	assert.Equal(t, "Energy OR Space", gjson.Get(body, "generatedQuery").String())
	_, url := api.last()
	assert.Contains(t, url, "q=Energy+OR+Space")
	assert.Contains(t, url, "pageSize=5")

	w = c.do(http.MethodPut, space, gin.H{"active": false})
	require.Equal(t, http.StatusOK, w.Code)
	w = c.do(http.MethodGet, "/api/news/custom", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Energy", gjson.Get(w.Body.String(), "generatedQuery").String())
}

func TestNewsRateLimit(t *testing.T) {
	api := newFakeNewsAPI(t)
	cfg := testConfig(api.URL)
	cfg.RateLimitRPS = 1
	cfg.RateLimitBurst = 1
	r := setupRouter(t, cfg)
	c := newClient(t, r)

	w := c.do(http.MethodGet, "/api/news/top-headlines", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = c.do(http.MethodGet, "/api/news/top-headlines", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "Too many requests", message(w))

	// 限流只作用于新闻接口
	w = c.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
