package services

import "newsfeed/internal/models"

// KeyResolver 选择调用第三方 API 使用的 key：
// 已登录且设置了个人 key 时用个人的，否则用默认 key
type KeyResolver struct {
	DefaultNewsKey   string
	DefaultGeminiKey string
}

func (r KeyResolver) NewsKey(user *models.User) string {
	return pick(user, func(u *models.User) *string { return u.NewsAPIKey }, r.DefaultNewsKey)
}

func (r KeyResolver) GeminiKey(user *models.User) string {
	return pick(user, func(u *models.User) *string { return u.GeminiAPIKey }, r.DefaultGeminiKey)
}

func pick(user *models.User, slot func(*models.User) *string, def string) string {
	if user != nil {
		if key := slot(user); key != nil && *key != "" {
			return *key
		}
	}
	return def
}
