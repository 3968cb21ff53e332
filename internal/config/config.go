package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	AppEnv        string `mapstructure:"APP_ENV"`
	Port          string `mapstructure:"PORT"`
	DatabaseURL   string `mapstructure:"DATABASE_URL"` // 为空时使用内存存储
	SessionSecret string `mapstructure:"SESSION_SECRET"`
	SessionMaxAge int    `mapstructure:"SESSION_MAX_AGE"` // 秒
	LogLevel      string `mapstructure:"LOG_LEVEL"`

	DefaultNewsAPIKey   string        `mapstructure:"DEFAULT_NEWS_API_KEY"`
	DefaultGeminiAPIKey string        `mapstructure:"DEFAULT_GEMINI_API_KEY"`
	NewsAPIBaseURL      string        `mapstructure:"NEWS_API_BASE_URL"`
	NewsAPITimeout      time.Duration `mapstructure:"NEWS_API_TIMEOUT"`
	NewsCacheTTL        time.Duration `mapstructure:"NEWS_CACHE_TTL"` // 0 表示不缓存
	NewsCacheSize       int           `mapstructure:"NEWS_CACHE_SIZE"`

	RateLimitRPS   float64 `mapstructure:"RATE_LIMIT_RPS"` // <= 0 关闭限流
	RateLimitBurst int     `mapstructure:"RATE_LIMIT_BURST"`
}

// LoadConfig 读取 .env（可选）和环境变量
func LoadConfig() (Config, error) {
	// .env 不存在时忽略，直接读系统环境变量
	_ = godotenv.Load()

	v := viper.New()
	v.SetDefault("APP_ENV", "local")
	v.SetDefault("PORT", "8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("SESSION_SECRET", "secret_key_change_me")
	v.SetDefault("SESSION_MAX_AGE", 7*24*3600)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DEFAULT_NEWS_API_KEY", "")
	v.SetDefault("DEFAULT_GEMINI_API_KEY", "")
	v.SetDefault("NEWS_API_BASE_URL", "https://newsapi.org/v2")
	v.SetDefault("NEWS_API_TIMEOUT", 10*time.Second)
	v.SetDefault("NEWS_CACHE_TTL", time.Duration(0))
	v.SetDefault("NEWS_CACHE_SIZE", 500)
	v.SetDefault("RATE_LIMIT_RPS", 5.0)
	v.SetDefault("RATE_LIMIT_BURST", 20)

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	cfg.NewsAPIBaseURL = strings.TrimSuffix(cfg.NewsAPIBaseURL, "/")
	return cfg, nil
}

func (c Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Missing 返回未配置的默认 API key 名称，用于启动时告警
func (c Config) Missing() []string {
	var missing []string
	if c.DefaultNewsAPIKey == "" {
		missing = append(missing, "DEFAULT_NEWS_API_KEY")
	}
	if c.DefaultGeminiAPIKey == "" {
		missing = append(missing, "DEFAULT_GEMINI_API_KEY")
	}
	return missing
}
