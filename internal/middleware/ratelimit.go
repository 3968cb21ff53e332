package middleware

import (
	"context"
	"sync"
	"time"

	"newsfeed/internal/logger"
	"newsfeed/internal/xerr"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// 超过这个数量时清理时整个重置
const maxTrackedIPs = 10000

// IPRateLimiter 按客户端 IP 分别限流
type IPRateLimiter struct {
	ips map[string]*rate.Limiter
	mu  sync.Mutex
	r   rate.Limit
	b   int
}

func NewIPRateLimiter(r rate.Limit, b int) *IPRateLimiter {
	return &IPRateLimiter{
		ips: make(map[string]*rate.Limiter),
		r:   r,
		b:   b,
	}
}

func (i *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	i.mu.Lock()
	defer i.mu.Unlock()

	limiter, exists := i.ips[ip]
	if !exists {
		limiter = rate.NewLimiter(i.r, i.b)
		i.ips[ip] = limiter
	}
	return limiter
}

// StartCleanup 定期清理，ctx 结束时退出
func (i *IPRateLimiter) StartCleanup(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				i.cleanup()
			}
		}
	}()
}

func (i *IPRateLimiter) cleanup() {
	i.mu.Lock()
	defer i.mu.Unlock()
	if len(i.ips) > maxTrackedIPs {
		logger.Info("Cleaning up rate limiter map", zap.Int("count", len(i.ips)))
		i.ips = make(map[string]*rate.Limiter)
	}
}

var errTooManyRequests = xerr.RateLimited("Too many requests")

func RateLimit(limiter *IPRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.GetLimiter(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(errTooManyRequests.Status, gin.H{"message": errTooManyRequests.Message})
			return
		}
		c.Next()
	}
}
