package db

import (
	"context"
	"net/http"
	"time"

	"newsfeed/internal/config"
	"newsfeed/internal/logger"
	"newsfeed/internal/storage"
	"newsfeed/internal/storage/gormstore"
	"newsfeed/internal/storage/memory"

	"github.com/gin-contrib/sessions"
	gormsessions "github.com/gin-contrib/sessions/gorm"
	"github.com/gin-contrib/sessions/memstore"
	"gorm.io/gorm"
)

// Backend 一起选出的数据存储和 session 存储：
// 配置了 DATABASE_URL 时两者都落库，否则都放在内存里
type Backend struct {
	Storage  storage.Storage
	Sessions sessions.Store
	Durable  bool

	db *gorm.DB
}

func NewBackend(cfg config.Config) (*Backend, error) {
	secret := []byte(cfg.SessionSecret)

	if cfg.DatabaseURL == "" {
		logger.Warn("DATABASE_URL not set, using in-memory storage")
		store := memstore.NewStore(secret)
		applySessionOptions(store, cfg)
		return &Backend{
			Storage:  memory.New(),
			Sessions: store,
		}, nil
	}

	gdb, err := Open(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := Migrate(gdb); err != nil {
		return nil, err
	}

	// 会话表由 gormstore 自己建，过期清理见 StartSessionCleanup
	store := gormsessions.NewStore(gdb, false, secret)
	applySessionOptions(store, cfg)
	return &Backend{
		Storage:  gormstore.New(gdb),
		Sessions: store,
		Durable:  true,
		db:       gdb,
	}, nil
}

// StartSessionCleanup 按 interval 删除过期会话，ctx 结束时退出。
// 内存 session 不需要清理，返回 false
func (b *Backend) StartSessionCleanup(ctx context.Context, interval time.Duration) bool {
	c, ok := b.Sessions.(interface {
		PeriodicCleanup(time.Duration, <-chan struct{})
	})
	if !ok {
		return false
	}
	go c.PeriodicCleanup(interval, ctx.Done())
	return true
}

func (b *Backend) Close() error {
	if b.db == nil {
		return nil
	}
	sqlDB, err := b.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func applySessionOptions(store sessions.Store, cfg config.Config) {
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   cfg.SessionMaxAge,
		HttpOnly: true,
		Secure:   cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
}
