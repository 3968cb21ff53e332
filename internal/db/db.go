package db

import (
	"fmt"
	"strings"

	"newsfeed/internal/logger"
	"newsfeed/internal/models"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Dialector 根据 DATABASE_URL 选择驱动
//
//	postgres://... / postgresql://... / "host=... user=..."  -> postgres
//	sqlite://path                                             -> sqlite
func Dialector(dsn string) (gorm.Dialector, error) {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"),
		strings.Contains(dsn, "host="):
		return postgres.Open(dsn), nil
	case strings.HasPrefix(dsn, "sqlite://"):
		return sqlite.Open(strings.TrimPrefix(dsn, "sqlite://")), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", dsn)
	}
}

func Open(dsn string) (*gorm.DB, error) {
	dialector, err := Dialector(dsn)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// sqlite 的 :memory: 每个连接都是独立的库
	if strings.Contains(dsn, ":memory:") {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.SetMaxOpenConns(1)
		}
	}

	logger.Info("Database connection established")
	return db, nil
}

// Migrate 建表，可重复执行
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Interest{},
		&models.Article{},
		&models.UserArticle{},
	)
	if err != nil {
		logger.Error("Failed to migrate database", zap.Error(err))
		return err
	}
	logger.Info("Database migration completed")
	return nil
}
