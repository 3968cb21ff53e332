// Package gormstore 基于 gorm 的持久化存储后端，支持 postgres 和 sqlite。
package gormstore

import (
	"context"
	"errors"
	"strings"

	"newsfeed/internal/models"
	"newsfeed/internal/storage"

	"gorm.io/gorm"
)

type Store struct {
	db *gorm.DB
}

var _ storage.Storage = (*Store)(nil)

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Users -----------------------------------------------------------------------

func (s *Store) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *Store) CreateUser(ctx context.Context, in storage.NewUser) (*models.User, error) {
	// 先查一次，给出明确的重复错误；并发注册时由唯一索引兜底
	if _, err := s.GetUserByUsername(ctx, in.Username); err == nil {
		return nil, storage.ErrDuplicate
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	user := models.User{
		Username:     in.Username,
		Password:     in.Password,
		NewsAPIKey:   storage.Normalize(in.NewsAPIKey),
		GeminiAPIKey: storage.Normalize(in.GeminiAPIKey),
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *Store) UpdateUser(ctx context.Context, id uint, in storage.UserUpdate) (*models.User, error) {
	updates := map[string]interface{}{}
	if in.NewsAPIKey != nil {
		updates["news_api_key"] = storage.Normalize(in.NewsAPIKey)
	}
	if in.GeminiAPIKey != nil {
		updates["gemini_api_key"] = storage.Normalize(in.GeminiAPIKey)
	}

	if len(updates) > 0 {
		result := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(updates)
		if result.Error != nil {
			return nil, translate(result.Error)
		}
		if result.RowsAffected == 0 {
			return nil, storage.ErrNotFound
		}
	}
	return s.GetUser(ctx, id)
}

// DeleteUser 显式删除关联数据，不依赖数据库是否开启外键
func (s *Store) DeleteUser(ctx context.Context, id uint) (bool, error) {
	var deleted bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&models.UserArticle{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.Interest{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.User{}, id)
		if result.Error != nil {
			return result.Error
		}
		deleted = result.RowsAffected > 0
		return nil
	})
	if err != nil {
		return false, translate(err)
	}
	return deleted, nil
}

// Interests -------------------------------------------------------------------

func (s *Store) GetInterests(ctx context.Context, userID uint) ([]models.Interest, error) {
	interests := make([]models.Interest, 0)
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("name ASC, id ASC").
		Find(&interests).Error
	if err != nil {
		return nil, translate(err)
	}
	return interests, nil
}

func (s *Store) CreateInterest(ctx context.Context, in storage.NewInterest) (*models.Interest, error) {
	if _, err := s.GetUser(ctx, in.UserID); err != nil {
		return nil, err
	}

	interest := models.Interest{
		UserID: in.UserID,
		Name:   in.Name,
		Active: true,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&interest).Error; err != nil {
			return err
		}
		// bool 零值会被 default:true 覆盖，false 需要单独更新
		if in.Active != nil && !*in.Active {
			if err := tx.Model(&interest).Update("active", false).Error; err != nil {
				return err
			}
			interest.Active = false
		}
		return nil
	})
	if err != nil {
		return nil, translate(err)
	}
	return &interest, nil
}

func (s *Store) UpdateInterest(ctx context.Context, id uint, in storage.InterestUpdate) (*models.Interest, error) {
	var interest models.Interest
	if err := s.db.WithContext(ctx).First(&interest, id).Error; err != nil {
		return nil, translate(err)
	}

	updates := map[string]interface{}{}
	if in.Name != nil {
		updates["name"] = *in.Name
	}
	if in.Active != nil {
		updates["active"] = *in.Active
	}
	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(&interest).Updates(updates).Error; err != nil {
			return nil, translate(err)
		}
	}
	return &interest, nil
}

func (s *Store) DeleteInterest(ctx context.Context, id uint) (bool, error) {
	result := s.db.WithContext(ctx).Delete(&models.Interest{}, id)
	if result.Error != nil {
		return false, translate(result.Error)
	}
	return result.RowsAffected > 0, nil
}

// Articles --------------------------------------------------------------------

func (s *Store) GetArticleByID(ctx context.Context, id uint) (*models.Article, error) {
	var article models.Article
	if err := s.db.WithContext(ctx).First(&article, id).Error; err != nil {
		return nil, translate(err)
	}
	return &article, nil
}

func (s *Store) GetArticleBySourceID(ctx context.Context, sourceID string) (*models.Article, error) {
	var article models.Article
	err := s.db.WithContext(ctx).
		Where("source_id = ?", sourceID).
		Order("id ASC").
		First(&article).Error
	if err != nil {
		return nil, translate(err)
	}
	return &article, nil
}

// SaveArticle 查重和插入之间没有加锁，也没有唯一索引，并发时可能写入重复行
func (s *Store) SaveArticle(ctx context.Context, in storage.NewArticle) (*models.Article, error) {
	article := in.ToModel()
	if article.SourceID != nil {
		existing, err := s.GetArticleBySourceID(ctx, *article.SourceID)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
	}

	if err := s.db.WithContext(ctx).Create(&article).Error; err != nil {
		return nil, translate(err)
	}
	return &article, nil
}

func (s *Store) UpdateArticleSummary(ctx context.Context, id uint, summary string) (*models.Article, error) {
	result := s.db.WithContext(ctx).
		Model(&models.Article{}).
		Where("id = ?", id).
		Update("summary", storage.Normalize(&summary))
	if result.Error != nil {
		return nil, translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, storage.ErrNotFound
	}
	return s.GetArticleByID(ctx, id)
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return storage.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey),
		strings.Contains(strings.ToLower(err.Error()), "unique"):
		return storage.ErrDuplicate
	default:
		return err
	}
}
