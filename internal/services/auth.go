package services

import (
	"context"
	"errors"
	"unicode/utf8"

	"newsfeed/internal/models"
	"newsfeed/internal/storage"
	"newsfeed/internal/utils"
	"newsfeed/internal/xerr"
)

const (
	UsernameMinLen = 3
	UsernameMaxLen = 50
	PasswordMinLen = 6
)

type AuthService struct {
	store storage.Storage
}

func NewAuthService(store storage.Storage) *AuthService {
	return &AuthService{store: store}
}

// Register 创建用户，返回的 User 不含明文密码（Password 字段不会被序列化）
func (s *AuthService) Register(ctx context.Context, username, password string) (*models.User, error) {
	if username == "" || password == "" {
		return nil, xerr.Validation("Username and password are required")
	}
	if n := utf8.RuneCountInString(username); n < UsernameMinLen || n > UsernameMaxLen {
		return nil, xerr.Validation("Username must be between 3 and 50 characters")
	}
	if utf8.RuneCountInString(password) < PasswordMinLen {
		return nil, xerr.Validation("Password must be at least 6 characters")
	}

	hashed, err := utils.HashPassword(password)
	if err != nil {
		return nil, xerr.Internal("Failed to register", err)
	}

	user, err := s.store.CreateUser(ctx, storage.NewUser{Username: username, Password: hashed})
	if errors.Is(err, storage.ErrDuplicate) {
		return nil, xerr.Validation("Username already exists")
	}
	if err != nil {
		return nil, xerr.Internal("Failed to register", err)
	}
	return user, nil
}

// Login 用户不存在和密码错误返回同一个错误
func (s *AuthService) Login(ctx context.Context, username, password string) (*models.User, error) {
	if username == "" || password == "" {
		return nil, xerr.Validation("Username and password are required")
	}

	user, err := s.store.GetUserByUsername(ctx, username)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, xerr.Authentication("Invalid username or password")
	}
	if err != nil {
		return nil, xerr.Internal("Failed to login", err)
	}

	if !utils.CheckPasswordHash(password, user.Password) {
		return nil, xerr.Authentication("Invalid username or password")
	}
	return user, nil
}
