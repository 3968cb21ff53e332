package handlers

import (
	"net/http"

	"newsfeed/internal/middleware"
	"newsfeed/internal/services"
	"newsfeed/internal/xerr"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	auth *services.AuthService
}

func NewAuthHandler(auth *services.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register - 注册后直接登录
func (h *AuthHandler) Register(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, xerr.Validation("Username and password are required").Wrap(err))
		return
	}

	user, err := h.auth.Register(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		abortWithError(c, err)
		return
	}

	if err := middleware.Login(c, user); err != nil {
		abortWithError(c, xerr.Internal("Failed to establish session", err))
		return
	}
	c.JSON(http.StatusOK, user)
}

// Login - 用户名密码登录
func (h *AuthHandler) Login(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, xerr.Validation("Username and password are required").Wrap(err))
		return
	}

	user, err := h.auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		abortWithError(c, err)
		return
	}

	if err := middleware.Login(c, user); err != nil {
		abortWithError(c, xerr.Internal("Failed to establish session", err))
		return
	}
	c.JSON(http.StatusOK, user)
}

// Logout - 退出登录，可重复调用
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := middleware.Logout(c); err != nil {
		abortWithError(c, xerr.Internal("Failed to logout", err))
		return
	}
	c.Status(http.StatusOK)
}

// Me - 当前用户
func (h *AuthHandler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, currentUser(c))
}
