package handlers

import (
	"errors"
	"net/http"

	"newsfeed/internal/storage"
	"newsfeed/internal/xerr"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	store storage.Storage
}

func NewUserHandler(store storage.Storage) *UserHandler {
	return &UserHandler{store: store}
}

type apiKeysRequest struct {
	NewsAPIKey   *string `json:"newsApiKey"`
	GeminiAPIKey *string `json:"geminiApiKey"`
}

// UpdateAPIKeys - 设置个人 API key。两个字段整体替换，null 或空串表示清除
func (h *UserHandler) UpdateAPIKeys(c *gin.Context) {
	var req apiKeysRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, xerr.Validation("Invalid request body").Wrap(err))
		return
	}

	update := storage.UserUpdate{
		NewsAPIKey:   orEmpty(req.NewsAPIKey),
		GeminiAPIKey: orEmpty(req.GeminiAPIKey),
	}
	user, err := h.store.UpdateUser(c.Request.Context(), currentUser(c).ID, update)
	if errors.Is(err, storage.ErrNotFound) {
		abortWithError(c, xerr.ErrAuthRequired)
		return
	}
	if err != nil {
		abortWithError(c, xerr.Internal("Failed to update API keys", err))
		return
	}
	c.JSON(http.StatusOK, user)
}

func orEmpty(s *string) *string {
	if s == nil {
		empty := ""
		return &empty
	}
	return s
}
