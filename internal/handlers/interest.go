package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"newsfeed/internal/models"
	"newsfeed/internal/storage"
	"newsfeed/internal/utils"
	"newsfeed/internal/xerr"

	"github.com/gin-gonic/gin"
)

var (
	errInterestNotFound = xerr.NotFound("Interest not found")
	errInterestName     = xerr.Validation("Interest name must be between 2 and 50 characters")
)

type InterestHandler struct {
	store storage.Storage
}

func NewInterestHandler(store storage.Storage) *InterestHandler {
	return &InterestHandler{store: store}
}

type interestRequest struct {
	Name   *string `json:"name"`
	Active *bool   `json:"active"`
}

// List - 当前用户的兴趣，按名称排序
func (h *InterestHandler) List(c *gin.Context) {
	interests, err := h.store.GetInterests(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		abortWithError(c, xerr.Internal("Failed to fetch interests", err))
		return
	}
	c.JSON(http.StatusOK, interests)
}

// Create - 新建兴趣，默认启用
func (h *InterestHandler) Create(c *gin.Context) {
	var req interestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, xerr.Validation("Interest name is required").Wrap(err))
		return
	}

	name := ""
	if req.Name != nil {
		name = strings.TrimSpace(*req.Name)
	}
	if name == "" {
		abortWithError(c, xerr.Validation("Interest name is required"))
		return
	}
	if !validInterestName(name) {
		abortWithError(c, errInterestName)
		return
	}

	interest, err := h.store.CreateInterest(c.Request.Context(), storage.NewInterest{
		UserID: currentUser(c).ID,
		Name:   name,
		Active: req.Active,
	})
	if err != nil {
		abortWithError(c, xerr.Internal("Failed to create interest", err))
		return
	}
	c.JSON(http.StatusCreated, interest)
}

// Update - 修改名称或启用状态，空名称视为不修改
func (h *InterestHandler) Update(c *gin.Context) {
	id, ok := utils.ParseID(c.Param("id"))
	if !ok {
		abortWithError(c, errInterestNotFound)
		return
	}

	var req interestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, xerr.Validation("Invalid request body").Wrap(err))
		return
	}

	var update storage.InterestUpdate
	if req.Name != nil {
		if name := strings.TrimSpace(*req.Name); name != "" {
			if !validInterestName(name) {
				abortWithError(c, errInterestName)
				return
			}
			update.Name = &name
		}
	}
	update.Active = req.Active

	ctx := c.Request.Context()
	if err := h.checkOwner(ctx, currentUser(c), id); err != nil {
		abortWithError(c, err)
		return
	}

	interest, err := h.store.UpdateInterest(ctx, id, update)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			abortWithError(c, errInterestNotFound)
			return
		}
		abortWithError(c, xerr.Internal("Failed to update interest", err))
		return
	}
	c.JSON(http.StatusOK, interest)
}

// Delete - 删除兴趣
func (h *InterestHandler) Delete(c *gin.Context) {
	id, ok := utils.ParseID(c.Param("id"))
	if !ok {
		abortWithError(c, errInterestNotFound)
		return
	}

	ctx := c.Request.Context()
	if err := h.checkOwner(ctx, currentUser(c), id); err != nil {
		abortWithError(c, err)
		return
	}

	deleted, err := h.store.DeleteInterest(ctx, id)
	if err != nil {
		abortWithError(c, xerr.Internal("Failed to delete interest", err))
		return
	}
	if !deleted {
		abortWithError(c, errInterestNotFound)
		return
	}
	c.Status(http.StatusNoContent)
}

// checkOwner 别人的兴趣按不存在处理
func (h *InterestHandler) checkOwner(ctx context.Context, user *models.User, id uint) error {
	interests, err := h.store.GetInterests(ctx, user.ID)
	if err != nil {
		return xerr.Internal("Failed to fetch interests", err)
	}
	for _, in := range interests {
		if in.ID == id {
			return nil
		}
	}
	return errInterestNotFound
}

func validInterestName(name string) bool {
	n := utf8.RuneCountInString(name)
	return n >= models.InterestNameMinLen && n <= models.InterestNameMaxLen
}
