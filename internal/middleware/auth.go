package middleware

import (
	"errors"
	"net/http"

	"newsfeed/internal/logger"
	"newsfeed/internal/models"
	"newsfeed/internal/storage"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	gsessions "github.com/gorilla/sessions"
	"go.uber.org/zap"
)

const (
	CheckUserKey   = "user"
	SessionUserKey = "user_id"
)

// AuthRequired 未登录时返回 401，依赖 LoadUser 先执行
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Authentication required"})
			return
		}
		c.Next()
	}
}

// LoadUser 从 session 取 user_id，查到用户后放进 context。
// session 指向的用户已不存在时按未登录处理。
func LoadUser(store storage.Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		id, ok := sessionUserID(session.Get(SessionUserKey))
		if !ok {
			c.Next()
			return
		}

		user, err := store.GetUser(c.Request.Context(), id)
		if err == nil {
			c.Set(CheckUserKey, user)
		} else if !errors.Is(err, storage.ErrNotFound) {
			logger.Error("load session user failed", zap.Uint("user_id", id), zap.Error(err))
		}
		c.Next()
	}
}

// CurrentUser 当前登录用户，未登录返回 nil
func CurrentUser(c *gin.Context) *models.User {
	v, exists := c.Get(CheckUserKey)
	if !exists {
		return nil
	}
	user, _ := v.(*models.User)
	return user
}

// Login 建立会话。已有会话先作废，换一个新的 session id
func Login(c *gin.Context, user *models.User) error {
	session := sessions.Default(c)
	if err := renewSession(c, session); err != nil {
		return err
	}
	session.Set(SessionUserKey, user.ID)
	if err := session.Save(); err != nil {
		return err
	}
	c.Set(CheckUserKey, user)
	return nil
}

// Logout 清除会话，重复调用不会出错
func Logout(c *gin.Context) error {
	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{Path: "/", MaxAge: -1})
	return session.Save()
}

// renewSession 删除旧会话记录并清空 ID，下次 Save 时由 store 生成新 ID
func renewSession(c *gin.Context, session sessions.Session) error {
	raw, ok := session.(interface{ Session() *gsessions.Session })
	if !ok {
		session.Clear()
		return nil
	}

	gs := raw.Session()
	if gs.ID != "" {
		opts := gsessions.Options{Path: "/"}
		if gs.Options != nil {
			opts = *gs.Options
		}
		expired := opts
		expired.MaxAge = -1
		gs.Options = &expired
		if err := gs.Save(c.Request, c.Writer); err != nil {
			return err
		}
		gs.Options = &opts
		gs.ID = ""
		gs.IsNew = true
	}
	session.Clear()
	return nil
}

func sessionUserID(v interface{}) (uint, bool) {
	switch id := v.(type) {
	case uint:
		return id, id > 0
	case int:
		return uint(id), id > 0
	case int64:
		return uint(id), id > 0
	case uint64:
		return uint(id), id > 0
	case float64:
		return uint(id), id > 0
	default:
		return 0, false
	}
}
