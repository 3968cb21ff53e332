package handlers

import (
	"net/http"

	"newsfeed/internal/logger"
	"newsfeed/internal/middleware"
	"newsfeed/internal/models"
	"newsfeed/internal/xerr"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// abortWithError 记录原始错误，只把分类后的消息返回给客户端
func abortWithError(c *gin.Context, err error) {
	e := xerr.From(err)

	fields := []zap.Field{
		zap.String("kind", e.Kind.String()),
		zap.Int("status", e.Status),
		zap.String("path", c.Request.URL.Path),
		zap.String("request_id", c.GetString(middleware.RequestIDKey)),
	}
	if e.Err != nil {
		fields = append(fields, zap.Error(e.Err))
	}

	switch {
	case e.Status >= http.StatusInternalServerError:
		logger.Error(e.Message, fields...)
	case xerr.IsKind(e, xerr.KindUpstream):
		logger.Warn(e.Message, fields...)
	default:
		logger.Debug(e.Message, fields...)
	}

	c.AbortWithStatusJSON(e.Status, gin.H{"message": e.Message})
}

// currentUser 路由已经挂了 AuthRequired 时不会为 nil
func currentUser(c *gin.Context) *models.User {
	return middleware.CurrentUser(c)
}

// rawJSON 直接输出上游返回的 JSON
func rawJSON(c *gin.Context, code int, body []byte) {
	c.Data(code, "application/json; charset=utf-8", body)
}
