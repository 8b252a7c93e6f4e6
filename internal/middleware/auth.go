package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"Pitch_Board/internal/pkg"
	"Pitch_Board/internal/service"
)

const (
	ContextUserIDKey    = "user_id"
	ContextSessionIDKey = "session_id"
)

var (
	errMissingHeader = errors.New("missing authorization header")
	errBadFormat     = errors.New("invalid authorization format")
)

// Authenticator 校验 access token 并确认会话仍有效，service.AccountService 实现
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*pkg.Claims, error)
}

// BearerToken 取 Authorization: Bearer <token>
func BearerToken(c *gin.Context) (string, error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", errMissingHeader
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", errBadFormat
	}
	return parts[1], nil
}

// RequireAuth 必须登录
func RequireAuth(auth Authenticator, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr, err := BearerToken(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"msg": err.Error()})
			return
		}
		authenticate(c, auth, log, tokenStr)
	}
}

// OptionalAuth 没带 token 按匿名放行；带了就必须有效
func OptionalAuth(auth Authenticator, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			c.Next()
			return
		}
		tokenStr, err := BearerToken(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"msg": err.Error()})
			return
		}
		authenticate(c, auth, log, tokenStr)
	}
}

func authenticate(c *gin.Context, auth Authenticator, log *logrus.Logger, tokenStr string) {
	claims, err := auth.Authenticate(c.Request.Context(), tokenStr)
	if err != nil {
		if errors.Is(err, service.ErrUnauthenticated) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"msg": err.Error()})
			return
		}
		// 会话存储不可用之类
		log.WithError(err).Error("authenticate failed")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"msg": "internal error"})
		return
	}

	// 注入 user_id / session_id
	c.Set(ContextUserIDKey, claims.UserID)
	c.Set(ContextSessionIDKey, claims.SessionID())
	c.Next()
}

// UserID 当前请求的用户，匿名为 0
func UserID(c *gin.Context) uint64 {
	return c.GetUint64(ContextUserIDKey)
}
