package middleware

import (
	"strings"

	"recipe-suggester/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const userIDKey = "user_id"

// TokenValidator 驗證存取權杖並回傳使用者 ID
type TokenValidator interface {
	ValidateAccessToken(token string) (int64, error)
}

// Auth 要求 Bearer 權杖
func Auth(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			c.Header("WWW-Authenticate", "Bearer")
			c.AbortWithStatusJSON(common.ResponseFor(common.ErrUnauthorized.WithMessage("Not authenticated")))
			return
		}

		userID, err := validator.ValidateAccessToken(strings.TrimSpace(token))
		if err != nil {
			common.LogDebug("權杖驗證失敗", zap.String("path", c.Request.URL.Path), zap.Error(err))
			c.Header("WWW-Authenticate", "Bearer")
			c.AbortWithStatusJSON(common.ResponseFor(common.ErrUnauthorized.WithMessage("Could not validate credentials")))
			return
		}

		c.Set(userIDKey, userID)
		c.Next()
	}
}

// UserID 取得已驗證的使用者 ID
func UserID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(userIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}
