package middleware

import (
	"fmt"
	"time"

	"recipe-suggester/internal/pkg/common"
	"recipe-suggester/internal/telemetry"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// 探針路由只記 debug
var healthRoutes = map[string]bool{
	"/health":    true,
	"/health/db": true,
	"/ready":     true,
	"/live":      true,
	"/metrics":   true,
}

// Logger 記錄每個請求並統計延遲
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		// 以路由樣板統計，避免 id 造成大量標籤
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		telemetry.RequestDuration.
			WithLabelValues(c.Request.Method, route, fmt.Sprintf("%dxx", status/100)).
			Observe(latency.Seconds())

		fields := []zap.Field{
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.String("path", c.Request.URL.Path),
			zap.String("ip", c.ClientIP()),
			zap.Duration("latency", latency),
			// 請求 ID 由 requestid 中間件寫入回應標頭
			zap.String("request_id", c.Writer.Header().Get("X-Request-ID")),
		}
		if userID, ok := UserID(c); ok {
			fields = append(fields, zap.Int64("user_id", userID))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.Strings("errors", c.Errors.Errors()))
		}

		switch {
		case status >= 500:
			common.LogError("伺服器錯誤", fields...)
		case status >= 400:
			common.LogWarn("用戶端錯誤", fields...)
		case healthRoutes[route]:
			common.LogDebug("探針請求", fields...)
		default:
			common.LogInfo("請求完成", fields...)
		}
	}
}

// Recovery panic 時回傳 500，不外洩錯誤內容
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				common.LogError("Panic recovered",
					zap.Any("error", err),
					zap.String("path", c.Request.URL.Path),
					zap.String("method", c.Request.Method),
				)
				c.AbortWithStatusJSON(common.ResponseFor(common.ErrInternalError))
			}
		}()

		c.Next()
	}
}
