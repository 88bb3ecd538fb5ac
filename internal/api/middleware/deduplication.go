package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"recipe-suggester/internal/pkg/common"
)

// Deduplication 拒絕窗口內重複送出的相同 POST（同一憑證、路徑與內容）
func Deduplication(window time.Duration) gin.HandlerFunc {
	var mu sync.Mutex
	seen := make(map[string]time.Time)
	lastSweep := time.Now()

	return func(c *gin.Context) {
		// 只處理 JSON POST；multipart 上傳不計算雜湊
		if c.Request.Method != "POST" || strings.HasPrefix(c.ContentType(), "multipart/") {
			c.Next()
			return
		}

		hasher := sha256.New()
		hasher.Write([]byte(c.GetHeader("Authorization")))
		hasher.Write([]byte(c.Request.URL.Path))
		if c.Request.Body != nil {
			body, err := io.ReadAll(c.Request.Body)
			if err != nil {
				common.LogError("Failed to read request body", zap.Error(err))
				c.AbortWithStatusJSON(common.ResponseFor(common.ErrInvalidRequest.WithMessage("Failed to read request body")))
				return
			}
			hasher.Write(body)
			c.Request.Body = io.NopCloser(bytes.NewBuffer(body))
		}
		fingerprint := hex.EncodeToString(hasher.Sum(nil))

		now := time.Now()
		mu.Lock()
		if now.Sub(lastSweep) > 10*window {
			for k, t := range seen {
				if now.Sub(t) > window {
					delete(seen, k)
				}
			}
			lastSweep = now
		}
		last, exists := seen[fingerprint]
		duplicate := exists && now.Sub(last) <= window
		if !duplicate {
			seen[fingerprint] = now
		}
		mu.Unlock()

		if duplicate {
			common.LogInfo("重複請求已拒絕", zap.String("path", c.Request.URL.Path))
			c.AbortWithStatusJSON(common.ResponseFor(common.ErrTooManyRequests.WithMessage("Request too frequent")))
			return
		}

		c.Next()
	}
}
