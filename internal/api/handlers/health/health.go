package health

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"recipe-suggester/internal/core/ai/queue"
	"recipe-suggester/internal/infrastructure/config"
	"recipe-suggester/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Pinger 可檢查連線的依賴
type Pinger interface {
	Ping(ctx context.Context) error
}

// QueueStatuser 回報隊列狀態
type QueueStatuser interface {
	GetQueueStatus() *queue.Status
}

// HealthResponse 健康檢查響應
type HealthResponse struct {
	Status    string                 `json:"status"`
	Message   string                 `json:"message"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime"`
	Queue     *queue.Status          `json:"queue,omitempty"`
}

// HealthCheck 健康檢查處理器
func HealthCheck(c *gin.Context) {
	version := ""
	if cfg, ok := c.Get("config"); ok {
		if appCfg, ok := cfg.(*config.Config); ok {
			version = appCfg.App.Version
		}
	}

	// 獲取運行時信息
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	response := HealthResponse{
		Status:    "healthy",
		Message:   "Recipe Suggester API is running",
		Timestamp: time.Now(),
		Version:   version,
		Runtime: map[string]interface{}{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]interface{}{
				"alloc":       m.Alloc,
				"total_alloc": m.TotalAlloc,
				"sys":         m.Sys,
				"num_gc":      m.NumGC,
			},
		},
	}

	if q, ok := c.Get("queue"); ok {
		if statuser, ok := q.(QueueStatuser); ok {
			response.Queue = statuser.GetQueueStatus()
		}
	}

	common.LogDebug("Health check request",
		zap.String("client_ip", c.ClientIP()),
		zap.String("path", c.Request.URL.Path),
	)

	c.JSON(http.StatusOK, response)
}

// StoreCheck 任務儲存連線檢查，對應 /health/db
func StoreCheck(c *gin.Context) {
	v, ok := c.Get("job_store")
	pinger, isPinger := v.(Pinger)
	if !ok || !isPinger {
		c.JSON(http.StatusOK, gin.H{"status": "unhealthy", "message": "Job store not configured"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := pinger.Ping(ctx); err != nil {
		common.LogWarn("任務儲存連線失敗", zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"status": "unhealthy", "message": "Job store connection failed: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "message": "Job store connection is working"})
}

// ReadinessCheck 就緒檢查處理器，任務儲存無法連線時回 503
func ReadinessCheck(c *gin.Context) {
	if v, ok := c.Get("job_store"); ok {
		if pinger, ok := v.(Pinger); ok {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := pinger.Ping(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "detail": err.Error()})
				return
			}
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
	})
}

// LivenessCheck 存活檢查處理器
func LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}
