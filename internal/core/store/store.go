package store

import (
	"context"
	"errors"
	"fmt"

	"recipe-suggester/internal/infrastructure/config"
	"recipe-suggester/internal/pkg/common"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

var (
	// ErrJobFinished 任務已是終止狀態，不可再變更
	ErrJobFinished = errors.New("job already finished")
	// ErrJobNotFound 任務不存在
	ErrJobNotFound = errors.New("job not found")
)

// JobStore 任務紀錄
type JobStore interface {
	// CreateJob 建立 running 狀態的任務
	CreateJob(ctx context.Context, kind common.JobKind, recipeID int64) (common.Job, error)
	GetJob(ctx context.Context, kind common.JobKind, jobID int64) (common.Job, error)
	// CompleteJob running → completed，同時寫入 payload 與 end_time
	CompleteJob(ctx context.Context, kind common.JobKind, jobID int64, payload string) (common.Job, error)
	// FailJob running → failed
	FailJob(ctx context.Context, kind common.JobKind, jobID int64) (common.Job, error)
	// LatestJob 食譜最新的任務，不存在時回傳 nil
	LatestJob(ctx context.Context, kind common.JobKind, recipeID int64) (*common.Job, error)
	// DeleteRecipeJobs 刪除食譜時清掉關聯任務
	DeleteRecipeJobs(ctx context.Context, recipeID int64) error
	Ping(ctx context.Context) error
	Close() error
}

// NewJobStore 依設定選擇 memory 或 redis
func NewJobStore(ctx context.Context, cfg *config.Config) (JobStore, error) {
	switch cfg.Store.Driver {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Store.RedisAddr,
			Password: cfg.Store.RedisPassword,
			DB:       cfg.Store.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("connect redis %s: %w", cfg.Store.RedisAddr, err)
		}
		common.LogInfo("任務儲存使用 Redis", zap.String("addr", cfg.Store.RedisAddr))
		return NewRedisJobStore(client), nil
	case "memory", "":
		common.LogInfo("任務儲存使用記憶體")
		return NewMemoryJobStore(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
