package queue

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"recipe-suggester/internal/infrastructure/config"
	"recipe-suggester/internal/pkg/common"

	"go.uber.org/zap"
)

// Task 背景任務
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Status 隊列狀態
type Status struct {
	QueueLength    int `json:"queue_length"`
	ProcessedCount int `json:"processed_count"`
	FailedCount    int `json:"failed_count"`
	MaxQueueSize   int `json:"max_queue_size"`
	Workers        int `json:"workers"`
}

// Manager 有上限的任務隊列與固定數量的 worker
type Manager struct {
	workers   int
	maxSize   int
	queue     chan Task
	done      chan struct{}
	closeOnce sync.Once
	processed int64
	failed    int64
}

// NewManager 創建新的隊列管理器
func NewManager(cfg *config.Config) *Manager {
	return newManager(cfg.Queue.Workers, cfg.Queue.MaxSize)
}

func newManager(workers, maxSize int) *Manager {
	if workers <= 0 {
		workers = 1
	}
	if maxSize <= 0 {
		maxSize = 1
	}
	return &Manager{
		workers: workers,
		maxSize: maxSize,
		queue:   make(chan Task, maxSize),
		done:    make(chan struct{}),
	}
}

// Enqueue 將任務加入隊列，隊列已滿時立即回傳 ErrQueueFull
func (m *Manager) Enqueue(ctx context.Context, task Task) error {
	select {
	case <-m.done:
		return fmt.Errorf("queue manager is closed")
	default:
	}

	select {
	case m.queue <- task:
		common.LogDebug("Task enqueued",
			zap.String("task", task.Name),
			zap.Int("queue_length", len(m.queue)),
			zap.Int("max_queue_size", m.maxSize),
		)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		common.LogWarn("隊列已滿", zap.String("task", task.Name), zap.Int("max_queue_size", m.maxSize))
		return common.ErrQueueFull
	}
}

// Run 啟動 worker 並阻塞直到 ctx 結束或 Close
func (m *Manager) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for i := 0; i < m.workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			m.work(ctx, id)
		}(i)
	}
	common.LogInfo("任務隊列已啟動", zap.Int("workers", m.workers), zap.Int("max_queue_size", m.maxSize))
	wg.Wait()

	if dropped := len(m.queue); dropped > 0 {
		common.LogWarn("隊列關閉時仍有未處理任務", zap.Int("dropped", dropped))
	}
	return nil
}

func (m *Manager) work(ctx context.Context, id int) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.done:
			return
		case task := <-m.queue:
			m.execute(ctx, id, task)
		}
	}
}

func (m *Manager) execute(ctx context.Context, worker int, task Task) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			atomic.AddInt64(&m.failed, 1)
			common.LogError("Task panic recovered",
				zap.String("task", task.Name),
				zap.Any("error", r),
			)
		}
	}()

	err := task.Run(ctx)
	atomic.AddInt64(&m.processed, 1)
	if err != nil {
		atomic.AddInt64(&m.failed, 1)
		common.LogWarn("任務執行失敗",
			zap.String("task", task.Name),
			zap.Int("worker", worker),
			zap.Duration("耗時", time.Since(start)),
			zap.Error(err),
		)
		return
	}
	common.LogDebug("任務執行完成",
		zap.String("task", task.Name),
		zap.Int("worker", worker),
		zap.Duration("耗時", time.Since(start)),
	)
}

// GetQueueStatus 獲取隊列狀態
func (m *Manager) GetQueueStatus() *Status {
	return &Status{
		QueueLength:    len(m.queue),
		ProcessedCount: int(atomic.LoadInt64(&m.processed)),
		FailedCount:    int(atomic.LoadInt64(&m.failed)),
		MaxQueueSize:   m.maxSize,
		Workers:        m.workers,
	}
}

// Close 停止所有 worker
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		close(m.done)
	})
}
